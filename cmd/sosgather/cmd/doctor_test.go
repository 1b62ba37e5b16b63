package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookPath(available ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, a := range available {
			if a == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestRunDoctor(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		config    string
		wantErr   string
		wantOut   []string
	}{
		{
			name:      "all tools present",
			available: []string{"bash", "rpm", "mongo"},
			wantOut:   []string{"/usr/bin/bash", "/usr/bin/mongo", "configuration valid", "Ready to collect"},
		},
		{
			name:      "optional tools missing",
			available: []string{"bash"},
			wantOut:   []string{"mongo (optional, queries the Pulp database)", "Ready to collect"},
		},
		{
			name:      "bash missing",
			available: []string{"rpm", "mongo"},
			wantErr:   "dependency check failed",
			wantOut:   []string{"Some required dependencies are missing"},
		},
		{
			name:      "invalid configuration",
			available: []string{"bash", "rpm", "mongo"},
			config:    "report:\n  jobs: 0\n  sysroot: relative\n",
			wantErr:   "configuration check failed",
			wantOut:   []string{"report.jobs", "report.sysroot"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfig(t)

			cmd := newDoctorCmd()
			newTestRoot(cmd)
			var args []string
			if tt.config != "" {
				path := filepath.Join(t.TempDir(), "sosgather.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.config), 0o600))
				args = append(args, "--config", path)
			}
			require.NoError(t, cmd.ParseFlags(args))

			var out bytes.Buffer
			err := runDoctor(&out, cmd, fakeLookPath(tt.available...))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestDoctorCommandRegistered(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"doctor"})
	require.NoError(t, err)
	assert.Equal(t, "doctor", cmd.Name())
}
