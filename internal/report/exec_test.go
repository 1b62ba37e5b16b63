package report

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/testutil"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_CombinedOutput(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Output), "out\n")
	assert.Contains(t, string(res.Output), "err\n")
	assert.False(t, res.TimedOut)
}

func TestExecRunner_CLocale(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), []string{"sh", "-c", "echo $LC_ALL"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "C\n", string(res.Output))
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), []string{"sh", "-c", "echo partial; exit 3"}, time.Minute)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "partial\n", string(res.Output))
	assert.True(t, core.IsCategory(err, core.ErrCatExecution))

	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestExecRunner_Timeout(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), []string{"sh", "-c", "sleep 5"}, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, res.TimedOut)
	assert.True(t, core.IsCategory(err, core.ErrCatTimeout))
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	res, err := NewExecRunner().Run(context.Background(), []string{"sosgather-no-such-binary"}, time.Minute)
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
}

func TestExecRunner_EmptyArgv(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), nil, time.Minute)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}

func TestRPMChecker(t *testing.T) {
	tests := []struct {
		name     string
		sysroot  string
		fail     bool
		wantArgv []string
		want     bool
	}{
		{"host root", "/", false, []string{"rpm", "-q", "--quiet", "pulp-server"}, true},
		{"empty sysroot", "", false, []string{"rpm", "-q", "--quiet", "pulp-server"}, true},
		{"alternate root", "/mnt/host", false, []string{"rpm", "--root", "/mnt/host", "-q", "--quiet", "pulp-server"}, true},
		{"not installed", "/", true, []string{"rpm", "-q", "--quiet", "pulp-server"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutil.NewMockRunner()
			if tt.fail {
				runner.WithError("pulp-server", errors.New("exit status 1"))
			}

			got := NewRPMChecker(runner, tt.sysroot).Installed(context.Background(), "pulp-server")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, [][]string{tt.wantArgv}, runner.Calls())
		})
	}
}
