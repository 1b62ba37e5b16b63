package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/plugins"
	"github.com/hugo-lorenzo-mato/sosgather/internal/report"
	"github.com/hugo-lorenzo-mato/sosgather/internal/testutil"
)

type collectFixture struct {
	sysroot string
	output  string
	runner  *testutil.MockRunner
	deps    collectDeps
}

func newCollectFixture(t *testing.T, installed ...string) *collectFixture {
	t.Helper()
	isolateConfig(t)

	f := &collectFixture{
		sysroot: t.TempDir(),
		output:  t.TempDir(),
		runner:  testutil.NewMockRunner().WithOutput("db.stats()", "{ \"ok\" : 1 }\n"),
	}
	testutil.PulpSysroot(t, f.sysroot)

	checker := testutil.NewMockPackageChecker(installed...)
	f.deps = collectDeps{
		runner:   f.runner,
		packages: func(string) core.PackageChecker { return checker },
		plugins:  plugins.All(nil),
		setup: func(r *report.Report) *report.Report {
			return r.
				WithHostFacts(func(context.Context) (report.HostInfo, error) {
					return report.HostInfo{Hostname: "pulp01.example.com", OS: "linux"}, nil
				}).
				WithClock(func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) })
		},
	}
	return f
}

func (f *collectFixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{"collect", "--sysroot", f.sysroot, "--output", f.output}
	return execute(t, newTestRoot(newCollectCmdWithDeps(f.deps)), append(base, args...)...)
}

func TestCollect_DryRunPrintsPlan(t *testing.T) {
	f := newCollectFixture(t, "pulp-server")

	out, err := f.run(t, "--dry-run", "-k", "pulp.tasks=50")
	require.NoError(t, err)

	var plans []report.PluginPlan
	require.NoError(t, yaml.Unmarshal([]byte(out), &plans))
	require.Len(t, plans, 1)

	plan := plans[0]
	assert.Equal(t, "pulp", plan.Name)
	assert.True(t, plan.Enabled)
	assert.Equal(t, "package pulp-server installed", plan.Reason)
	assert.Equal(t, map[string]int{"tasks": 50}, plan.Options)

	want := []string{
		"/etc/pulp/repo_auth.conf",
		"/etc/pulp/server.conf",
		"/etc/pulp/server/plugins.conf.d",
		"/etc/default/pulp_workers",
		"/var/log/httpd/pulp-https.log",
		"/var/log/httpd/pulp-https.log-20261018",
		"/var/log/httpd/pulp-http_error_ssl.log",
	}
	if diff := cmp.Diff(want, plan.Files); diff != "" {
		t.Errorf("planned files mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, plan.Commands, 5)
	assert.Contains(t, plan.Commands[0].Cmd, "shellBatchSize=50")
	assert.NotContains(t, out, "s3cret")

	assert.Empty(t, f.runner.Calls())
}

func TestCollect_WritesDirectory(t *testing.T) {
	f := newCollectFixture(t, "pulp-katello")

	out, err := f.run(t, "--no-archive")
	require.NoError(t, err)

	dir := filepath.Join(f.output, "sosreport-pulp01-20261019090000")
	assert.Contains(t, out, "Report directory:")
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "1 enabled")
	assert.NotContains(t, out, "warnings")

	conf := testutil.ReadFile(t, dir, "etc/pulp/server.conf")
	assert.Contains(t, conf, "password: ********")
	assert.Equal(t, "{ \"ok\" : 1 }\n", testutil.ReadFile(t, dir, "sos_commands/pulp/mongo-db_stats"))

	manifest, err := report.ReadManifest(dir)
	require.NoError(t, err)
	require.Len(t, manifest.Plugins, 1)
	assert.Equal(t, "dev", manifest.ToolVersion)
	assert.Len(t, manifest.Plugins[0].Commands, 5)
	assert.Len(t, f.runner.Calls(), 5)
}

func TestCollect_WritesArchive(t *testing.T) {
	f := newCollectFixture(t, "pulp-server")

	out, err := f.run(t)
	require.NoError(t, err)

	archive := filepath.Join(f.output, "sosreport-pulp01-20261019090000.tar.gz")
	assert.Contains(t, out, "Report archive:")
	assert.Contains(t, out, archive)
	assert.Contains(t, out, "sha256:")
	assert.FileExists(t, archive)
	assert.FileExists(t, archive+".sha256")
	assert.NoDirExists(t, filepath.Join(f.output, "sosreport-pulp01-20261019090000"))
}

func TestCollect_NotInstalledCollectsNothing(t *testing.T) {
	f := newCollectFixture(t)

	out, err := f.run(t, "--no-archive")
	require.NoError(t, err)
	assert.Contains(t, out, "0 enabled")
	assert.Empty(t, f.runner.Calls())
}

func TestCollect_OnlyPluginsForcesPlugin(t *testing.T) {
	f := newCollectFixture(t)

	out, err := f.run(t, "--no-archive", "--only-plugins", "PULP")
	require.NoError(t, err)
	assert.Contains(t, out, "1 enabled")
	assert.Len(t, f.runner.Calls(), 5)
}

func TestCollect_ReportsWarnings(t *testing.T) {
	f := newCollectFixture(t, "pulp-server")
	f.runner.WithError("db.stats()", errors.New("mongo: connection refused"))

	out, err := f.run(t, "--no-archive")
	require.NoError(t, err)
	assert.Contains(t, out, "Collected with warnings:")
	assert.Contains(t, out, "plugin pulp")
	assert.Contains(t, out, "execution")
	assert.Contains(t, out, "1 of these may succeed on a re-run")
	assert.NotContains(t, out, "s3cret")
}

func TestCollect_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown plugin", []string{"--only-plugins", "plup"}, `unknown plugin "plup" (did you mean pulp?)`},
		{"malformed option", []string{"-k", "pulp.tasks"}, "expected plugin.option=value"},
		{"non numeric option", []string{"-k", "pulp.tasks=many"}, "value must be an integer"},
		{"undeclared option", []string{"-k", "pulp.task=5"}, `plugin pulp has no option "task"`},
		{"invalid timeout", []string{"--timeout", "soon"}, "report.cmd_timeout"},
		{"zero jobs", []string{"--jobs", "0"}, "report.jobs"},
		{"positional argument", []string{"extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCollectFixture(t, "pulp-server")

			_, err := f.run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, f.runner.Calls())
		})
	}
}
