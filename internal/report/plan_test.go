package report

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/plugins/pulp"
)

func TestPlan_Pulp(t *testing.T) {
	f := newFixture(t)

	plans, err := f.report(nil).Plan(context.Background(), []core.Plugin{pulp.New(nil)})
	require.NoError(t, err)
	require.Len(t, plans, 1)

	plan := plans[0]
	assert.True(t, plan.Enabled)
	assert.Equal(t, map[string]int{"tasks": 200}, plan.Options)
	assert.Len(t, plan.CopySpecs, 9)
	assert.Equal(t, []string{
		"/etc/pulp/repo_auth.conf",
		"/etc/pulp/server.conf",
		"/etc/pulp/server/plugins.conf.d",
		"/etc/default/pulp_workers",
		"/var/log/httpd/pulp-https.log",
		"/var/log/httpd/pulp-https.log-20261018",
		"/var/log/httpd/pulp-http_error_ssl.log",
	}, plan.Files)

	require.Len(t, plan.Commands, 5)
	assert.Equal(t, "sos_commands/pulp/mongo-task_status", plan.Commands[0].Output)
	for _, cmd := range plan.Commands {
		assert.Contains(t, cmd.Cmd, "-u alice -p [REDACTED]")
		assert.NotContains(t, cmd.Cmd, "s3cret")
	}

	// nothing ran and nothing was written
	assert.Empty(t, f.runner.Calls())
	entries, err := os.ReadDir(f.output)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPlan_DisabledAndFailing(t *testing.T) {
	f := newFixture(t)

	broken := &stubPlugin{name: "broken", packages: []string{"pulp-server"}, setupErr: errors.New("boom")}
	off := &stubPlugin{name: "off", packages: []string{"nothing"}}

	plans, err := f.report(nil).Plan(context.Background(), []core.Plugin{broken, off})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin broken")
	assert.Contains(t, err.Error(), "setup failed (boom)")

	require.Len(t, plans, 2)
	assert.True(t, plans[0].Enabled)
	assert.Empty(t, plans[0].Commands)
	assert.False(t, plans[1].Enabled)
	assert.Equal(t, "no trigger package installed", plans[1].Reason)
}

func TestPlan_SetupPanicIsContained(t *testing.T) {
	f := newFixture(t)

	broken := &stubPlugin{name: "broken", setup: func(core.Collector) { panic("nil map") }}
	ok := &stubPlugin{name: "fine", setup: func(c core.Collector) {
		c.AddCopySpec("/etc/default/pulp*")
	}}

	plans, err := f.report(func(o *Options) { o.AllPlugins = true }).
		Plan(context.Background(), []core.Plugin{broken, ok})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin broken")
	assert.Contains(t, err.Error(), "setup panicked: nil map")

	require.Len(t, plans, 2)
	assert.Empty(t, plans[0].Files)
	assert.Equal(t, []string{"/etc/default/pulp_workers"}, plans[1].Files)
}
