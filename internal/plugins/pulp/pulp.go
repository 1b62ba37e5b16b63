// Package pulp collects configuration, web server logs and mongo database
// diagnostics from a Pulp server.
package pulp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

// RedactionMarker replaces secret values in collected files.
const RedactionMarker = "********"

// OptionTasks is the batch size applied to the task queries.
const OptionTasks = "tasks"

var copySpecs = []string{
	"/etc/pulp/*.conf",
	"/etc/pulp/server/plugins.conf.d/",
	"/etc/default/pulp*",
	"/var/log/httpd/pulp-http.log*",
	"/var/log/httpd/pulp-https.log*",
	"/var/log/httpd/pulp-http_access_ssl.log*",
	"/var/log/httpd/pulp-https_access_ssl.log*",
	"/var/log/httpd/pulp-http_error_ssl.log*",
	"/var/log/httpd/pulp-https_error_ssl.log*",
}

// Plugin is the Pulp collector.
type Plugin struct {
	logger *slog.Logger
}

// New creates the Pulp plugin. A nil logger discards debug output.
func New(logger *slog.Logger) *Plugin {
	return &Plugin{logger: logger}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string { return "pulp" }

// Description returns a short summary.
func (p *Plugin) Description() string { return "Pulp platform" }

// Packages lists the packages that enable the plugin.
func (p *Plugin) Packages() []string {
	return []string{"pulp-server", "pulp-katello"}
}

// Options lists the plugin options.
func (p *Plugin) Options() []core.Option {
	return []core.Option{
		{
			Name:        OptionTasks,
			Description: "number of tasks to collect from DB queries",
			Speed:       "fast",
			Default:     DefaultTaskBatch,
		},
	}
}

// CopySpecs returns the paths and globs copied into the report.
func (p *Plugin) CopySpecs() []string {
	specs := make([]string, len(copySpecs))
	copy(specs, copySpecs)
	return specs
}

// Setup reads the database location from server.conf and queues the file
// copies and database queries.
func (p *Plugin) Setup(_ context.Context, c core.Collector) error {
	logger := p.logger
	if logger == nil {
		logger = c.Logger()
	}

	conn := ParseServerConf(c.HostPath(ServerConfPath), logger)
	logger.Debug("resolved pulp database", "host", conn.Host, "port", conn.Port)

	c.AddCopySpec(p.CopySpecs()...)

	for _, cmd := range DiagnosticCommands(conn, c.IntOption(OptionTasks)) {
		c.AddCmdOutput(cmd)
	}
	return nil
}

// RedactionRules returns the substitutions that hide secrets in the copied
// configuration. Keys matching passw, token, cred or secret keep their name and
// colon while the value becomes RedactionMarker.
func (p *Plugin) RedactionRules() []core.RegexSub {
	return []core.RegexSub{
		{
			PathPattern: `/etc/pulp/(.*).conf`,
			Regex:       `(([a-z].*(passw|token|cred|secret).*)\:(\s))(.*)`,
			Replacement: `${1}` + RedactionMarker,
		},
		{
			PathPattern: `/etc/pulp(.*)(.json$)`,
			Regex:       `(\s*\".*(passw|cred|token|secret).*\:)(.*)`,
			Replacement: `${1} ` + RedactionMarker,
		},
	}
}

// Postproc redacts secrets from the collected configuration files.
func (p *Plugin) Postproc(_ context.Context, c core.Collector) error {
	for _, rule := range p.RedactionRules() {
		if _, err := c.DoPathRegexSub(rule); err != nil {
			return fmt.Errorf("redacting %s: %w", rule.PathPattern, err)
		}
	}
	return nil
}
