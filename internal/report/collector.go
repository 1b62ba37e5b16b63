package report

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hashicorp/go-multierror"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/logging"
)

// pluginCollector is the core.Collector handed to one plugin. With an empty
// dir it only records what the plugin asks for.
type pluginCollector struct {
	r       *Report
	plugin  core.Plugin
	dir     string
	options map[string]int
	logger  *logging.Logger

	// collected is shared by all plugins of a run, keyed by host path.
	collected map[string]copiedFile

	copySpecs      []string
	commands       []core.Command
	copied         []copiedFile
	owned          map[string]bool
	commandEntries []CommandEntry
	redactions     int
}

var _ core.Collector = (*pluginCollector)(nil)

func newPluginCollector(r *Report, p core.Plugin, dir string, collected map[string]copiedFile) *pluginCollector {
	return &pluginCollector{
		r:         r,
		plugin:    p,
		dir:       dir,
		options:   r.effectiveOptions(p),
		logger:    r.logger.WithPlugin(p.Name()),
		collected: collected,
		owned:     make(map[string]bool),
	}
}

// collect runs the plugin through setup, collection and post-processing. The
// returned error aggregates everything that went wrong; a failed setup skips
// the rest.
func (c *pluginCollector) collect(ctx context.Context) error {
	if err := c.setup(ctx); err != nil {
		return err
	}

	var errs *multierror.Error
	if err := c.collectFiles(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := c.runCommands(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := c.postproc(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	c.logger.Debug("plugin collected",
		"files", len(c.copied),
		"commands", len(c.commandEntries),
		"redactions", c.redactions)
	return errs.ErrorOrNil()
}

// setup runs the plugin's Setup stage. A panic is turned into an error so
// one broken plugin cannot stop the run.
func (c *pluginCollector) setup(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("plugin setup panicked", "panic", fmt.Sprint(r))
			err = core.ErrInternal(core.CodeSetupFailed, fmt.Sprintf("setup panicked: %v", r))
		}
	}()
	if err := c.plugin.Setup(ctx, c); err != nil {
		return core.ErrExecution(core.CodeSetupFailed, "setup failed").WithCause(err)
	}
	return nil
}

func (c *pluginCollector) postproc(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("plugin postproc panicked", "panic", fmt.Sprint(r))
			err = core.ErrInternal(core.CodePostprocFailed, fmt.Sprintf("postproc panicked: %v", r))
		}
	}()
	if err := c.plugin.Postproc(ctx, c); err != nil {
		return core.ErrExecution(core.CodePostprocFailed, "postproc failed").WithCause(err)
	}
	return nil
}

// AddCopySpec implements core.Collector.
func (c *pluginCollector) AddCopySpec(paths ...string) {
	c.copySpecs = append(c.copySpecs, paths...)
}

// AddCmdOutput implements core.Collector.
func (c *pluginCollector) AddCmdOutput(cmd core.Command) {
	c.commands = append(c.commands, cmd)
}

// IntOption implements core.Collector. Undeclared options read as zero.
func (c *pluginCollector) IntOption(name string) int {
	return c.options[name]
}

// HostPath implements core.Collector.
func (c *pluginCollector) HostPath(path string) string {
	return c.r.HostPath(path)
}

// Logger implements core.Collector.
func (c *pluginCollector) Logger() *slog.Logger {
	return c.logger.Logger
}

// DoPathRegexSub implements core.Collector. The path pattern must match at
// the start of the host path a file was copied from.
func (c *pluginCollector) DoPathRegexSub(rule core.RegexSub) (int, error) {
	pathRe, err := regexp.Compile(`^(?:` + rule.PathPattern + `)`)
	if err != nil {
		return 0, core.ErrValidation(core.CodeInvalidPattern,
			fmt.Sprintf("invalid path pattern %q", rule.PathPattern)).WithCause(err)
	}
	re, err := regexp.Compile(rule.Regex)
	if err != nil {
		return 0, core.ErrValidation(core.CodeInvalidPattern,
			fmt.Sprintf("invalid regex %q", rule.Regex)).WithCause(err)
	}
	if c.dir == "" {
		return 0, nil
	}

	total := 0
	for _, f := range c.copied {
		if !pathRe.MatchString(f.Source) {
			continue
		}
		n, err := substituteFile(c.destPath(f.Dest), re, rule.Replacement)
		if err != nil {
			return total, core.ErrExecution(core.CodeCopyFailed,
				fmt.Sprintf("rewriting %s", f.Source)).WithCause(err)
		}
		if n > 0 {
			c.logger.Debug("substituted", "file", f.Source, "replacements", n)
		}
		total += n
	}
	c.redactions += total
	return total, nil
}
