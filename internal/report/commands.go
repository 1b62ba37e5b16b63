package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/kballard/go-shellquote"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

const maxOutputName = 64

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// outputName derives a file name for a command without a suggested one.
func outputName(cmd string) string {
	name := strings.Trim(unsafeNameChars.ReplaceAllString(cmd, "_"), "_.")
	if len(name) > maxOutputName {
		name = name[:maxOutputName]
	}
	if name == "" {
		name = "command"
	}
	return name
}

// outputPaths assigns each command a unique report relative output path.
func (c *pluginCollector) outputPaths() []string {
	used := make(map[string]int, len(c.commands))
	paths := make([]string, len(c.commands))
	for i, cmd := range c.commands {
		name := cmd.SuggestFilename
		if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			name = outputName(cmd.Cmd)
		}
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s.%d", name, n)
		}
		paths[i] = path.Join(commandsDir, c.plugin.Name(), name)
	}
	return paths
}

// runCommands executes the queued commands with bounded parallelism. A failing
// command never stops the others.
func (c *pluginCollector) runCommands(ctx context.Context) error {
	outputs := c.outputPaths()
	entries := make([]CommandEntry, len(c.commands))
	errs := make([]error, len(c.commands))

	var g errgroup.Group
	g.SetLimit(c.r.opts.Jobs)
	for i, cmd := range c.commands {
		g.Go(func() error {
			entries[i], errs[i] = c.runCommand(ctx, cmd, outputs[i])
			return nil
		})
	}
	_ = g.Wait()

	c.commandEntries = entries

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

func (c *pluginCollector) runCommand(ctx context.Context, cmd core.Command, output string) (CommandEntry, error) {
	entry := CommandEntry{
		Cmd:      c.logger.Sanitize(cmd.Cmd),
		Output:   output,
		ExitCode: -1,
	}

	argv, err := shellquote.Split(cmd.Cmd)
	if err != nil {
		derr := core.ErrValidation(core.CodeBadCommand, fmt.Sprintf("cannot split %q", entry.Cmd)).WithCause(err)
		entry.Error = derr.Error()
		return entry, derr
	}
	if len(argv) == 0 {
		derr := core.ErrValidation(core.CodeEmptyCommand, "empty command")
		entry.Error = derr.Error()
		return entry, derr
	}

	c.logger.Debug("running command", "cmd", cmd.Cmd, "output", output)
	res, runErr := c.r.runner.Run(ctx, argv, c.r.opts.CmdTimeout)
	if res != nil {
		entry.ExitCode = res.ExitCode
		entry.DurationMS = res.Duration.Milliseconds()
		entry.TimedOut = res.TimedOut
	}

	if res != nil && (runErr == nil || len(res.Output) > 0) {
		if err := c.writeOutput(output, res.Output); err != nil {
			return entry, core.ErrExecution(core.CodeCommandFailed,
				fmt.Sprintf("saving output of %q", entry.Cmd)).WithCause(err)
		}
	}

	if runErr != nil {
		entry.Error = c.logger.Sanitize(runErr.Error())
		c.logger.Warn("command failed", "cmd", cmd.Cmd, "error", runErr)
		// the cause is dropped: it may carry credentials from the command line
		if entry.TimedOut {
			return entry, core.ErrTimeout(fmt.Sprintf("%s: %s", output, entry.Error))
		}
		return entry, core.ErrExecution(core.CodeCommandFailed, fmt.Sprintf("%s: %s", output, entry.Error))
	}
	return entry, nil
}

func (c *pluginCollector) writeOutput(rel string, data []byte) error {
	dest := c.destPath(rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}
	return renameio.WriteFile(dest, data, 0o600)
}
