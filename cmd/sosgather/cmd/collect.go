package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/plugins"
	"github.com/hugo-lorenzo-mato/sosgather/internal/report"
)

type collectOptions struct {
	output      string
	sysroot     string
	timeout     string
	jobs        int
	maxSize     string
	onlyPlugins []string
	allPlugins  bool
	pluginOpts  []string
	noArchive   bool
	dryRun      bool
}

// collectDeps are the host facing collaborators of a run.
type collectDeps struct {
	runner   core.CommandRunner
	packages func(sysroot string) core.PackageChecker
	plugins  []core.Plugin
	setup    func(r *report.Report) *report.Report
}

func defaultCollectDeps() collectDeps {
	runner := report.NewExecRunner()
	return collectDeps{
		runner: runner,
		packages: func(sysroot string) core.PackageChecker {
			return report.NewRPMChecker(runner, sysroot)
		},
		plugins: plugins.All(nil),
	}
}

func newCollectCmd() *cobra.Command {
	return newCollectCmdWithDeps(defaultCollectDeps())
}

func newCollectCmdWithDeps(deps collectDeps) *cobra.Command {
	opts := &collectOptions{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect a diagnostic report",
		Long: `Run every enabled plugin against the host and write a report.

A plugin is enabled when one of its packages is installed, when it is named
with --only-plugins or when --all-plugins is given. Plugin options are set
with -k plugin.option=value, for example -k pulp.tasks=500.`,
		Example: `  sosgather collect
  sosgather collect --only-plugins pulp -k pulp.tasks=500
  sosgather collect --sysroot /mnt/host --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollect(cmd, opts, deps)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "/var/tmp", "directory the report is written to")
	f.StringVar(&opts.sysroot, "sysroot", "/", "root of the inspected file system")
	f.StringVar(&opts.timeout, "timeout", "300s", "timeout for each collected command")
	f.IntVarP(&opts.jobs, "jobs", "j", 4, "commands run in parallel per plugin")
	f.StringVar(&opts.maxSize, "max-size", "25MB", "copy only the tail of larger files (0 for no limit)")
	f.StringSliceVarP(&opts.onlyPlugins, "only-plugins", "n", nil, "run only these plugins")
	f.BoolVarP(&opts.allPlugins, "all-plugins", "a", false, "run every plugin regardless of installed packages")
	f.StringArrayVarP(&opts.pluginOpts, "plugin-option", "k", nil, "plugin option as plugin.option=value (repeatable)")
	f.BoolVar(&opts.noArchive, "no-archive", false, "leave the report as a directory")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print what would be collected without collecting it")

	return cmd
}

func runCollect(cmd *cobra.Command, opts *collectOptions, deps collectDeps) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.logger.Close() }()

	cfg := rt.cfg
	if err := cfg.Plugins.MergePluginOptions(opts.pluginOpts); err != nil {
		return err
	}
	if opts.noArchive {
		cfg.Report.Archive = false
	}

	all := deps.plugins
	if _, err := plugins.Select(all, cfg.Plugins.Only); err != nil {
		return err
	}
	if err := plugins.ValidateOptions(all, cfg.Plugins.Options); err != nil {
		return err
	}

	rep := report.New(report.Options{
		OutputDir:     cfg.Report.OutputDir,
		Sysroot:       cfg.Report.Sysroot,
		CmdTimeout:    cfg.Report.Timeout(),
		Jobs:          cfg.Report.Jobs,
		Archive:       cfg.Report.Archive,
		MaxFileSize:   cfg.Report.MaxFileBytes(),
		OnlyPlugins:   cfg.Plugins.Only,
		AllPlugins:    cfg.Plugins.All,
		PluginOptions: cfg.Plugins.Options,
		ToolVersion:   appVersion,
	}, rt.logger, deps.runner, deps.packages(cfg.Report.Sysroot))
	if deps.setup != nil {
		rep = deps.setup(rep)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if opts.dryRun {
		plans, planErr := rep.Plan(ctx, all)
		if err := writePlan(out, plans); err != nil {
			return err
		}
		return planErr
	}

	result, err := rep.Run(ctx, all)
	if err != nil {
		return err
	}
	printResult(out, result, rt.logger.Sanitize)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writePlan(w io.Writer, plans []report.PluginPlan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plans); err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	return enc.Close()
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

func printResult(w io.Writer, result *report.Result, sanitize func(string) string) {
	if result.Archive != "" {
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("Report archive:"), result.Archive)
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("sha256:"), result.ArchiveSHA256)
	} else {
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("Report directory:"), result.Dir)
	}
	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("id:"), result.ReportID)

	enabled := 0
	for _, p := range result.Manifest.Plugins {
		if p.Enabled {
			enabled++
		}
	}
	fmt.Fprintf(w, "  %s %d enabled, %d files\n", mutedStyle.Render("plugins:"),
		enabled, len(result.Manifest.Files))

	if err := result.Warnings.ErrorOrNil(); err != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, warnStyle.Render("Collected with warnings:"))
		retryable := 0
		for _, e := range result.Warnings.WrappedErrors() {
			fmt.Fprintf(w, "  %s %s %s\n", warnStyle.Render("⚠"),
				mutedStyle.Render(string(core.GetCategory(e))), sanitize(e.Error()))
			if core.IsRetryable(e) {
				retryable++
			}
		}
		if retryable > 0 {
			fmt.Fprintf(w, "  %s\n", mutedStyle.Render(
				fmt.Sprintf("%d of these may succeed on a re-run", retryable)))
		}
	}
}
