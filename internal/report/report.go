// Package report gathers files and command output from the inspected host into
// a report directory, redacts it through the plugins and packs it into an
// archive.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/logging"
)

// Options configures a report run.
type Options struct {
	OutputDir     string
	Sysroot       string
	CmdTimeout    time.Duration
	Jobs          int
	Archive       bool
	MaxFileSize   int64
	OnlyPlugins   []string
	AllPlugins    bool
	PluginOptions map[string]map[string]int
	ToolVersion   string
}

// Result describes a finished run.
type Result struct {
	ReportID      string
	Dir           string
	Archive       string
	ArchiveSHA256 string
	Manifest      *Manifest

	// Warnings aggregates plugin failures that did not stop the run.
	Warnings *multierror.Error
}

// Report runs plugins against a host.
type Report struct {
	opts      Options
	logger    *logging.Logger
	runner    core.CommandRunner
	packages  core.PackageChecker
	hostFacts HostFactsFunc
	now       func() time.Time
}

// New creates a report runner.
func New(opts Options, logger *logging.Logger, runner core.CommandRunner, packages core.PackageChecker) *Report {
	if opts.Sysroot == "" {
		opts.Sysroot = "/"
	}
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Report{
		opts:      opts,
		logger:    logger,
		runner:    runner,
		packages:  packages,
		hostFacts: SystemHostFacts,
		now:       time.Now,
	}
}

// WithHostFacts replaces the host fact source.
func (r *Report) WithHostFacts(fn HostFactsFunc) *Report {
	r.hostFacts = fn
	return r
}

// WithClock replaces the clock used for the report name and manifest.
func (r *Report) WithClock(now func() time.Time) *Report {
	r.now = now
	return r
}

// HostPath resolves an absolute path on the inspected system.
func (r *Report) HostPath(path string) string {
	return filepath.Join(r.opts.Sysroot, path)
}

// Run collects every enabled plugin and writes the report. Only failures of
// the report itself are returned; plugin failures end up in Result.Warnings
// and in the manifest.
func (r *Report) Run(ctx context.Context, plugins []core.Plugin) (*Result, error) {
	facts, err := r.hostFacts(ctx)
	if err != nil {
		r.logger.Warn("host facts unavailable", "error", err)
	}

	now := r.now().UTC()
	id := uuid.NewString()
	logger := r.logger.WithReport(id)

	dir, err := r.createReportDir(facts.Hostname, now)
	if err != nil {
		return nil, err
	}
	logger.Info("collecting report", "dir", dir, "plugins", len(plugins))

	manifest := &Manifest{
		Version:     FormatVersion,
		ReportID:    id,
		ToolVersion: r.opts.ToolVersion,
		CreatedAt:   now,
		Sysroot:     r.opts.Sysroot,
		Host:        facts,
		Plugins:     make([]PluginEntry, 0, len(plugins)),
	}

	var warnings *multierror.Error
	collected := make(map[string]copiedFile)

	for _, p := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collection interrupted: %w", err)
		}

		enabled, reason := r.enablement(ctx, p)
		entry := PluginEntry{
			Name:    p.Name(),
			Enabled: enabled,
			Reason:  reason,
			Options: r.effectiveOptions(p),
		}
		if !enabled {
			logger.Debug("plugin skipped", "plugin", p.Name(), "reason", reason)
			manifest.Plugins = append(manifest.Plugins, entry)
			continue
		}

		c := newPluginCollector(r, p, dir, collected)
		if err := c.collect(ctx); err != nil {
			for _, e := range flatten(err) {
				entry.Errors = append(entry.Errors, logger.Sanitize(e.Error()))
			}
			warnings = multierror.Append(warnings, fmt.Errorf("plugin %s: %w", p.Name(), err))
		}
		entry.CopySpecs = c.copySpecs
		entry.Commands = c.commandEntries
		entry.Redactions = c.redactions
		manifest.Plugins = append(manifest.Plugins, entry)
	}

	sources := make(map[string]copiedFile, len(collected))
	for _, f := range collected {
		sources[f.Dest] = f
	}
	manifest.Files, err = collectFileEntries(dir, sources)
	if err != nil {
		return nil, fmt.Errorf("indexing report: %w", err)
	}
	if err := writeManifest(dir, manifest); err != nil {
		return nil, err
	}

	result := &Result{
		ReportID: id,
		Dir:      dir,
		Manifest: manifest,
		Warnings: warnings,
	}

	var total int64
	for _, f := range manifest.Files {
		total += f.Size
	}
	logger.Info("report collected", "files", len(manifest.Files), "size", humanize.Bytes(uint64(total)))

	if !r.opts.Archive {
		return result, nil
	}

	archive, sum, err := packDir(dir)
	if err != nil {
		return nil, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("removing report directory: %w", err)
	}
	result.Dir = ""
	result.Archive = archive
	result.ArchiveSHA256 = sum
	logger.Info("report archived", "archive", archive, "sha256", sum)

	return result, nil
}

var hostnameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ReportName returns the directory name used for a report created at t.
func ReportName(hostname string, t time.Time) string {
	short, _, _ := strings.Cut(hostname, ".")
	short = hostnameUnsafe.ReplaceAllString(short, "_")
	if short == "" {
		short = "localhost"
	}
	return fmt.Sprintf("sosreport-%s-%s", short, t.Format("20060102150405"))
}

func (r *Report) createReportDir(hostname string, t time.Time) (string, error) {
	if err := os.MkdirAll(r.opts.OutputDir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	dir := filepath.Join(r.opts.OutputDir, ReportName(hostname, t))
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	return dir, nil
}

func writeManifest(dir string, manifest *Manifest) error {
	data, err := encodeManifest(manifest)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(dir, filepath.FromSlash(manifestPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// enablement decides whether a plugin runs and why.
func (r *Report) enablement(ctx context.Context, p core.Plugin) (bool, string) {
	if r.opts.AllPlugins {
		return true, "all plugins requested"
	}
	if len(r.opts.OnlyPlugins) > 0 {
		for _, name := range r.opts.OnlyPlugins {
			if strings.EqualFold(name, p.Name()) {
				return true, "requested"
			}
		}
		return false, "not requested"
	}
	if r.packages != nil {
		for _, pkg := range p.Packages() {
			if r.packages.Installed(ctx, pkg) {
				return true, "package " + pkg + " installed"
			}
		}
	}
	return false, "no trigger package installed"
}

// effectiveOptions merges configured overrides over the plugin defaults.
// Overrides for options the plugin does not declare are ignored.
func (r *Report) effectiveOptions(p core.Plugin) map[string]int {
	opts := make(map[string]int)
	for _, o := range p.Options() {
		opts[o.Name] = o.Default
	}
	for name, value := range r.opts.PluginOptions[p.Name()] {
		if _, ok := opts[name]; ok {
			opts[name] = value
		}
	}
	return opts
}

func flatten(err error) []error {
	if merr, ok := err.(*multierror.Error); ok {
		return merr.WrappedErrors()
	}
	return []error{err}
}
