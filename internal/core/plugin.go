package core

import (
	"context"
	"log/slog"
)

// Plugin collects diagnostic data for one product.
//
// The framework calls Setup once to learn what to copy and run, performs the
// collection, then calls Postproc once over the collected files. The two calls
// never overlap.
type Plugin interface {
	// Name returns the plugin identifier used on the command line.
	Name() string

	// Description returns a short human readable summary.
	Description() string

	// Packages lists the installed packages that enable this plugin.
	Packages() []string

	// Options lists the user-tunable options and their defaults.
	Options() []Option

	// Setup declares copy specs and commands on the collector.
	Setup(ctx context.Context, c Collector) error

	// Postproc runs after collection, typically to redact secrets.
	Postproc(ctx context.Context, c Collector) error
}

// Option is a plugin option exposed as "<plugin>.<name>" on the command line.
type Option struct {
	Name        string
	Description string
	Speed       string // fast, slow
	Default     int
}

// Command is a command line whose output is captured into the report.
type Command struct {
	Cmd             string `yaml:"cmd" json:"cmd"`
	SuggestFilename string `yaml:"suggest_filename" json:"suggest_filename"`
}

// RegexSub replaces Regex with Replacement, line by line, in every collected
// file whose source path matches PathPattern.
type RegexSub struct {
	PathPattern string `yaml:"path_pattern" json:"path_pattern"`
	Regex       string `yaml:"regex" json:"regex"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// Collector is the framework side a plugin talks to.
type Collector interface {
	// AddCopySpec queues files, globs or directories to be copied.
	AddCopySpec(paths ...string)

	// AddCmdOutput queues a command whose output is saved under the
	// suggested filename.
	AddCmdOutput(cmd Command)

	// DoPathRegexSub applies a substitution to already collected files and
	// returns the number of replacements made.
	DoPathRegexSub(rule RegexSub) (int, error)

	// IntOption returns the effective value of a plugin option.
	IntOption(name string) int

	// HostPath resolves an absolute path on the inspected system.
	HostPath(path string) string

	// Logger returns a logger scoped to the plugin.
	Logger() *slog.Logger
}
