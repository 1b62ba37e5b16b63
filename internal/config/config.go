package config

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Config holds all application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Report  ReportConfig  `mapstructure:"report" yaml:"report"`
	Plugins PluginsConfig `mapstructure:"plugins" yaml:"plugins"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// ReportConfig configures where and how a report is produced.
type ReportConfig struct {
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	Sysroot     string `mapstructure:"sysroot" yaml:"sysroot"`
	CmdTimeout  string `mapstructure:"cmd_timeout" yaml:"cmd_timeout"`
	Jobs        int    `mapstructure:"jobs" yaml:"jobs"`
	Archive     bool   `mapstructure:"archive" yaml:"archive"`
	MaxFileSize string `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// Timeout returns the per-command timeout. Unparseable values yield zero;
// the validator rejects them before this is used.
func (r ReportConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(r.CmdTimeout)
	if err != nil {
		return 0
	}
	return d
}

// MaxFileBytes returns the copy size limit in bytes, 0 meaning unlimited.
func (r ReportConfig) MaxFileBytes() int64 {
	if r.MaxFileSize == "" || r.MaxFileSize == "0" {
		return 0
	}
	n, err := humanize.ParseBytes(r.MaxFileSize)
	if err != nil {
		return 0
	}
	return int64(n)
}

// PluginsConfig selects plugins and overrides their options.
type PluginsConfig struct {
	Only    []string                  `mapstructure:"only" yaml:"only"`
	All     bool                      `mapstructure:"all" yaml:"all"`
	Options map[string]map[string]int `mapstructure:"options" yaml:"options"`
}

// Option returns the override for plugin.name, if any.
func (p PluginsConfig) Option(plugin, name string) (int, bool) {
	opts, ok := p.Options[plugin]
	if !ok {
		return 0, false
	}
	v, ok := opts[name]
	return v, ok
}
