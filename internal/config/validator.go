package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateReport(&cfg.Report)
	v.validatePlugins(&cfg.Plugins)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"auto": true, "text": true, "json": true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}

	if cfg.File != "" && !isValidPath(cfg.File) {
		v.addError("log.file", cfg.File, "invalid file path")
	}
}

func (v *Validator) validateReport(cfg *ReportConfig) {
	if cfg.OutputDir == "" {
		v.addError("report.output_dir", cfg.OutputDir, "directory required")
	} else if !isValidPath(cfg.OutputDir) {
		v.addError("report.output_dir", cfg.OutputDir, "invalid directory path")
	}

	if cfg.Sysroot == "" || !filepath.IsAbs(cfg.Sysroot) {
		v.addError("report.sysroot", cfg.Sysroot, "must be an absolute path")
	}

	if d, err := time.ParseDuration(cfg.CmdTimeout); err != nil {
		v.addError("report.cmd_timeout", cfg.CmdTimeout, "invalid duration")
	} else if d <= 0 {
		v.addError("report.cmd_timeout", cfg.CmdTimeout, "must be positive")
	}

	if cfg.Jobs < 1 {
		v.addError("report.jobs", cfg.Jobs, "must be at least 1")
	}

	if cfg.MaxFileSize != "" && cfg.MaxFileSize != "0" {
		if _, err := humanize.ParseBytes(cfg.MaxFileSize); err != nil {
			v.addError("report.max_file_size", cfg.MaxFileSize, "invalid size (e.g. 25MB, 1GiB)")
		}
	}
}

func (v *Validator) validatePlugins(cfg *PluginsConfig) {
	for i, name := range cfg.Only {
		if strings.TrimSpace(name) == "" {
			v.addError(fmt.Sprintf("plugins.only[%d]", i), name, "empty plugin name")
		}
	}

	for plugin, opts := range cfg.Options {
		for name, value := range opts {
			if value < 1 {
				v.addError(fmt.Sprintf("plugins.options.%s.%s", plugin, name), value, "must be positive")
			}
		}
	}
}

func isValidPath(path string) bool {
	return !strings.ContainsRune(path, 0) && filepath.Clean(path) != "."
}

// ValidateConfig is a convenience function to validate configuration.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
