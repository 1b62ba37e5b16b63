package core

import (
	"context"
	"time"
)

// =============================================================================
// CommandRunner Port
// =============================================================================

// CommandRunner executes one argv without a shell and captures its output.
type CommandRunner interface {
	// Run executes argv and returns the combined stdout and stderr. A non-nil
	// error is returned for start failures, non-zero exits and timeouts; the
	// result is populated as far as execution got.
	Run(ctx context.Context, argv []string, timeout time.Duration) (*CommandResult, error)
}

// CommandResult describes a finished command.
type CommandResult struct {
	Output   []byte
	ExitCode int
	Duration time.Duration
	TimedOut bool
}

// =============================================================================
// PackageChecker Port
// =============================================================================

// PackageChecker reports whether a package is installed on the inspected host.
type PackageChecker interface {
	Installed(ctx context.Context, name string) bool
}
