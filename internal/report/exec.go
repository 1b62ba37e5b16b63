package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

// ExecRunner is the production core.CommandRunner. It runs argv directly,
// without a shell, with a C locale and stdout and stderr merged.
type ExecRunner struct{}

// NewExecRunner creates a new ExecRunner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes argv, killing it once timeout elapses. A zero timeout only
// honours ctx.
func (r *ExecRunner) Run(ctx context.Context, argv []string, timeout time.Duration) (*core.CommandResult, error) {
	if len(argv) == 0 || argv[0] == "" {
		return &core.CommandResult{ExitCode: -1}, core.ErrValidation(core.CodeEmptyCommand, "empty command")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // #nosec G204 -- argv comes from plugin definitions
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	cmd.WaitDelay = 2 * time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	start := time.Now()
	err := cmd.Run()
	result := &core.CommandResult{
		Output:   out.Bytes(),
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err == nil {
		return result, nil
	}

	name := strings.Join(argv, " ")
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		return result, core.ErrTimeout(fmt.Sprintf("%s: timed out after %s", argv[0], timeout)).
			WithCause(err).
			WithDetail("command", name)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return result, core.ErrExecution(core.CodeCommandFailed,
			fmt.Sprintf("%s: exit status %d", argv[0], result.ExitCode)).
			WithCause(err).
			WithDetail("command", name)
	}

	return result, core.ErrExecution(core.CodeCommandFailed, fmt.Sprintf("%s: %v", argv[0], err)).
		WithCause(err).
		WithDetail("command", name)
}

// RPMChecker reports installed packages by querying the rpm database of the
// inspected system.
type RPMChecker struct {
	runner  core.CommandRunner
	sysroot string
	timeout time.Duration
}

// NewRPMChecker creates a checker for the rpm database below sysroot.
func NewRPMChecker(runner core.CommandRunner, sysroot string) *RPMChecker {
	return &RPMChecker{
		runner:  runner,
		sysroot: sysroot,
		timeout: 30 * time.Second,
	}
}

// Installed implements core.PackageChecker. Any failure, including a missing
// rpm binary, counts as not installed.
func (c *RPMChecker) Installed(ctx context.Context, name string) bool {
	argv := []string{"rpm"}
	if c.sysroot != "" && c.sysroot != "/" {
		argv = append(argv, "--root", c.sysroot)
	}
	argv = append(argv, "-q", "--quiet", name)

	_, err := c.runner.Run(ctx, argv, c.timeout)
	return err == nil
}
