package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
)

// MockRunner implements core.CommandRunner for testing.
type MockRunner struct {
	mu      sync.Mutex
	calls   [][]string
	outputs map[string]string
	errs    map[string]error
}

// NewMockRunner creates a runner that echoes nothing and succeeds.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

// WithOutput sets the output for commands whose argv contains substr.
func (m *MockRunner) WithOutput(substr, output string) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[substr] = output
	return m
}

// WithError makes commands whose argv contains substr fail.
func (m *MockRunner) WithError(substr string, err error) *MockRunner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[substr] = err
	return m
}

// Run records argv and returns the configured response.
func (m *MockRunner) Run(ctx context.Context, argv []string, _ time.Duration) (*core.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]string(nil), argv...))
	if err := ctx.Err(); err != nil {
		return &core.CommandResult{ExitCode: -1}, err
	}

	joined := strings.Join(argv, " ")
	result := &core.CommandResult{Duration: time.Millisecond}
	for substr, out := range m.outputs {
		if strings.Contains(joined, substr) {
			result.Output = []byte(out)
		}
	}
	for substr, err := range m.errs {
		if strings.Contains(joined, substr) {
			result.ExitCode = 1
			var timeout interface{ Timeout() bool }
			if errors.As(err, &timeout) && timeout.Timeout() {
				result.TimedOut = true
			}
			return result, err
		}
	}
	return result, nil
}

// Calls returns a copy of every recorded argv.
func (m *MockRunner) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([][]string, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// MockPackageChecker implements core.PackageChecker with a fixed set.
type MockPackageChecker struct {
	installed map[string]bool
}

// NewMockPackageChecker reports the given packages as installed.
func NewMockPackageChecker(installed ...string) *MockPackageChecker {
	m := &MockPackageChecker{installed: make(map[string]bool)}
	for _, name := range installed {
		m.installed[name] = true
	}
	return m
}

// Installed implements core.PackageChecker.
func (m *MockPackageChecker) Installed(_ context.Context, name string) bool {
	return m.installed[name]
}
