package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

// newTestRoot returns the full command tree with the given subcommands
// replacing the built-in ones of the same name.
func newTestRoot(subs ...*cobra.Command) *cobra.Command {
	root := newRootCmd()
	for _, sub := range subs {
		for _, c := range root.Commands() {
			if c.Name() == sub.Name() {
				root.RemoveCommand(c)
			}
		}
	}
	root.AddCommand(subs...)
	return root
}

// execute runs root with args and returns what it printed to stdout.
func execute(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// isolateConfig keeps user and system config files out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}
