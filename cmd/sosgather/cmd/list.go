package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/sosgather/internal/core"
	"github.com/hugo-lorenzo-mato/sosgather/internal/plugins"
)

var optionNameStyle = lipgloss.NewStyle().Width(24)

func newListCmd() *cobra.Command {
	return newListCmdWithPlugins(plugins.All(nil))
}

func newListCmdWithPlugins(all []core.Plugin) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plugins and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Close() }()

			printPlugins(cmd.OutOrStdout(), all, rt.cfg.Plugins.Options)
			return nil
		},
	}
}

// printPlugins lists every plugin with its trigger packages and options.
// Configured overrides are shown next to the default.
func printPlugins(w io.Writer, all []core.Plugin, overrides map[string]map[string]int) {
	fmt.Fprintln(w, titleStyle.Render("Plugins"))
	fmt.Fprintln(w)
	for _, p := range all {
		fmt.Fprintf(w, "  %s  %s\n", titleStyle.Render(p.Name()), p.Description())
		if pkgs := p.Packages(); len(pkgs) > 0 {
			fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render("packages:"), strings.Join(pkgs, ", "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Options"))
	fmt.Fprintln(w)
	for _, p := range all {
		for _, o := range p.Options() {
			value := fmt.Sprintf("%d", o.Default)
			if v, ok := overrides[p.Name()][o.Name]; ok && v != o.Default {
				value = fmt.Sprintf("%d %s", v, mutedStyle.Render(fmt.Sprintf("(default %d)", o.Default)))
			}
			fmt.Fprintf(w, "  %s %-8s %s %s\n",
				optionNameStyle.Render(p.Name()+"."+o.Name),
				value,
				mutedStyle.Render("["+o.Speed+"]"),
				o.Description)
		}
	}
}
