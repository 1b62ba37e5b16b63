package cmd

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/sosgather/internal/config"
)

// toolCheck is a program the collection shells out to.
type toolCheck struct {
	name     string
	purpose  string
	required bool
}

var doctorTools = []toolCheck{
	{"bash", "runs the database queries", true},
	{"rpm", "detects installed packages", false},
	{"mongo", "queries the Pulp database", false},
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system dependencies",
		Long:  "Verify that the tools used during collection are installed and the configuration is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.OutOrStdout(), cmd, exec.LookPath)
		},
	}
}

func runDoctor(w io.Writer, cmd *cobra.Command, lookPath func(string) (string, error)) error {
	fmt.Fprintln(w, "Checking dependencies...")
	fmt.Fprintln(w)

	requiredOk := true
	for _, tool := range doctorTools {
		path, err := lookPath(tool.name)
		switch {
		case err == nil:
			fmt.Fprintf(w, "  %s %s %s\n", okStyle.Render("✓"), tool.name, mutedStyle.Render(path))
		case tool.required:
			requiredOk = false
			fmt.Fprintf(w, "  %s %s %s\n", errStyle.Render("✗"), tool.name, mutedStyle.Render(tool.purpose))
		default:
			fmt.Fprintf(w, "  %s %s (optional, %s)\n", warnStyle.Render("○"), tool.name, tool.purpose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Validating configuration...")
	fmt.Fprintln(w)

	issues := configIssues(cmd)
	for _, issue := range issues {
		fmt.Fprintf(w, "  %s %s\n", errStyle.Render("✗"), issue)
	}
	if len(issues) == 0 {
		fmt.Fprintf(w, "  %s configuration valid\n", okStyle.Render("✓"))
	}
	fmt.Fprintln(w)

	switch {
	case !requiredOk:
		fmt.Fprintln(w, "Some required dependencies are missing")
		return errors.New("dependency check failed")
	case len(issues) > 0:
		fmt.Fprintln(w, "Configuration errors must be fixed before collecting")
		return errors.New("configuration check failed")
	}
	fmt.Fprintln(w, "Ready to collect")
	return nil
}

// configIssues loads and validates the configuration and lists every problem.
func configIssues(cmd *cobra.Command) []string {
	loader, err := newLoader(cmd)
	if err != nil {
		return []string{err.Error()}
	}
	cfg, err := loader.Load()
	if err != nil {
		return []string{fmt.Sprintf("cannot load config: %v", err)}
	}

	err = config.ValidateConfig(cfg)
	if err == nil {
		return nil
	}
	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]string, 0, len(verrs))
		for _, verr := range verrs {
			issues = append(issues, verr.Error())
		}
		return issues
	}
	return []string{err.Error()}
}
