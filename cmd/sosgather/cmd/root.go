package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/sosgather/internal/config"
	"github.com/hugo-lorenzo-mato/sosgather/internal/logging"
)

var (
	// Version info - set via SetVersion()
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	cfgFile   string
	logLevel  string
	logFormat string
	logFile   string
}

// newRootCmd builds the command tree. Every call returns fresh flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "sosgather",
		Short: "Collect diagnostic reports from a host",
		Long: `sosgather collects configuration files, logs and command output from
the host through per-product plugins, redacts secrets and packs the result
into a report archive for support analysis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "",
		"config file (default: ./.sosgather.yaml, ~/.config/sosgather/.sosgather.yaml or /etc/sosgather/.sosgather.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	flags.StringVar(&opts.logFile, "log-file", "",
		"also write JSON logs to this file, rotated by size")

	root.AddCommand(
		newCollectCmd(),
		newListCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// SetVersion injects build information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

// flagKeys maps command line flags to configuration keys. Only flags set on
// the command line take precedence over the config file and environment.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"log-file":     "log.file",
	"output":       "report.output_dir",
	"sysroot":      "report.sysroot",
	"timeout":      "report.cmd_timeout",
	"jobs":         "report.jobs",
	"max-size":     "report.max_file_size",
	"only-plugins": "plugins.only",
	"all-plugins":  "plugins.all",
}

// runEnv is what every command needs after configuration is resolved.
type runEnv struct {
	cfg    *config.Config
	logger *logging.Logger
	loader *config.Loader
}

// loadRuntime loads and validates the configuration for cmd and builds the
// logger from it.
func loadRuntime(cmd *cobra.Command) (*runEnv, error) {
	loader, err := newLoader(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
		File:   cfg.Log.File,
	})
	if path := loader.ConfigFile(); path != "" {
		logger.Debug("configuration loaded", "file", path)
	}

	return &runEnv{cfg: cfg, logger: logger, loader: loader}, nil
}

// newLoader returns a loader whose viper instance is bound to the flags of
// cmd, including the inherited persistent ones.
func newLoader(cmd *cobra.Command) (*config.Loader, error) {
	v := viper.New()
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	if bindErr != nil {
		return nil, fmt.Errorf("binding flags: %w", bindErr)
	}

	loader := config.NewLoaderWithViper(v)
	if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
		loader.WithConfigFile(f.Value.String())
	}
	return loader, nil
}
