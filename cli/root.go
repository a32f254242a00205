// Package cli implements the simrig command line.
package cli

import (
	"os"

	"github.com/milk9111/simrig/config"
	"github.com/milk9111/simrig/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ConfigEnv names the environment variable holding the default config path.
const ConfigEnv = "SIMRIG_CONFIG"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the simrig CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "simrig",
		Short:         "Build, validate and step physics scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", os.Getenv(ConfigEnv),
		"config file (defaults to $"+ConfigEnv+", built-in defaults when empty)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewScenesCommand())

	return cmd
}

// Setup loads the configuration and builds the logger.
func (o *RootOptions) Setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Defaults()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
