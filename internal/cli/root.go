// Package cli implements the patrimoine command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/patrimoine/internal/config"
	"github.com/me/patrimoine/internal/logging"
)

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	cfg    config.ServerConfig
)

// NewRootCmd creates the root cobra command for the patrimoine CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "patrimoine",
		Short: "Patrimoine: heritage catalogue web front end",
		Long:  "Patrimoine serves the web front end of the participatory heritage catalogue.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			cfg = loaded

			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			if flagDebug {
				cfg.LogLevel = "debug"
			}
			if !logging.ValidFormat(cfg.LogFormat) {
				return fmt.Errorf("unknown log format %q (want text or json)", cfg.LogFormat)
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCheckCmd(),
	)

	return root
}
