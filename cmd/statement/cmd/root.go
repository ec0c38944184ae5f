// Package cmd provides the statement CLI commands.
package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hirosato/account-statements/backend/internal/common/config"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	envFile string
	debug   bool
	logger  *slog.Logger
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "statement",
		Short: "Account statements from double-entry ledgers",
		Long: `statement prints account statements from the configured ledger store
and serves them over HTTP.

The store is selected with STORE_DRIVER (dynamodb or postgres). Settings are
read from the environment and from a .env file.

Example:
  statement show --entity acme --account bank --from 2024-01-01 --to 2024-01-31
  statement import fixtures.yaml
  statement serve`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel := slog.LevelInfo
			if opts.debug {
				logLevel = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(opts.logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newShowCmd(opts))
	rootCmd.AddCommand(newImportCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))

	return rootCmd
}

// Execute runs the CLI with the process arguments
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	return config.LoadFromEnv(o.envFile)
}

func (o *globalOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}
