// Package cli implements the mailbot command line interface.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/mailbot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "mailbot",
	Short: "Email-driven personal automation agent",
	Long: `mailbot polls a durable file-based task queue fed by incoming mail,
classifies each request with a generation backend, and dispatches it to
intent handlers: event scheduling, research, calendar queries, reminders,
status reports and help.

Running 'mailbot' without a subcommand is equivalent to 'mailbot run'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run the agent loop
		return runCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)

	rootCmd.PersistentFlags().String("data-dir", "", "Override the data directory (default: MAILBOT_DATA_DIR or ./data)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dir, err := cmd.Flags().GetString("data-dir"); err == nil && dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
