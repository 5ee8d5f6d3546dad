package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/transcript"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the audit trail",
	Long: `Log prints the append-only audit trail: finalized tasks and reminder
activity, oldest first.`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntP("tail", "n", 50, "Number of records to show (0 for all)")
}

func runLog(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	n, _ := cmd.Flags().GetInt("tail")
	records, err := eventlog.ReadRecent(filepath.Join(cfg.DataDir, "events.ndjson"), n, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No records yet.")
		return nil
	}

	f := transcript.NewFormatter()
	for _, rec := range records {
		fmt.Fprintln(out, f.FormatRecord(rec))
	}
	return nil
}
