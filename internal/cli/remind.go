package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/mailbot/internal/store"
	"github.com/iambrandonn/mailbot/internal/task"
)

var remindCmd = &cobra.Command{
	Use:   "remind <message>",
	Short: "Enqueue a reminder request",
	Long: `Remind enqueues a reminder task the same way a "REMIND ME" mail would.
The running agent classifies the request, extracts the fire time and
schedules the reminder; the record survives restarts.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemind,
}

func init() {
	remindCmd.Flags().String("at", "", "When to fire (free text or ISO datetime, e.g. 2026-09-01T15:00)")
	remindCmd.Flags().String("from", "cli@localhost", "Address the reminder is delivered to")
}

func runRemind(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "tasks"), logger)
	if err != nil {
		return err
	}

	at, _ := cmd.Flags().GetString("at")
	from, _ := cmd.Flags().GetString("from")

	t := task.New("REMIND ME: "+args[0], at, from, "", nil)
	if err := st.Enqueue(t); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued reminder request %s\n", t.ID)
	return nil
}
