package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/reminder"
	"github.com/iambrandonn/mailbot/internal/store"
	"github.com/iambrandonn/mailbot/internal/task"
	"github.com/iambrandonn/mailbot/internal/transcript"
)

// statusRecentEvents limits the recent-activity section.
const statusRecentEvents = 10

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts, pending reminders and recent activity",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "tasks"), logger)
	if err != nil {
		return err
	}
	remStore, err := reminder.OpenStore(filepath.Join(cfg.DataDir, "reminders"), logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	f := transcript.NewFormatter()

	fmt.Fprintln(out, "Task queue:")
	for _, state := range []task.State{task.StatePending, task.StateDone, task.StateFailed} {
		n, err := st.Count(state)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-8s %d\n", state, n)
	}

	reminders, err := remStore.List()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nReminders (%d):\n", len(reminders))
	now := time.Now()
	for _, r := range reminders {
		fmt.Fprintf(out, "  %s\n", f.FormatReminder(r, now))
	}

	records, err := eventlog.ReadRecent(filepath.Join(cfg.DataDir, "events.ndjson"), statusRecentEvents, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nRecent activity:")
	if len(records) == 0 {
		fmt.Fprintln(out, "  nothing yet")
	}
	for _, rec := range records {
		fmt.Fprintf(out, "  %s\n", f.FormatRecord(rec))
	}
	return nil
}
