package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iambrandonn/mailbot/internal/store"
	"github.com/iambrandonn/mailbot/internal/task"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <subject> [body]",
	Short: "Drop a task into the pending area",
	Long: `Enqueue writes a task record into the pending area with the same atomic
write discipline the mail watcher uses. A running agent picks it up on its
next poll cycle.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEnqueue,
}

func init() {
	enqueueCmd.Flags().String("from", "cli@localhost", "Sender address recorded on the task")
	enqueueCmd.Flags().String("reply-to", "", "Reply address (defaults to the sender)")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), slog.LevelWarn)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(cfg.DataDir, "tasks"), logger)
	if err != nil {
		return err
	}

	body := ""
	if len(args) == 2 {
		body = args[1]
	}
	from, _ := cmd.Flags().GetString("from")
	replyTo, _ := cmd.Flags().GetString("reply-to")

	t := task.New(args[0], body, from, replyTo, nil)
	if err := st.Enqueue(t); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued task %s\n", t.ID)
	return nil
}
