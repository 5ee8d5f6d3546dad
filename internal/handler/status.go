package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/task"
)

// recentEventCount limits the history section of a status report.
const recentEventCount = 10

// HandleStatus replies with a health report: configuration summary, queue
// counts, active reminders and recent activity.
func HandleStatus(ctx context.Context, t *task.Task, svc *Services) error {
	var sb strings.Builder
	sb.WriteString("=== mailbot status ===\n\n")

	sb.WriteString("CONFIGURATION\n")
	fmt.Fprintf(&sb, "  Model: %s\n", svc.Config.LLMModel)
	fmt.Fprintf(&sb, "  Poll interval: %s\n", svc.Config.PollInterval)
	fmt.Fprintf(&sb, "  Max task retries: %d\n", svc.Config.MaxTaskRetries)
	fmt.Fprintf(&sb, "  Timezone: %s\n\n", svc.Config.Timezone)

	sb.WriteString("TASK QUEUE\n")
	for _, state := range []task.State{task.StatePending, task.StateDone, task.StateFailed} {
		n, err := svc.Store.Count(state)
		if err != nil {
			fmt.Fprintf(&sb, "  %s: error reading area (%v)\n", state, err)
			continue
		}
		fmt.Fprintf(&sb, "  %s: %d\n", state, n)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "REMINDERS\n  Active timers: %d\n\n", svc.Reminders.Active())

	fmt.Fprintf(&sb, "RECENT ACTIVITY (last %d)\n", recentEventCount)
	records, err := eventlog.ReadRecent(svc.EventLogPath, recentEventCount, svc.Logger)
	if err != nil {
		fmt.Fprintf(&sb, "  error reading event log: %v\n", err)
	} else if len(records) == 0 {
		sb.WriteString("  nothing yet\n")
	} else {
		for _, rec := range records {
			fmt.Fprintf(&sb, "  [%s] %s", rec.Kind, rec.At)
			if rec.Intent != "" {
				fmt.Fprintf(&sb, " intent=%s", rec.Intent)
			}
			if rec.Detail != "" {
				fmt.Fprintf(&sb, " (%s)", rec.Detail)
			}
			sb.WriteString("\n")
		}
	}

	return svc.Reply(ctx, t, "mailbot Status", sb.String())
}
