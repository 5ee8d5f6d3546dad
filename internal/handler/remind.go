package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/llm"
	"github.com/iambrandonn/mailbot/internal/reminder"
	"github.com/iambrandonn/mailbot/internal/task"
)

// reminderExtraction is the fallback schema when the classifier did not
// already extract the reminder details.
type reminderExtraction struct {
	Message  string `json:"message"`
	Datetime string `json:"datetime"`
}

// HandleReminder schedules a one-shot reminder from the classification
// payload, falling back to a dedicated extraction call when the classifier
// left the details empty. An ununderstandable request gets an apologetic
// reply rather than endless retries.
func HandleReminder(ctx context.Context, t *task.Task, svc *Services) error {
	if !svc.Config.SenderAllowed(t.ReplyTo) {
		return fmt.Errorf("reply address %s is not whitelisted for reminders", t.ReplyTo)
	}

	message, fireTime := "", ""
	if t.Classification != nil {
		message = t.Classification.ReminderMessage
		fireTime = t.Classification.ReminderTime
	}

	if message == "" || fireTime == "" {
		var err error
		message, fireTime, err = extractReminder(ctx, t, svc)
		if err != nil {
			return err
		}
	}

	if message == "" || fireTime == "" {
		// The request itself is not parseable as a reminder; retrying the
		// same text will not help. Tell the user and finish the task.
		return svc.Reply(ctx, t, "Reminder Not Understood",
			"Sorry, I couldn't parse your reminder. Try something like: 'Remind me to meet with Einstein tomorrow at 3pm'")
	}

	r, err := svc.Reminders.Schedule(message, fireTime, t.ReplyTo)
	if err != nil {
		var serr *reminder.ScheduleError
		if errors.As(err, &serr) {
			svc.Logger.Warn("reminder rejected", "task_id", t.ID, "error", err)
			return svc.Reply(ctx, t, "Reminder Error",
				fmt.Sprintf("Sorry, I couldn't set your reminder: %v", serr.Err))
		}
		return fmt.Errorf("failed to schedule reminder: %w", err)
	}

	svc.RecordAudit(eventlog.Record{
		Kind:   eventlog.KindReminderScheduled,
		TaskID: t.ID,
		Detail: message,
		At:     time.Now().UTC().Format(time.RFC3339),
	})

	body := fmt.Sprintf("I'll remind you about: %s\n\nScheduled for: %s",
		message, r.FireAt.In(svc.Config.Location()).Format(time.RFC1123))
	return svc.Reply(ctx, t, fmt.Sprintf("Reminder Set: %s", truncate(message, 50)), body)
}

func extractReminder(ctx context.Context, t *task.Task, svc *Services) (message, fireTime string, err error) {
	prompt := fmt.Sprintf(`Parse this reminder request and extract the details.

SUBJECT: %s
BODY: %s

CURRENT DATE/TIME: %s (timezone: %s)

Return JSON:
{
  "message": "The reminder message",
  "datetime": "ISO 8601 datetime (YYYY-MM-DDTHH:MM:SS)"
}`,
		t.Subject, t.Body,
		time.Now().In(svc.Config.Location()).Format("2006-01-02 15:04"),
		svc.Config.Timezone)

	raw, err := svc.Generate(ctx, prompt)
	if err != nil {
		return "", "", fmt.Errorf("reminder extraction call failed: %w", err)
	}

	var ext reminderExtraction
	if err := llm.DecodeJSON(raw, &ext); err != nil {
		return "", "", fmt.Errorf("reminder extraction returned invalid output: %w", err)
	}
	return ext.Message, ext.Datetime, nil
}
