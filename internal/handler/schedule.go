package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/iambrandonn/mailbot/internal/calendar"
	"github.com/iambrandonn/mailbot/internal/llm"
	"github.com/iambrandonn/mailbot/internal/reminder"
	"github.com/iambrandonn/mailbot/internal/task"
)

// scheduleExtraction is the event schema the extraction call must return.
type scheduleExtraction struct {
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Description string `json:"description,omitempty"`
}

// HandleSchedule extracts event details from the request and creates a
// calendar event, then confirms by reply.
func HandleSchedule(ctx context.Context, t *task.Task, svc *Services) error {
	prompt := fmt.Sprintf(`Extract calendar event details from this request.

SUBJECT: %s
BODY: %s

CURRENT DATE/TIME: %s (timezone: %s)
Use this to resolve relative times like "tomorrow", "next friday".
Default to a one hour duration when no end time is given.

Return JSON:
{
  "title": "Short title",
  "start": "ISO 8601 (YYYY-MM-DDTHH:MM:SS)",
  "end": "ISO 8601 (YYYY-MM-DDTHH:MM:SS)",
  "description": "Any context"
}`,
		t.Subject, t.Body,
		time.Now().In(svc.Config.Location()).Format("2006-01-02 15:04"),
		svc.Config.Timezone)

	raw, err := svc.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("event extraction call failed: %w", err)
	}

	var ev scheduleExtraction
	if err := llm.DecodeJSON(raw, &ev); err != nil {
		return fmt.Errorf("event extraction returned invalid output: %w", err)
	}
	if ev.Title == "" || ev.Start == "" {
		return fmt.Errorf("event extraction missing title or start")
	}

	loc := svc.Config.Location()
	start, err := reminder.ParseFireTime(ev.Start, loc)
	if err != nil {
		return fmt.Errorf("event start: %w", err)
	}

	end := start.Add(time.Hour)
	if ev.End != "" {
		if parsed, err := reminder.ParseFireTime(ev.End, loc); err == nil {
			end = parsed
		}
	}

	event := calendar.Event{
		Title:       ev.Title,
		Start:       start,
		End:         end,
		Description: ev.Description,
	}
	if err := svc.Calendar.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	svc.Logger.Info("calendar event created", "task_id", t.ID, "title", ev.Title, "start", start)

	body := fmt.Sprintf("Created event: %s\nStart: %s\nEnd: %s", ev.Title,
		start.Format(time.RFC1123), end.Format(time.RFC1123))
	return svc.Reply(ctx, t, fmt.Sprintf("Event Created: %s", ev.Title), body)
}
