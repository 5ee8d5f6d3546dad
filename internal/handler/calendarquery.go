package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iambrandonn/mailbot/internal/task"
)

// calendarQueryWindow is how far ahead a schedule question looks.
const calendarQueryWindow = 14 * 24 * time.Hour

// HandleCalendarQuery answers a question about the existing calendar by
// feeding the upcoming events to the generation backend.
func HandleCalendarQuery(ctx context.Context, t *task.Task, svc *Services) error {
	now := time.Now().In(svc.Config.Location())
	events, err := svc.Calendar.ListEvents(ctx, now, now.Add(calendarQueryWindow))
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	var sb strings.Builder
	if len(events) == 0 {
		sb.WriteString("(no events in the next two weeks)\n")
	}
	for _, ev := range events {
		fmt.Fprintf(&sb, "- %s: %s to %s", ev.Title,
			ev.Start.In(svc.Config.Location()).Format("Mon Jan 2 15:04"),
			ev.End.In(svc.Config.Location()).Format("15:04"))
		if ev.Description != "" {
			fmt.Fprintf(&sb, " (%s)", ev.Description)
		}
		sb.WriteString("\n")
	}

	question := t.Body
	if question == "" {
		question = t.Subject
	}

	prompt := fmt.Sprintf(`Answer this question about the user's calendar.

CURRENT DATE/TIME: %s (timezone: %s)

UPCOMING EVENTS (next two weeks):
%s
QUESTION: %s

Be direct and specific; mention days and times.`,
		now.Format("2006-01-02 15:04"), svc.Config.Timezone, sb.String(), question)

	answer, err := svc.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("calendar query call failed: %w", err)
	}

	return svc.Reply(ctx, t, "Your Calendar", answer)
}
