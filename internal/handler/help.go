package handler

import (
	"context"
	"fmt"

	"github.com/iambrandonn/mailbot/internal/task"
)

// systemInfo seeds help answers with what the agent can actually do.
const systemInfo = `You are a helpful assistant for the mailbot system. Answer
questions about what this system can do.

SYSTEM CAPABILITIES:

1. SCHEDULE EVENTS
   Example: subject "Schedule dentist appointment",
   body "Dr. Smith next Tuesday at 2pm, should take about an hour"
   -> Creates a calendar event

2. RESEARCH
   Body: your question
   -> Answers it and replies by mail

3. CALENDAR QUERIES
   Body: a question about your schedule ("What do I have this week?")
   -> Checks your calendar and replies

4. REMINDERS
   Example: "REMIND ME: meet with Einstein @ 3pm on friday"
   -> Sends you a reminder at the specified time

5. STATUS CHECK
   Subject: "Status"
   -> Replies with a health report (queue counts, config, recent activity)

6. HELP (this feature)
   Any question about how to use the system

TIPS:
- All commands are sent by mail to the agent's address
- Only whitelisted senders are processed
- New mail is picked up on every poll cycle`

// HandleHelp answers questions about the system itself.
func HandleHelp(ctx context.Context, t *task.Task, svc *Services) error {
	question := t.Subject
	if t.Body != "" {
		question = question + "\n" + t.Body
	}

	prompt := fmt.Sprintf(`%s

USER QUESTION: %s

Provide a helpful, concise answer. If they're asking about a specific feature,
give them the exact format to use with an example.`, systemInfo, question)

	answer, err := svc.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("help call failed: %w", err)
	}

	return svc.Reply(ctx, t, "mailbot Help", answer)
}
