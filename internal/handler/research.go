package handler

import (
	"context"
	"fmt"

	"github.com/iambrandonn/mailbot/internal/task"
)

// HandleResearch answers the question in the task body via the generation
// backend and replies with the result.
func HandleResearch(ctx context.Context, t *task.Task, svc *Services) error {
	question := t.Body
	if question == "" {
		question = t.Subject
	}

	prompt := fmt.Sprintf(`Answer this research question thoroughly but concisely.
Cite concrete facts where you can and say so when you are unsure.

QUESTION: %s`, question)

	answer, err := svc.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("research call failed: %w", err)
	}

	return svc.Reply(ctx, t, fmt.Sprintf("Research: %s", truncate(t.Subject, 60)), answer)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
