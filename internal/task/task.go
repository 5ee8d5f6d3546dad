// Package task defines the unit of work flowing through the agent: one
// inbound command, tracked from enqueue through classification and dispatch
// to a terminal done/failed state.
package task

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iambrandonn/mailbot/internal/intent"
)

// State names the area a task record lives in. A task exists in exactly one
// state at a time; done and failed are terminal.
type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Outcome is the terminal result passed to Store.Finalize.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Task is one inbound command awaiting or undergoing processing.
// The ID is immutable once assigned; RetryCount only ever increases.
type Task struct {
	ID             string                 `json:"id"`
	Subject        string                 `json:"subject"`
	Body           string                 `json:"body"`
	Sender         string                 `json:"sender"`
	ReplyTo        string                 `json:"reply_to"`
	Attachments    []string               `json:"attachments"`
	CreatedAt      time.Time              `json:"created_at"`
	Intent         intent.Intent          `json:"intent,omitempty"`
	Classification *intent.Classification `json:"classification,omitempty"`
	RetryCount     int                    `json:"retry_count"`
}

// New creates a task with a fresh ID and creation timestamp.
// ReplyTo defaults to the sender when empty.
func New(subject, body, sender, replyTo string, attachments []string) *Task {
	if replyTo == "" {
		replyTo = sender
	}
	if attachments == nil {
		attachments = []string{}
	}
	return &Task{
		ID:          NewID(),
		Subject:     subject,
		Body:        body,
		Sender:      sender,
		ReplyTo:     replyTo,
		Attachments: attachments,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewID generates a unique, roughly time-ordered task identifier:
// millisecond timestamp prefix for lexical oldest-first sorting, uuid
// fragment for uniqueness within the same millisecond.
func NewID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// Validate checks the schema invariants of a deserialized task.
// Body may be empty: commands like "Status: me@example.com" carry
// everything in the subject line.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task missing id")
	}
	if t.Subject == "" {
		return fmt.Errorf("task %s missing subject", t.ID)
	}
	if t.Sender == "" {
		return fmt.Errorf("task %s missing sender", t.ID)
	}
	if t.ReplyTo == "" {
		return fmt.Errorf("task %s missing reply_to", t.ID)
	}
	if t.RetryCount < 0 {
		return fmt.Errorf("task %s has negative retry_count %d", t.ID, t.RetryCount)
	}
	return nil
}

// Classified reports whether the task already carries a usable
// classification from a previous processing attempt.
func (t *Task) Classified() bool {
	return t.Classification != nil && t.Classification.Intent != ""
}
