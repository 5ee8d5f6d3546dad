// Package handler maintains the intent-to-handler bindings and the built-in
// handlers. The registry is an explicit object owned by the orchestrator,
// populated by registration calls at startup; there is no import-order magic.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iambrandonn/mailbot/internal/calendar"
	"github.com/iambrandonn/mailbot/internal/config"
	"github.com/iambrandonn/mailbot/internal/deliver"
	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/intent"
	"github.com/iambrandonn/mailbot/internal/llm"
	"github.com/iambrandonn/mailbot/internal/reminder"
	"github.com/iambrandonn/mailbot/internal/store"
	"github.com/iambrandonn/mailbot/internal/task"
)

// ErrUnknownIntent signals a dispatch with no registered handler. The loop
// treats it as a permanent failure: the registry does not change mid-run.
var ErrUnknownIntent = errors.New("no handler registered for intent")

// Func handles one task. Everything a handler touches arrives through its
// parameters; there is no ambient request state.
type Func func(ctx context.Context, t *task.Task, svc *Services) error

// Services bundles the collaborators handlers may use.
type Services struct {
	Config       *config.Config
	Deliverer    deliver.Deliverer
	Calendar     calendar.Client
	Generator    llm.Generator
	Reminders    *reminder.Scheduler
	Store        *store.Store
	Audit        *eventlog.Log
	EventLogPath string
	Logger       *slog.Logger
}

// RecordAudit appends rec when an audit log is configured. Append failures
// are logged, never propagated: audit is observability, not correctness.
func (s *Services) RecordAudit(rec eventlog.Record) {
	if s.Audit == nil {
		return
	}
	if err := s.Audit.Append(rec); err != nil {
		s.Logger.Warn("failed to append audit record", "kind", rec.Kind, "error", err)
	}
}

// Generate runs one generation call under the configured timeout.
func (s *Services) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Config.ClassifyTimeout)
	defer cancel()
	return s.Generator.Generate(ctx, prompt)
}

// Reply delivers a response to the task's reply address.
func (s *Services) Reply(ctx context.Context, t *task.Task, subject, body string) error {
	if t.ReplyTo == "" {
		return fmt.Errorf("task %s has no reply address", t.ID)
	}
	return s.Deliverer.Deliver(ctx, t.ReplyTo, subject, body)
}

// Registry maps intent labels to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[intent.Intent]Func
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[intent.Intent]Func),
		logger:   logger,
	}
}

// Register binds a handler to an intent label. Last registration wins; a
// replacement is logged so an accidental double bind is visible.
func (r *Registry) Register(label intent.Intent, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[label]; exists {
		r.logger.Warn("replacing existing handler", "intent", label)
	}
	r.handlers[label] = fn
}

// Dispatch invokes the handler bound to the label.
func (r *Registry) Dispatch(ctx context.Context, label intent.Intent, t *task.Task, svc *Services) error {
	r.mu.RLock()
	fn, ok := r.handlers[label]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("intent %q: %w", label, ErrUnknownIntent)
	}
	return fn(ctx, t, svc)
}

// Builtin returns a registry with all built-in handlers bound.
func Builtin(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(intent.IntentSchedule, HandleSchedule)
	r.Register(intent.IntentResearch, HandleResearch)
	r.Register(intent.IntentCalendarQuery, HandleCalendarQuery)
	r.Register(intent.IntentReminder, HandleReminder)
	r.Register(intent.IntentStatus, HandleStatus)
	r.Register(intent.IntentHelp, HandleHelp)
	return r
}
