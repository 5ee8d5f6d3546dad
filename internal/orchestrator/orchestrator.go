// Package orchestrator drives the process loop: poll the task store,
// classify, dispatch, finalize. Errors inside one task's processing are
// isolated at the per-task boundary and never terminate the loop or affect
// sibling tasks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/handler"
	"github.com/iambrandonn/mailbot/internal/intent"
	"github.com/iambrandonn/mailbot/internal/store"
	"github.com/iambrandonn/mailbot/internal/task"
)

// Orchestrator owns a transient, single-owner view of one task at a time;
// no task id is ever processed concurrently.
type Orchestrator struct {
	store      *store.Store
	classifier *intent.Classifier
	registry   *handler.Registry
	services   *handler.Services
	audit      *eventlog.Log

	maxRetries   int
	pollInterval time.Duration
	logger       *slog.Logger
}

// New wires the loop. maxRetries and pollInterval come from injected
// configuration; the registry is fully populated before the loop starts.
func New(
	st *store.Store,
	classifier *intent.Classifier,
	registry *handler.Registry,
	services *handler.Services,
	audit *eventlog.Log,
	maxRetries int,
	pollInterval time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:        st,
		classifier:   classifier,
		registry:     registry,
		services:     services,
		audit:        audit,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run polls until ctx is cancelled. Only a systemic failure (the pending
// area itself inaccessible) terminates the loop with an error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started", "poll_interval", o.pollInterval)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		if err := o.RunCycle(ctx); err != nil {
			return fmt.Errorf("polling cycle failed: %w", err)
		}

		select {
		case <-ctx.Done():
			o.logger.Info("orchestrator stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle processes every task currently pending. Per-task failures are
// absorbed; the returned error is reserved for a broken pending area.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	ids, err := o.store.ListPending()
	if err != nil {
		return err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return nil
		}
		o.processTask(ctx, id)
	}
	return nil
}

// processTask runs one task through classify-dispatch-finalize. It never
// returns an error: every failure maps to skip, retry or finalize.
func (o *Orchestrator) processTask(ctx context.Context, id string) {
	// A handler panic must not take down the loop.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while processing task", "task_id", id, "panic", r)
			o.retryOrFail(ctx, id, nil, fmt.Errorf("panic: %v", r))
		}
	}()

	t, err := o.store.Read(id)
	if err != nil {
		var corrupt *store.CorruptError
		if errors.As(err, &corrupt) {
			// Retrying re-reads the same bytes; fail permanently.
			o.logger.Error("corrupt task record", "task_id", id, "error", err)
			o.finalizeFailure(ctx, id, nil, "corrupt record")
			return
		}
		// Transient read problem: leave pending for the next cycle.
		o.logger.Warn("skipping unreadable task this cycle", "task_id", id, "error", err)
		return
	}

	o.logger.Info("processing task", "task_id", id, "subject", t.Subject)

	if !t.Classified() {
		cls, err := o.classifier.Classify(ctx, t.Subject, t.Body)
		if err != nil {
			o.logger.Warn("classification failed", "task_id", id, "error", err)
			o.retryOrFail(ctx, id, t, err)
			return
		}
		t.Intent = cls.Intent
		t.Classification = cls
		// Cache the classification so a later retry skips the generation
		// call. Losing this write only costs a repeat call.
		if err := o.store.Update(t); err != nil {
			o.logger.Warn("failed to cache classification", "task_id", id, "error", err)
		}
	}

	o.logger.Info("dispatching", "task_id", id, "intent", t.Intent)

	err = o.registry.Dispatch(ctx, t.Intent, t, o.services)
	switch {
	case err == nil:
		if err := o.store.Finalize(id, task.OutcomeSuccess); err != nil {
			o.logger.Error("failed to finalize task", "task_id", id, "error", err)
			return
		}
		o.appendAudit(eventlog.KindTaskDone, id, string(t.Intent), "")

	case errors.Is(err, handler.ErrUnknownIntent):
		// No future registration is expected mid-run; permanent failure.
		o.logger.Warn("no handler for intent", "task_id", id, "intent", t.Intent)
		o.notifyFailure(ctx, t, fmt.Sprintf("I couldn't understand what you asked for (intent %q).", t.Intent))
		o.finalizeFailure(ctx, id, t, "unknown intent")

	default:
		o.logger.Warn("handler failed", "task_id", id, "intent", t.Intent, "error", err)
		o.retryOrFail(ctx, id, t, err)
	}
}

// retryOrFail increments the retry count and finalizes as failed once the
// configured maximum is reached; otherwise the task stays pending for the
// next cycle.
func (o *Orchestrator) retryOrFail(ctx context.Context, id string, t *task.Task, cause error) {
	n, err := o.store.IncrementRetry(id)
	if err != nil {
		o.logger.Error("failed to increment retry count", "task_id", id, "error", err)
		return
	}

	if n < o.maxRetries {
		o.logger.Info("task left pending for retry",
			"task_id", id, "retry_count", n, "max_retries", o.maxRetries)
		return
	}

	o.logger.Warn("retries exhausted", "task_id", id, "retry_count", n)
	if t != nil {
		o.notifyFailure(ctx, t, fmt.Sprintf("I gave up after %d attempts. Last error: %v", n, cause))
	}
	o.finalizeFailure(ctx, id, t, fmt.Sprintf("retries exhausted: %v", cause))
}

func (o *Orchestrator) finalizeFailure(ctx context.Context, id string, t *task.Task, detail string) {
	if err := o.store.Finalize(id, task.OutcomeFailure); err != nil {
		o.logger.Error("failed to finalize task", "task_id", id, "error", err)
		return
	}
	intentLabel := ""
	if t != nil {
		intentLabel = string(t.Intent)
	}
	o.appendAudit(eventlog.KindTaskFailed, id, intentLabel, detail)
}

// notifyFailure sends a best-effort failure notice to the reply address.
// Delivery problems here are only logged; the task is failing anyway.
func (o *Orchestrator) notifyFailure(ctx context.Context, t *task.Task, detail string) {
	if t.ReplyTo == "" {
		return
	}
	body := fmt.Sprintf("Sorry, I couldn't complete your request %q.\n\n%s", t.Subject, detail)
	if err := o.services.Deliverer.Deliver(ctx, t.ReplyTo, "Request Failed", body); err != nil {
		o.logger.Warn("failed to send failure notice", "task_id", t.ID, "error", err)
	}
}

func (o *Orchestrator) appendAudit(kind eventlog.Kind, taskID, intentLabel, detail string) {
	if o.audit == nil {
		return
	}
	rec := eventlog.Record{
		Kind:   kind,
		TaskID: taskID,
		Intent: intentLabel,
		Detail: detail,
		At:     time.Now().UTC().Format(time.RFC3339),
	}
	if err := o.audit.Append(rec); err != nil {
		o.logger.Warn("failed to append audit record", "task_id", taskID, "error", err)
	}
}
