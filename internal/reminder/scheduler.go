package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iambrandonn/mailbot/internal/deliver"
)

// deliveryTimeout caps one delivery attempt so a hung transport cannot pin a
// firing goroutine forever.
const deliveryTimeout = 30 * time.Second

// ScheduleError signals that a reminder could not be scheduled: unparseable
// fire time or a persistence failure. No timer is armed for a record that
// failed to persist.
type ScheduleError struct {
	Err error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("failed to schedule reminder: %v", e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// Scheduler owns the persisted reminder set and the in-memory timers derived
// from it. Firings run on independent timer goroutines; the mutex only
// guards the timer map, never delivery.
type Scheduler struct {
	store      *Store
	deliverer  deliver.Deliverer
	retryDelay time.Duration
	loc        *time.Location
	logger     *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer

	// onFired, when set, observes every delivery attempt (for audit).
	onFired func(r *Reminder, err error)

	// now is swappable for tests
	now func() time.Time
}

// NewScheduler creates a scheduler. retryDelay is how long to wait before
// re-attempting a failed delivery in-process; loc resolves bare fire times.
func NewScheduler(store *Store, deliverer deliver.Deliverer, retryDelay time.Duration, loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		store:      store,
		deliverer:  deliverer,
		retryDelay: retryDelay,
		loc:        loc,
		logger:     logger,
		timers:     make(map[string]*time.Timer),
		now:        time.Now,
	}
}

// SetFireHook registers a callback observing delivery attempts. Must be
// called before Start.
func (s *Scheduler) SetFireHook(hook func(r *Reminder, err error)) {
	s.onFired = hook
}

// Schedule persists a new reminder, then arms its timer. The record is
// durable before any timer exists, so a crash between the two cannot lose
// the reminder. fireTime is ISO-8601; a missing offset resolves in the
// scheduler's timezone.
func (s *Scheduler) Schedule(message, fireTime, address string) (*Reminder, error) {
	fireAt, err := ParseFireTime(fireTime, s.loc)
	if err != nil {
		return nil, &ScheduleError{Err: err}
	}

	r := &Reminder{
		ID:        newID(),
		Message:   message,
		FireAt:    fireAt,
		Address:   address,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Add(r); err != nil {
		return nil, &ScheduleError{Err: err}
	}

	s.arm(r)
	s.logger.Info("reminder scheduled",
		"reminder_id", r.ID,
		"fire_at", r.FireAt,
		"address", r.Address)
	return r, nil
}

// Start reloads all persisted reminders and re-arms them. Reminders whose
// fire time has already passed fire immediately (catch-up delivery); overdue
// reminders are never silently dropped.
func (s *Scheduler) Start() error {
	reminders, err := s.store.List()
	if err != nil {
		return fmt.Errorf("failed to reload reminders: %w", err)
	}

	if len(reminders) > 0 {
		s.logger.Info("re-arming persisted reminders", "count", len(reminders))
	}
	for _, r := range reminders {
		s.arm(r)
	}
	return nil
}

// Cancel stops a reminder's timer and removes its persisted record, so a
// restart cannot re-arm a stale entry. Reports whether anything was
// cancelled.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	timer, ok := s.timers[id]
	if ok {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if err := s.store.Remove(id); err != nil {
		s.logger.Error("failed to remove cancelled reminder", "reminder_id", id, "error", err)
	}
	return ok
}

// Active returns the number of currently armed timers.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels all armed timers without touching persisted records, so the
// next Start re-arms everything. Used for graceful shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// arm schedules the fire callback. Past-due reminders fire immediately on
// their own goroutine so loading many overdue records never blocks.
func (s *Scheduler) arm(r *Reminder) {
	delay := r.FireAt.Sub(s.now())
	if delay <= 0 {
		s.logger.Info("reminder overdue, firing now", "reminder_id", r.ID, "fire_at", r.FireAt)
		go s.fire(r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace any existing timer for this id to prevent duplicate firings
	// when a reminder is re-armed.
	if old, ok := s.timers[r.ID]; ok {
		old.Stop()
	}
	s.timers[r.ID] = time.AfterFunc(delay, func() { s.fire(r) })
	s.logger.Debug("reminder armed", "reminder_id", r.ID, "delay", delay)
}

// fire delivers one reminder. On success the persisted record is removed so
// it can never fire twice. On failure the record is kept and a retry timer
// is armed; a restart would also re-arm it via Start.
func (s *Scheduler) fire(r *Reminder) {
	s.mu.Lock()
	delete(s.timers, r.ID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	subject := fmt.Sprintf("Reminder: %s", r.Message)
	body := fmt.Sprintf("This is your reminder: %s\n\nOriginally set: %s",
		r.Message, r.CreatedAt.Format(time.RFC3339))

	err := s.deliverer.Deliver(ctx, r.Address, subject, body)
	if s.onFired != nil {
		s.onFired(r, err)
	}

	if err != nil {
		s.logger.Error("reminder delivery failed, will retry",
			"reminder_id", r.ID,
			"retry_in", s.retryDelay,
			"error", err)

		s.mu.Lock()
		defer s.mu.Unlock()
		if old, ok := s.timers[r.ID]; ok {
			old.Stop()
		}
		s.timers[r.ID] = time.AfterFunc(s.retryDelay, func() { s.fire(r) })
		return
	}

	if err := s.store.Remove(r.ID); err != nil {
		s.logger.Error("failed to remove delivered reminder", "reminder_id", r.ID, "error", err)
		return
	}
	s.logger.Info("reminder fired", "reminder_id", r.ID, "address", r.Address)
}
