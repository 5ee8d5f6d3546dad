// Package store implements the durable, crash-safe task queue: one file per
// task, moved between pending/done/failed areas. The filesystem is the
// transport between the external watcher (producer) and the orchestration
// loop (consumer); "durable write, then rename" is the sole mutation and
// synchronization primitive.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iambrandonn/mailbot/internal/fsutil"
	"github.com/iambrandonn/mailbot/internal/task"
)

// ErrNotFound signals that no task record exists under the given id in any
// state area.
var ErrNotFound = errors.New("task not found")

// CorruptError signals that a task record was readable but failed JSON
// decoding or schema validation. Retrying would reproduce the same failure,
// so the loop treats this as permanent.
type CorruptError struct {
	ID  string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("task %s is corrupt: %v", e.ID, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store owns the on-disk task areas. All writes go through atomic
// temp-write-then-rename, so a concurrent reader never observes a partial
// record.
type Store struct {
	root   string
	logger *slog.Logger
}

// Open creates (if needed) the pending/done/failed areas under root.
func Open(root string, logger *slog.Logger) (*Store, error) {
	for _, state := range []task.State{task.StatePending, task.StateDone, task.StateFailed} {
		if err := os.MkdirAll(filepath.Join(root, string(state)), 0700); err != nil {
			return nil, fmt.Errorf("failed to create %s area: %w", state, err)
		}
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

func (s *Store) path(state task.State, id string) string {
	return filepath.Join(s.root, string(state), id+".json")
}

// Enqueue serializes the task and makes it visible atomically in the pending
// area. On failure no partial artifact remains visible.
func (s *Store) Enqueue(t *task.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("refusing to enqueue invalid task: %w", err)
	}
	if err := fsutil.AtomicWriteJSON(s.path(task.StatePending, t.ID), t); err != nil {
		return fmt.Errorf("failed to enqueue task %s: %w", t.ID, err)
	}
	s.logger.Info("task enqueued", "task_id", t.ID, "subject", t.Subject)
	return nil
}

// ListPending returns the ids currently visible in the pending area, sorted
// lexically. Ids from task.NewID carry a millisecond prefix, so this is
// oldest-first; strict global ordering is not guaranteed for foreign ids.
func (s *Store) ListPending() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(task.StatePending)))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending area: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		// In-flight temp files from atomic writes start with a dot.
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Read returns the deserialized pending task. Missing records map to
// ErrNotFound; undecodable or schema-invalid records map to *CorruptError.
func (s *Store) Read(id string) (*task.Task, error) {
	data, err := os.ReadFile(s.path(task.StatePending, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}

	t, err := decode(data)
	if err != nil {
		return nil, &CorruptError{ID: id, Err: err}
	}
	if t.ID != id {
		return nil, &CorruptError{ID: id, Err: fmt.Errorf("record id %q does not match filename", t.ID)}
	}
	return t, nil
}

// Update atomically rewrites a pending task record, e.g. to cache a
// classification so a retry does not repeat the generation call.
func (s *Store) Update(t *task.Task) error {
	path := s.path(task.StatePending, t.ID)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to stat task %s: %w", t.ID, err)
	}
	if err := fsutil.AtomicWriteJSON(path, t); err != nil {
		return fmt.Errorf("failed to update task %s: %w", t.ID, err)
	}
	return nil
}

// IncrementRetry bumps the retry count of a pending task in place
// (read-modify-atomic-rewrite) and returns the new count.
func (s *Store) IncrementRetry(id string) (int, error) {
	t, err := s.Read(id)
	if err != nil {
		return 0, err
	}
	t.RetryCount++
	if err := s.Update(t); err != nil {
		return 0, err
	}
	s.logger.Debug("retry count incremented", "task_id", id, "retry_count", t.RetryCount)
	return t.RetryCount, nil
}

// Finalize moves the task record out of pending into done or failed.
// Idempotent: finalizing an already-finalized id is a benign no-op, never
// data corruption.
func (s *Store) Finalize(id string, outcome task.Outcome) error {
	target := task.StateDone
	if outcome == task.OutcomeFailure {
		target = task.StateFailed
	}

	src := s.path(task.StatePending, id)
	dst := s.path(target, id)

	if _, err := os.Stat(src); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat task %s: %w", id, err)
		}
		// Not pending: already finalized is a no-op, otherwise unknown id.
		for _, state := range []task.State{task.StateDone, task.StateFailed} {
			if _, err := os.Stat(s.path(state, id)); err == nil {
				s.logger.Debug("task already finalized", "task_id", id, "state", state)
				return nil
			}
		}
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	if err := fsutil.AtomicRename(src, dst); err != nil {
		return fmt.Errorf("failed to finalize task %s: %w", id, err)
	}
	s.logger.Info("task finalized", "task_id", id, "outcome", outcome)
	return nil
}

// Count returns the number of task records in the given state area.
func (s *Store) Count(state task.State) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(state)))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s area: %w", state, err)
	}
	n := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && !strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".json") {
			n++
		}
	}
	return n, nil
}

// ReadFinalized returns a task record from the done or failed area.
func (s *Store) ReadFinalized(state task.State, id string) (*task.Task, error) {
	if state != task.StateDone && state != task.StateFailed {
		return nil, fmt.Errorf("state %s is not terminal", state)
	}
	data, err := os.ReadFile(s.path(state, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}
	t, err := decode(data)
	if err != nil {
		return nil, &CorruptError{ID: id, Err: err}
	}
	return t, nil
}

func decode(data []byte) (*task.Task, error) {
	var t task.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
