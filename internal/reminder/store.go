package reminder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iambrandonn/mailbot/internal/fsutil"
)

// Store persists reminders one file per record, using the same atomic-rename
// discipline as the task store. Per-record files make add and remove
// independent operations, so concurrent firings cannot lose each other's
// updates.
type Store struct {
	dir    string
	logger *slog.Logger
}

// OpenStore creates (if needed) the reminder record directory.
func OpenStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create reminder directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Add persists a reminder record atomically.
func (s *Store) Add(r *Reminder) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid reminder: %w", err)
	}
	if err := fsutil.AtomicWriteJSON(s.path(r.ID), r); err != nil {
		return fmt.Errorf("failed to persist reminder %s: %w", r.ID, err)
	}
	return nil
}

// Remove deletes a reminder record. Removing an absent record is a no-op:
// the caller may race a restart that already delivered it.
func (s *Store) Remove(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove reminder %s: %w", id, err)
	}
	return nil
}

// List returns all persisted reminders sorted by fire time. Unreadable
// records are logged and skipped; one bad file must not block the rest
// from re-arming.
func (s *Store) List() ([]*Reminder, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder directory: %w", err)
	}

	var out []*Reminder
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}

		var r Reminder
		if err := fsutil.ReadJSON(filepath.Join(s.dir, name), &r); err != nil {
			s.logger.Warn("skipping unreadable reminder record", "file", name, "error", err)
			continue
		}
		if err := r.Validate(); err != nil {
			s.logger.Warn("skipping invalid reminder record", "file", name, "error", err)
			continue
		}
		out = append(out, &r)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}
