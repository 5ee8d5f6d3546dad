// Package eventlog records task outcomes and reminder firings in an
// append-only NDJSON file, for the status handler and offline inspection.
package eventlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"log/slog"

	"github.com/iambrandonn/mailbot/internal/ndjson"
)

// Kind categorizes an audit record.
type Kind string

const (
	KindTaskDone          Kind = "task.done"
	KindTaskFailed        Kind = "task.failed"
	KindReminderScheduled Kind = "reminder.scheduled"
	KindReminderFired     Kind = "reminder.fired"
)

// Record is one line of the audit trail.
type Record struct {
	Kind   Kind   `json:"kind"`
	TaskID string `json:"task_id,omitempty"`
	Intent string `json:"intent,omitempty"`
	Detail string `json:"detail,omitempty"`
	At     string `json:"at"` // RFC 3339
}

// Log appends records to an NDJSON file.
type Log struct {
	file    *os.File
	encoder *ndjson.Encoder
	logger  *slog.Logger
	mu      sync.Mutex
}

// Open creates (or opens for append) the audit log at logPath.
func Open(logPath string, logger *slog.Logger) (*Log, error) {
	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Log{
		file:    file,
		encoder: ndjson.NewEncoder(file, logger),
		logger:  logger,
	}, nil
}

// Append writes one record to the log.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.encoder.Encode(rec)
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
