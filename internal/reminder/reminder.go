// Package reminder implements durable one-shot timers: each reminder is
// persisted before its in-process timer is armed, reloaded and re-armed on
// process start, and removed once delivered.
package reminder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reminder is a persisted one-shot future delivery.
// FireAt is set at creation and never mutated.
type Reminder struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	FireAt    time.Time `json:"fire_at"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the schema invariants of a deserialized reminder.
func (r *Reminder) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("reminder missing id")
	}
	if r.Message == "" {
		return fmt.Errorf("reminder %s missing message", r.ID)
	}
	if r.FireAt.IsZero() {
		return fmt.Errorf("reminder %s missing fire time", r.ID)
	}
	if r.Address == "" {
		return fmt.Errorf("reminder %s missing delivery address", r.ID)
	}
	return nil
}

// newID generates a unique, roughly time-ordered reminder identifier.
func newID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

// fireTimeLayouts are accepted for classifier-extracted fire times. Offsets
// are honored when present; bare local timestamps resolve in the scheduler's
// configured timezone.
var fireTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseFireTime parses an ISO-8601 fire time. Timestamps without an offset
// are interpreted in loc.
func ParseFireTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range fireTimeLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable fire time %q", s)
}
