// Package calendar abstracts the calendar provider. The real provider API is
// an external collaborator; the core only needs create and range queries.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Event is a calendar entry.
type Event struct {
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Calendar    string    `json:"calendar,omitempty"`
}

// Client creates and queries events.
type Client interface {
	CreateEvent(ctx context.Context, ev Event) error
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
}

// InMemory is a Client backed by a slice. It stands in for the real provider
// during development and in tests.
type InMemory struct {
	mu     sync.Mutex
	events []Event
}

// NewInMemory creates an empty in-memory calendar.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// CreateEvent implements Client.
func (c *InMemory) CreateEvent(ctx context.Context, ev Event) error {
	if ev.Title == "" {
		return fmt.Errorf("event missing title")
	}
	if ev.Start.IsZero() {
		return fmt.Errorf("event %q missing start time", ev.Title)
	}
	if !ev.End.IsZero() && ev.End.Before(ev.Start) {
		return fmt.Errorf("event %q ends before it starts", ev.Title)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

// ListEvents implements Client. Results are sorted by start time.
func (c *InMemory) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Event
	for _, ev := range c.events {
		if ev.Start.Before(from) || ev.Start.After(to) {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
