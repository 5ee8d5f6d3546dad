package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEventValidation(t *testing.T) {
	c := NewInMemory()
	base := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ev      Event
		wantErr bool
	}{
		{
			name: "valid",
			ev:   Event{Title: "Dentist", Start: base, End: base.Add(time.Hour)},
		},
		{
			name: "no end is fine",
			ev:   Event{Title: "Standup", Start: base},
		},
		{
			name:    "missing title",
			ev:      Event{Start: base},
			wantErr: true,
		},
		{
			name:    "missing start",
			ev:      Event{Title: "Dentist"},
			wantErr: true,
		},
		{
			name:    "ends before start",
			ev:      Event{Title: "Dentist", Start: base, End: base.Add(-time.Hour)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CreateEvent(context.Background(), tt.ev)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestListEventsWindowAndOrder(t *testing.T) {
	c := NewInMemory()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	for _, ev := range []Event{
		{Title: "later", Start: base.Add(48 * time.Hour)},
		{Title: "earlier", Start: base.Add(24 * time.Hour)},
		{Title: "outside", Start: base.Add(240 * time.Hour)},
	} {
		require.NoError(t, c.CreateEvent(context.Background(), ev))
	}

	events, err := c.ListEvents(context.Background(), base, base.Add(72*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "earlier", events[0].Title)
	assert.Equal(t, "later", events[1].Title)
}
