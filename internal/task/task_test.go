package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/mailbot/internal/intent"
)

func TestNewDefaults(t *testing.T) {
	tk := New("Dentist", "next Tuesday 2pm", "me@example.com", "", nil)

	assert.NotEmpty(t, tk.ID)
	assert.Equal(t, "me@example.com", tk.ReplyTo, "reply_to defaults to sender")
	assert.NotNil(t, tk.Attachments)
	assert.Empty(t, tk.Attachments)
	assert.False(t, tk.CreatedAt.IsZero())
	assert.Zero(t, tk.RetryCount)
	require.NoError(t, tk.Validate())
}

func TestNewIDUniqueAndSortable(t *testing.T) {
	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 100; i++ {
		id := NewID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		if prev != "" {
			// Millisecond prefix keeps lexical order roughly chronological.
			assert.LessOrEqual(t, prev[:13], id[:13])
		}
		prev = id
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		task *Task
	}{
		{
			name: "minimal",
			task: New("Status", "", "me@example.com", "", nil),
		},
		{
			name: "with attachments",
			task: New("Schedule", "invite attached", "me@example.com", "other@example.com", []string{"invite.ics", "map.png"}),
		},
		{
			name: "classified",
			task: func() *Task {
				tk := New("REMIND ME", "call mom at 3pm", "me@example.com", "", nil)
				tk.Intent = intent.IntentReminder
				tk.Classification = &intent.Classification{
					Intent:          intent.IntentReminder,
					Summary:         "call mom",
					ReminderTime:    "2026-09-01T15:00:00",
					ReminderMessage: "call mom",
				}
				tk.RetryCount = 2
				return tk
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.task)
			require.NoError(t, err)

			var got Task
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.task.ID, got.ID)
			assert.Equal(t, tt.task.Subject, got.Subject)
			assert.Equal(t, tt.task.Attachments, got.Attachments)
			assert.Equal(t, tt.task.Intent, got.Intent)
			assert.Equal(t, tt.task.Classification, got.Classification)
			assert.Equal(t, tt.task.RetryCount, got.RetryCount)
			assert.True(t, tt.task.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Task {
		return New("Subject", "body", "me@example.com", "", nil)
	}

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr bool
	}{
		{"valid", func(*Task) {}, false},
		{"empty body ok", func(tk *Task) { tk.Body = "" }, false},
		{"missing id", func(tk *Task) { tk.ID = "" }, true},
		{"missing subject", func(tk *Task) { tk.Subject = "" }, true},
		{"missing sender", func(tk *Task) { tk.Sender = "" }, true},
		{"missing reply_to", func(tk *Task) { tk.ReplyTo = "" }, true},
		{"negative retry count", func(tk *Task) { tk.RetryCount = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := valid()
			tt.mutate(tk)
			err := tk.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClassified(t *testing.T) {
	tk := New("Subject", "body", "me@example.com", "", nil)
	assert.False(t, tk.Classified())

	tk.Classification = &intent.Classification{}
	assert.False(t, tk.Classified(), "classification without intent is not usable")

	tk.Classification.Intent = intent.IntentResearch
	assert.True(t, tk.Classified())
}
