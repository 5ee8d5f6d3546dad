package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/mailbot/internal/task"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(t.TempDir(), logger)
	require.NoError(t, err)
	return s
}

func newTask(subject string) *task.Task {
	return task.New(subject, "body", "me@example.com", "", nil)
}

func TestEnqueueAndRead(t *testing.T) {
	s := openStore(t)
	tk := newTask("Dentist")

	require.NoError(t, s.Enqueue(tk))

	got, err := s.Read(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
	assert.Equal(t, "Dentist", got.Subject)
	assert.Equal(t, tk.ReplyTo, got.ReplyTo)
}

func TestEnqueueRejectsInvalidTask(t *testing.T) {
	s := openStore(t)
	tk := newTask("Subject")
	tk.Sender = ""
	tk.ReplyTo = ""

	require.Error(t, s.Enqueue(tk))

	ids, err := s.ListPending()
	require.NoError(t, err)
	assert.Empty(t, ids, "no partial artifact after failed enqueue")
}

func TestListPendingSortedAndFiltered(t *testing.T) {
	s := openStore(t)

	first := newTask("first")
	first.ID = "1700000000000-aaaa"
	second := newTask("second")
	second.ID = "1700000000500-bbbb"
	require.NoError(t, s.Enqueue(second))
	require.NoError(t, s.Enqueue(first))

	// Droppings a reader must ignore: temp files and foreign files.
	pendingDir := filepath.Join(s.Root(), "pending")
	require.NoError(t, os.WriteFile(filepath.Join(pendingDir, ".x.json.tmp.123.ab"), []byte("partial"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(pendingDir, "notes.txt"), []byte("hi"), 0600))

	ids, err := s.ListPending()
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, ids, "oldest first")
}

func TestReadNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Read("absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadCorruptRecord(t *testing.T) {
	s := openStore(t)

	tests := []struct {
		name string
		data string
	}{
		{"invalid json", "{broken"},
		{"schema violation", `{"id":"c1","subject":"","sender":"","reply_to":""}`},
		{"id mismatch", `{"id":"other","subject":"s","sender":"a@b.c","reply_to":"a@b.c","created_at":"2026-08-28T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(s.Root(), "pending", "c1.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0600))

			_, err := s.Read("c1")
			var cerr *CorruptError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "c1", cerr.ID)
		})
	}
}

func TestUpdateCachesClassification(t *testing.T) {
	s := openStore(t)
	tk := newTask("Research: go generics")
	require.NoError(t, s.Enqueue(tk))

	tk.Intent = "research"
	require.NoError(t, s.Update(tk))

	got, err := s.Read(tk.ID)
	require.NoError(t, err)
	assert.EqualValues(t, "research", got.Intent)
}

func TestUpdateMissingTask(t *testing.T) {
	s := openStore(t)
	tk := newTask("ghost")
	assert.ErrorIs(t, s.Update(tk), ErrNotFound)
}

func TestIncrementRetry(t *testing.T) {
	s := openStore(t)
	tk := newTask("flaky")
	require.NoError(t, s.Enqueue(tk))

	for want := 1; want <= 3; want++ {
		n, err := s.IncrementRetry(tk.ID)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	got, err := s.Read(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.RetryCount)
}

func TestFinalizeSuccess(t *testing.T) {
	s := openStore(t)
	tk := newTask("done deal")
	require.NoError(t, s.Enqueue(tk))

	require.NoError(t, s.Finalize(tk.ID, task.OutcomeSuccess))

	_, err := s.Read(tk.ID)
	assert.ErrorIs(t, err, ErrNotFound, "no longer pending")

	got, err := s.ReadFinalized(task.StateDone, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
}

func TestFinalizeFailure(t *testing.T) {
	s := openStore(t)
	tk := newTask("doomed")
	require.NoError(t, s.Enqueue(tk))

	require.NoError(t, s.Finalize(tk.ID, task.OutcomeFailure))

	got, err := s.ReadFinalized(task.StateFailed, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)
}

func TestFinalizeIdempotent(t *testing.T) {
	s := openStore(t)
	tk := newTask("twice")
	require.NoError(t, s.Enqueue(tk))

	require.NoError(t, s.Finalize(tk.ID, task.OutcomeSuccess))
	require.NoError(t, s.Finalize(tk.ID, task.OutcomeSuccess), "second finalize is a no-op")

	// Record exists in exactly one area.
	done, err := s.Count(task.StateDone)
	require.NoError(t, err)
	failed, err := s.Count(task.StateFailed)
	require.NoError(t, err)
	pending, err := s.Count(task.StatePending)
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Zero(t, failed)
	assert.Zero(t, pending)
}

func TestFinalizeUnknownID(t *testing.T) {
	s := openStore(t)
	assert.ErrorIs(t, s.Finalize("never-seen", task.OutcomeSuccess), ErrNotFound)
}

func TestCount(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 3; i++ {
		tk := newTask("n")
		require.NoError(t, s.Enqueue(tk))
		time.Sleep(time.Millisecond) // distinct millisecond id prefixes
	}
	n, err := s.Count(task.StatePending)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// A reader polling concurrently with enqueues must only ever observe complete
// records: the atomic temp-write-then-rename never exposes partial content.
func TestConcurrentEnqueueAndList(t *testing.T) {
	s := openStore(t)

	const writers = 4
	const perWriter = 10
	done := make(chan struct{})

	for w := 0; w < writers; w++ {
		go func() {
			for i := 0; i < perWriter; i++ {
				tk := newTask("concurrent")
				if err := s.Enqueue(tk); err != nil {
					t.Error(err)
					return
				}
			}
			done <- struct{}{}
		}()
	}

	finished := 0
	for finished < writers {
		select {
		case <-done:
			finished++
		default:
			ids, err := s.ListPending()
			require.NoError(t, err)
			for _, id := range ids {
				got, err := s.Read(id)
				require.NoError(t, err, "visible record must always parse")
				require.NoError(t, got.Validate())
			}
		}
	}

	ids, err := s.ListPending()
	require.NoError(t, err)
	assert.Len(t, ids, writers*perWriter)
}
