package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iambrandonn/mailbot/internal/eventlog"
	"github.com/iambrandonn/mailbot/internal/handler"
	"github.com/iambrandonn/mailbot/internal/intent"
	"github.com/iambrandonn/mailbot/internal/llm"
	"github.com/iambrandonn/mailbot/internal/store"
	"github.com/iambrandonn/mailbot/internal/task"
)

type notice struct {
	Address string
	Subject string
}

type noticeRecorder struct {
	mu   sync.Mutex
	sent []notice
}

func (n *noticeRecorder) Deliver(ctx context.Context, address, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notice{address, subject})
	return nil
}

func (n *noticeRecorder) notices() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.sent...)
}

type fixture struct {
	orch     *Orchestrator
	store    *store.Store
	registry *handler.Registry
	notices  *noticeRecorder
	auditLog string
	genCalls *int
}

// newFixture builds an orchestrator over a real store with a stubbed
// generation backend and an empty registry.
func newFixture(t *testing.T, genResponse string, maxRetries int) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "tasks"), logger)
	require.NoError(t, err)

	calls := 0
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return genResponse, nil
	})
	classifier := intent.NewClassifier(gen, time.Second, time.UTC, logger)

	registry := handler.NewRegistry(logger)
	notices := &noticeRecorder{}
	services := &handler.Services{
		Deliverer: notices,
		Logger:    logger,
	}

	auditPath := filepath.Join(dir, "events.ndjson")
	audit, err := eventlog.Open(auditPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	return &fixture{
		orch:     New(st, classifier, registry, services, audit, maxRetries, 10*time.Millisecond, logger),
		store:    st,
		registry: registry,
		notices:  notices,
		auditLog: auditPath,
		genCalls: &calls,
	}
}

func enqueue(t *testing.T, st *store.Store, subject, body string) *task.Task {
	t.Helper()
	tk := task.New(subject, body, "me@example.com", "", nil)
	require.NoError(t, st.Enqueue(tk))
	return tk
}

func inState(t *testing.T, st *store.Store, state task.State, id string) *task.Task {
	t.Helper()
	tk, err := st.ReadFinalized(state, id)
	require.NoError(t, err)
	return tk
}

func TestTaskFlowsToDone(t *testing.T) {
	f := newFixture(t, `{"intent":"schedule","summary":"dentist"}`, 3)

	var handled []string
	f.registry.Register(intent.IntentSchedule, func(ctx context.Context, tk *task.Task, svc *handler.Services) error {
		handled = append(handled, tk.ID)
		return nil
	})

	tk := enqueue(t, f.store, "Dentist", "next Tuesday 2pm")
	require.NoError(t, f.orch.RunCycle(context.Background()))

	assert.Equal(t, []string{tk.ID}, handled)

	done := inState(t, f.store, task.StateDone, tk.ID)
	assert.Equal(t, intent.IntentSchedule, done.Intent)
	assert.Zero(t, done.RetryCount)

	records, err := eventlog.ReadRecent(f.auditLog, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, eventlog.KindTaskDone, records[0].Kind)
}

func TestUnparseableClassificationExhaustsRetries(t *testing.T) {
	f := newFixture(t, "definitely not json {", 3)

	tk := enqueue(t, f.store, "gibberish", "???")
	for i := 0; i < 3; i++ {
		require.NoError(t, f.orch.RunCycle(context.Background()))
	}

	failed := inState(t, f.store, task.StateFailed, tk.ID)
	assert.Equal(t, 3, failed.RetryCount)

	pending, err := f.store.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Len(t, f.notices.notices(), 1, "one failure notice")
	assert.Equal(t, "me@example.com", f.notices.notices()[0].Address)
}

func TestFailingHandlerRetriedThenFailed(t *testing.T) {
	f := newFixture(t, `{"intent":"research"}`, 3)

	attempts := 0
	f.registry.Register(intent.IntentResearch, func(ctx context.Context, tk *task.Task, svc *handler.Services) error {
		attempts++
		return errors.New("always broken")
	})

	tk := enqueue(t, f.store, "Research", "anything")
	for i := 0; i < 5; i++ { // extra cycles must not resurrect the task
		require.NoError(t, f.orch.RunCycle(context.Background()))
	}

	assert.Equal(t, 3, attempts, "retried exactly max_retries times")

	failed := inState(t, f.store, task.StateFailed, tk.ID)
	assert.Equal(t, 3, failed.RetryCount)

	// Exactly once in failed, never in done or pending.
	done, err := f.store.Count(task.StateDone)
	require.NoError(t, err)
	assert.Zero(t, done)
	pending, err := f.store.Count(task.StatePending)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestClassificationCachedAcrossRetries(t *testing.T) {
	f := newFixture(t, `{"intent":"research"}`, 3)

	attempts := 0
	f.registry.Register(intent.IntentResearch, func(ctx context.Context, tk *task.Task, svc *handler.Services) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	})

	tk := enqueue(t, f.store, "Research", "flaky once")
	require.NoError(t, f.orch.RunCycle(context.Background()))
	require.NoError(t, f.orch.RunCycle(context.Background()))

	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, *f.genCalls, "classification reused from the task record")

	done := inState(t, f.store, task.StateDone, tk.ID)
	assert.Equal(t, 1, done.RetryCount)
}

func TestUnknownIntentFailsWithoutRetry(t *testing.T) {
	f := newFixture(t, `{"intent":"interpretive_dance"}`, 3)

	tk := enqueue(t, f.store, "???", "???")
	require.NoError(t, f.orch.RunCycle(context.Background()))

	failed := inState(t, f.store, task.StateFailed, tk.ID)
	assert.Zero(t, failed.RetryCount, "no retry for unknown intent")
	assert.Equal(t, intent.IntentUnknown, failed.Intent)
	require.Len(t, f.notices.notices(), 1)
}

func TestCorruptRecordFailsPermanently(t *testing.T) {
	f := newFixture(t, `{"intent":"research"}`, 3)

	path := filepath.Join(f.store.Root(), "pending", "corrupt-1.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0600))

	require.NoError(t, f.orch.RunCycle(context.Background()))

	pending, err := f.store.ListPending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	failedCount, err := f.store.Count(task.StateFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, failedCount)

	assert.Empty(t, f.notices.notices(), "no reply address known for a corrupt record")
}

func TestOneFailureDoesNotBlockSiblings(t *testing.T) {
	f := newFixture(t, `{"intent":"research"}`, 1)

	f.registry.Register(intent.IntentResearch, func(ctx context.Context, tk *task.Task, svc *handler.Services) error {
		if tk.Subject == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	bad := enqueue(t, f.store, "bad", "fails")
	good := enqueue(t, f.store, "good", "succeeds")

	require.NoError(t, f.orch.RunCycle(context.Background()))

	inState(t, f.store, task.StateFailed, bad.ID)
	inState(t, f.store, task.StateDone, good.ID)
}

func TestPanickingHandlerIsIsolated(t *testing.T) {
	f := newFixture(t, `{"intent":"research"}`, 1)

	f.registry.Register(intent.IntentResearch, func(ctx context.Context, tk *task.Task, svc *handler.Services) error {
		panic("handler bug")
	})

	tk := enqueue(t, f.store, "Research", "panics")
	require.NoError(t, f.orch.RunCycle(context.Background()))

	inState(t, f.store, task.StateFailed, tk.ID)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newFixture(t, `{"intent":"research"}`, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
