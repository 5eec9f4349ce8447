package task

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// mockHandler implements Handler with a replaceable HandleFn.
type mockHandler struct {
	kind     string
	HandleFn func(ctx context.Context, t *Task, progress ProgressReporter) (any, error)

	mu    sync.Mutex
	calls []uuid.UUID
}

func newMockHandler(kind string, fn func(ctx context.Context, t *Task, progress ProgressReporter) (any, error)) *mockHandler {
	return &mockHandler{kind: kind, HandleFn: fn}
}

func (h *mockHandler) Kind() string { return h.kind }

func (h *mockHandler) Handle(ctx context.Context, t *Task, progress ProgressReporter) (any, error) {
	h.mu.Lock()
	h.calls = append(h.calls, t.ID)
	h.mu.Unlock()
	return h.HandleFn(ctx, t, progress)
}

func (h *mockHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// fastConfig keeps tests quick while leaving leases long enough not to
// expire by accident.
func fastConfig(workers int) WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount:       workers,
		PollInterval:      10 * time.Millisecond,
		VisibilityTimeout: time.Minute,
		TaskTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		WorkerIDPrefix:    "test",
	}
}

// waitForStatus polls until the task reaches want or the deadline passes.
func waitForStatus(t *testing.T, q *Queue, id uuid.UUID, want Status) *StatusView {
	t.Helper()
	var view *StatusView
	require.Eventually(t, func() bool {
		v, err := q.GetStatus(context.Background(), id)
		if err != nil {
			return false
		}
		view = v
		return v.State == want
	}, 2*time.Second, 5*time.Millisecond, "task %s never reached %s", id, want)
	return view
}
