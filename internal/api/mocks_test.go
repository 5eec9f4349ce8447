package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/applytrack/applytrack/internal/analysis"
	"github.com/applytrack/applytrack/internal/task"
	"github.com/google/uuid"
)

type mockSubmitter struct {
	SubmitFn         func(ctx context.Context, req analysis.Request) (*analysis.Submission, error)
	SubmitFitScoreFn func(ctx context.Context, req analysis.FitRequest) (*analysis.Submission, error)
}

func (m *mockSubmitter) Submit(ctx context.Context, req analysis.Request) (*analysis.Submission, error) {
	return m.SubmitFn(ctx, req)
}

func (m *mockSubmitter) SubmitFitScore(ctx context.Context, req analysis.FitRequest) (*analysis.Submission, error) {
	return m.SubmitFitScoreFn(ctx, req)
}

type mockTasks struct {
	GetStatusFn func(ctx context.Context, id uuid.UUID) (*task.StatusView, error)
	CountsFn    func(ctx context.Context) (map[task.Status]int, error)
}

func (m *mockTasks) GetStatus(ctx context.Context, id uuid.UUID) (*task.StatusView, error) {
	return m.GetStatusFn(ctx, id)
}

func (m *mockTasks) Counts(ctx context.Context) (map[task.Status]int, error) {
	return m.CountsFn(ctx)
}

type mockRunner struct {
	RunOnceFn func(ctx context.Context) (int, error)
}

func (m *mockRunner) RunOnce(ctx context.Context) (int, error) {
	return m.RunOnceFn(ctx)
}

type mockPinger struct {
	err error
}

func (m mockPinger) PingContext(context.Context) error { return m.err }

type testDeps struct {
	submitter *mockSubmitter
	tasks     *mockTasks
	runner    *mockRunner
	pinger    mockPinger
}

func newTestDeps() *testDeps {
	return &testDeps{
		submitter: &mockSubmitter{},
		tasks: &mockTasks{
			CountsFn: func(context.Context) (map[task.Status]int, error) {
				return map[task.Status]int{task.StatusQueued: 2}, nil
			},
		},
		runner: &mockRunner{},
	}
}

func (d *testDeps) router() http.Handler {
	return NewRouter(Handlers{
		Analyses:  NewAnalysisHandler(d.submitter),
		Tasks:     NewTaskHandler(d.tasks),
		Reminders: NewReminderHandler(d.runner),
		Health:    NewHealthHandler(d.pinger, d.tasks),
	}, discardLogger())
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
