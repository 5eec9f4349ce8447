package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/applytrack/applytrack/internal/notify"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type application struct {
	id           uuid.UUID
	reminderDate time.Time // civil date at UTC midnight
	email        string
	company      string
	position     string
}

// memoryStore mirrors the PostgreSQL query: exact date match plus an
// anti-join on markers, with a unique marker per application.
type memoryStore struct {
	mu      sync.Mutex
	apps    map[uuid.UUID]*application
	markers map[uuid.UUID]time.Time

	listErr       error
	markErrFor    map[uuid.UUID]error
	listDueCalled int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		apps:       make(map[uuid.UUID]*application),
		markers:    make(map[uuid.UUID]time.Time),
		markErrFor: make(map[uuid.UUID]error),
	}
}

func (s *memoryStore) addApplication(reminderDate time.Time, company string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	y, m, d := reminderDate.Date()
	app := &application{
		id:           uuid.New(),
		reminderDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		email:        company + "@example.com",
		company:      company,
		position:     "Engineer",
	}
	s.apps[app.id] = app
	return app.id
}

func (s *memoryStore) setReminderDate(id uuid.UUID, day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	y, m, d := day.Date()
	s.apps[id].reminderDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *memoryStore) ListDue(_ context.Context, day time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listDueCalled++
	if s.listErr != nil {
		return nil, s.listErr
	}

	want := day.Format(time.DateOnly)
	var out []Record
	for _, app := range s.apps {
		if app.reminderDate.Format(time.DateOnly) != want {
			continue
		}
		if _, sent := s.markers[app.id]; sent {
			continue
		}
		out = append(out, Record{
			ApplicationID: app.id,
			ReminderDate:  app.reminderDate,
			OwnerEmail:    app.email,
			CompanyName:   app.company,
			Position:      app.position,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderDate.Before(out[j].ReminderDate) })
	return out, nil
}

func (s *memoryStore) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	// database/sql refuses to run a statement on a done context.
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.markErrFor[id]; err != nil {
		return false, err
	}
	if _, exists := s.markers[id]; exists {
		return false, nil
	}
	s.markers[id] = sentAt
	return true, nil
}

func (s *memoryStore) markerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// recordingNotifier counts sends per recipient and can fail selected ones.
type recordingNotifier struct {
	mu     sync.Mutex
	sent   []notify.Email
	failTo map[string]error
	block  chan struct{}

	// afterSend runs after each successful send.
	afterSend func()
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{failTo: make(map[string]error)}
}

func (n *recordingNotifier) Send(ctx context.Context, e notify.Email) error {
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failTo[e.To]; err != nil {
		return err
	}
	n.sent = append(n.sent, e)
	if n.afterSend != nil {
		n.afterSend()
	}
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *recordingNotifier) countTo(to string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.sent {
		if e.To == to {
			c++
		}
	}
	return c
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []SweepReport
	err     error
}

func (r *recordingReporter) Report(_ context.Context, report SweepReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

var errSMTPDown = errors.New("smtp relay unreachable")

// fakeLock is a Lock that can be held by "another process".
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	acquired int
	released int
}

func (l *fakeLock) TryAcquire(context.Context) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.acquired++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
	}, true, nil
}
