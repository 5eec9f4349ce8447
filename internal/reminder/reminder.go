package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSweepInProgress is returned by RunOnce while another run is active in
// the same process, or in another process sharing the scheduler's Lock.
var ErrSweepInProgress = errors.New("reminder sweep already in progress")

// Record is a due reminder derived from an application, its owner and the
// absence of a sent marker.
type Record struct {
	ApplicationID uuid.UUID
	ReminderDate  time.Time
	OwnerEmail    string
	CompanyName   string
	Position      string
}

// Store reads due reminders and records sent markers.
type Store interface {
	// ListDue returns applications whose reminder date is the civil date of
	// day and that have no sent marker, ordered by reminder date.
	ListDue(ctx context.Context, day time.Time) ([]Record, error)

	// MarkSent inserts a sent marker for the application if none exists.
	// It reports whether a new marker was written; an existing marker is
	// not an error.
	MarkSent(ctx context.Context, applicationID uuid.UUID, sentAt time.Time) (bool, error)
}

// Lock keeps sweeps in different processes from overlapping.
type Lock interface {
	// TryAcquire takes the lock without waiting and reports whether it was
	// free. When acquired, release must be called once the run ends.
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// SweepReport summarizes one run.
type SweepReport struct {
	Day       time.Time
	Scanned   int
	Processed int
	Failed    int
	Duration  time.Duration
}

// Reporter receives a summary after each sweep that passed the hour gate.
type Reporter interface {
	Report(ctx context.Context, report SweepReport) error
}

// State is the scheduler's position in a run.
type State int32

// Scheduler states. A run moves Idle → Scanning → Notifying → Idle.
const (
	StateIdle State = iota
	StateScanning
	StateNotifying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateNotifying:
		return "notifying"
	default:
		return "unknown"
	}
}
