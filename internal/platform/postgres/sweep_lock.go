package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/applytrack/applytrack/internal/platform/logger"
	"github.com/applytrack/applytrack/internal/reminder"
)

// ReminderSweepLockKey is the advisory lock key held for the duration of a
// reminder sweep.
const ReminderSweepLockKey int64 = 727001001

const unlockTimeout = 5 * time.Second

// PostgresSweepLock implements reminder.Lock with a session-level advisory
// lock on a dedicated connection.
type PostgresSweepLock struct {
	db  *sql.DB
	key int64
}

var _ reminder.Lock = (*PostgresSweepLock)(nil)

// NewPostgresSweepLock creates a lock over ReminderSweepLockKey.
func NewPostgresSweepLock(db *sql.DB) *PostgresSweepLock {
	return &PostgresSweepLock{db: db, key: ReminderSweepLockKey}
}

// TryAcquire implements reminder.Lock.
func (l *PostgresSweepLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to reserve connection for sweep lock: %w", MapError(err))
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&acquired); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("failed to take sweep lock: %w", MapError(err))
	}
	if !acquired {
		_ = conn.Close()
		return nil, false, nil
	}

	release := func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
		defer cancel()
		if _, err := conn.ExecContext(unlockCtx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
			logger.FromContext(ctx).Warn("failed to release sweep lock, discarding its connection",
				"error", err)
			// The session ends with the connection, which frees the lock.
			_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		}
		_ = conn.Close()
	}
	return release, true, nil
}
