package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/applytrack/applytrack/internal/platform/logger"
	"github.com/applytrack/applytrack/internal/reminder"
	"github.com/applytrack/applytrack/internal/store"
	"github.com/google/uuid"
)

// PostgresReminderStore implements reminder.Store.
type PostgresReminderStore struct {
	db store.DBTX
}

var _ reminder.Store = (*PostgresReminderStore)(nil)

// NewPostgresReminderStore creates a PostgresReminderStore.
func NewPostgresReminderStore(db store.DBTX) *PostgresReminderStore {
	return &PostgresReminderStore{db: db}
}

// ListDue returns applications whose reminder date is day's civil date and
// that have no reminder_sent row.
func (s *PostgresReminderStore) ListDue(ctx context.Context, day time.Time) ([]reminder.Record, error) {
	query := `
		SELECT a.id, a.reminder_date, u.email, a.company_name, a.position
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE a.reminder_date = $1::date
			AND NOT EXISTS (
				SELECT 1 FROM reminder_sent r WHERE r.application_id = a.id
			)
		ORDER BY a.reminder_date, a.created_at
	`
	rows, err := s.db.QueryContext(ctx, query, day.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []reminder.Record
	for rows.Next() {
		var r reminder.Record
		if err := rows.Scan(&r.ApplicationID, &r.ReminderDate, &r.OwnerEmail, &r.CompanyName, &r.Position); err != nil {
			return nil, fmt.Errorf("failed to scan due reminder: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", MapError(err))
	}
	return records, nil
}

// MarkSent inserts the sent marker if absent. An existing marker returns
// false without error.
func (s *PostgresReminderStore) MarkSent(ctx context.Context, applicationID uuid.UUID, sentAt time.Time) (bool, error) {
	query := `
		INSERT INTO reminder_sent (application_id, sent_at)
		VALUES ($1, $2)
		ON CONFLICT (application_id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, applicationID, sentAt)
	if err != nil {
		logger.FromContext(ctx).Error("failed to record reminder marker",
			"application_id", applicationID,
			"error", err)
		return false, fmt.Errorf("failed to record reminder marker: %w", MapError(err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}
