package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
)

//go:embed schema.sql
var schema string

type scheduledStorage struct {
	db *sqlx.DB
}

// NewScheduledStorage wraps the queue database connection
func NewScheduledStorage(db *sqlx.DB) ScheduledStorage {
	return &scheduledStorage{db: db}
}

// Migrate creates the queue table and its indexes if they are missing
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Insert relies on the unique (type, subject_id) index so that concurrent
// inserts for one subject resolve to a single row.
func (s *scheduledStorage) Insert(ctx context.Context, n *model.ScheduledNotification) (bool, error) {
	if n == nil {
		return false, fmt.Errorf("scheduled notification cannot be nil")
	}
	query := `INSERT INTO scheduled_notifications
		(id, type, subject_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (type, subject_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, n.ID, n.Type, n.SubjectID, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert scheduled notification: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ClaimDue leases due rows. SKIP LOCKED keeps two concurrent sweeps from
// claiming the same row.
func (s *scheduledStorage) ClaimDue(ctx context.Context, dueBefore, now, leaseUntil time.Time, limit int) ([]model.ScheduledNotification, error) {
	query := `UPDATE scheduled_notifications SET claimed_until = $1
		WHERE id IN (
			SELECT id FROM scheduled_notifications
			WHERE created_at <= $2 AND (claimed_until IS NULL OR claimed_until < $3)
			ORDER BY created_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, type, subject_id, created_at, claimed_until`

	var rows []model.ScheduledNotification
	if err := s.db.SelectContext(ctx, &rows, query, leaseUntil, dueBefore, now, limit); err != nil {
		return nil, fmt.Errorf("failed to claim scheduled notifications: %w", err)
	}
	return rows, nil
}

func (s *scheduledStorage) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM scheduled_notifications WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled notification: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return appErr.NewNotFound("scheduled notification %s", id)
	}
	return nil
}

func (s *scheduledStorage) Release(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE scheduled_notifications SET claimed_until = NULL WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to release scheduled notification: %w", err)
	}
	return nil
}

func (s *scheduledStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
