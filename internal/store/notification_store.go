package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

type notificationRow struct {
	ID          string   `db:"id"`
	TaskID      string   `db:"task_id"`
	RecipientID string   `db:"recipient_id"`
	Message     string   `db:"message"`
	Read        int      `db:"read"`
	CreatedAt   nullTime `db:"created_at"`
}

// CreateNotifications inserts a batch of in-app notifications.
// Missing IDs are generated.
func (s *SQLiteStore) CreateNotifications(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO notifications (id, task_id, recipient_id, message, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing notification insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range ns {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		_, err := stmt.ExecContext(ctx,
			n.ID, n.TaskID, n.RecipientID, n.Message,
			boolToInt(n.Read), formatTime(n.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("creating notification for %s: %w", n.RecipientID, err)
		}
	}

	return tx.Commit()
}

// ListNotifications retrieves a recipient's notifications, newest first.
func (s *SQLiteStore) ListNotifications(
	ctx context.Context,
	recipientID string,
	unreadOnly bool,
) ([]model.Notification, error) {
	query := `SELECT id, task_id, recipient_id, message, read, created_at
		FROM notifications WHERE recipient_id = ?`
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC, id"

	var rows []notificationRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, recipientID); err != nil {
		return nil, fmt.Errorf("querying notifications of %s: %w", recipientID, err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Notification{
			ID:          r.ID,
			TaskID:      r.TaskID,
			RecipientID: r.RecipientID,
			Message:     r.Message,
			Read:        r.Read != 0,
			CreatedAt:   r.CreatedAt.Time,
		})
	}
	return out, nil
}

// MarkNotificationRead marks one of the recipient's notifications as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, recipientID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND recipient_id = ?",
		id, recipientID,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return apperr.ErrNotificationNotFound.With("notification %s not found", id)
	}
	return nil
}
