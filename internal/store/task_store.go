package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

const taskColumns = `id, sender_user_id, body, type, execution_date,
	created_at, recipients_count, deleted_by_sender_at`

// taskRow mirrors the tasks table.
type taskRow struct {
	ID                string   `db:"id"`
	SenderUserID      string   `db:"sender_user_id"`
	Body              string   `db:"body"`
	Type              string   `db:"type"`
	ExecutionDate     string   `db:"execution_date"`
	CreatedAt         nullTime `db:"created_at"`
	RecipientsCount   int      `db:"recipients_count"`
	DeletedBySenderAt nullTime `db:"deleted_by_sender_at"`
}

func (r taskRow) toModel() (model.Task, error) {
	execDate, err := parseDate(r.ExecutionDate)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %s: %w", r.ID, err)
	}
	return model.Task{
		ID:                r.ID,
		SenderUserID:      r.SenderUserID,
		Body:              r.Body,
		Type:              r.Type,
		ExecutionDate:     execDate,
		CreatedAt:         r.CreatedAt.Time,
		RecipientsCount:   r.RecipientsCount,
		DeletedBySenderAt: r.DeletedBySenderAt.Ptr(),
	}, nil
}

// CreateTask inserts a task and its assignments in one transaction.
// Generates a UUID if task.ID is empty.
func (s *SQLiteStore) CreateTask(
	ctx context.Context,
	task model.Task,
	recipientIDs []string,
) (*model.Task, error) {
	if task.RecipientsCount <= 0 || task.RecipientsCount != len(recipientIDs) {
		return nil, apperr.ErrCountMismatch.With(
			"recipients count %d does not match %d recipients",
			task.RecipientsCount, len(recipientIDs))
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.DeletedBySenderAt = nil

	err := s.RunInTx(ctx, func(t Tx) error {
		tx := t.(*sqliteTx).tx

		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (
				id, sender_user_id, body, type, execution_date,
				created_at, recipients_count, deleted_by_sender_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
			task.ID, task.SenderUserID, task.Body, task.Type,
			formatDate(task.ExecutionDate), formatTime(task.CreatedAt),
			task.RecipientsCount,
		)
		if err != nil {
			return fmt.Errorf("inserting task %s: %w", task.ID, err)
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO task_assignments (task_id, target_user_id, status, created_at)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing assignment insert: %w", err)
		}
		defer stmt.Close()

		createdAt := formatTime(task.CreatedAt)
		for _, userID := range recipientIDs {
			_, err := stmt.ExecContext(ctx, task.ID, userID, string(model.StatusUnread), createdAt)
			if err != nil {
				return fmt.Errorf("inserting assignment %s/%s: %w", task.ID, userID, err)
			}
		}

		written, err := countAssignments(ctx, tx, task.ID)
		if err != nil {
			return err
		}
		if written != task.RecipientsCount {
			return apperr.ErrCountMismatch.With(
				"task %s declares %d recipients but %d assignments were written",
				task.ID, task.RecipientsCount, written)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &task, nil
}

// GetTask retrieves a single task by its ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, s.db, id)
}

func (t *sqliteTx) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, t.tx, id)
}

func getTask(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Task, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, q, &row,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrTaskNotFound.With("task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}

	task, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// MarkTaskDeleted flags the task as deleted by its sender. It reports false
// when the task was already flagged.
func (t *sqliteTx) MarkTaskDeleted(ctx context.Context, taskID string, at time.Time) (bool, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE tasks SET deleted_by_sender_at = ?
		WHERE id = ? AND deleted_by_sender_at IS NULL`,
		formatTime(at), taskID,
	)
	if err != nil {
		return false, fmt.Errorf("marking task %s deleted: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}
