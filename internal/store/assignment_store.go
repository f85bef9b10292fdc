package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

const assignmentColumns = `task_id, target_user_id, status, created_at,
	read_at, acknowledged_at, archived_at, deleted_for_recipient_at`

// assignmentRow mirrors the task_assignments table.
type assignmentRow struct {
	TaskID                string   `db:"task_id"`
	TargetUserID          string   `db:"target_user_id"`
	Status                string   `db:"status"`
	CreatedAt             nullTime `db:"created_at"`
	ReadAt                nullTime `db:"read_at"`
	AcknowledgedAt        nullTime `db:"acknowledged_at"`
	ArchivedAt            nullTime `db:"archived_at"`
	DeletedForRecipientAt nullTime `db:"deleted_for_recipient_at"`
}

func (r assignmentRow) toModel() model.TaskAssignment {
	return model.TaskAssignment{
		TaskID:                r.TaskID,
		TargetUserID:          r.TargetUserID,
		Status:                model.AssignmentStatus(r.Status),
		CreatedAt:             r.CreatedAt.Time,
		ReadAt:                r.ReadAt.Ptr(),
		AcknowledgedAt:        r.AcknowledgedAt.Ptr(),
		ArchivedAt:            r.ArchivedAt.Ptr(),
		DeletedForRecipientAt: r.DeletedForRecipientAt.Ptr(),
	}
}

// GetAssignment retrieves the assignment of taskID to userID.
func (s *SQLiteStore) GetAssignment(
	ctx context.Context,
	taskID, userID string,
) (*model.TaskAssignment, error) {
	return getAssignment(ctx, s.db, taskID, userID)
}

func (t *sqliteTx) GetAssignment(
	ctx context.Context,
	taskID, userID string,
) (*model.TaskAssignment, error) {
	return getAssignment(ctx, t.tx, taskID, userID)
}

func getAssignment(
	ctx context.Context,
	q sqlx.QueryerContext,
	taskID, userID string,
) (*model.TaskAssignment, error) {
	var row assignmentRow
	err := sqlx.GetContext(ctx, q, &row,
		"SELECT "+assignmentColumns+` FROM task_assignments
		WHERE task_id = ? AND target_user_id = ?`,
		taskID, userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrAssignmentNotFound.With(
			"task %s not found in inbox of %s", taskID, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment %s/%s: %w", taskID, userID, err)
	}

	a := row.toModel()
	return &a, nil
}

// ListAssignments returns every assignment of a task ordered by recipient.
func (s *SQLiteStore) ListAssignments(
	ctx context.Context,
	taskID string,
) ([]model.TaskAssignment, error) {
	return listAssignments(ctx, s.db, taskID)
}

func (t *sqliteTx) ListAssignments(
	ctx context.Context,
	taskID string,
) ([]model.TaskAssignment, error) {
	return listAssignments(ctx, t.tx, taskID)
}

func listAssignments(
	ctx context.Context,
	q sqlx.QueryerContext,
	taskID string,
) ([]model.TaskAssignment, error) {
	var rows []assignmentRow
	err := sqlx.SelectContext(ctx, q, &rows,
		"SELECT "+assignmentColumns+` FROM task_assignments
		WHERE task_id = ? ORDER BY target_user_id`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assignments of %s: %w", taskID, err)
	}

	out := make([]model.TaskAssignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CountAssignments returns the number of assignment rows of a task.
func (s *SQLiteStore) CountAssignments(ctx context.Context, taskID string) (int, error) {
	return countAssignments(ctx, s.db, taskID)
}

func countAssignments(ctx context.Context, q sqlx.QueryerContext, taskID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n,
		"SELECT COUNT(*) FROM task_assignments WHERE task_id = ?", taskID)
	if err != nil {
		return 0, fmt.Errorf("counting assignments of %s: %w", taskID, err)
	}
	return n, nil
}

// CountAcknowledged counts assignments of a task that were ever acknowledged.
func (t *sqliteTx) CountAcknowledged(ctx context.Context, taskID string) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, t.tx, &n, `
		SELECT COUNT(*) FROM task_assignments
		WHERE task_id = ? AND acknowledged_at IS NOT NULL`,
		taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting acknowledgments of %s: %w", taskID, err)
	}
	return n, nil
}

// MarkAssignmentsDeleted sets the deletion overlay on every assignment of
// the task regardless of status. Rows already flagged keep their original
// timestamp.
func (t *sqliteTx) MarkAssignmentsDeleted(
	ctx context.Context,
	taskID string,
	at time.Time,
) (int, error) {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE task_assignments SET deleted_for_recipient_at = ?
		WHERE task_id = ? AND deleted_for_recipient_at IS NULL`,
		formatTime(at), taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking assignments of %s deleted: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// CompareAndSwapAssignment writes next's status and timestamps when the
// stored row still has status expected and no deletion overlay. Both
// conditions are part of the UPDATE itself.
func (s *SQLiteStore) CompareAndSwapAssignment(
	ctx context.Context,
	expected model.AssignmentStatus,
	next model.TaskAssignment,
) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE task_assignments SET
			status = ?, read_at = ?, acknowledged_at = ?, archived_at = ?
		WHERE task_id = ? AND target_user_id = ?
			AND status = ? AND deleted_for_recipient_at IS NULL`,
		string(next.Status),
		nullTimeFrom(next.ReadAt),
		nullTimeFrom(next.AcknowledgedAt),
		nullTimeFrom(next.ArchivedAt),
		next.TaskID, next.TargetUserID,
		string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("updating assignment %s/%s: %w",
			next.TaskID, next.TargetUserID, err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// ArchiveExpired applies both retention windows in one transaction.
// Live rows created before normalCutoff are archived. Rows carrying the
// sender-deletion overlay are excluded from that window even when older,
// and are archived only once deleted_for_recipient_at is before
// deletedCutoff. Rows that are already archived never match, so repeated
// runs are no-ops.
func (s *SQLiteStore) ArchiveExpired(
	ctx context.Context,
	normalCutoff, deletedCutoff, now time.Time,
) (ArchiveResult, error) {
	var res ArchiveResult

	err := s.RunInTx(ctx, func(t Tx) error {
		tx := t.(*sqliteTx).tx
		res = ArchiveResult{}
		archivedAt := formatTime(now)

		normal, err := tx.ExecContext(ctx, `
			UPDATE task_assignments SET status = ?, archived_at = ?
			WHERE archived_at IS NULL
				AND deleted_for_recipient_at IS NULL
				AND created_at < ?`,
			string(model.StatusArchived), archivedAt, formatTime(normalCutoff),
		)
		if err != nil {
			return fmt.Errorf("archiving expired assignments: %w", err)
		}
		n, _ := normal.RowsAffected()
		res.Normal = int(n)

		deleted, err := tx.ExecContext(ctx, `
			UPDATE task_assignments SET status = ?, archived_at = ?
			WHERE archived_at IS NULL
				AND deleted_for_recipient_at IS NOT NULL
				AND deleted_for_recipient_at < ?`,
			string(model.StatusArchived), archivedAt, formatTime(deletedCutoff),
		)
		if err != nil {
			return fmt.Errorf("archiving expired deleted assignments: %w", err)
		}
		d, _ := deleted.RowsAffected()
		res.Deleted = int(d)
		return nil
	})
	if err != nil {
		return ArchiveResult{}, err
	}
	return res, nil
}
