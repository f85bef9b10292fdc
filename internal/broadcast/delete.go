package broadcast

import (
	"context"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

// DeleteTask retracts a task for all its recipients and returns how many
// assignments it flagged. Only the sender may delete, only within the
// deletion window and only while no recipient has acknowledged. The
// checks and the writes share one transaction.
func (s *Service) DeleteTask(ctx context.Context, caller model.Caller, taskID string) (_ int, err error) {
	ctx, end := s.metrics.Start(ctx, "delete_task")
	defer func() { end(err) }()

	now := s.now().UTC()
	var (
		before   model.Task
		affected int
	)

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.SenderUserID != caller.UserID {
			return apperr.ErrNotTaskSender
		}
		if task.IsDeleted() {
			return apperr.ErrAlreadyDeleted
		}
		if now.Sub(task.CreatedAt) >= s.rules.DeletionWindow {
			return apperr.ErrWindowExpired
		}

		acked, err := tx.CountAcknowledged(ctx, taskID)
		if err != nil {
			return err
		}
		if acked > 0 {
			return apperr.ErrAcknowledged
		}

		marked, err := tx.MarkTaskDeleted(ctx, taskID, now)
		if err != nil {
			return err
		}
		if !marked {
			return apperr.ErrAlreadyDeleted
		}

		affected, err = tx.MarkAssignmentsDeleted(ctx, taskID, now)
		if err != nil {
			return err
		}
		before = *task
		return nil
	})
	if err != nil {
		return 0, s.deny(ctx, caller, "delete_task", err)
	}
	s.metrics.Deletions.Add(ctx, 1)

	after := before
	after.DeletedBySenderAt = &now
	afterSnap := taskSnapshot(after)
	afterSnap["recipients_affected"] = affected
	s.audit(ctx, model.AuditDelete, model.EntityTask, taskID, caller.UserID,
		taskSnapshot(before), afterSnap)

	return affected, nil
}
