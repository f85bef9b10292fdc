package broadcast

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// maxStatusAttempts bounds compare-and-swap retries under contention.
const maxStatusAttempts = 5

// UpdateAssignmentStatus moves the caller's copy of a task forward. Setting
// the current status again is a no-op. The swap only succeeds while the
// stored status is unchanged and the sender has not deleted the task; a
// lost race is re-read and re-evaluated.
func (s *Service) UpdateAssignmentStatus(
	ctx context.Context,
	caller model.Caller,
	taskID string,
	status model.AssignmentStatus,
) (_ *model.TaskAssignment, err error) {
	ctx, end := s.metrics.Start(ctx, "update_assignment_status",
		attribute.String("status", string(status)))
	defer func() { end(err) }()

	if !status.Valid() {
		return nil, apperr.Validation(map[string]string{"status": fmt.Sprintf("unknown status %q", status)})
	}

	for range maxStatusAttempts {
		cur, err := s.store.GetAssignment(ctx, taskID, caller.UserID)
		if err != nil {
			return nil, err
		}

		next, changed, err := Transition(*cur, status, s.now())
		if err != nil {
			return nil, err
		}
		if !changed {
			return cur, nil
		}

		ok, err := s.store.CompareAndSwapAssignment(ctx, cur.Status, next)
		if err != nil {
			return nil, err
		}
		if ok {
			s.audit(ctx, model.AuditUpdate, model.EntityTaskAssignment,
				assignmentEntityID(taskID, caller.UserID), caller.UserID,
				assignmentSnapshot(*cur), assignmentSnapshot(next))
			return &next, nil
		}
	}

	return nil, apperr.Internal("updating assignment status",
		fmt.Errorf("task %s for %s: still contended after %d attempts", taskID, caller.UserID, maxStatusAttempts))
}
