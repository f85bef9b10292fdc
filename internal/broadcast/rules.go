package broadcast

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// CreateTaskInput is a sender's request to broadcast a task.
type CreateTaskInput struct {
	Body          string              `json:"body"`
	Type          string              `json:"type"`
	ExecutionDate time.Time           `json:"execution_date"`
	Mode          model.RecipientMode `json:"mode"`
	SelectedIDs   []string            `json:"selected_ids,omitempty"`
}

// validateInput checks a draft before anything is resolved or written.
func validateInput(in CreateTaskInput, rules model.BroadcastConfig, now time.Time) error {
	fields := make(map[string]string)

	n := utf8.RuneCountInString(strings.TrimSpace(in.Body))
	if n < rules.BodyMin || n > rules.BodyMax {
		fields["body"] = fmt.Sprintf("must be between %d and %d characters", rules.BodyMin, rules.BodyMax)
	}

	switch {
	case in.ExecutionDate.IsZero():
		fields["execution_date"] = "is required"
	case dateOnly(in.ExecutionDate).Before(dateOnly(now)):
		fields["execution_date"] = "must not be before today"
	}

	switch in.Mode {
	case model.ModeAll:
	case model.ModeSelected:
		if len(in.SelectedIDs) == 0 {
			fields["selected_ids"] = "must not be empty when mode is selected"
		}
	default:
		fields["mode"] = `must be "all" or "selected"`
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

// dateOnly drops the clock part of t, keeping its calendar date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Transition moves an assignment forward to target as of now. It reports
// false when the assignment is already in target. Timestamps are only
// ever set once; acknowledging an unread task also marks it read.
func Transition(
	a model.TaskAssignment,
	target model.AssignmentStatus,
	now time.Time,
) (model.TaskAssignment, bool, error) {
	if !target.Valid() {
		return a, false, apperr.Validation(map[string]string{"status": fmt.Sprintf("unknown status %q", target)})
	}
	if a.IsDeleted() {
		return a, false, apperr.ErrAssignmentDeleted
	}
	if target.Rank() < a.Status.Rank() {
		return a, false, apperr.ErrStatusRegression.With(
			"status cannot move from %s back to %s", a.Status, target)
	}
	if target == a.Status {
		return a, false, nil
	}

	at := now.UTC()
	next := a
	next.Status = target
	switch target {
	case model.StatusRead:
		setOnce(&next.ReadAt, at)
	case model.StatusAcknowledged:
		setOnce(&next.ReadAt, at)
		setOnce(&next.AcknowledgedAt, at)
	case model.StatusArchived:
		setOnce(&next.ArchivedAt, at)
	}
	return next, true, nil
}

func setOnce(field **time.Time, at time.Time) {
	if *field == nil {
		t := at
		*field = &t
	}
}
