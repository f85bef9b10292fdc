package broadcast

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

func TestValidateInput(t *testing.T) {
	rules := model.DefaultAppConfig().Broadcast
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	valid := CreateTaskInput{
		Body:          "Please check the west gate today",
		ExecutionDate: today,
		Mode:          model.ModeAll,
	}

	tests := []struct {
		name      string
		mutate    func(in *CreateTaskInput)
		wantField string
	}{
		{"valid", func(*CreateTaskInput) {}, ""},
		{"body at minimum", func(in *CreateTaskInput) { in.Body = "0123456789" }, ""},
		{"body too short", func(in *CreateTaskInput) { in.Body = "too short" }, "body"},
		{"body only whitespace padding", func(in *CreateTaskInput) { in.Body = "   short   " }, "body"},
		{"body at maximum", func(in *CreateTaskInput) { in.Body = strings.Repeat("x", 2000) }, ""},
		{"body too long", func(in *CreateTaskInput) { in.Body = strings.Repeat("x", 2001) }, "body"},
		{"multibyte body counted in characters", func(in *CreateTaskInput) { in.Body = strings.Repeat("ש", 10) }, ""},
		{"execution date yesterday", func(in *CreateTaskInput) { in.ExecutionDate = today.AddDate(0, 0, -1) }, "execution_date"},
		{"execution date missing", func(in *CreateTaskInput) { in.ExecutionDate = time.Time{} }, "execution_date"},
		{"execution date later today", func(in *CreateTaskInput) { in.ExecutionDate = today.Add(time.Hour) }, ""},
		{"unknown mode", func(in *CreateTaskInput) { in.Mode = "everyone" }, "mode"},
		{"selected without ids", func(in *CreateTaskInput) { in.Mode = model.ModeSelected }, "selected_ids"},
		{"selected with ids", func(in *CreateTaskInput) {
			in.Mode = model.ModeSelected
			in.SelectedIDs = []string{"u1"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := validateInput(in, rules, now)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
			var e *apperr.Error
			require.ErrorAs(t, err, &e)
			assert.Contains(t, e.Fields, tt.wantField)
		})
	}
}

func TestTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	base := model.TaskAssignment{TaskID: "t1", TargetUserID: "u1", Status: model.StatusUnread}

	t.Run("unread to read sets readAt", func(t *testing.T) {
		next, changed, err := Transition(base, model.StatusRead, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, model.StatusRead, next.Status)
		require.NotNil(t, next.ReadAt)
		assert.Equal(t, now, *next.ReadAt)
		assert.Nil(t, next.AcknowledgedAt)
		assert.Nil(t, base.ReadAt, "input is not mutated")
	})

	t.Run("acknowledge from unread also marks read", func(t *testing.T) {
		next, _, err := Transition(base, model.StatusAcknowledged, now)
		require.NoError(t, err)
		require.NotNil(t, next.ReadAt)
		require.NotNil(t, next.AcknowledgedAt)
	})

	t.Run("acknowledge keeps existing readAt", func(t *testing.T) {
		read := base
		read.Status = model.StatusRead
		read.ReadAt = &earlier
		next, _, err := Transition(read, model.StatusAcknowledged, now)
		require.NoError(t, err)
		assert.Equal(t, earlier, *next.ReadAt)
		assert.Equal(t, now, *next.AcknowledgedAt)
	})

	t.Run("archive from any status", func(t *testing.T) {
		for _, from := range []model.AssignmentStatus{model.StatusUnread, model.StatusRead, model.StatusAcknowledged} {
			a := base
			a.Status = from
			next, changed, err := Transition(a, model.StatusArchived, now)
			require.NoError(t, err, from)
			assert.True(t, changed)
			assert.Equal(t, now, *next.ArchivedAt)
		}
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		read := base
		read.Status = model.StatusRead
		read.ReadAt = &earlier
		next, changed, err := Transition(read, model.StatusRead, now)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, earlier, *next.ReadAt)
	})

	t.Run("backwards is rejected", func(t *testing.T) {
		ack := base
		ack.Status = model.StatusAcknowledged
		_, _, err := Transition(ack, model.StatusRead, now)
		require.ErrorIs(t, err, apperr.ErrStatusRegression)

		archived := base
		archived.Status = model.StatusArchived
		_, _, err = Transition(archived, model.StatusUnread, now)
		require.ErrorIs(t, err, apperr.ErrStatusRegression)
	})

	t.Run("deleted assignment is frozen", func(t *testing.T) {
		deleted := base
		deleted.DeletedForRecipientAt = &earlier
		_, _, err := Transition(deleted, model.StatusRead, now)
		require.ErrorIs(t, err, apperr.ErrAssignmentDeleted)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, _, err := Transition(base, "done", now)
		assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	})
}
