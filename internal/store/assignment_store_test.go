package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/tests/testutil"
)

func TestCompareAndSwapAssignment(t *testing.T) {
	s := testutil.NewSeededStore(t)
	ctx := context.Background()
	task := createTask(t, s, testutil.HaifaCoord, t0, testutil.HaifaAct1)

	a, err := s.GetAssignment(ctx, task.ID, testutil.HaifaAct1)
	require.NoError(t, err)

	readAt := t0.Add(time.Minute)
	next := *a
	next.Status = model.StatusRead
	next.ReadAt = &readAt

	ok, err := s.CompareAndSwapAssignment(ctx, model.StatusUnread, next)
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale expectation loses.
	ok, err = s.CompareAndSwapAssignment(ctx, model.StatusUnread, next)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.GetAssignment(ctx, task.ID, testutil.HaifaAct1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, got.Status)
	require.NotNil(t, got.ReadAt)
	assert.Equal(t, readAt, *got.ReadAt)
}

func TestCompareAndSwapSkipsDeletedAssignment(t *testing.T) {
	s := testutil.NewSeededStore(t)
	ctx := context.Background()
	task := createTask(t, s, testutil.HaifaCoord, t0, testutil.HaifaAct1)

	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		_, err := tx.MarkAssignmentsDeleted(ctx, task.ID, t0.Add(time.Minute))
		return err
	}))

	a, err := s.GetAssignment(ctx, task.ID, testutil.HaifaAct1)
	require.NoError(t, err)
	next := *a
	next.Status = model.StatusRead

	ok, err := s.CompareAndSwapAssignment(ctx, model.StatusUnread, next)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetAssignmentNotFound(t *testing.T) {
	s := testutil.NewSeededStore(t)
	task := createTask(t, s, testutil.HaifaCoord, t0, testutil.HaifaAct1)

	_, err := s.GetAssignment(context.Background(), task.ID, testutil.AkkoAct)
	require.ErrorIs(t, err, apperr.ErrAssignmentNotFound)
}

func TestArchiveExpired(t *testing.T) {
	s := testutil.NewSeededStore(t)
	ctx := context.Background()
	now := t0.AddDate(1, 1, 0)
	normalCutoff := now.AddDate(0, 0, -90)
	deletedCutoff := now.AddDate(0, 0, -365)

	old := createTask(t, s, testutil.HaifaCoord, t0, testutil.HaifaAct1)
	fresh := createTask(t, s, testutil.HaifaCoord, now.AddDate(0, 0, -10), testutil.HaifaAct1)
	oldDeleted := createTask(t, s, testutil.HaifaCoord, t0, testutil.HaifaAct2)
	recentDeleted := createTask(t, s, testutil.HaifaCoord, now.AddDate(0, 0, -100), testutil.HaifaAct2)

	require.NoError(t, s.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.MarkAssignmentsDeleted(ctx, oldDeleted.ID, t0.Add(time.Minute)); err != nil {
			return err
		}
		_, err := tx.MarkAssignmentsDeleted(ctx, recentDeleted.ID, now.AddDate(0, 0, -100))
		return err
	}))

	res, err := s.ArchiveExpired(ctx, normalCutoff, deletedCutoff, now)
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{Normal: 1, Deleted: 1}, res)

	statusOf := func(taskID, userID string) model.TaskAssignment {
		a, err := s.GetAssignment(ctx, taskID, userID)
		require.NoError(t, err)
		return *a
	}

	a := statusOf(old.ID, testutil.HaifaAct1)
	assert.Equal(t, model.StatusArchived, a.Status)
	require.NotNil(t, a.ArchivedAt)
	assert.Equal(t, now, *a.ArchivedAt)

	assert.Equal(t, model.StatusUnread, statusOf(fresh.ID, testutil.HaifaAct1).Status)

	d := statusOf(oldDeleted.ID, testutil.HaifaAct2)
	assert.Equal(t, model.StatusArchived, d.Status)
	assert.NotNil(t, d.DeletedForRecipientAt, "sweep keeps the deletion overlay")

	// Deleted rows follow the long clock even when older than 90 days.
	assert.Equal(t, model.StatusUnread, statusOf(recentDeleted.ID, testutil.HaifaAct2).Status)

	again, err := s.ArchiveExpired(ctx, normalCutoff, deletedCutoff, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{}, again)
	assert.Equal(t, now, *statusOf(old.ID, testutil.HaifaAct1).ArchivedAt)
}
