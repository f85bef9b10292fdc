package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/tests/testutil"
)

func TestAppendAndListAudit(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendAudit(ctx, model.AuditEntry{
		Action: model.AuditCreate, EntityType: model.EntityTask, EntityID: "t1",
		ActorID: "u1", After: map[string]any{"recipients_count": 2},
		CreatedAt: t0,
	}))
	require.NoError(t, s.AppendAudit(ctx, model.AuditEntry{
		Action:     model.AuditDelete,
		EntityType: model.EntityTask,
		EntityID:   "t1",
		ActorID:    "u1",
		Before:     map[string]any{"deleted": false},
		After:      map[string]any{"deleted": true, "affected": 2},
		CreatedAt:  t0.Add(time.Minute),
	}))
	require.NoError(t, s.AppendAudit(ctx, model.AuditEntry{
		Action: model.AuditCreate, EntityType: model.EntityTask, EntityID: "t2",
		ActorID: "u1", CreatedAt: t0,
	}))

	entries, err := s.ListAudit(ctx, model.EntityTask, "t1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, model.AuditCreate, entries[0].Action)
	assert.Nil(t, entries[0].Before)
	assert.Equal(t, float64(2), entries[0].After["recipients_count"])

	assert.Equal(t, model.AuditDelete, entries[1].Action)
	assert.Equal(t, false, entries[1].Before["deleted"])
	assert.Equal(t, true, entries[1].After["deleted"])
	assert.Equal(t, t0.Add(time.Minute), entries[1].CreatedAt)
}
