package broadcast_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/notify"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/org"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/tests/testutil"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (r *recordingAuditor) Record(
	_ context.Context,
	action model.AuditAction,
	entityType, entityID, actorID string,
	before, after map[string]any,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, model.AuditEntry{
		Action: action, EntityType: entityType, EntityID: entityID,
		ActorID: actorID, Before: before, After: after,
	})
}

func (r *recordingAuditor) actions() []model.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditAction, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

func (r *recordingAuditor) last() model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  [][]string
	failed map[string]bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ids []string, _ notify.Message) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ids)
	n := 0
	for _, id := range ids {
		if !f.failed[id] {
			n++
		}
	}
	return n
}

type fixture struct {
	svc   *broadcast.Service
	store *store.SQLiteStore
	clock *clock
	audit *recordingAuditor
	push  *fakeDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.NewSeededStore(t)
	f := &fixture{
		store: st,
		clock: &clock{now: start},
		audit: &recordingAuditor{},
		push:  &fakeDispatcher{},
	}
	f.svc = broadcast.NewService(st, org.NewSQLDirectory(st.DB()),
		broadcast.WithClock(f.clock.Now),
		broadcast.WithAuditor(f.audit),
		broadcast.WithDispatcher(f.push),
	)
	return f
}

func (f *fixture) caller(t *testing.T, id string) model.Caller {
	t.Helper()
	c, err := f.svc.Authenticate(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *fixture) send(t *testing.T, sender string, in broadcast.CreateTaskInput) *broadcast.CreateTaskResult {
	t.Helper()
	res, err := f.svc.CreateTask(context.Background(), f.caller(t, sender), in)
	require.NoError(t, err)
	return res
}

func allInput() broadcast.CreateTaskInput {
	return broadcast.CreateTaskInput{
		Body:          "Please check the west gate today",
		Type:          "field",
		ExecutionDate: start,
		Mode:          model.ModeAll,
	}
}

func selectedInput(ids ...string) broadcast.CreateTaskInput {
	in := allInput()
	in.Mode = model.ModeSelected
	in.SelectedIDs = ids
	return in
}

func (f *fixture) assertCountInvariant(t *testing.T, taskID string) {
	t.Helper()
	task, err := f.store.GetTask(context.Background(), taskID)
	require.NoError(t, err)
	n, err := f.store.CountAssignments(context.Background(), taskID)
	require.NoError(t, err)
	assert.Positive(t, task.RecipientsCount)
	assert.Equal(t, task.RecipientsCount, n)
}

func TestScenarioA_CreateForAllSubordinates(t *testing.T) {
	f := newFixture(t)

	res := f.send(t, testutil.HaifaCoord, allInput())
	assert.NotEmpty(t, res.TaskID)
	assert.Equal(t, 3, res.RecipientsCount)
	assert.Equal(t, 3, res.DeliveredCount)

	as, err := f.store.ListAssignments(context.Background(), res.TaskID)
	require.NoError(t, err)
	require.Len(t, as, 3)
	for _, a := range as {
		assert.Equal(t, model.StatusUnread, a.Status)
	}
	f.assertCountInvariant(t, res.TaskID)

	assert.Equal(t, []model.AuditAction{model.AuditCreate}, f.audit.actions())
	assert.Equal(t, 3, f.audit.last().After["recipients_count"])
	require.Len(t, f.push.calls, 1)
	assert.Len(t, f.push.calls[0], 3)
}

func TestScenarioB_DeleteRejectedAfterAcknowledgment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.HaifaCoord, allInput())

	_, err := f.svc.UpdateAssignmentStatus(ctx, f.caller(t, testutil.HaifaAct1), res.TaskID, model.StatusAcknowledged)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.ErrorIs(t, err, apperr.ErrAcknowledged)
	assert.Equal(t, apperr.CodeBusinessRule, apperr.CodeOf(err))
	assert.Equal(t, "recipient has acknowledged", err.Error())

	task, err := f.store.GetTask(ctx, res.TaskID)
	require.NoError(t, err)
	assert.False(t, task.IsDeleted())
}

func TestScenarioC_DeleteWindowExpired(t *testing.T) {
	f := newFixture(t)
	res := f.send(t, testutil.HaifaCoord, allInput())

	f.clock.Advance(61 * time.Minute)
	_, err := f.svc.DeleteTask(context.Background(), f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.ErrorIs(t, err, apperr.ErrWindowExpired)
	assert.Equal(t, "deletion window expired", err.Error())
}

func TestDeleteWindowIsExclusive(t *testing.T) {
	f := newFixture(t)
	sender := f.caller(t, testutil.HaifaCoord)
	first := f.send(t, testutil.HaifaCoord, allInput())
	second := f.send(t, testutil.HaifaCoord, allInput())

	f.clock.Advance(time.Hour - time.Nanosecond)
	_, err := f.svc.DeleteTask(context.Background(), sender, first.TaskID)
	require.NoError(t, err)

	f.clock.Advance(time.Nanosecond)
	_, err = f.svc.DeleteTask(context.Background(), sender, second.TaskID)
	require.ErrorIs(t, err, apperr.ErrWindowExpired)
}

func TestScenarioD_DeleteShowsPlaceholder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipients := []string{
		testutil.HaifaCoord, testutil.AkkoCoord,
		testutil.HaifaAct1, testutil.HaifaAct2, testutil.AkkoAct,
	}
	res := f.send(t, testutil.NorthMgr, selectedInput(recipients...))
	require.Equal(t, 5, res.RecipientsCount)

	_, err := f.svc.UpdateAssignmentStatus(ctx, f.caller(t, testutil.AkkoAct), res.TaskID, model.StatusRead)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	affected, err := f.svc.DeleteTask(ctx, f.caller(t, testutil.NorthMgr), res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 5, affected)

	for _, id := range recipients {
		page, err := f.svc.ListInbox(ctx, f.caller(t, id), broadcast.InboxQuery{View: model.ViewReceived})
		require.NoError(t, err)
		require.Len(t, page.Items, 1, id)
		item := page.Items[0]
		assert.Equal(t, res.TaskID, item.TaskID)
		assert.True(t, item.IsDeleted)
		assert.Equal(t, model.DeletedPlaceholder, item.Body)
	}

	// The deletion overlay keeps each recipient's last real status.
	a, err := f.store.GetAssignment(ctx, res.TaskID, testutil.AkkoAct)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, a.Status)
	assert.NotNil(t, a.DeletedForRecipientAt)

	sent, err := f.svc.ListInbox(ctx, f.caller(t, testutil.NorthMgr), broadcast.InboxQuery{View: model.ViewSent})
	require.NoError(t, err)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, model.DeletedPlaceholder, sent.Items[0].Body)
	assert.Equal(t, 1, sent.Items[0].ReadCount)

	e := f.audit.last()
	assert.Equal(t, model.AuditDelete, e.Action)
	assert.Equal(t, 5, e.After["recipients_affected"])
	assert.Nil(t, e.Before["deleted_by_sender_at"])
	assert.NotNil(t, e.After["deleted_by_sender_at"])
}

func TestSearchDoesNotRevealDeletedBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := selectedInput(testutil.HaifaAct1)
	in.Body = "Confidential: raid planned at the west gate"
	res := f.send(t, testutil.HaifaCoord, in)

	f.clock.Advance(5 * time.Minute)
	_, err := f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.NoError(t, err)

	me := f.caller(t, testutil.HaifaAct1)
	page, err := f.svc.ListInbox(ctx, me, broadcast.InboxQuery{View: model.ViewReceived, Query: "raid"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Items)

	page, err = f.svc.ListInbox(ctx, me, broadcast.InboxQuery{View: model.ViewReceived})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, model.DeletedPlaceholder, page.Items[0].Body)
}

func TestScenarioE_SweepArchivesOnceAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.AkkoCoord, allInput())

	f.clock.Advance(95 * 24 * time.Hour)
	swept, err := f.svc.RunArchivalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{Normal: 1}, swept)

	a, err := f.store.GetAssignment(ctx, res.TaskID, testutil.AkkoAct)
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, a.Status)
	require.NotNil(t, a.ArchivedAt)
	assert.Equal(t, f.clock.Now(), *a.ArchivedAt)
	assert.Nil(t, a.DeletedForRecipientAt)

	again, err := f.svc.RunArchivalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{}, again)

	assert.Equal(t, model.AuditSweep, f.audit.last().Action)
}

func TestTriggerArchivalSweepRequiresSuperAdmin(t *testing.T) {
	var logs bytes.Buffer
	st := testutil.NewSeededStore(t)
	svc := broadcast.NewService(st, org.NewSQLDirectory(st.DB()),
		broadcast.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	ctx := context.Background()

	coord, err := svc.Authenticate(ctx, testutil.HaifaCoord)
	require.NoError(t, err)
	_, err = svc.TriggerArchivalSweep(ctx, coord)
	assert.ErrorIs(t, err, apperr.ErrSweepForbidden)
	assert.Contains(t, logs.String(), "event=security.denied")
	assert.Contains(t, logs.String(), "operation=trigger_archival_sweep")
	assert.Contains(t, logs.String(), "reason=sweep_forbidden")

	admin, err := svc.Authenticate(ctx, testutil.SuperAdmin)
	require.NoError(t, err)
	res, err := svc.TriggerArchivalSweep(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{}, res)
}

func TestSweepKeepsDeletedTasksOnTheLongClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.AkkoCoord, allInput())

	f.clock.Advance(5 * time.Minute)
	_, err := f.svc.DeleteTask(ctx, f.caller(t, testutil.AkkoCoord), res.TaskID)
	require.NoError(t, err)

	f.clock.Advance(95 * 24 * time.Hour)
	swept, err := f.svc.RunArchivalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{}, swept)

	f.clock.Advance(271 * 24 * time.Hour)
	swept, err = f.svc.RunArchivalSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.ArchiveResult{Deleted: 1}, swept)
}

func TestCreateTaskRejectsActivistBeforeResolving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTask(ctx, f.caller(t, testutil.HaifaAct1), allInput())
	require.ErrorIs(t, err, apperr.ErrSenderForbidden)

	// Even an invalid draft reports the role first.
	_, err = f.svc.CreateTask(ctx, f.caller(t, testutil.HaifaAct1), broadcast.CreateTaskInput{})
	require.ErrorIs(t, err, apperr.ErrSenderForbidden)

	assert.Empty(t, f.push.calls)
	assert.Empty(t, f.audit.actions())
}

func TestCreateTaskValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := f.caller(t, testutil.HaifaCoord)

	in := allInput()
	in.Body = "short"
	_, err := f.svc.CreateTask(ctx, sender, in)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	in = allInput()
	in.ExecutionDate = start.AddDate(0, 0, -1)
	_, err = f.svc.CreateTask(ctx, sender, in)
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = f.svc.CreateTask(ctx, sender, selectedInput(testutil.HaifaAct1, testutil.AkkoAct))
	require.ErrorIs(t, err, apperr.ErrRecipientOutOfScope)

	n, err := f.store.CountInbox(ctx, store.InboxFilter{UserID: testutil.HaifaCoord, View: model.ViewSent})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.audit.actions())
}

func TestCreateTaskSurvivesPushFailures(t *testing.T) {
	f := newFixture(t)
	f.push.failed = map[string]bool{testutil.HaifaAct2: true}

	res := f.send(t, testutil.HaifaCoord, allInput())
	assert.Equal(t, 3, res.RecipientsCount)
	assert.Equal(t, 2, res.DeliveredCount)
	f.assertCountInvariant(t, res.TaskID)
}

func TestCreateTaskRoundTripModeAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := f.caller(t, testutil.NorthMgr)

	res := f.send(t, testutil.NorthMgr, allInput())

	page, err := f.svc.ListAvailableRecipients(ctx, sender, broadcast.RecipientQuery{Limit: 100})
	require.NoError(t, err)
	as, err := f.store.ListAssignments(ctx, res.TaskID)
	require.NoError(t, err)

	var candidates, targets []string
	for _, u := range page.Users {
		candidates = append(candidates, u.ID)
	}
	for _, a := range as {
		targets = append(targets, a.TargetUserID)
	}
	assert.ElementsMatch(t, candidates, targets)
	assert.Equal(t, page.Total, res.RecipientsCount)
}

func TestUpdateAssignmentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.HaifaCoord, allInput())
	me := f.caller(t, testutil.HaifaAct1)

	f.clock.Advance(time.Minute)
	read, err := f.svc.UpdateAssignmentStatus(ctx, me, res.TaskID, model.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, read.Status)
	readAt := *read.ReadAt

	f.clock.Advance(time.Minute)
	again, err := f.svc.UpdateAssignmentStatus(ctx, me, res.TaskID, model.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, readAt, *again.ReadAt, "timestamps are set once")

	ack, err := f.svc.UpdateAssignmentStatus(ctx, me, res.TaskID, model.StatusAcknowledged)
	require.NoError(t, err)
	assert.Equal(t, readAt, *ack.ReadAt)
	assert.Equal(t, f.clock.Now(), *ack.AcknowledgedAt)

	_, err = f.svc.UpdateAssignmentStatus(ctx, me, res.TaskID, model.StatusUnread)
	require.ErrorIs(t, err, apperr.ErrStatusRegression)

	_, err = f.svc.UpdateAssignmentStatus(ctx, me, res.TaskID, "done")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = f.svc.UpdateAssignmentStatus(ctx, f.caller(t, testutil.AkkoAct), res.TaskID, model.StatusRead)
	require.ErrorIs(t, err, apperr.ErrAssignmentNotFound)

	// Create, read, acknowledge. The no-op write is not audited.
	assert.Equal(t, []model.AuditAction{model.AuditCreate, model.AuditUpdate, model.AuditUpdate}, f.audit.actions())
	e := f.audit.last()
	assert.Equal(t, "read", e.Before["status"])
	assert.Equal(t, "acknowledged", e.After["status"])
}

func TestUpdateAssignmentStatusAfterDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.HaifaCoord, allInput())

	_, err := f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.NoError(t, err)

	_, err = f.svc.UpdateAssignmentStatus(ctx, f.caller(t, testutil.HaifaAct1), res.TaskID, model.StatusAcknowledged)
	require.ErrorIs(t, err, apperr.ErrAssignmentDeleted)
	assert.NotErrorIs(t, err, apperr.ErrAssignmentNotFound)
}

func TestDeleteTaskRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.HaifaCoord, allInput())

	_, err := f.svc.DeleteTask(ctx, f.caller(t, testutil.SuperAdmin), res.TaskID)
	require.ErrorIs(t, err, apperr.ErrNotTaskSender, "ownership, not rank")

	_, err = f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), "missing")
	require.ErrorIs(t, err, apperr.ErrTaskNotFound)

	affected, err := f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 3, affected)

	_, err = f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.ErrorIs(t, err, apperr.ErrAlreadyDeleted)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.DeleteTask(ctx, f.caller(t, testutil.HaifaCoord), res.TaskID)
	require.ErrorIs(t, err, apperr.ErrAlreadyDeleted, "repeat deletes stay idempotent after the window")

	as, err := f.store.ListAssignments(ctx, res.TaskID)
	require.NoError(t, err)
	for _, a := range as {
		assert.True(t, a.IsDeleted())
	}
	f.assertCountInvariant(t, res.TaskID)
}

func TestConcurrentAcknowledgeAndDelete(t *testing.T) {
	for i := 0; i < 5; i++ {
		f := newFixture(t)
		ctx := context.Background()
		res := f.send(t, testutil.HaifaCoord, allInput())
		sender := f.caller(t, testutil.HaifaCoord)
		recipient := f.caller(t, testutil.HaifaAct1)

		var wg sync.WaitGroup
		var ackErr, delErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, ackErr = f.svc.UpdateAssignmentStatus(ctx, recipient, res.TaskID, model.StatusAcknowledged)
		}()
		go func() {
			defer wg.Done()
			_, delErr = f.svc.DeleteTask(ctx, sender, res.TaskID)
		}()
		wg.Wait()

		// Exactly one side wins.
		if ackErr == nil {
			require.ErrorIs(t, delErr, apperr.ErrAcknowledged)
		} else {
			require.ErrorIs(t, ackErr, apperr.ErrAssignmentDeleted)
			require.NoError(t, delErr)
		}

		task, err := f.store.GetTask(ctx, res.TaskID)
		require.NoError(t, err)
		a, err := f.store.GetAssignment(ctx, res.TaskID, testutil.HaifaAct1)
		require.NoError(t, err)
		assert.False(t, task.IsDeleted() && a.AcknowledgedAt != nil,
			"a deleted task never has an acknowledgment")
	}
}

func TestConcurrentStatusUpdatesStayMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.send(t, testutil.HaifaCoord, allInput())
	me := f.caller(t, testutil.HaifaAct1)

	targets := []model.AssignmentStatus{
		model.StatusRead, model.StatusAcknowledged, model.StatusRead,
		model.StatusAcknowledged, model.StatusRead, model.StatusRead,
	}
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdateAssignmentStatus(ctx, me, res.TaskID, target)
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrStatusRegression)
			}
		}()
	}
	wg.Wait()

	a, err := f.store.GetAssignment(ctx, res.TaskID, testutil.HaifaAct1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAcknowledged, a.Status)
	require.NotNil(t, a.ReadAt)
	require.NotNil(t, a.AcknowledgedAt)
}

func TestListInboxValidation(t *testing.T) {
	f := newFixture(t)
	me := f.caller(t, testutil.HaifaAct1)
	bogus := model.AssignmentStatus("done")

	for _, q := range []broadcast.InboxQuery{
		{View: "outbox"},
		{Status: &bogus},
		{View: model.ViewSent, SortBy: "status"},
		{SortBy: "body"},
		{Limit: -1},
	} {
		_, err := f.svc.ListInbox(context.Background(), me, q)
		assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err), "%+v", q)
	}
}

func TestListInboxPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		f.send(t, testutil.HaifaCoord, allInput())
	}

	page, err := f.svc.ListInbox(ctx, f.caller(t, testutil.HaifaAct2), broadcast.InboxQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))
}

func TestListAvailableRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.caller(t, testutil.NorthMgr)

	page, err := f.svc.ListAvailableRecipients(ctx, mgr, broadcast.RecipientQuery{
		Roles: []model.Role{model.RoleCityCoordinator},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.svc.ListAvailableRecipients(ctx, mgr, broadcast.RecipientQuery{
		CityIDs: []string{"haifa"}, Query: "tal",
	})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, testutil.HaifaAct3, page.Users[0].ID)

	// Filters narrow the scope, never widen it.
	page, err = f.svc.ListAvailableRecipients(ctx, f.caller(t, testutil.HaifaCoord), broadcast.RecipientQuery{
		CityIDs: []string{"eilat"},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Users)
	assert.Zero(t, page.Total)

	page, err = f.svc.ListAvailableRecipients(ctx, mgr, broadcast.RecipientQuery{
		Roles: []model.Role{model.RoleSuperAdmin},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Users)

	_, err = f.svc.ListAvailableRecipients(ctx, f.caller(t, testutil.HaifaAct1), broadcast.RecipientQuery{})
	require.ErrorIs(t, err, apperr.ErrSenderForbidden)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Authenticate(ctx, testutil.NorthMgr)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAreaManager, c.Role)

	_, err = f.svc.Authenticate(ctx, testutil.InactiveAct)
	require.ErrorIs(t, err, apperr.ErrUnknownCaller)

	_, err = f.svc.Authenticate(ctx, "nobody")
	require.ErrorIs(t, err, apperr.ErrUnknownCaller)
}

func TestListAuditEntriesRequiresSuperAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListAuditEntries(context.Background(), f.caller(t, testutil.NorthMgr), model.EntityTask, "x")
	require.ErrorIs(t, err, apperr.ErrAuditForbidden)

	entries, err := f.svc.ListAuditEntries(context.Background(), f.caller(t, testutil.SuperAdmin), model.EntityTask, "x")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
