package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	fail     map[string]bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Send(ctx context.Context, recipientID string, _ Message) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.fail[recipientID] {
		return errors.New("unreachable")
	}
	f.mu.Lock()
	f.sent = append(f.sent, recipientID)
	f.mu.Unlock()
	return nil
}

func testMessage() Message {
	return Message{
		TaskID:        "t1",
		SenderUserID:  "u1",
		SenderName:    "Noa North",
		Type:          "field",
		Body:          "Please check the west gate today",
		ExecutionDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDispatchCountsDeliveredAndAbsorbsFailures(t *testing.T) {
	var logs bytes.Buffer
	tr := &fakeTransport{fail: map[string]bool{"r2": true}}
	d := NewDispatcher(tr, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	delivered := d.Dispatch(context.Background(), []string{"r1", "r2", "r3"}, testMessage())
	assert.Equal(t, 2, delivered)
	assert.ElementsMatch(t, []string{"r1", "r3"}, tr.sent)

	assert.Contains(t, logs.String(), "event=dependency.push_failed")
	assert.Contains(t, logs.String(), "recipient_id=r2")
	assert.Contains(t, logs.String(), "push notification delivery failed: unreachable")
}

func TestDispatchRespectsConcurrencyLimit(t *testing.T) {
	tr := &fakeTransport{delay: 10 * time.Millisecond}
	d := NewDispatcher(tr, WithConcurrency(2))

	ids := []string{"a", "b", "c", "d", "e", "f"}
	assert.Equal(t, len(ids), d.Dispatch(context.Background(), ids, testMessage()))
	assert.LessOrEqual(t, tr.maxSeen.Load(), int32(2))
}

func TestDispatchTimesOutSlowSends(t *testing.T) {
	tr := &fakeTransport{delay: time.Second}
	d := NewDispatcher(tr, WithTimeout(20*time.Millisecond))

	start := time.Now()
	assert.Zero(t, d.Dispatch(context.Background(), []string{"r1"}, testMessage()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDispatchEmpty(t *testing.T) {
	d := NewDispatcher(&fakeTransport{})
	assert.Zero(t, d.Dispatch(context.Background(), nil, testMessage()))
}

type fakeNotificationWriter struct {
	got []model.Notification
	err error
}

func (f *fakeNotificationWriter) CreateNotifications(_ context.Context, ns []model.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, ns...)
	return nil
}

func TestDispatchUsesBatchTransport(t *testing.T) {
	w := &fakeNotificationWriter{}
	d := NewDispatcher(NewInAppTransport(w))

	delivered := d.Dispatch(context.Background(), []string{"r1", "r2"}, testMessage())
	assert.Equal(t, 2, delivered)
	require.Len(t, w.got, 2)
	assert.Equal(t, "t1", w.got[0].TaskID)
	assert.Equal(t, "New field task from Noa North", w.got[0].Message)

	w.err = errors.New("disk full")
	assert.Zero(t, d.Dispatch(context.Background(), []string{"r1", "r2"}, testMessage()))
}
