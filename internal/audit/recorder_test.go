package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

type memorySink struct {
	entries []model.AuditEntry
	err     error
}

func (m *memorySink) AppendAudit(_ context.Context, e model.AuditEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func TestRecordRedactsSensitiveFields(t *testing.T) {
	sink := &memorySink{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := NewRecorder(sink, []string{"email", "Token"}, WithClock(func() time.Time { return now }))

	r.Record(context.Background(), model.AuditCreate, model.EntityTask, "t1", "u1",
		nil,
		map[string]any{
			"body":  "hello",
			"EMAIL": "a@example.org",
			"sender": map[string]any{
				"token": "abc",
				"name":  "Noa",
			},
			"list": []any{map[string]any{"email": "b@example.org"}},
		},
	)

	require.Len(t, sink.entries, 1)
	e := sink.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, now, e.CreatedAt)
	assert.Nil(t, e.Before)
	assert.Equal(t, "hello", e.After["body"])
	assert.Equal(t, Redacted, e.After["EMAIL"])
	assert.Equal(t, Redacted, e.After["sender"].(map[string]any)["token"])
	assert.Equal(t, "Noa", e.After["sender"].(map[string]any)["name"])
	assert.Equal(t, Redacted, e.After["list"].([]any)[0].(map[string]any)["email"])
}

func TestRecordAbsorbsSinkFailure(t *testing.T) {
	var logs bytes.Buffer
	sink := &memorySink{err: errors.New("disk full")}
	r := NewRecorder(sink, nil, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	assert.NotPanics(t, func() {
		r.Record(context.Background(), model.AuditDelete, model.EntityTask, "t1", "u1", nil, nil)
	})
	assert.Contains(t, logs.String(), "dependency.audit_failed")
	assert.Contains(t, logs.String(), "audit record could not be written: disk full")
}

func TestRecordSurvivesCanceledContext(t *testing.T) {
	sink := &memorySink{}
	r := NewRecorder(sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, model.AuditUpdate, model.EntityTaskAssignment, "t1/u2", "u2", nil, nil)
	assert.Len(t, sink.entries, 1)
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Record(context.Background(), model.AuditSweep, "sweep", "x", "system", nil, nil)
	})
}

func TestJSONLSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "audit.jsonl")
	sink, err := NewJSONLSink(path)
	require.NoError(t, err)

	r := NewRecorder(sink, []string{"phone"})
	r.Record(context.Background(), model.AuditCreate, model.EntityTask, "t1", "u1", nil,
		map[string]any{"phone": "555"})
	r.Record(context.Background(), model.AuditDelete, model.EntityTask, "t1", "u1", nil, nil)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []model.AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e model.AuditEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditCreate, entries[0].Action)
	assert.Equal(t, Redacted, entries[0].After["phone"])
	assert.Equal(t, model.AuditDelete, entries[1].Action)
}
