// Package audit records before/after snapshots of broadcast mutations.
//
// Recording never fails the mutation it describes: sink errors are logged
// and dropped.
package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// Redacted replaces the value of every sensitive field.
const Redacted = "[REDACTED]"

// Sink persists audit entries.
type Sink interface {
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
}

// Recorder redacts and forwards audit entries to a Sink.
type Recorder struct {
	sink    Sink
	redact  map[string]bool
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger used to report sink failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// WithClock overrides the time source for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a Recorder writing to sink. Field names in
// redactFields are matched case-insensitively at any nesting depth.
func NewRecorder(sink Sink, redactFields []string, opts ...Option) *Recorder {
	r := &Recorder{
		sink:    sink,
		redact:  make(map[string]bool, len(redactFields)),
		logger:  slog.Default(),
		now:     time.Now,
		timeout: 5 * time.Second,
	}
	for _, f := range redactFields {
		r.redact[strings.ToLower(f)] = true
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record writes one entry. It is detached from ctx cancellation so an
// audit write started after a committed mutation still completes.
func (r *Recorder) Record(
	ctx context.Context,
	action model.AuditAction,
	entityType, entityID, actorID string,
	before, after map[string]any,
) {
	if r == nil || r.sink == nil {
		return
	}

	entry := model.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Before:     r.Redact(before),
		After:      r.Redact(after),
		CreatedAt:  r.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.sink.AppendAudit(ctx, entry); err != nil {
		failure := apperr.ErrAuditFailed.Wrap(err)
		r.logger.WarnContext(ctx, "audit record dropped",
			slog.String("event", "dependency."+failure.Reason),
			slog.String("action", string(action)),
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID),
			slog.Any("error", failure),
		)
	}
}

// Redact returns a copy of snapshot with sensitive values replaced.
func (r *Recorder) Redact(snapshot map[string]any) map[string]any {
	if snapshot == nil {
		return nil
	}
	out := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		if r.redact[strings.ToLower(k)] {
			out[k] = Redacted
			continue
		}
		out[k] = r.redactValue(v)
	}
	return out
}

func (r *Recorder) redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return r.Redact(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = r.redactValue(item)
		}
		return cp
	}
	return v
}
