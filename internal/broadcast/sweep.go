package broadcast

import (
	"context"
	"log/slog"
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

// Archiver applies retention cutoffs to stored assignments.
type Archiver interface {
	ArchiveExpired(ctx context.Context, normalCutoff, deletedCutoff, now time.Time) (store.ArchiveResult, error)
}

// Sweeper archives assignments past their retention window. Live
// assignments age from creation; sender-deleted ones age from deletion on
// the longer clock. Sweeping is idempotent and holds no state between runs.
type Sweeper struct {
	store     Archiver
	retention model.RetentionConfig
	logger    *slog.Logger
}

// NewSweeper creates a Sweeper.
func NewSweeper(st Archiver, retention model.RetentionConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: st, retention: retention, logger: logger}
}

// Sweep archives everything that expired as of now.
func (sw *Sweeper) Sweep(ctx context.Context, now time.Time) (store.ArchiveResult, error) {
	now = now.UTC()
	res, err := sw.store.ArchiveExpired(ctx,
		now.AddDate(0, 0, -sw.retention.NormalDays),
		now.AddDate(0, 0, -sw.retention.DeletedDays),
		now,
	)
	if err != nil {
		return store.ArchiveResult{}, err
	}

	sw.logger.InfoContext(ctx, "archival sweep",
		slog.Int("normal_archived", res.Normal),
		slog.Int("deleted_archived", res.Deleted),
	)
	return res, nil
}

// RunArchivalSweep runs one sweep at the service clock's current time.
func (s *Service) RunArchivalSweep(ctx context.Context) (_ store.ArchiveResult, err error) {
	ctx, end := s.metrics.Start(ctx, "archival_sweep")
	defer func() { end(err) }()

	now := s.now().UTC()
	res, err := s.sweeper.Sweep(ctx, now)
	if err != nil {
		return store.ArchiveResult{}, err
	}

	s.metrics.Archived.Add(ctx, int64(res.Normal+res.Deleted))
	if res.Normal+res.Deleted > 0 {
		s.audit(ctx, model.AuditSweep, model.EntitySweep, now.Format(time.RFC3339), model.SystemActor,
			nil, map[string]any{
				"normal_archived":  res.Normal,
				"deleted_archived": res.Deleted,
			})
	}
	return res, nil
}

// TriggerArchivalSweep runs RunArchivalSweep on behalf of caller. Only
// superadmins may trigger a sweep.
func (s *Service) TriggerArchivalSweep(ctx context.Context, caller model.Caller) (store.ArchiveResult, error) {
	if caller.Role != model.RoleSuperAdmin {
		return store.ArchiveResult{}, s.deny(ctx, caller, "trigger_archival_sweep", apperr.ErrSweepForbidden)
	}
	return s.RunArchivalSweep(ctx)
}
