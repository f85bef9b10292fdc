// Package broadcast implements hierarchical task broadcasting: recipient
// resolution, task creation, per-recipient status tracking, sender
// deletion and archival.
//
// Every exported operation takes the authenticated caller explicitly.
// Mutations record an audit entry when they complete; push delivery runs
// after the creating transaction has committed.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/notify"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/org"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/telemetry"
)

// Dispatcher delivers new-task pushes and reports how many succeeded.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipientIDs []string, msg notify.Message) int
}

// Auditor records mutations. It must not fail the caller.
type Auditor interface {
	Record(
		ctx context.Context,
		action model.AuditAction,
		entityType, entityID, actorID string,
		before, after map[string]any,
	)
}

// Service is the entry point for every broadcast operation.
type Service struct {
	store      store.Store
	dir        org.Directory
	resolver   *Resolver
	sweeper    *Sweeper
	dispatcher Dispatcher
	auditor    Auditor

	rules           model.BroadcastConfig
	retention       model.RetentionConfig
	dispatchTimeout time.Duration

	now     func() time.Time
	logger  *slog.Logger
	metrics *telemetry.Instruments
}

// Option configures a Service.
type Option func(*Service)

// WithDispatcher sets the push dispatcher. Without one no pushes are sent.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) { s.dispatcher = d }
}

// WithAuditor sets the audit recorder.
func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithRules overrides the creation and deletion rules.
func WithRules(r model.BroadcastConfig) Option {
	return func(s *Service) { s.rules = r }
}

// WithRetention overrides the archival windows.
func WithRetention(r model.RetentionConfig) Option {
	return func(s *Service) { s.retention = r }
}

// WithDispatchTimeout bounds the post-commit push fan-out.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Service) { s.dispatchTimeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithInstruments sets the telemetry instruments.
func WithInstruments(in *telemetry.Instruments) Option {
	return func(s *Service) { s.metrics = in }
}

// NewService creates a Service over the task store and org directory.
func NewService(st store.Store, dir org.Directory, opts ...Option) *Service {
	defaults := model.DefaultAppConfig()
	s := &Service{
		store:           st,
		dir:             dir,
		resolver:        NewResolver(dir),
		rules:           defaults.Broadcast,
		retention:       defaults.Retention,
		dispatchTimeout: 30 * time.Second,
		now:             time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewInstruments()
	}
	s.sweeper = NewSweeper(st, s.retention, s.logger)
	return s
}

// Authenticate maps a user ID to a caller. Unknown and inactive users are
// rejected.
func (s *Service) Authenticate(ctx context.Context, userID string) (model.Caller, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return model.Caller{}, s.deny(ctx, model.Caller{UserID: userID}, "authenticate", err)
	}
	return model.Caller{UserID: u.ID, Role: u.Role}, nil
}

func (s *Service) activeUser(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.dir.GetUser(ctx, userID)
	if errors.Is(err, apperr.ErrUserNotFound) {
		return nil, apperr.ErrUnknownCaller
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.ErrUnknownCaller
	}
	return u, nil
}

// deny logs authorization failures as security events and returns err.
func (s *Service) deny(ctx context.Context, caller model.Caller, op string, err error) error {
	if apperr.Is(err, apperr.CodeForbidden) {
		s.logger.WarnContext(ctx, "authorization denied",
			slog.String("event", "security.denied"),
			slog.String("operation", op),
			slog.String("caller_id", caller.UserID),
			slog.String("role", string(caller.Role)),
			slog.String("reason", apperr.ReasonOf(err)),
		)
	}
	return err
}

// CreateTaskResult reports the outcome of CreateTask.
type CreateTaskResult struct {
	TaskID          string `json:"task_id"`
	RecipientsCount int    `json:"recipients_count"`
	DeliveredCount  int    `json:"delivered_count"`
}

// CreateTask validates the draft, resolves its recipients, writes the task
// with one unread assignment per recipient and pushes it. Push failures
// only lower DeliveredCount.
func (s *Service) CreateTask(
	ctx context.Context,
	caller model.Caller,
	in CreateTaskInput,
) (_ *CreateTaskResult, err error) {
	ctx, end := s.metrics.Start(ctx, "create_task", attribute.String("mode", string(in.Mode)))
	defer func() { end(err) }()

	if !caller.Role.CanSend() {
		return nil, s.deny(ctx, caller, "create_task", apperr.ErrSenderForbidden)
	}

	now := s.now().UTC()
	if err := validateInput(in, s.rules, now); err != nil {
		return nil, err
	}

	sender, err := s.activeUser(ctx, caller.UserID)
	if err != nil {
		return nil, s.deny(ctx, caller, "create_task", err)
	}

	recipients, err := s.resolver.Resolve(ctx, sender, in.Mode, in.SelectedIDs)
	if err != nil {
		return nil, s.deny(ctx, caller, "create_task", err)
	}
	s.metrics.RecipientsResolved.Add(ctx, int64(len(recipients)))

	task, err := s.store.CreateTask(ctx, model.Task{
		SenderUserID:    sender.ID,
		Body:            strings.TrimSpace(in.Body),
		Type:            in.Type,
		ExecutionDate:   dateOnly(in.ExecutionDate),
		CreatedAt:       now,
		RecipientsCount: len(recipients),
	}, recipients)
	if err != nil {
		return nil, err
	}
	s.metrics.TasksCreated.Add(ctx, 1)

	after := taskSnapshot(*task)
	after["mode"] = string(in.Mode)
	s.audit(ctx, model.AuditCreate, model.EntityTask, task.ID, caller.UserID, nil, after)

	s.logger.InfoContext(ctx, "task created",
		slog.String("task_id", task.ID),
		slog.String("sender_id", sender.ID),
		slog.Int("recipients", task.RecipientsCount),
	)

	delivered := s.dispatch(ctx, task, sender, recipients)

	return &CreateTaskResult{
		TaskID:          task.ID,
		RecipientsCount: task.RecipientsCount,
		DeliveredCount:  delivered,
	}, nil
}

// dispatch runs after the task has committed. It is detached from the
// request context so a disconnecting client does not cut delivery short.
func (s *Service) dispatch(ctx context.Context, task *model.Task, sender *model.User, recipients []string) int {
	if s.dispatcher == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()

	return s.dispatcher.Dispatch(ctx, recipients, notify.Message{
		TaskID:        task.ID,
		SenderUserID:  sender.ID,
		SenderName:    sender.FullName,
		Type:          task.Type,
		Body:          task.Body,
		ExecutionDate: task.ExecutionDate,
		CreatedAt:     task.CreatedAt,
	})
}

func (s *Service) audit(
	ctx context.Context,
	action model.AuditAction,
	entityType, entityID, actorID string,
	before, after map[string]any,
) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, action, entityType, entityID, actorID, before, after)
}
