// Package httpapi exposes the broadcast operations as a JSON API.
//
// Callers identify themselves with the X-User-ID header; authentication
// itself happens upstream. Errors are rendered as
// {"error", "code", "reason", "fields"} with the status derived from the
// error category.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/broadcast"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

// CallerHeader carries the authenticated user id.
const CallerHeader = "X-User-ID"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Broadcaster is the subset of broadcast.Service the API serves.
type Broadcaster interface {
	Authenticate(ctx context.Context, userID string) (model.Caller, error)
	CreateTask(ctx context.Context, caller model.Caller, in broadcast.CreateTaskInput) (*broadcast.CreateTaskResult, error)
	ListInbox(ctx context.Context, caller model.Caller, q broadcast.InboxQuery) (*broadcast.InboxPage, error)
	UpdateAssignmentStatus(ctx context.Context, caller model.Caller, taskID string, status model.AssignmentStatus) (*model.TaskAssignment, error)
	DeleteTask(ctx context.Context, caller model.Caller, taskID string) (int, error)
	ListAvailableRecipients(ctx context.Context, caller model.Caller, q broadcast.RecipientQuery) (*broadcast.RecipientPage, error)
	TriggerArchivalSweep(ctx context.Context, caller model.Caller) (store.ArchiveResult, error)
	ListNotifications(ctx context.Context, caller model.Caller, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, caller model.Caller, id string) error
	ListAuditEntries(ctx context.Context, caller model.Caller, entityType, entityID string) ([]model.AuditEntry, error)
}

var _ Broadcaster = (*broadcast.Service)(nil)

// Server routes HTTP requests to a Broadcaster.
type Server struct {
	svc    Broadcaster
	logger *slog.Logger
}

// NewServer creates a Server. A nil logger uses slog.Default.
func NewServer(svc Broadcaster, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, logger: logger}
}

// Handler returns the routed, logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("POST /tasks", s.authed(s.handleCreateTask))
	mux.Handle("DELETE /tasks/{id}", s.authed(s.handleDeleteTask))
	mux.Handle("POST /tasks/{id}/status", s.authed(s.handleUpdateStatus))
	mux.Handle("GET /inbox", s.authed(s.handleListInbox))
	mux.Handle("GET /recipients", s.authed(s.handleListRecipients))
	mux.Handle("POST /sweep", s.authed(s.handleSweep))
	mux.Handle("GET /notifications", s.authed(s.handleListNotifications))
	mux.Handle("POST /notifications/{id}/read", s.authed(s.handleMarkNotificationRead))
	mux.Handle("GET /audit/{entityType}/{entityID...}", s.authed(s.handleListAudit))

	return s.logRequests(mux)
}

// callerHandler is a handler that runs with an authenticated caller.
type callerHandler func(w http.ResponseWriter, r *http.Request, caller model.Caller)

func (s *Server) authed(h callerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(CallerHeader)
		if userID == "" {
			writeUnauthenticated(w)
			return
		}
		caller, err := s.svc.Authenticate(r.Context(), userID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		h(w, r, caller)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
