package store

import (
	"context"
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// InboxFilter controls filtering, sorting, and pagination for inbox queries.
type InboxFilter struct {
	UserID string
	View   model.InboxView

	// Status filters the caller's assignment status (received view only).
	Status *model.AssignmentStatus

	// Deleted filters on the sender-deletion flag; nil returns both.
	Deleted *bool

	Query    *string // search body and type
	SortBy   string  // "created_at", "execution_date", "type", "status"; empty is newest first
	SortDesc bool
	Limit    int
	Offset   int
}

// ArchiveResult counts rows moved to archived by one sweep.
type ArchiveResult struct {
	Normal  int `json:"normal_archived"`
	Deleted int `json:"deleted_archived"`
}

// Tx is the set of operations available inside RunInTx. Every read sees
// the transaction's snapshot and every write commits or rolls back with it.
type Tx interface {
	GetTask(ctx context.Context, id string) (*model.Task, error)
	GetAssignment(ctx context.Context, taskID, userID string) (*model.TaskAssignment, error)
	ListAssignments(ctx context.Context, taskID string) ([]model.TaskAssignment, error)
	CountAcknowledged(ctx context.Context, taskID string) (int, error)
	MarkTaskDeleted(ctx context.Context, taskID string, at time.Time) (bool, error)
	MarkAssignmentsDeleted(ctx context.Context, taskID string, at time.Time) (int, error)
}

// Store defines the persistence interface for broadcast tasks, their
// per-recipient assignments, in-app notifications and the audit log.
type Store interface {
	// === Tasks ===

	// CreateTask writes the task and one unread assignment per recipient
	// atomically. It fails without writing anything unless
	// task.RecipientsCount equals len(recipientIDs) and is positive, and
	// re-counts the written rows before committing.
	CreateTask(ctx context.Context, task model.Task, recipientIDs []string) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)

	// === Assignments ===

	GetAssignment(ctx context.Context, taskID, userID string) (*model.TaskAssignment, error)
	ListAssignments(ctx context.Context, taskID string) ([]model.TaskAssignment, error)
	CountAssignments(ctx context.Context, taskID string) (int, error)

	// CompareAndSwapAssignment replaces the mutable fields of the row only
	// if its status still equals expected and it has no deletion overlay.
	// It reports whether the row was updated.
	CompareAndSwapAssignment(
		ctx context.Context,
		expected model.AssignmentStatus,
		next model.TaskAssignment,
	) (bool, error)

	// ArchiveExpired archives never-archived live assignments created
	// before normalCutoff and deleted assignments whose deletion predates
	// deletedCutoff.
	ArchiveExpired(ctx context.Context, normalCutoff, deletedCutoff, now time.Time) (ArchiveResult, error)

	// === Inbox ===

	ListInbox(ctx context.Context, filter InboxFilter) ([]model.InboxItem, error)
	CountInbox(ctx context.Context, filter InboxFilter) (int, error)

	// === Notifications ===

	CreateNotifications(ctx context.Context, ns []model.Notification) error
	ListNotifications(ctx context.Context, recipientID string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, recipientID, id string) error

	// === Audit ===

	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context, entityType, entityID string) ([]model.AuditEntry, error)

	// === Transactions ===

	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}
