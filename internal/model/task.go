package model

import "time"

// DeletedPlaceholder replaces the body of a task once its sender deleted it.
const DeletedPlaceholder = "This task was deleted by the sender."

// RecipientMode selects how the recipient set of a new task is computed.
type RecipientMode string

const (
	ModeAll      RecipientMode = "all"
	ModeSelected RecipientMode = "selected"
)

// AssignmentStatus is the per-recipient lifecycle state of a task.
type AssignmentStatus string

const (
	StatusUnread       AssignmentStatus = "unread"
	StatusRead         AssignmentStatus = "read"
	StatusAcknowledged AssignmentStatus = "acknowledged"
	StatusArchived     AssignmentStatus = "archived"
)

// Rank orders statuses along the forward-only lifecycle.
// Unknown statuses rank below everything.
func (s AssignmentStatus) Rank() int {
	switch s {
	case StatusUnread:
		return 1
	case StatusRead:
		return 2
	case StatusAcknowledged:
		return 3
	case StatusArchived:
		return 4
	}
	return 0
}

// Valid reports whether s is a known status.
func (s AssignmentStatus) Valid() bool {
	return s.Rank() > 0
}

// Task is a broadcast created by a sender for a resolved set of recipients.
type Task struct {
	ID                string     `json:"id"`
	SenderUserID      string     `json:"sender_user_id"`
	Body              string     `json:"body"`
	Type              string     `json:"type"`
	ExecutionDate     time.Time  `json:"execution_date"`
	CreatedAt         time.Time  `json:"created_at"`
	RecipientsCount   int        `json:"recipients_count"`
	DeletedBySenderAt *time.Time `json:"deleted_by_sender_at,omitempty"`
}

// IsDeleted reports whether the sender retracted the task.
func (t Task) IsDeleted() bool {
	return t.DeletedBySenderAt != nil
}

// TaskAssignment is one recipient's copy of a task.
//
// Status and DeletedForRecipientAt are independent: a row keeps its last
// real status after the sender deletes the task.
type TaskAssignment struct {
	TaskID                string           `json:"task_id"`
	TargetUserID          string           `json:"target_user_id"`
	Status                AssignmentStatus `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
	ReadAt                *time.Time       `json:"read_at,omitempty"`
	AcknowledgedAt        *time.Time       `json:"acknowledged_at,omitempty"`
	ArchivedAt            *time.Time       `json:"archived_at,omitempty"`
	DeletedForRecipientAt *time.Time       `json:"deleted_for_recipient_at,omitempty"`
}

// IsDeleted reports whether the assignment carries the deletion overlay.
func (a TaskAssignment) IsDeleted() bool {
	return a.DeletedForRecipientAt != nil
}

// InboxView selects which side of a broadcast ListInbox returns.
type InboxView string

const (
	ViewReceived InboxView = "received"
	ViewSent     InboxView = "sent"
)

// InboxItem is a summary row for either view of the inbox.
//
// For the received view the assignment fields describe the caller's copy.
// For the sent view the aggregate counters are filled instead.
type InboxItem struct {
	TaskID          string     `json:"task_id"`
	SenderUserID    string     `json:"sender_user_id"`
	SenderName      string     `json:"sender_name"`
	Body            string     `json:"body"`
	Type            string     `json:"type"`
	ExecutionDate   time.Time  `json:"execution_date"`
	CreatedAt       time.Time  `json:"created_at"`
	RecipientsCount int        `json:"recipients_count"`
	IsDeleted       bool       `json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`

	Status         AssignmentStatus `json:"status,omitempty"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	AcknowledgedAt *time.Time       `json:"acknowledged_at,omitempty"`
	ArchivedAt     *time.Time       `json:"archived_at,omitempty"`

	ReadCount         int `json:"read_count,omitempty"`
	AcknowledgedCount int `json:"acknowledged_count,omitempty"`
}
