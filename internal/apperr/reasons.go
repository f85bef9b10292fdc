package apperr

// Authorization failures.
var (
	ErrSenderForbidden = New(CodeForbidden, "sender_role_forbidden",
		"this role may not send tasks")
	ErrRecipientOutOfScope = New(CodeForbidden, "recipient_out_of_scope",
		"selected recipient is outside the sender's scope")
	ErrNotTaskSender = New(CodeForbidden, "not_task_sender",
		"only the sender may delete this task")
	ErrUnknownCaller = New(CodeForbidden, "unknown_caller",
		"caller is not an active member of the organization")
	ErrAuditForbidden = New(CodeForbidden, "audit_forbidden",
		"only superadmins may read the audit log")
	ErrSweepForbidden = New(CodeForbidden, "sweep_forbidden",
		"only superadmins may trigger an archival sweep")
)

// Business rule violations.
var (
	ErrEmptyRecipients = New(CodeBusinessRule, "empty_recipients",
		"no recipients resolved for this task")
	ErrWindowExpired = New(CodeBusinessRule, "window_expired",
		"deletion window expired")
	ErrAcknowledged = New(CodeBusinessRule, "recipient_acknowledged",
		"recipient has acknowledged")
	ErrAlreadyDeleted = New(CodeBusinessRule, "already_deleted",
		"task already deleted")
	ErrAssignmentDeleted = New(CodeBusinessRule, "assignment_deleted",
		"task was deleted by the sender")
	ErrStatusRegression = New(CodeBusinessRule, "status_regression",
		"status cannot move backwards")
	ErrCountMismatch = New(CodeInternal, "recipients_count_mismatch",
		"written assignments do not match recipients count")
)

// Lookups.
var (
	ErrTaskNotFound = New(CodeNotFound, "task_not_found",
		"task not found")
	ErrAssignmentNotFound = New(CodeNotFound, "assignment_not_found",
		"task not found in your inbox")
	ErrUserNotFound = New(CodeNotFound, "user_not_found",
		"user not found")
	ErrNotificationNotFound = New(CodeNotFound, "notification_not_found",
		"notification not found")
)

// Collaborators.
var (
	ErrPushFailed = New(CodeDependency, "push_failed",
		"push notification delivery failed")
	ErrAuditFailed = New(CodeDependency, "audit_failed",
		"audit record could not be written")
)
