package model

import "time"

// Notification is an in-app alert delivered to a recipient about a task.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// TaskID links this notification to the originating task.
	TaskID string `json:"task_id"`

	// RecipientID is the user the alert was pushed to.
	RecipientID string `json:"recipient_id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Read indicates whether the recipient has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
