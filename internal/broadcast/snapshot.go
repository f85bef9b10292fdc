package broadcast

import (
	"time"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// Audit snapshots. Only the fields listed here are recorded.

func taskSnapshot(t model.Task) map[string]any {
	return map[string]any{
		"id":                   t.ID,
		"sender_user_id":       t.SenderUserID,
		"type":                 t.Type,
		"body":                 t.Body,
		"execution_date":       t.ExecutionDate.Format("2006-01-02"),
		"created_at":           t.CreatedAt.Format(time.RFC3339Nano),
		"recipients_count":     t.RecipientsCount,
		"deleted_by_sender_at": timeValue(t.DeletedBySenderAt),
	}
}

func assignmentSnapshot(a model.TaskAssignment) map[string]any {
	return map[string]any{
		"status":                   string(a.Status),
		"read_at":                  timeValue(a.ReadAt),
		"acknowledged_at":          timeValue(a.AcknowledgedAt),
		"archived_at":              timeValue(a.ArchivedAt),
		"deleted_for_recipient_at": timeValue(a.DeletedForRecipientAt),
	}
}

func assignmentEntityID(taskID, userID string) string {
	return taskID + "/" + userID
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
