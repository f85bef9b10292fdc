package notify

import (
	"context"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// NotificationWriter persists in-app notifications.
type NotificationWriter interface {
	CreateNotifications(ctx context.Context, ns []model.Notification) error
}

// InAppTransport delivers pushes as rows of the recipients' notification feed.
type InAppTransport struct {
	store NotificationWriter
}

// NewInAppTransport writes notifications through store.
func NewInAppTransport(store NotificationWriter) *InAppTransport {
	return &InAppTransport{store: store}
}

func (t *InAppTransport) Name() string { return "inapp" }

func (t *InAppTransport) Send(ctx context.Context, recipientID string, msg Message) error {
	return t.SendBatch(ctx, []string{recipientID}, msg)
}

// SendBatch writes one notification per recipient in a single transaction.
func (t *InAppTransport) SendBatch(ctx context.Context, recipientIDs []string, msg Message) error {
	ns := make([]model.Notification, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		ns = append(ns, model.Notification{
			TaskID:      msg.TaskID,
			RecipientID: id,
			Message:     msg.Subject(),
			CreatedAt:   msg.CreatedAt,
		})
	}
	return t.store.CreateNotifications(ctx, ns)
}
