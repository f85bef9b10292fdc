package broadcast

import (
	"context"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// ListNotifications returns the caller's in-app notifications.
func (s *Service) ListNotifications(
	ctx context.Context,
	caller model.Caller,
	unreadOnly bool,
) ([]model.Notification, error) {
	return s.store.ListNotifications(ctx, caller.UserID, unreadOnly)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, caller model.Caller, id string) error {
	return s.store.MarkNotificationRead(ctx, caller.UserID, id)
}

// ListAuditEntries returns the audit trail of one entity. Only superadmins
// may read it.
func (s *Service) ListAuditEntries(
	ctx context.Context,
	caller model.Caller,
	entityType, entityID string,
) ([]model.AuditEntry, error) {
	if caller.Role != model.RoleSuperAdmin {
		return nil, s.deny(ctx, caller, "list_audit_entries", apperr.ErrAuditForbidden)
	}
	return s.store.ListAudit(ctx, entityType, entityID)
}
