package broadcast

import (
	"context"
	"slices"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// RecipientQuery narrows the recipient picker within the caller's scope.
type RecipientQuery struct {
	Query   string
	Roles   []model.Role
	CityIDs []string
	Limit   int
	Offset  int
}

// RecipientPage is one page of recipient candidates.
type RecipientPage struct {
	Users []model.User `json:"users"`
	Total int          `json:"total"`
}

// ListAvailableRecipients lists the active users the caller may send to.
// Filters only ever narrow the caller's scope.
func (s *Service) ListAvailableRecipients(
	ctx context.Context,
	caller model.Caller,
	q RecipientQuery,
) (_ *RecipientPage, err error) {
	ctx, end := s.metrics.Start(ctx, "list_available_recipients")
	defer func() { end(err) }()

	if !caller.Role.CanSend() {
		return nil, s.deny(ctx, caller, "list_available_recipients", apperr.ErrSenderForbidden)
	}
	for _, r := range q.Roles {
		if !r.Valid() {
			return nil, apperr.Validation(map[string]string{"roles": "unknown role " + string(r)})
		}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, apperr.Validation(map[string]string{"pagination": "limit and offset must not be negative"})
	}

	sender, err := s.activeUser(ctx, caller.UserID)
	if err != nil {
		return nil, s.deny(ctx, caller, "list_available_recipients", err)
	}
	filter, err := s.resolver.Scope(sender)
	if err != nil {
		return nil, s.deny(ctx, caller, "list_available_recipients", err)
	}

	var ok bool
	if filter.Roles, ok = narrow(filter.Roles, q.Roles); !ok {
		return &RecipientPage{Users: []model.User{}}, nil
	}
	if filter.CityIDs, ok = narrow(filter.CityIDs, q.CityIDs); !ok {
		return &RecipientPage{Users: []model.User{}}, nil
	}
	if q.Query != "" {
		filter.Query = &q.Query
	}

	total, err := s.dir.CountUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	filter.Limit = clampLimit(q.Limit)
	filter.Offset = q.Offset
	users, err := s.dir.ListUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &RecipientPage{Users: users, Total: total}, nil
}

// narrow intersects a scope list with a requested list. An empty scope
// list means unrestricted. It reports false when the intersection is empty.
func narrow[T comparable](scope, requested []T) ([]T, bool) {
	if len(requested) == 0 {
		return scope, true
	}
	if len(scope) == 0 {
		return requested, true
	}
	var out []T
	for _, r := range requested {
		if slices.Contains(scope, r) {
			out = append(out, r)
		}
	}
	return out, len(out) > 0
}
