package broadcast

import (
	"context"
	"fmt"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/apperr"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// InboxQuery selects one page of the caller's inbox.
type InboxQuery struct {
	View     model.InboxView
	Status   *model.AssignmentStatus
	Deleted  *bool
	Query    string
	SortBy   string
	SortDesc bool
	Limit    int
	Offset   int
}

// InboxPage is one page of inbox items plus the unpaginated total.
type InboxPage struct {
	Items []model.InboxItem `json:"items"`
	Total int               `json:"total"`
}

var inboxSorts = map[string]bool{
	"":               true,
	"created_at":     true,
	"execution_date": true,
	"type":           true,
	"status":         true,
}

// ListInbox returns the caller's received or sent tasks. Bodies of tasks
// deleted by their sender are replaced with a placeholder in both views.
func (s *Service) ListInbox(ctx context.Context, caller model.Caller, q InboxQuery) (_ *InboxPage, err error) {
	ctx, end := s.metrics.Start(ctx, "list_inbox")
	defer func() { end(err) }()

	if q.View == "" {
		q.View = model.ViewReceived
	}
	fields := make(map[string]string)
	if q.View != model.ViewReceived && q.View != model.ViewSent {
		fields["view"] = `must be "received" or "sent"`
	}
	if q.Status != nil && !q.Status.Valid() {
		fields["status"] = fmt.Sprintf("unknown status %q", *q.Status)
	}
	if q.Status != nil && q.View == model.ViewSent {
		fields["status"] = "only applies to the received view"
	}
	if !inboxSorts[q.SortBy] || (q.SortBy == "status" && q.View == model.ViewSent) {
		fields["sort"] = fmt.Sprintf("cannot sort by %q", q.SortBy)
	}
	if q.Limit < 0 || q.Offset < 0 {
		fields["pagination"] = "limit and offset must not be negative"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	filter := store.InboxFilter{
		UserID:   caller.UserID,
		View:     q.View,
		Status:   q.Status,
		Deleted:  q.Deleted,
		SortBy:   q.SortBy,
		SortDesc: q.SortDesc,
		Limit:    clampLimit(q.Limit),
		Offset:   q.Offset,
	}
	if q.Query != "" {
		filter.Query = &q.Query
	}

	items, err := s.store.ListInbox(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountInbox(ctx, filter)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].IsDeleted {
			items[i].Body = model.DeletedPlaceholder
		}
	}
	return &InboxPage{Items: items, Total: total}, nil
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultPageSize
	case n > maxPageSize:
		return maxPageSize
	}
	return n
}
