package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// inboxRow is the union of the received and sent projections.
type inboxRow struct {
	taskRow
	SenderName string `db:"sender_name"`

	Status                string   `db:"status"`
	ReadAt                nullTime `db:"read_at"`
	AcknowledgedAt        nullTime `db:"acknowledged_at"`
	ArchivedAt            nullTime `db:"archived_at"`
	DeletedForRecipientAt nullTime `db:"deleted_for_recipient_at"`

	ReadCount         int `db:"read_count"`
	AcknowledgedCount int `db:"acknowledged_count"`
}

func (r inboxRow) toModel(view model.InboxView) (model.InboxItem, error) {
	task, err := r.taskRow.toModel()
	if err != nil {
		return model.InboxItem{}, err
	}

	item := model.InboxItem{
		TaskID:          task.ID,
		SenderUserID:    task.SenderUserID,
		SenderName:      r.SenderName,
		Body:            task.Body,
		Type:            task.Type,
		ExecutionDate:   task.ExecutionDate,
		CreatedAt:       task.CreatedAt,
		RecipientsCount: task.RecipientsCount,
	}

	switch view {
	case model.ViewReceived:
		item.Status = model.AssignmentStatus(r.Status)
		item.ReadAt = r.ReadAt.Ptr()
		item.AcknowledgedAt = r.AcknowledgedAt.Ptr()
		item.ArchivedAt = r.ArchivedAt.Ptr()
		item.DeletedAt = r.DeletedForRecipientAt.Ptr()
	case model.ViewSent:
		item.ReadCount = r.ReadCount
		item.AcknowledgedCount = r.AcknowledgedCount
		item.DeletedAt = task.DeletedBySenderAt
	}
	item.IsDeleted = item.DeletedAt != nil

	return item, nil
}

// ListInbox retrieves one page of the caller's received or sent tasks.
func (s *SQLiteStore) ListInbox(
	ctx context.Context,
	filter InboxFilter,
) ([]model.InboxItem, error) {
	query, args, err := buildInboxQuery(filter, false)
	if err != nil {
		return nil, err
	}

	var rows []inboxRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying %s inbox of %s: %w", filter.View, filter.UserID, err)
	}

	items := make([]model.InboxItem, 0, len(rows))
	for _, r := range rows {
		item, err := r.toModel(filter.View)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// CountInbox returns the number of inbox rows matching the filter,
// ignoring pagination.
func (s *SQLiteStore) CountInbox(ctx context.Context, filter InboxFilter) (int, error) {
	query, args, err := buildInboxQuery(filter, true)
	if err != nil {
		return 0, err
	}

	var count int
	if err := sqlx.GetContext(ctx, s.db, &count, query, args...); err != nil {
		return 0, fmt.Errorf("counting %s inbox of %s: %w", filter.View, filter.UserID, err)
	}
	return count, nil
}

// buildInboxQuery constructs the SQL query and args for an InboxFilter.
func buildInboxQuery(filter InboxFilter, count bool) (string, []interface{}, error) {
	var (
		conditions []string
		args       []interface{}
		selectList string
		from       string
		deletedCol string
	)

	switch filter.View {
	case model.ViewReceived, "":
		selectList = `t.id, t.sender_user_id, t.body, t.type, t.execution_date,
			t.created_at, t.recipients_count, t.deleted_by_sender_at,
			COALESCE(u.full_name, '') AS sender_name,
			a.status, a.read_at, a.acknowledged_at, a.archived_at,
			a.deleted_for_recipient_at,
			0 AS read_count, 0 AS acknowledged_count`
		from = ` FROM task_assignments a
			JOIN tasks t ON t.id = a.task_id
			LEFT JOIN users u ON u.id = t.sender_user_id`
		conditions = append(conditions, "a.target_user_id = ?")
		args = append(args, filter.UserID)
		deletedCol = "a.deleted_for_recipient_at"

		if filter.Status != nil {
			conditions = append(conditions, "a.status = ?")
			args = append(args, string(*filter.Status))
		}
		if filter.Deleted != nil {
			if *filter.Deleted {
				conditions = append(conditions, "a.deleted_for_recipient_at IS NOT NULL")
			} else {
				conditions = append(conditions, "a.deleted_for_recipient_at IS NULL")
			}
		}

	case model.ViewSent:
		selectList = `t.id, t.sender_user_id, t.body, t.type, t.execution_date,
			t.created_at, t.recipients_count, t.deleted_by_sender_at,
			COALESCE(u.full_name, '') AS sender_name,
			'' AS status, NULL AS read_at, NULL AS acknowledged_at,
			NULL AS archived_at, NULL AS deleted_for_recipient_at,
			(SELECT COUNT(*) FROM task_assignments r
				WHERE r.task_id = t.id AND r.read_at IS NOT NULL) AS read_count,
			(SELECT COUNT(*) FROM task_assignments k
				WHERE k.task_id = t.id AND k.acknowledged_at IS NOT NULL) AS acknowledged_count`
		from = ` FROM tasks t
			LEFT JOIN users u ON u.id = t.sender_user_id`
		conditions = append(conditions, "t.sender_user_id = ?")
		args = append(args, filter.UserID)
		deletedCol = "t.deleted_by_sender_at"

		if filter.Deleted != nil {
			if *filter.Deleted {
				conditions = append(conditions, "t.deleted_by_sender_at IS NOT NULL")
			} else {
				conditions = append(conditions, "t.deleted_by_sender_at IS NULL")
			}
		}

	default:
		return "", nil, fmt.Errorf("unknown inbox view %q", filter.View)
	}

	// A retracted body is never shown, so it must not be searchable either.
	if filter.Query != nil && *filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			`((%s IS NULL AND t.body LIKE ? ESCAPE '\') OR t.type LIKE ? ESCAPE '\')`, deletedCol))
		q := ContainsPattern(*filter.Query)
		args = append(args, q, q)
	}

	query := "SELECT " + selectList
	if count {
		query = "SELECT COUNT(*)"
	}
	query += from + " WHERE " + strings.Join(conditions, " AND ")
	if count {
		return query, args, nil
	}

	sortBy := "t.created_at"
	if filter.SortBy != "" {
		allowed := map[string]string{
			"created_at":     "t.created_at",
			"execution_date": "t.execution_date",
			"type":           "t.type",
		}
		if filter.View != model.ViewSent {
			allowed["status"] = "a.status"
		}
		if col, ok := allowed[filter.SortBy]; ok {
			sortBy = col
		}
	}
	direction := "DESC"
	if filter.SortBy != "" && !filter.SortDesc {
		direction = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, t.id ASC", sortBy, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	return query, args, nil
}

// ContainsPattern builds a LIKE pattern matching s as a literal substring.
// Use it with ESCAPE '\'.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
