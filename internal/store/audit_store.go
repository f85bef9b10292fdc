package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

type auditRow struct {
	ID         string         `db:"id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   string         `db:"entity_id"`
	ActorID    string         `db:"actor_id"`
	BeforeJSON sql.NullString `db:"before_json"`
	AfterJSON  sql.NullString `db:"after_json"`
	CreatedAt  nullTime       `db:"created_at"`
}

// AppendAudit persists one audit entry. The log is append-only.
func (s *SQLiteStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return fmt.Errorf("marshaling audit before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return fmt.Errorf("marshaling audit after snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			id, action, entity_type, entity_id, actor_id,
			before_json, after_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Action), entry.EntityType, entry.EntityID,
		entry.ActorID, before, after, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("appending audit entry for %s %s: %w",
			entry.EntityType, entry.EntityID, err)
	}
	return nil
}

// ListAudit returns the audit trail of one entity, oldest first.
func (s *SQLiteStore) ListAudit(
	ctx context.Context,
	entityType, entityID string,
) ([]model.AuditEntry, error) {
	var rows []auditRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `
		SELECT id, action, entity_type, entity_id, actor_id,
			before_json, after_json, created_at
		FROM audit_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at, id`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log of %s %s: %w", entityType, entityID, err)
	}

	out := make([]model.AuditEntry, 0, len(rows))
	for _, r := range rows {
		e := model.AuditEntry{
			ID:         r.ID,
			Action:     model.AuditAction(r.Action),
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			ActorID:    r.ActorID,
			CreatedAt:  r.CreatedAt.Time,
		}
		if r.BeforeJSON.Valid {
			if err := json.Unmarshal([]byte(r.BeforeJSON.String), &e.Before); err != nil {
				return nil, fmt.Errorf("unmarshaling audit before snapshot %s: %w", r.ID, err)
			}
		}
		if r.AfterJSON.Valid {
			if err := json.Unmarshal([]byte(r.AfterJSON.String), &e.After); err != nil {
				return nil, fmt.Errorf("unmarshaling audit after snapshot %s: %w", r.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func marshalSnapshot(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
