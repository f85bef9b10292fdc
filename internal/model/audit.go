package model

import "time"

// AuditAction names the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditSweep  AuditAction = "sweep"
)

// Audited entity types.
const (
	EntityTask           = "task"
	EntityTaskAssignment = "task_assignment"
	EntitySweep          = "archival_sweep"
)

// SystemActor is the actor id of mutations no user initiated.
const SystemActor = "system"

// AuditEntry is a before/after snapshot of one mutation.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     AuditAction    `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
