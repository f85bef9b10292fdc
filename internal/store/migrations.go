package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
//
// Timestamps are stored as fixed-width UTC text (see timeLayout) so that
// age predicates compare correctly as strings.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS areas (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cities (
	id      TEXT PRIMARY KEY,
	area_id TEXT NOT NULL REFERENCES areas(id),
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	full_name  TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL CHECK(role IN
		('SUPERADMIN', 'AREA_MANAGER', 'CITY_COORDINATOR', 'ACTIVIST_COORDINATOR')),
	area_id    TEXT REFERENCES areas(id),
	city_id    TEXT REFERENCES cities(id),
	active     INTEGER NOT NULL DEFAULT 1 CHECK(active IN (0, 1)),
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cities_area_id ON cities(area_id);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
CREATE INDEX IF NOT EXISTS idx_users_area_id ON users(area_id);
CREATE INDEX IF NOT EXISTS idx_users_city_id ON users(city_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS tasks (
	id                   TEXT PRIMARY KEY,
	sender_user_id       TEXT NOT NULL,
	body                 TEXT NOT NULL,
	type                 TEXT NOT NULL DEFAULT '',
	execution_date       TEXT NOT NULL,
	created_at           TEXT NOT NULL,
	recipients_count     INTEGER NOT NULL CHECK(recipients_count > 0),
	deleted_by_sender_at TEXT
);

CREATE TABLE IF NOT EXISTS task_assignments (
	task_id                  TEXT NOT NULL REFERENCES tasks(id),
	target_user_id           TEXT NOT NULL,
	status                   TEXT NOT NULL DEFAULT 'unread' CHECK(status IN
		('unread', 'read', 'acknowledged', 'archived')),
	created_at               TEXT NOT NULL,
	read_at                  TEXT,
	acknowledged_at          TEXT,
	archived_at              TEXT,
	deleted_for_recipient_at TEXT,
	PRIMARY KEY (task_id, target_user_id)
);

CREATE INDEX IF NOT EXISTS idx_tasks_sender_created ON tasks(sender_user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_target_status ON task_assignments(target_user_id, status);
CREATE INDEX IF NOT EXISTS idx_assignments_created_at ON task_assignments(created_at);
CREATE INDEX IF NOT EXISTS idx_assignments_deleted_at ON task_assignments(deleted_for_recipient_at);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	task_id      TEXT NOT NULL,
	recipient_id TEXT NOT NULL,
	message      TEXT NOT NULL,
	read         INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	actor_id    TEXT NOT NULL,
	before_json TEXT,
	after_json  TEXT,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entity ON audit_log(entity_type, entity_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
