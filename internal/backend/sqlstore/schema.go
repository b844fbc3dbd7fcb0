package sqlstore

// The schema is written in the subset of SQL shared by SQLite and Postgres.
// Statements run one at a time so the Postgres driver can use the extended protocol.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS lists (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
)`,
	`CREATE TABLE IF NOT EXISTS list_items (
	id         TEXT PRIMARY KEY,
	list_id    TEXT NOT NULL REFERENCES lists(id),
	name       TEXT NOT NULL,
	code_name  TEXT,
	parent_id  TEXT REFERENCES list_items(id),
	sort_order INTEGER,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE INDEX IF NOT EXISTS idx_list_items_list ON list_items(list_id)`,
	`CREATE INDEX IF NOT EXISTS idx_list_items_parent ON list_items(parent_id)`,
	`CREATE TABLE IF NOT EXISTS rec_requests (
	id             TEXT PRIMARY KEY,
	share_token    TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL,
	context        TEXT NOT NULL DEFAULT '',
	category_id    TEXT REFERENCES list_items(id),
	subcategory_id TEXT REFERENCES list_items(id),
	area_id        TEXT NOT NULL REFERENCES list_items(id),
	is_public      BOOLEAN NOT NULL DEFAULT TRUE,
	status         TEXT NOT NULL DEFAULT 'open',
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_rec_requests_area ON rec_requests(area_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rec_requests_created ON rec_requests(created_at)`,
	`CREATE TABLE IF NOT EXISTS rec_responses (
	id             TEXT PRIMARY KEY,
	request_id     TEXT NOT NULL REFERENCES rec_requests(id) ON DELETE CASCADE,
	responder_name TEXT NOT NULL DEFAULT '',
	business_name  TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	instagram      TEXT NOT NULL DEFAULT '',
	website        TEXT NOT NULL DEFAULT '',
	location       TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	is_guest       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at     TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_rec_responses_request ON rec_responses(request_id)`,
	`CREATE TABLE IF NOT EXISTS vouch_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`,
}
