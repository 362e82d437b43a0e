package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notification_state (
	record_id     TEXT PRIMARY KEY,
	discriminator TEXT NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS deliveries (
	id        TEXT PRIMARY KEY,
	record_id TEXT NOT NULL,
	kind      TEXT NOT NULL,
	message   TEXT NOT NULL,
	sent_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_deliveries_record_id
	ON deliveries(record_id);

CREATE INDEX IF NOT EXISTS idx_deliveries_sent_at
	ON deliveries(sent_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
