package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
//
// Every key has a row in kv carrying its kind and expiry; list entries and
// set members live in side tables keyed by the parent key. expires_at is
// unix milliseconds, NULL for keys that never expire.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create kv tables",
		SQL: `
			CREATE TABLE kv (
				key        TEXT PRIMARY KEY,
				kind       TEXT NOT NULL CHECK (kind IN ('value', 'list', 'set', 'counter')),
				value      BLOB,
				count      INTEGER NOT NULL DEFAULT 0,
				expires_at INTEGER
			);

			CREATE INDEX idx_kv_expires ON kv (expires_at) WHERE expires_at IS NOT NULL;

			CREATE TABLE kv_list (
				key   TEXT NOT NULL,
				seq   INTEGER NOT NULL,
				value BLOB NOT NULL,
				PRIMARY KEY (key, seq)
			);

			CREATE TABLE kv_set (
				key    TEXT NOT NULL,
				member TEXT NOT NULL,
				PRIMARY KEY (key, member)
			);
		`,
	},
}
