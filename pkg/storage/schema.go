package storage

// Entry represents a single recorded command execution.
//
// Entries are immutable: once stored they are never updated or deleted,
// only inserted. ID is derived from the identity fields (see EntryID) and
// is the primary key, so re-recording the same execution is a no-op.
type Entry struct {
	ID        string `db:"id"`
	Session   string `db:"session"`
	Pwd       string `db:"pwd"`
	Timestamp int64  `db:"timestamp"` // unix seconds on the originating host
	Elapsed   int64  `db:"elapsed"`   // duration in seconds
	Cmd       string `db:"cmd"`       // may contain embedded newlines
	Hostname  string `db:"hostname"`
	Status    int64  `db:"status"` // process exit status
	Idx       int64  `db:"idx"`    // ordinal in the source history feed, not part of identity
}

// Schema versions for migration tracking
const (
	SchemaVersion1 = 1
	CurrentSchema  = SchemaVersion1
)

// SQL schema for version 1
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hist (
    id TEXT PRIMARY KEY,
    session TEXT,
    pwd TEXT,
    timestamp INTEGER NOT NULL,
    elapsed INTEGER,
    cmd TEXT NOT NULL,
    hostname TEXT,
    status INTEGER,
    idx INTEGER
);

CREATE INDEX IF NOT EXISTS idx_hist_timestamp ON hist(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_hist_cmd ON hist(cmd);
CREATE INDEX IF NOT EXISTS idx_hist_session ON hist(session);
`

// GetSchema returns the SQL schema for the given version
func GetSchema(version int) string {
	switch version {
	case SchemaVersion1:
		return schemaV1
	default:
		return ""
	}
}
