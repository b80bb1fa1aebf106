package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Watermarks maps a hostname to the latest timestamp recorded for it.
// It is derived on demand via HostTimestamps, consumed during one sync
// round, and discarded; it is never persisted.
type Watermarks map[string]int64

// Store defines the operations the rest of the system needs from the
// history database.
type Store interface {
	InsertIfAbsent(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filters QueryFilters) ([]*Entry, error)
	HostTimestamps(ctx context.Context) (Watermarks, error)
	NewerThan(ctx context.Context, marks Watermarks) ([]*Entry, error)
	Begin(ctx context.Context) (*Batch, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

var _ Store = (*DB)(nil)

// QueryFilters defines filters for querying history
type QueryFilters struct {
	Session       string // LIKE pattern on session ID
	Pwd           string // LIKE pattern on working directory
	Cmd           string // LIKE pattern on command (substring unless Exact)
	Hostname      string // LIKE pattern on hostname
	Exact         bool   // Match Cmd exactly instead of as substring
	Dedup         bool   // Collapse repeated commands, keeping the latest
	Chronological bool   // Oldest first instead of newest first
	Limit         int    // Max results (0 = unlimited)
}

const entryColumns = "id, session, pwd, timestamp, elapsed, cmd, hostname, status, idx"

const insertEntry = `
	INSERT INTO hist (` + entryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING
`

// InsertIfAbsent stores an entry keyed by its content hash. Inserting an
// entry whose ID is already present is a no-op, not an error, so the call
// is idempotent and commutative with any other insert.
func (db *DB) InsertIfAbsent(ctx context.Context, entry *Entry) error {
	entry.Identify()

	_, err := db.conn.ExecContext(ctx, insertEntry,
		entry.ID,
		entry.Session,
		entry.Pwd,
		entry.Timestamp,
		entry.Elapsed,
		entry.Cmd,
		entry.Hostname,
		entry.Status,
		entry.Idx,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	return nil
}

// Query retrieves history entries matching the given filters, ordered by
// (timestamp, idx). Newest first by default; idx breaks ties between
// entries recorded in the same second.
func (db *DB) Query(ctx context.Context, filters QueryFilters) ([]*Entry, error) {
	query := "SELECT " + entryColumns + " FROM hist WHERE 1=1"
	args := []interface{}{}

	if filters.Session != "" {
		query += " AND session LIKE ?"
		args = append(args, filters.Session)
	}

	if filters.Pwd != "" {
		query += " AND pwd LIKE ?"
		args = append(args, filters.Pwd)
	}

	if filters.Cmd != "" {
		query += " AND cmd LIKE ?"
		if filters.Exact {
			args = append(args, filters.Cmd)
		} else {
			args = append(args, "%"+filters.Cmd+"%")
		}
	}

	if filters.Hostname != "" {
		query += " AND hostname LIKE ?"
		args = append(args, filters.Hostname)
	}

	if filters.Dedup {
		query += " GROUP BY cmd"
	}

	query += " ORDER BY timestamp DESC, idx DESC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	// Chronological mode still selects the newest entries; it only
	// re-orders them oldest first for display.
	if filters.Chronological {
		query = "SELECT " + entryColumns + " FROM (" + query + ") ORDER BY timestamp ASC, idx ASC"
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanEntries(rows)
}

// HostTimestamps returns the watermark map: for each hostname present in
// the store, the maximum timestamp recorded for it.
func (db *DB) HostTimestamps(ctx context.Context) (Watermarks, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT hostname, MAX(timestamp) FROM hist GROUP BY hostname")
	if err != nil {
		return nil, fmt.Errorf("failed to query host timestamps: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	marks := Watermarks{}
	for rows.Next() {
		var host string
		var ts int64
		if err := rows.Scan(&host, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan host timestamp: %w", err)
		}
		marks[host] = ts
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return marks, nil
}

// NewerThan returns every entry the given watermark map does not account
// for: entries whose hostname is absent from marks, or whose timestamp is
// strictly greater than the mark for their host. This single query drives
// incremental transfer in both directions of a sync.
//
// Known limitation: if a host's clock moved backward between imports,
// entries at or below its previously observed maximum are never selected
// even though the peer lacks them. The watermark is a per-host maximum,
// not a vector clock.
func (db *DB) NewerThan(ctx context.Context, marks Watermarks) ([]*Entry, error) {
	query := "SELECT " + entryColumns + " FROM hist"
	args := []interface{}{}

	first := true
	for host, ts := range marks {
		if first {
			query += " WHERE"
			first = false
		} else {
			query += " AND"
		}
		query += " NOT (hostname = ? AND timestamp <= ?)"
		args = append(args, host, ts)
	}
	query += " ORDER BY timestamp ASC, idx ASC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query newer entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanEntries(rows)
}

// Count returns the total number of history entries
func (db *DB) Count(ctx context.Context) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM hist").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Session,
			&entry.Pwd,
			&entry.Timestamp,
			&entry.Elapsed,
			&entry.Cmd,
			&entry.Hostname,
			&entry.Status,
			&entry.Idx,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}
