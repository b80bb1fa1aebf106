package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Batch is a scoped transaction for applying a group of entries
// all-or-nothing. A received sync batch is observed by concurrent readers
// either fully applied or not at all.
type Batch struct {
	tx   *sql.Tx
	done bool
}

// Begin starts a batch transaction.
func (db *DB) Begin(ctx context.Context) (*Batch, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch: %w", err)
	}
	return &Batch{tx: tx}, nil
}

// InsertIfAbsent stages an entry inside the batch transaction. Same
// semantics as DB.InsertIfAbsent: duplicates are silently ignored.
func (b *Batch) InsertIfAbsent(ctx context.Context, entry *Entry) error {
	entry.Identify()

	_, err := b.tx.ExecContext(ctx, insertEntry,
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

// Commit makes the whole batch visible.
func (b *Batch) Commit() error {
	b.done = true
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Rollback discards the batch. Safe to call after Commit, so it can be
// deferred as a cleanup.
func (b *Batch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}
