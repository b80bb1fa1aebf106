package syncer

import (
	"context"

	"github.com/i-tub/dshdb/pkg/protocol"
	"github.com/i-tub/dshdb/pkg/storage"
)

// sendEntries streams every stored entry the given watermarks do not
// account for, framed between BEGIN and END.
func sendEntries(ctx context.Context, enc *protocol.Encoder, store storage.Store, marks storage.Watermarks) (int, error) {
	entries, err := store.NewerThan(ctx, marks)
	if err != nil {
		return 0, err
	}

	if err := enc.WriteToken(protocol.TokenBegin); err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if err := enc.WriteEntry(entry); err != nil {
			return 0, err
		}
	}
	if err := enc.WriteToken(protocol.TokenEnd); err != nil {
		return 0, err
	}

	return len(entries), nil
}

// recvEntries reads one BEGIN...END batch and applies it to the store in
// a single transaction. If the stream breaks or a message is malformed
// before END arrives, the whole batch rolls back; batches committed
// earlier in the session stay applied.
func recvEntries(ctx context.Context, dec *protocol.Decoder, store storage.Store) (int, error) {
	if err := dec.ExpectToken(protocol.TokenBegin); err != nil {
		return 0, err
	}

	batch, err := store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = batch.Rollback()
	}()

	n := 0
	for {
		entry, done, err := dec.ReadBatchItem()
		if err != nil {
			return 0, err
		}
		if done {
			break
		}
		if err := batch.InsertIfAbsent(ctx, entry); err != nil {
			return 0, err
		}
		n++
	}

	if err := batch.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
