// Package syncer implements both roles of the history replication dialog.
//
// A full sync always runs pull-then-push: the initiator first fetches
// everything the peer has that it lacks, then sends back everything the
// (now-updated) local store has that the peer lacks. Because inserts are
// keyed by content hash and duplicates are ignored, re-running a sync, or
// running overlapping syncs, converges on the union of both stores with
// no coordination.
//
// Reads block with no timeout. A stalled peer stalls the session; layering
// deadlines belongs to the caller via the injected transport, not to the
// protocol state machine.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/i-tub/dshdb/pkg/protocol"
	"github.com/i-tub/dshdb/pkg/storage"
)

// Result summarizes one full sync round.
type Result struct {
	Pulled int // entries received from the peer
	Pushed int // entries sent to the peer
}

// Client is the initiator role of a sync session.
type Client struct {
	store  storage.Store
	logger *slog.Logger
}

// NewClient creates an initiator syncing the given store.
func NewClient(store storage.Store, logger *slog.Logger) *Client {
	return &Client{store: store, logger: logger}
}

// Sync runs one full bidirectional round over the connection. Any
// unexpected message or transport failure aborts the remaining steps;
// batches already committed stay committed, and re-invoking Sync is
// always safe.
func (c *Client) Sync(ctx context.Context, conn io.ReadWriter) (*Result, error) {
	enc := protocol.NewEncoder(conn)
	dec := protocol.NewDecoder(conn)

	if err := dec.ExpectToken(protocol.TokenReady); err != nil {
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	local, err := c.store.HostTimestamps(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("requesting entries newer than local watermarks", "marks", local)

	if err := enc.WriteRequest(protocol.Request{Cmd: protocol.CmdPull, Marks: local}); err != nil {
		return nil, fmt.Errorf("failed to send PULL: %w", err)
	}
	pulled, err := recvEntries(ctx, dec, c.store)
	if err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}
	c.logger.Info("rows transmitted", "count", pulled)

	if err := enc.WriteRequest(protocol.Request{Cmd: protocol.CmdGetTimestamps}); err != nil {
		return nil, fmt.Errorf("failed to send GET_TIMESTAMPS: %w", err)
	}
	remote, err := dec.ReadMarks()
	if err != nil {
		return nil, fmt.Errorf("failed to read peer watermarks: %w", err)
	}
	c.logger.Info("sending entries newer than peer watermarks", "marks", remote)

	if err := enc.WriteRequest(protocol.Request{Cmd: protocol.CmdPush}); err != nil {
		return nil, fmt.Errorf("failed to send PUSH: %w", err)
	}
	pushed, err := sendEntries(ctx, enc, c.store, remote)
	if err != nil {
		return nil, fmt.Errorf("push failed: %w", err)
	}

	if err := enc.WriteRequest(protocol.Request{Cmd: protocol.CmdBye}); err != nil {
		return nil, fmt.Errorf("failed to send BYE: %w", err)
	}

	return &Result{Pulled: pulled, Pushed: pushed}, nil
}
