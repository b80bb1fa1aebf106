package syncer

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/i-tub/dshdb/pkg/protocol"
	"github.com/i-tub/dshdb/pkg/storage"
)

// Server is the responder role of a sync session. It never initiates:
// after announcing READY it answers one request at a time until the
// initiator says BYE or the stream dies.
type Server struct {
	store  storage.Store
	logger *slog.Logger
}

// NewServer creates a responder serving the given store.
func NewServer(store storage.Store, logger *slog.Logger) *Server {
	return &Server{store: store, logger: logger}
}

// Serve runs the responder loop over one connection. It returns nil on a
// clean BYE and an error on any protocol violation or transport failure.
// Requests are handled strictly one at a time; there is no pipelining.
func (s *Server) Serve(ctx context.Context, conn io.ReadWriter) error {
	enc := protocol.NewEncoder(conn)
	dec := protocol.NewDecoder(conn)

	if err := enc.WriteToken(protocol.TokenReady); err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	for {
		req, err := dec.ReadRequest()
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}

		switch req.Cmd {
		case protocol.CmdBye:
			return nil

		case protocol.CmdPull:
			n, err := sendEntries(ctx, enc, s.store, req.Marks)
			if err != nil {
				return fmt.Errorf("failed to serve PULL: %w", err)
			}
			s.logger.Debug("served pull", "entries", n)

		case protocol.CmdGetTimestamps:
			marks, err := s.store.HostTimestamps(ctx)
			if err != nil {
				return fmt.Errorf("failed to serve GET_TIMESTAMPS: %w", err)
			}
			if err := enc.WriteMarks(marks); err != nil {
				return fmt.Errorf("failed to serve GET_TIMESTAMPS: %w", err)
			}

		case protocol.CmdPush:
			n, err := recvEntries(ctx, dec, s.store)
			if err != nil {
				return fmt.Errorf("failed to serve PUSH: %w", err)
			}
			s.logger.Info("rows transmitted", "count", n)

		default:
			s.logger.Warn("unrecognized request", "command", string(req.Cmd))
			if err := enc.WriteToken(protocol.TokenUnknown); err != nil {
				return fmt.Errorf("failed to reject request: %w", err)
			}
		}
	}
}
