package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/i-tub/dshdb/pkg/config"
	"github.com/i-tub/dshdb/pkg/storage"
)

// sessionEnv names the environment variable shell hooks set to a fresh
// session ID (see the session command).
const sessionEnv = "HIST_SESSION_ID"

// openStore loads the configuration and opens the history database,
// honoring the --histfile override.
func openStore(opts *RootOptions) (*config.Config, *storage.DB, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, nil, err
	}

	path := opts.Histfile
	if path == "" {
		path = cfg.Database.Path
	}

	db, err := storage.Open(path)
	if err != nil {
		return nil, nil, err
	}

	return cfg, db, nil
}

// newLogger builds the stderr logger. Sync diagnostics are informational;
// by default only warnings surface so shell hooks stay quiet.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// stdio is a duplex stream over the process's own stdin/stdout, used by
// the serve command.
type stdio struct {
	io.Reader
	io.Writer
}
