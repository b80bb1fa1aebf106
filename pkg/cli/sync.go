package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i-tub/dshdb/pkg/syncer"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <target>",
		Short: "Synchronize history with a peer",
		Long: `Synchronize the local history with a peer's, both directions.

The target follows scp conventions:

  dshdb sync otherhost              peer's default history over ssh
  dshdb sync otherhost:.hist.db     explicit history file over ssh
  dshdb sync /backup/hist.db        another local history file

Syncing is idempotent; rerunning after a failure is always safe.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, rootOpts, args[0])
		},
	}
}

func runSync(cmd *cobra.Command, rootOpts *RootOptions, target string) error {
	cfg, db, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := syncer.Dial(target, syncer.DialConfig{
		RemoteShell:  cfg.Sync.RemoteShell,
		ServeCommand: []string{cfg.Sync.RemoteCommand, "serve"},
		HistfileFlag: "--histfile",
	})
	if err != nil {
		return err
	}

	// An interrupt unblocks the session by tearing down the transport;
	// committed batches are untouched.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	client := syncer.NewClient(db, newLogger(rootOpts.Verbose))
	_, err = client.Sync(ctx, conn)
	close(done)
	if ctx.Err() != nil {
		// Operator cancel: exit quietly without further reporting.
		return nil
	}
	if err != nil {
		_ = conn.Close()
		return err
	}

	return conn.Close()
}
