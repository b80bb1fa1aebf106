package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/i-tub/dshdb/pkg/syncer"
)

// NewServeCommand creates the hidden serve command: the responder end of
// a sync session, speaking the wire protocol on stdin/stdout. It is
// started by a peer's sync command (possibly through ssh), never by hand.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Answer a sync session on stdin/stdout",
		Hidden:        true,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions) error {
	_, db, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)
	defer stop()

	server := syncer.NewServer(db, newLogger(rootOpts.Verbose))
	err = server.Serve(ctx, stdio{cmd.InOrStdin(), cmd.OutOrStdout()})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
