package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/i-tub/dshdb/pkg/storage"
)

// NewAddCommand creates the add command, the shell-hook entry point that
// records one command execution.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		session string
		pwd     string
		ts      int64
		elapsed int64
		status  int64
		idx     int64
	)

	cmd := &cobra.Command{
		Use:   "add [flags] -- <command>...",
		Short: "Record one command execution",
		Long: `Record one command execution, typically from a shell hook:

    dshdb add --elapsed $SECONDS --status $? --idx $HISTCMD -- "$last_cmd"

Session defaults to $` + sessionEnv + `, pwd to the current directory, and
timestamp to now. Recording the same execution twice is a no-op.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := &storage.Entry{
				Session:   session,
				Pwd:       pwd,
				Timestamp: ts,
				Elapsed:   elapsed,
				Cmd:       strings.Join(args, " "),
				Status:    status,
				Idx:       idx,
			}
			return runAdd(cmd, rootOpts, entry)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&session, "session", "", "session ID (default $"+sessionEnv+")")
	flags.StringVar(&pwd, "pwd", "", "working directory (default current)")
	flags.Int64Var(&ts, "timestamp", 0, "unix timestamp (default now)")
	flags.Int64Var(&elapsed, "elapsed", 0, "command duration in seconds")
	flags.Int64Var(&status, "status", 0, "exit status")
	flags.Int64Var(&idx, "idx", 0, "history ordinal")

	return cmd
}

func runAdd(cmd *cobra.Command, rootOpts *RootOptions, entry *storage.Entry) error {
	if entry.Session == "" {
		entry.Session = os.Getenv(sessionEnv)
	}
	if entry.Pwd == "" {
		pwd, err := os.Getwd()
		if err != nil {
			return err
		}
		entry.Pwd = pwd
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().Unix()
	}

	hostname, err := os.Hostname()
	if err != nil {
		return err
	}
	entry.Hostname = hostname

	_, db, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	// Silent on success: shell hooks run this after every command.
	return db.InsertIfAbsent(cmd.Context(), entry)
}

// NewSessionCommand creates the session command, which mints a session ID
// for shell init files to export as $HIST_SESSION_ID.
func NewSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Print a fresh session ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), uuid.NewString())
			return err
		},
	}
}
