// Package cli wires the dshdb commands together.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/i-tub/dshdb/pkg/config"
	"github.com/i-tub/dshdb/pkg/format"
	"github.com/i-tub/dshdb/pkg/storage"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Histfile string // history file override, empty = configured default
	Verbose  bool
}

// QueryOptions holds flags for the default query command.
type QueryOptions struct {
	Session       string
	Dir           string
	Cmd           string
	Hostname      string
	Full          bool
	All           bool
	Group         bool
	Dedup         bool
	Chronological bool
	Exact         bool
	Format        string
	Limit         int
}

// NewRootCommand creates the dshdb root command. Running it with no
// subcommand queries the history.
func NewRootCommand() *cobra.Command {
	rootOpts := &RootOptions{}
	queryOpts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "dshdb",
		Short: "Distributed shell history database",
		Long: `dshdb records shell command history in a local SQLite store and
synchronizes it with peers over ssh or a local pipe.

With no subcommand it queries the history; the flags below filter and
shape the output. Use "." for --session, --dir, or --hostname to mean
the current session, directory, or host.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, queryOpts)
		},
	}

	cmd.PersistentFlags().StringVar(&rootOpts.Histfile, "histfile", "", "history file to use (default from config)")
	cmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")

	flags := cmd.Flags()
	flags.StringVarP(&queryOpts.Session, "session", "s", "", "search by session ID (\".\" = current session)")
	flags.StringVarP(&queryOpts.Dir, "dir", "d", "", "search by directory (\".\" = current directory)")
	flags.StringVarP(&queryOpts.Cmd, "cmd", "c", "", "search by command")
	flags.StringVarP(&queryOpts.Hostname, "hostname", "H", "", "search by hostname (\".\" = localhost)")
	flags.BoolVarP(&queryOpts.Full, "full", "f", false, "full output, including session ID, PWD, and elapsed time")
	flags.BoolVarP(&queryOpts.All, "all", "a", false, "return all results")
	flags.BoolVarP(&queryOpts.Group, "group", "g", false, "group results by date")
	flags.BoolVarP(&queryOpts.Dedup, "dedup", "u", false, "deduplicate by command")
	flags.BoolVarP(&queryOpts.Chronological, "chronological", "r", false, "sort output chronologically")
	flags.BoolVarP(&queryOpts.Exact, "exact", "w", false, "use exact match for command")
	flags.StringVar(&queryOpts.Format, "format", "", "output columns (letters from thsdDecx)")
	flags.IntVarP(&queryOpts.Limit, "number", "n", 0, "number of results to return (default from config)")

	cmd.AddCommand(NewSyncCommand(rootOpts))
	cmd.AddCommand(NewServeCommand(rootOpts))
	cmd.AddCommand(NewImportCommand(rootOpts))
	cmd.AddCommand(NewAddCommand(rootOpts))
	cmd.AddCommand(NewSessionCommand())

	return cmd
}

func runQuery(cmd *cobra.Command, rootOpts *RootOptions, opts *QueryOptions) error {
	cfg, db, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	filters, err := buildFilters(cfg, opts)
	if err != nil {
		return err
	}

	entries, err := db.Query(cmd.Context(), filters)
	if err != nil {
		return err
	}

	spec := opts.Format
	if spec == "" && !opts.Full {
		spec = format.ShortSpec
	}
	home, _ := os.UserHomeDir()
	formatter, err := format.NewFormatter(spec, home, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	colorize := false
	if f, ok := out.(*os.File); ok {
		colorize = term.IsTerminal(int(f.Fd()))
	}

	printer := format.NewPrinter(out, formatter, opts.Group, colorize)
	return printer.PrintAll(entries)
}

// buildFilters resolves "." placeholders against the calling environment
// and turns the flag values into storage filters.
func buildFilters(cfg *config.Config, opts *QueryOptions) (storage.QueryFilters, error) {
	filters := storage.QueryFilters{
		Session:       opts.Session,
		Pwd:           opts.Dir,
		Cmd:           opts.Cmd,
		Hostname:      opts.Hostname,
		Exact:         opts.Exact,
		Dedup:         opts.Dedup,
		Chronological: opts.Chronological,
	}

	if filters.Session == "." {
		filters.Session = os.Getenv(sessionEnv)
	}
	if filters.Pwd == "." {
		pwd, err := os.Getwd()
		if err != nil {
			return filters, err
		}
		filters.Pwd = pwd
	}
	if filters.Hostname == "." {
		host, err := os.Hostname()
		if err != nil {
			return filters, err
		}
		filters.Hostname = host
	}

	switch {
	case opts.All:
		filters.Limit = 0
	case opts.Limit > 0:
		filters.Limit = opts.Limit
	default:
		filters.Limit = cfg.Query.Limit
	}

	return filters, nil
}
