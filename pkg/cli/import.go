package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/i-tub/dshdb/pkg/importer"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a shell history listing",
		Long: `Import a history listing from a file or stdin.

The input must be the output of

    HISTTIMEFORMAT='%s%t' history

in bash. Entries already present are skipped, so importing overlapping
listings repeatedly is harmless.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args)
		},
	}
}

func runImport(cmd *cobra.Command, rootOpts *RootOptions, args []string) error {
	_, db, err := openStore(rootOpts)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	var input io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() {
			_ = file.Close()
		}()
		input = file
	}

	hostname, err := os.Hostname()
	if err != nil {
		return err
	}

	result, err := importer.Import(cmd.Context(), db, input, importer.Metadata{Hostname: hostname})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d of %d entries\n", result.Inserted, result.Parsed)
	return nil
}
