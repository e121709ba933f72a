package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/dlis"
)

// labelCmd represents the label command
var labelCmd = &cobra.Command{
	Use:   "label <file>",
	Short: "Show the storage unit label of a DLIS file",
	Long: `Show the storage unit label of a DLIS file.

Example:
  welllog label well.dlis`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLabel(cmd.OutOrStdout(), current, args[0])
	},
}

func runLabel(w io.Writer, e *env, path string) error {
	f, err := dlis.Open(path, e.dlisOptions())
	if err != nil {
		return err
	}
	defer f.Close()

	sul, err := f.StorageLabel()
	if err != nil {
		return err
	}

	if e.format == "json" {
		return writeJSON(w, sul)
	}
	t := newTable(w)
	defer t.Flush()
	fmt.Fprintf(t, "Sequence:\t%d\n", sul.Sequence)
	fmt.Fprintf(t, "Version:\t%s\n", sul.Version)
	fmt.Fprintf(t, "Layout:\t%s\n", sul.Layout)
	fmt.Fprintf(t, "Max length:\t%d\n", sul.MaxLength)
	fmt.Fprintf(t, "ID:\t%s\n", sul.ID)
	fmt.Fprintf(t, "Tape image:\t%t\n", f.TapeImage())
	return nil
}

func init() {
	rootCmd.AddCommand(labelCmd)
}
