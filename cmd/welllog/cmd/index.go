package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/dlis"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "List the logical records of each logical file",
	Long: `List the explicit and implicit logical records of each logical file
in a DLIS file.

Example:
  welllog index well.dlis
  welllog index -o json well.dlis`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex(cmd.OutOrStdout(), current, args[0])
	},
}

type indexedRecord struct {
	Offset   int64  `json:"offset"`
	Tag      string `json:"tag"`
	Type     int    `json:"type"`
	Segments int    `json:"segments"`
}

type indexedFile struct {
	LogicalFile int             `json:"logical_file"`
	Explicits   []indexedRecord `json:"explicits"`
	Implicits   []indexedRecord `json:"implicits"`
	Broken      []int64         `json:"broken,omitempty"`
}

func indexedRecords(entries []dlis.Entry) []indexedRecord {
	out := make([]indexedRecord, len(entries))
	for i, e := range entries {
		out[i] = indexedRecord{Offset: e.Offset, Tag: e.Tag().String(), Type: e.Type, Segments: e.Segments}
	}
	return out
}

func runIndex(w io.Writer, e *env, path string) error {
	files, err := dlis.Load(path, e.dlisOptions())
	if err != nil {
		return err
	}
	defer files.Close()

	out := make([]indexedFile, len(files))
	for i, lf := range files {
		out[i] = indexedFile{
			LogicalFile: i,
			Explicits:   indexedRecords(lf.Index.Explicits()),
			Implicits:   indexedRecords(lf.Index.Implicits()),
			Broken:      lf.Index.Broken,
		}
	}

	if e.format == "json" {
		return writeJSON(w, out)
	}
	t := newTable(w)
	defer t.Flush()
	fmt.Fprintln(t, "LF\tOFFSET\tKIND\tTAG\tTYPE\tSEGMENTS")
	for _, f := range out {
		for _, r := range f.Explicits {
			fmt.Fprintf(t, "%d\t%d\texplicit\t%s\t%d\t%d\n", f.LogicalFile, r.Offset, r.Tag, r.Type, r.Segments)
		}
		for _, r := range f.Implicits {
			fmt.Fprintf(t, "%d\t%d\timplicit\t%s\t%d\t%d\n", f.LogicalFile, r.Offset, r.Tag, r.Type, r.Segments)
		}
		for _, off := range f.Broken {
			fmt.Fprintf(t, "%d\t%d\tbroken\t-\t-\t-\n", f.LogicalFile, off)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
