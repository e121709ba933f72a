package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/lis"
)

var lisCurves bool

// lisCmd represents the lis command
var lisCmd = &cobra.Command{
	Use:   "lis <file>",
	Short: "Show the logical files and records of a LIS file",
	Long: `Show the logical files of a LIS file with the type of each logical
record, and optionally decode the frames of every data format specification.

Example:
  welllog lis well.lis
  welllog lis --curves -o json well.tif`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLIS(cmd.OutOrStdout(), current, args[0], lisCurves)
	},
}

type lisRecord struct {
	Offset int64  `json:"offset"`
	Type   string `json:"type"`
	Code   uint8  `json:"code"`
}

type lisCurveSet struct {
	Offset  int64        `json:"dfsr_offset"`
	Format  string       `json:"format"`
	Rows    int          `json:"rows"`
	Depths  []float64    `json:"depths,omitempty"`
	Columns []lis.Column `json:"columns"`
}

type lisFile struct {
	LogicalFile int                   `json:"logical_file"`
	Header      *lis.FileHeaderRecord `json:"header,omitempty"`
	Explicits   []lisRecord           `json:"explicits"`
	Implicits   []lisRecord           `json:"implicits"`
	Curves      []lisCurveSet         `json:"curves,omitempty"`
}

func lisRecords(entries []lis.Entry) []lisRecord {
	out := make([]lisRecord, len(entries))
	for i, e := range entries {
		out[i] = lisRecord{Offset: e.Offset, Type: e.Type.String(), Code: e.Code}
	}
	return out
}

func runLIS(w io.Writer, e *env, path string, withCurves bool) error {
	files, err := lis.Load(path, e.lisOptions())
	if err != nil {
		return err
	}
	defer files.Close()

	out := make([]lisFile, 0, files.Len())
	for i, lf := range files.Logical {
		f := lisFile{
			LogicalFile: i,
			Explicits:   lisRecords(lf.Index.Explicits()),
			Implicits:   lisRecords(lf.Index.Implicits()),
		}
		if h, err := lf.Header(); err == nil {
			f.Header = h
		}
		if withCurves {
			specs, err := lf.FormatSpecs()
			if err != nil {
				return err
			}
			for _, spec := range specs {
				c, err := lf.Curves(spec)
				if err != nil {
					return err
				}
				f.Curves = append(f.Curves, lisCurveSet{
					Offset:  spec.Offset,
					Format:  c.Layout.Format(),
					Rows:    c.Rows(),
					Depths:  c.Depths,
					Columns: c.Columns,
				})
			}
		}
		out = append(out, f)
	}

	if e.format == "json" {
		return writeJSON(w, out)
	}
	t := newTable(w)
	defer t.Flush()
	fmt.Fprintln(t, "LF\tOFFSET\tKIND\tTYPE\tCODE")
	for _, rec := range files.Tape {
		fmt.Fprintf(t, "-\t%d\ttape\t%s\t%d\n", rec.Offset, rec.Type, rec.Code)
	}
	for _, f := range out {
		for _, r := range f.Explicits {
			fmt.Fprintf(t, "%d\t%d\texplicit\t%s\t%d\n", f.LogicalFile, r.Offset, r.Type, r.Code)
		}
		for _, r := range f.Implicits {
			fmt.Fprintf(t, "%d\t%d\timplicit\t%s\t%d\n", f.LogicalFile, r.Offset, r.Type, r.Code)
		}
		for _, c := range f.Curves {
			fmt.Fprintf(t, "%d\t%d\tcurves\t%s\t%d rows\n", f.LogicalFile, c.Offset, c.Format, c.Rows)
		}
	}
	return nil
}

func init() {
	lisCmd.Flags().BoolVar(&lisCurves, "curves", false, "decode the frames of every data format specification")
	rootCmd.AddCommand(lisCmd)
}
