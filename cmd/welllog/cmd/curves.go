package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/dlis"
	"github.com/ssargent/welllog/pkg/fault"
)

var (
	curvesFrame       string
	curvesLogicalFile int
)

// curvesCmd represents the curves command
var curvesCmd = &cobra.Command{
	Use:   "curves <file>",
	Short: "Decode the frame data of a frame",
	Long: `Decode the FDATA records of a frame into one column per channel.

Example:
  welllog curves --frame MAIN well.dlis
  welllog curves --frame MAIN --lf 1 -o json well.dlis`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCurves(cmd.OutOrStdout(), current, args[0], curvesLogicalFile, curvesFrame)
	},
}

type curvesOutput struct {
	Frame        string        `json:"frame"`
	Format       string        `json:"format"`
	FrameNumbers []uint32      `json:"frame_numbers"`
	Columns      []dlis.Column `json:"columns"`
}

func runCurves(w io.Writer, e *env, path string, lfIndex int, frameID string) error {
	files, err := dlis.Load(path, e.dlisOptions())
	if err != nil {
		return err
	}
	defer files.Close()

	if lfIndex < 0 || lfIndex >= len(files) {
		return errors.Wrapf(fault.ErrNotFound, "logical file %d of %d", lfIndex, len(files))
	}
	lf := files[lfIndex]
	frame, ok := lf.Frame(frameID)
	if !ok {
		return errors.Wrapf(fault.ErrNotFound, "frame %s in logical file %d", frameID, lfIndex)
	}

	curves, err := lf.Curves(frame)
	if err != nil {
		return err
	}

	if e.format == "json" {
		return writeJSON(w, curvesOutput{
			Frame:        frame.Fingerprint().String(),
			Format:       curves.Layout.Format(),
			FrameNumbers: curves.FrameNumbers,
			Columns:      curves.Columns,
		})
	}

	t := newTable(w)
	defer t.Flush()
	header := []string{"FRAME#"}
	for _, c := range curves.Columns {
		header = append(header, c.Field.Name)
	}
	fmt.Fprintln(t, strings.Join(header, "\t"))
	for row, number := range curves.FrameNumbers {
		cells := []string{fmt.Sprint(number)}
		for i := range curves.Columns {
			cells = append(cells, formatValues(curves.Columns[i].Row(row)))
		}
		fmt.Fprintln(t, strings.Join(cells, "\t"))
	}
	return nil
}

func init() {
	curvesCmd.Flags().StringVarP(&curvesFrame, "frame", "f", "", "frame id")
	curvesCmd.Flags().IntVar(&curvesLogicalFile, "lf", 0, "logical file index")
	_ = curvesCmd.MarkFlagRequired("frame")
	rootCmd.AddCommand(curvesCmd)
}
