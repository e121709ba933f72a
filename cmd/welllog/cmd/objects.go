package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/dlis"
)

var objectType string

// objectsCmd represents the objects command
var objectsCmd = &cobra.Command{
	Use:   "objects <file>",
	Short: "Show the objects of each logical file",
	Long: `Show the objects decoded from the explicit records of each logical file.

Example:
  welllog objects well.dlis
  welllog objects --type CHANNEL well.dlis`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runObjects(cmd.OutOrStdout(), current, args[0], objectType)
	},
}

func selectObjects(pool *dlis.Pool, typ string) []*dlis.Object {
	if typ == "" {
		return pool.All()
	}
	return pool.Objects(typ)
}

func runObjects(w io.Writer, e *env, path, typ string) error {
	files, err := dlis.Load(path, e.dlisOptions())
	if err != nil {
		return err
	}
	defer files.Close()

	if e.format == "json" {
		out := make([][]*dlis.Object, len(files))
		for i, lf := range files {
			out[i] = selectObjects(lf.Objects(), typ)
		}
		return writeJSON(w, out)
	}

	t := newTable(w)
	defer t.Flush()
	fmt.Fprintln(t, "LF\tTYPE\tNAME\tATTRIBUTE\tVALUE")
	for i, lf := range files {
		for _, obj := range selectObjects(lf.Objects(), typ) {
			for el := obj.Attributes.Front(); el != nil; el = el.Next() {
				value := formatValues(el.Value.Value)
				if el.Value.Absent {
					value = "(absent)"
				}
				fmt.Fprintf(t, "%d\t%s\t%s\t%s\t%s\n", i, obj.Type, obj.Name, el.Key, value)
			}
		}
	}
	return nil
}

func init() {
	objectsCmd.Flags().StringVarP(&objectType, "type", "t", "", "only show objects of this set type")
	rootCmd.AddCommand(objectsCmd)
}
