package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/catalog"
	"github.com/ssargent/welllog/pkg/dlis"
	"github.com/ssargent/welllog/pkg/lis"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	catalogDir  string
	catalogJobs int
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog <files...>",
	Short: "Load files in parallel and store their objects",
	Long: `Load DLIS and LIS files in parallel and store their objects in a pebble
catalog, one run per invocation. Files ending in .lis or .tif are read as LIS.

Example:
  welllog catalog --dir ./catalog data/*.dlis`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := catalogDir
		if dir == "" {
			dir = current.cfg.Catalog.Dir
		}
		return runCatalog(cmd.Context(), cmd.OutOrStdout(), current, dir, catalogJobs, args)
	},
}

func isLIS(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lis", ".tif", ".lti":
		return true
	default:
		return false
	}
}

func runCatalog(ctx context.Context, w io.Writer, e *env, dir string, jobs int, paths []string) error {
	store, err := catalog.Open(dir, e.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Begin()
	if err != nil {
		return err
	}

	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	var stored atomic.Int64
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var n int
			var err error
			if isLIS(path) {
				n, err = catalogLIS(store, run, e, path)
			} else {
				n, err = catalogDLIS(store, run, e, path)
			}
			if err != nil {
				return errors.Wrapf(err, "%s", path)
			}
			stored.Add(int64(n))
			e.logger.Info("cataloged file", zap.String("path", path), zap.Int("entries", n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := store.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s: %d entries from %d files\n", run, stored.Load(), len(paths))
	return nil
}

func catalogDLIS(store *catalog.Store, run ksuid.KSUID, e *env, path string) (int, error) {
	files, err := dlis.Load(path, e.dlisOptions())
	if err != nil {
		return 0, err
	}
	defer files.Close()

	n := 0
	for i, lf := range files {
		for _, obj := range lf.Objects().All() {
			if err := store.PutObject(run, path, i, obj); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func catalogLIS(store *catalog.Store, run ksuid.KSUID, e *env, path string) (int, error) {
	files, err := lis.Load(path, e.lisOptions())
	if err != nil {
		return 0, err
	}
	defer files.Close()

	n := 0
	put := func(lf int, key string, v any) error {
		if err := store.Put(run, path, lf, key, v); err != nil {
			return err
		}
		n++
		return nil
	}

	for i, lf := range files.Logical {
		if h, err := lf.Header(); err == nil {
			if err := put(i, "file-header", h); err != nil {
				return n, err
			}
		}
		components, err := lf.Wellsite()
		if err != nil {
			return n, err
		}
		if len(components) > 0 {
			if err := put(i, "wellsite", components); err != nil {
				return n, err
			}
		}
		specs, err := lf.FormatSpecs()
		if err != nil {
			return n, err
		}
		for _, spec := range specs {
			if err := put(i, fmt.Sprintf("dfsr-%d", spec.Offset), spec.Specs); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogDir, "dir", "d", "", "catalog directory (default from config)")
	catalogCmd.Flags().IntVarP(&catalogJobs, "jobs", "j", 0, "files loaded in parallel (default number of CPUs)")
	rootCmd.AddCommand(catalogCmd)
}
