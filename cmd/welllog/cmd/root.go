package cmd

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/ssargent/welllog/pkg/config"
	"github.com/ssargent/welllog/pkg/dlis"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/lis"
	"github.com/ssargent/welllog/pkg/metrics"
	"go.uber.org/zap"
)

// env is what every command needs, built once from flags and config.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	handler  *fault.Handler
	registry *prometheus.Registry
	recorder *metrics.Recorder
	format   string
}

func (e *env) dlisOptions() dlis.Options {
	return dlis.Options{Handler: e.handler, Logger: e.logger, Recorder: e.recorder}
}

func (e *env) lisOptions() lis.Options {
	return lis.Options{Handler: e.handler, Logger: e.logger, Recorder: e.recorder}
}

var (
	current *env

	configPath  string
	logLevel    string
	strict      bool
	format      string
	showMetrics bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "welllog",
	Short: "welllog - DLIS and LIS well log reader",
	Long: `welllog reads RP66 V1 (DLIS) and LIS79 well log files: storage labels,
record indexes, object sets and frame data.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(configPath, logLevel, strict, format)
		if err != nil {
			return err
		}
		current = e
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		defer current.logger.Sync() //nolint:errcheck
		if showMetrics {
			return writeMetrics(cmd.ErrOrStderr(), current.registry)
		}
		return nil
	},
}

// newEnv loads the configuration, when there is one, and applies the
// flag overrides.
func newEnv(path, level string, strict bool, format string) (*env, error) {
	cfg := config.DefaultConfig()
	switch {
	case path != "":
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case config.ConfigExists(config.GetDefaultConfigPath()):
		loaded, err := config.LoadConfig(config.GetDefaultConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if level != "" {
		cfg.Logging.Level = level
	}
	if strict {
		cfg.Policy = config.StrictPolicy()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if format != "table" && format != "json" {
		return nil, errors.Newf("unknown output format %q (want table or json)", format)
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	handler, err := cfg.Handler(logger)
	if err != nil {
		return nil, err
	}
	handler.WithObserver(rec)

	return &env{cfg: cfg, logger: logger, handler: handler, registry: reg, recorder: rec, format: format}, nil
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "raise warnings and critical problems instead of logging them")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "o", "table", "output format (table or json)")
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print decoding metrics to stderr when done")
}
