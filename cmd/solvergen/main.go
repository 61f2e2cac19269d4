// Command solvergen compiles Datalog rule files into the stratified equation
// plans consumed by solver code generators.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wbrown/janus-solvergen/datalog/annotations"
	"github.com/wbrown/janus-solvergen/datalog/config"
	"github.com/wbrown/janus-solvergen/datalog/planner"
	"github.com/wbrown/janus-solvergen/datalog/storage"
)

const (
	Version = "0.1.0"
	appName = "solvergen"
)

// errReported marks failures whose diagnostics were already logged
var errReported = errors.New("compilation failed")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCmd(nil).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand of one invocation
type app struct {
	configPath string
	cacheDir   string
	logLevel   string
	verbose    bool

	config *config.Config
	logger *zap.Logger
	cache  *planner.PlanCache
	errOut io.Writer
}

// newRootCmd builds the command tree. A non-nil logger replaces the
// production logger, which tests use to observe diagnostics.
func newRootCmd(logger *zap.Logger) *cobra.Command {
	a := &app{logger: logger, errOut: os.Stderr}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Datalog to solver IR compiler",
		Long: `solvergen compiles a file of Datalog rules into the intermediate
representation used by solver code generators:

  - rules are stratified so negated predicates are complete before use
  - predicates are ordered into seed, derived and recursive blocks
  - each rule becomes unary or binary equations over canonical views

Rules are read one per line. Lines starting with %, # or // are comments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (default: nearest solvergen.yaml)")
	cmd.PersistentFlags().StringVar(&a.cacheDir, "cache", "", "Artifact cache directory (overrides cache.dir)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Print compilation annotations to stderr")

	cmd.AddCommand(
		newCompileCmd(a),
		newExplainCmd(a),
		newWatchCmd(a),
		newCacheCmd(a),
		newInitCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

// setup loads configuration, applies flag overrides and builds the logger
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.cacheDir != "" {
		cfg.Cache.Dir = a.cacheDir
	}
	if a.verbose {
		cfg.Output.Verbose = true
	}
	a.config = cfg
	a.cache = planner.NewPlanCache(cfg.Cache.Size, cfg.Cache.TTL)
	a.errOut = cmd.ErrOrStderr()

	if a.logger == nil {
		level, err := zapcore.ParseLevel(a.logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		a.logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}
	return nil
}

// collector returns the annotation sink for one compilation. Events always
// reach the logger at debug level; verbose mode also prints them.
func (a *app) collector() *annotations.Collector {
	var console annotations.Handler
	if a.config.Output.Verbose {
		console = annotations.NewOutputFormatter(a.errOut).Handle
	}
	return annotations.NewCollector(annotations.Tee(console, annotations.ZapHandler(a.logger)))
}

// openStore opens the artifact store, or returns nil when caching to disk is disabled
func (a *app) openStore() (storage.Store, error) {
	if a.config.Cache.Dir == "" {
		return nil, nil
	}
	store, err := storage.NewBadgerStore(a.config.Cache.Dir, a.config.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact cache: %w", err)
	}
	return store, nil
}
