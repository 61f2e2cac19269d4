package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/ingest"
	"github.com/wbrown/janus-solvergen/datalog/planner"
	"github.com/wbrown/janus-solvergen/datalog/storage"
)

// compileFlags are the per-invocation overrides of the compile config
type compileFlags struct {
	outputs    []string
	format     string
	accumulate bool
}

func (f *compileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.outputs, "output", "o", nil, "Output predicate (repeatable, overrides compile.outputs)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Rendering: yaml or table (overrides output.format)")
	cmd.Flags().BoolVar(&f.accumulate, "accumulate", false, "Report every invalid rule instead of stopping at the first")
}

func newCompileCmd(a *app) *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "compile FILE",
		Short: "Compile a rule file and print its plan",
		Long: `Compile reads a rule file and prints the compiled plan.

The yaml rendering is the document consumed by code generators. The table
rendering is the same plan as markdown tables. With a cache directory set,
renderings are stored by a hash of the source and options, and unchanged
inputs are served from the store.

Example:
  solvergen compile ancestors.dl --output anc --format table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompile(cmd.OutOrStdout(), args[0], flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// options merges the config with flag overrides
func (a *app) options(flags compileFlags) (planner.Options, storage.ArtifactKind, error) {
	mode, err := a.config.Compile.Mode()
	if err != nil {
		return planner.Options{}, 0, err
	}
	if flags.accumulate {
		mode = ingest.Accumulate
	}

	outputs := a.config.Compile.Outputs
	if len(flags.outputs) > 0 {
		outputs = flags.outputs
	}

	format := a.config.Output.Format
	if flags.format != "" {
		format = flags.format
	}
	kind, err := storage.ParseKind(format)
	if err != nil {
		return planner.Options{}, 0, err
	}

	return planner.Options{
		Outputs: outputs,
		Mode:    mode,
		Cache:   a.cache,
	}, kind, nil
}

func (a *app) runCompile(w io.Writer, file string, flags compileFlags) error {
	opts, kind, err := a.options(flags)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	source := string(data)

	store, err := a.openStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	out, err := a.render(store, file, source, opts, kind)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// render compiles source and renders the plan, going through the artifact
// store when one is open
func (a *app) render(store storage.Store, file, source string, opts planner.Options, kind storage.ArtifactKind) ([]byte, error) {
	key := planner.CacheKey(file, source, opts)

	if store != nil {
		artifact, err := store.Get(kind, key)
		switch {
		case err == nil:
			a.logger.Debug("artifact cache hit",
				zap.String("file", file),
				zap.String("key", key),
				zap.Stringer("kind", kind))
			return artifact.Data, nil
		case !errors.Is(err, storage.ErrNotFound):
			a.logger.Warn("artifact cache unreadable", zap.Error(err))
		}
	}

	opts.Collector = a.collector()
	plan, err := planner.NewCompiler(opts).Compile(file, source)
	if err != nil {
		return nil, a.report(file, err)
	}

	var out []byte
	switch kind {
	case storage.KindTable:
		out = []byte(planner.NewTableFormatter().FormatPlan(plan))
	default:
		out, err = planner.MarshalYAML(plan)
		if err != nil {
			return nil, err
		}
	}

	if store != nil {
		if err := store.Put(storage.Artifact{Key: key, File: file, Kind: kind, Data: out}); err != nil {
			a.logger.Warn("failed to store artifact", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

// report logs every diagnostic in err and returns errReported. Errors that
// are not diagnostics are returned unchanged.
func (a *app) report(file string, err error) error {
	diagnostics := ingest.Errors(err)
	reported := false
	for _, e := range diagnostics {
		ce, ok := datalog.AsCompileError(e)
		if !ok {
			continue
		}
		a.logger.Error("compile error",
			zap.String("file", ce.File),
			zap.Int("line", ce.Line),
			zap.String("category", ce.Category.String()),
			zap.String("message", ce.Message))
		reported = true
	}
	if !reported {
		return err
	}
	a.logger.Debug("compilation aborted",
		zap.String("file", file),
		zap.Int("errors", len(diagnostics)))
	return errReported
}
