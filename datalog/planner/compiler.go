// Package planner compiles validated rule programs into the stratified,
// join-planned IR consumed by solver code generators.
//
// File organization:
//   - compiler.go: Compiler struct and the Compile() entry point
//   - stratify.go: Stratum assignment under negation, negative cycle detection
//   - ordering.go: Three-block predicate evaluation ordering
//   - equations.go: Rule to Unary/Binary equation rewriting
//   - views.go: View canonicalization, naming and alias registry
//   - solution.go: Predicates that must be persisted
//   - cache.go: In-memory plan cache
//   - export.go, table_formatter.go: YAML and markdown renderings of a Plan
//
// Start with Compile() in compiler.go to understand the pipeline.
package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
	"github.com/wbrown/janus-solvergen/datalog/ingest"
	"github.com/wbrown/janus-solvergen/datalog/parser"
)

// Options control a compilation
type Options struct {
	Outputs   []string              // Predicates echoed to the solver output
	Mode      ingest.DiagnosticMode // How rule validation failures are reported
	Collector *annotations.Collector
	Cache     *PlanCache
}

// Compiler turns rule sources into Plans. A Compiler holds no per-compilation
// state; every Compile call builds its own symbol table and view registry.
type Compiler struct {
	options Options
	cache   *PlanCache
}

// NewCompiler creates a new compiler
func NewCompiler(options Options) *Compiler {
	return &Compiler{
		options: options,
		cache:   options.Cache,
	}
}

// Options returns the compiler options
func (c *Compiler) Options() Options {
	return c.options
}

// Compile runs ingestion, stratification, ordering and equation compilation
// over one source file. On error no Plan is returned.
func (c *Compiler) Compile(file, source string) (*Plan, error) {
	collector := c.options.Collector
	key := CacheKey(file, source, c.options)

	if plan, ok := c.cache.Get(key); ok {
		if collector.Enabled() {
			collector.Add(annotations.Event{
				Name: annotations.CacheHit,
				Data: map[string]interface{}{"key": key},
			})
		}
		return plan, nil
	}
	if c.cache != nil && collector.Enabled() {
		collector.Add(annotations.Event{
			Name: annotations.CacheMiss,
			Data: map[string]interface{}{"key": key},
		})
	}

	start := time.Now()
	lines := parser.Lines(source)
	if collector.Enabled() {
		collector.Add(annotations.Event{
			Name:  annotations.CompileInvoked,
			Start: start,
			Data: map[string]interface{}{
				"file":        file,
				"lines.count": len(lines),
			},
		})
	}

	plan, err := c.compile(file, lines)
	if err != nil {
		if collector.Enabled() {
			collector.AddTiming(annotations.CompileComplete, start, map[string]interface{}{
				"file":    file,
				"success": false,
				"error":   err.Error(),
			})
		}
		return nil, err
	}
	plan.Key = key

	c.cache.Set(key, plan)
	if collector.Enabled() {
		collector.AddTiming(annotations.CompileComplete, start, map[string]interface{}{
			"file":            file,
			"success":         true,
			"rules.count":     len(plan.Program.Rules),
			"strata.count":    len(plan.Strata),
			"equations.count": plan.EquationCount(),
			"views.count":     plan.ViewCount(),
		})
	}
	return plan, nil
}

func (c *Compiler) compile(file string, lines []parser.SourceLine) (*Plan, error) {
	collector := c.options.Collector

	prog, err := ingest.IngestLines(file, lines, ingest.Options{
		Mode:      c.options.Mode,
		Collector: collector,
	})
	if err != nil {
		return nil, err
	}

	strata, err := Stratify(prog, collector)
	if err != nil {
		return nil, c.fail(err)
	}

	order := OrderPredicates(prog.Graph, prog.Intensional, prog.Negated, collector)

	comp := newCompilation(prog, order, collector)
	plans := make([]StratumPlan, 0, len(strata))
	for _, s := range strata {
		sp, err := comp.compileStratum(s)
		if err != nil {
			return nil, c.fail(err)
		}
		plans = append(plans, sp)
	}

	outputs := dedupe(c.options.Outputs)
	solution, reasons, err := solutionSet(prog, plans, outputs, collector)
	if err != nil {
		return nil, c.fail(err)
	}

	return &Plan{
		File:     file,
		Program:  prog,
		Strata:   plans,
		Order:    order,
		Solution: solution,
		Reasons:  reasons,
		Output:   outputs,
	}, nil
}

// fail reports a post-ingestion error to the collector
func (c *Compiler) fail(err error) error {
	collector := c.options.Collector
	if !collector.Enabled() {
		return err
	}
	data := map[string]interface{}{"message": err.Error()}
	if ce, ok := datalog.AsCompileError(err); ok {
		data["file"] = ce.File
		data["line"] = ce.Line
		data["category"] = ce.Category.String()
		data["message"] = ce.Message
	}
	collector.Add(annotations.Event{Name: annotations.ErrorCompile, Data: data})
	return err
}

// CompileFile is a convenience wrapper around NewCompiler(opts).Compile
func CompileFile(file, source string, opts Options) (*Plan, error) {
	plan, err := NewCompiler(opts).Compile(file, source)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", file, err)
	}
	return plan, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
