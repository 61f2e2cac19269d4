// Package ingest parses and validates rule files into a datalog.Program.
//
// Every rule is checked for structure, arity consistency, safety, and the
// placement of assignments and boolean expressions before it contributes to the
// dependency graph. Any violation is fatal for the whole compilation unit: no
// Program is returned alongside an error.
package ingest

import (
	"time"

	"go.uber.org/multierr"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
	"github.com/wbrown/janus-solvergen/datalog/parser"
)

// DiagnosticMode selects how validation failures are reported
type DiagnosticMode uint8

const (
	// FailFast stops at the first invalid rule
	FailFast DiagnosticMode = iota
	// Accumulate validates every rule and reports all failures together
	Accumulate
)

// String returns the mode name used in configuration files
func (m DiagnosticMode) String() string {
	if m == Accumulate {
		return "accumulate"
	}
	return "fail-fast"
}

// Options control ingestion
type Options struct {
	Mode      DiagnosticMode
	Symbols   *datalog.SymbolTable // Fresh table when nil
	Collector *annotations.Collector
}

// Ingest parses source and validates every rule in it.
func Ingest(file, source string, opts Options) (*datalog.Program, error) {
	return IngestLines(file, parser.Lines(source), opts)
}

// IngestLines validates already split source lines.
func IngestLines(file string, lines []parser.SourceLine, opts Options) (*datalog.Program, error) {
	start := time.Now()
	prog := datalog.NewProgram(file, opts.Symbols)
	arities := newArityTable()

	var errs error
	for _, line := range lines {
		rule, err := parser.ParseRule(prog.Symbols, file, line.Number, line.Text)
		if err == nil {
			err = validateRule(file, &rule, arities)
		}
		if err != nil {
			reportError(opts.Collector, err)
			if opts.Mode == FailFast {
				return nil, err
			}
			errs = multierr.Append(errs, err)
			continue
		}

		record(prog, rule)
		if opts.Collector.Enabled() {
			opts.Collector.Add(annotations.Event{
				Name: annotations.IngestRuleAccepted,
				Data: map[string]interface{}{
					"line": rule.Line,
					"rule": rule.String(),
					"type": int(rule.Type),
				},
			})
		}
	}

	if errs != nil {
		return nil, errs
	}

	for id, arity := range arities.arity {
		prog.Arity[id] = arity
	}
	for id := range prog.Graph {
		if !prog.Intensional.Has(id) {
			prog.Extensional.Add(id)
		}
	}

	if opts.Collector.Enabled() {
		opts.Collector.AddTiming(annotations.IngestComplete, start, map[string]interface{}{
			"rules.count": len(prog.Rules),
			"intensional": prog.Intensional.Names(),
			"extensional": prog.Extensional.Names(),
			"negated":     prog.Negated.Names(),
		})
	}

	return prog, nil
}

// record applies the side effects of an accepted rule
func record(prog *datalog.Program, rule datalog.LogicRule) {
	for _, body := range rule.Predicates() {
		prog.Graph.AddEdge(body.ID, rule.Head.ID)
		if body.Negated {
			prog.Negated.Add(body.ID)
		}
	}
	prog.Intensional.Add(rule.Head.ID)
	prog.Rules = append(prog.Rules, rule)
}

func reportError(c *annotations.Collector, err error) {
	if !c.Enabled() {
		return
	}
	data := map[string]interface{}{"message": err.Error()}
	if ce, ok := datalog.AsCompileError(err); ok {
		data["file"] = ce.File
		data["line"] = ce.Line
		data["category"] = ce.Category.String()
		data["message"] = ce.Message
	}
	c.Add(annotations.Event{Name: annotations.ErrorCompile, Data: data})
}

// Errors splits an accumulated ingestion error into its individual diagnostics
func Errors(err error) []error {
	return multierr.Errors(err)
}
