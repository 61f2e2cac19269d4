package planner

import (
	"time"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
)

// SolutionReason says why a predicate must be persisted
type SolutionReason string

const (
	ReasonOutput     SolutionReason = "output"     // Requested as compiler output
	ReasonEqualCard  SolutionReason = "equal-card" // Binary driving side with a repeated variable
	ReasonMembership SolutionReason = "membership" // Consulted only as a full-key membership test
	ReasonNegated    SolutionReason = "negated"    // Referenced by a negated element
)

// solutionSet determines the predicates that must be materialized as full
// relations rather than only indexed through views.
func solutionSet(prog *datalog.Program, strata []StratumPlan, outputs []string, collector *annotations.Collector) ([]datalog.Identifier, map[datalog.Identifier][]SolutionReason, error) {
	start := time.Now()
	set := make(datalog.IdentifierSet)
	reasons := make(map[datalog.Identifier][]SolutionReason)
	add := func(id datalog.Identifier, why SolutionReason) {
		set.Add(id)
		for _, r := range reasons[id] {
			if r == why {
				return
			}
		}
		reasons[id] = append(reasons[id], why)
	}

	for _, name := range outputs {
		id, ok := prog.Symbols.Lookup(name)
		if !ok {
			return nil, nil, datalog.Errorf(datalog.ConsistencyError, prog.File, 0,
				"output predicate %s does not appear in the program", name)
		}
		add(id, ReasonOutput)
	}

	for _, s := range strata {
		for _, eq := range s.Equations {
			bin, ok := eq.(*BinaryEquation)
			if !ok {
				continue
			}
			if hasEqualCard(bin.DrivingArgs) {
				add(bin.Driving, ReasonEqualCard)
			}
			if bin.IsMembershipTest() {
				add(bin.Consulting, ReasonMembership)
			}
		}
	}

	for id := range prog.Negated {
		add(id, ReasonNegated)
	}

	solution := set.Sorted()
	if collector.Enabled() {
		collector.AddTiming(annotations.SolutionComputed, start, map[string]interface{}{
			"predicates": identifierNames(solution),
		})
	}
	return solution, reasons, nil
}

func hasEqualCard(args []datalog.Argument) bool {
	seen := make(map[string]bool)
	for _, a := range args {
		if !a.IsVariable() {
			continue
		}
		if seen[a.Name] {
			return true
		}
		seen[a.Name] = true
	}
	return false
}
