package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wbrown/janus-solvergen/datalog"
)

// arityTable remembers the first arity seen for every predicate
type arityTable struct {
	arity     map[datalog.Identifier]int
	firstLine map[datalog.Identifier]int
}

func newArityTable() *arityTable {
	return &arityTable{
		arity:     make(map[datalog.Identifier]int),
		firstLine: make(map[datalog.Identifier]int),
	}
}

// validateRule runs every check in order and commits the rule's arities on success
func validateRule(file string, rule *datalog.LogicRule, arities *arityTable) error {
	if err := checkStructure(file, rule); err != nil {
		return err
	}

	pending, err := checkArity(file, rule, arities)
	if err != nil {
		return err
	}

	if unsafe, reason := IsUnsafeRule(rule); unsafe {
		return datalog.Errorf(datalog.SafetyError, file, rule.Line, "unsafe rule: %s", reason)
	}
	if err := checkAssignment(file, rule); err != nil {
		return err
	}
	if err := checkCondition(file, rule); err != nil {
		return err
	}

	for id, arity := range pending {
		arities.arity[id] = arity
		arities.firstLine[id] = rule.Line
	}
	return nil
}

// checkStructure enforces the binary-rule shape
func checkStructure(file string, rule *datalog.LogicRule) error {
	if n := len(rule.Predicates()); n > 2 {
		return datalog.Errorf(datalog.StructureError, file, rule.Line,
			"rule has %d body predicates, at most 2 are allowed", n)
	}
	assignments, conditions := len(rule.Assignments()), len(rule.Conditions())
	if assignments > 1 {
		return datalog.Errorf(datalog.StructureError, file, rule.Line,
			"rule has %d assignments, at most 1 is allowed", assignments)
	}
	if conditions > 1 {
		return datalog.Errorf(datalog.StructureError, file, rule.Line,
			"rule has %d boolean expressions, at most 1 is allowed", conditions)
	}
	if assignments > 0 && conditions > 0 {
		return datalog.Errorf(datalog.StructureError, file, rule.Line,
			"assignment and boolean expression cannot appear in the same rule")
	}
	return nil
}

// checkArity verifies every occurrence against the first one and returns the
// arities this rule introduces
func checkArity(file string, rule *datalog.LogicRule, arities *arityTable) (map[datalog.Identifier]int, error) {
	pending := make(map[datalog.Identifier]int)
	occurrences := append([]datalog.Predicate{rule.Head}, rule.Predicates()...)

	for _, pred := range occurrences {
		if known, ok := arities.arity[pred.ID]; ok {
			if known != pred.Arity() {
				return nil, datalog.Errorf(datalog.RedefinitionError, file, rule.Line,
					"predicate %s used with arity %d, first defined with arity %d at line %d",
					pred.ID.Name, pred.Arity(), known, arities.firstLine[pred.ID])
			}
			continue
		}
		if known, ok := pending[pred.ID]; ok {
			if known != pred.Arity() {
				return nil, datalog.Errorf(datalog.RedefinitionError, file, rule.Line,
					"predicate %s used with arities %d and %d in the same rule",
					pred.ID.Name, known, pred.Arity())
			}
			continue
		}
		pending[pred.ID] = pred.Arity()
	}
	return pending, nil
}

// IsUnsafeRule reports whether a rule can derive a head with unbound variables
// or uses negation in a way the solver cannot evaluate. The reason describes
// the first problem found.
func IsUnsafeRule(rule *datalog.LogicRule) (bool, string) {
	preds := rule.Predicates()
	head := rule.Head.VariableSet()

	bound := make(map[string]bool)
	if a := rule.Assignment(); a != nil {
		bound[a.Target] = true
	}

	switch len(preds) {
	case 1:
		if preds[0].Negated {
			return true, fmt.Sprintf("sole body predicate %s is negated", preds[0].ID.Name)
		}
		union(bound, preds[0].VariableSet())

	case 2:
		first, second := preds[0], preds[1]
		switch {
		case first.Negated && second.Negated:
			return true, fmt.Sprintf("both body predicates %s and %s are negated", first.ID.Name, second.ID.Name)
		case first.Negated || second.Negated:
			neg, pos := first, second
			if second.Negated {
				neg, pos = second, first
			}
			if missing := difference(neg.VariableSet(), pos.VariableSet()); len(missing) > 0 {
				return true, fmt.Sprintf("variables %s of negated predicate %s are not bound by %s",
					strings.Join(missing, ", "), neg.ID.Name, pos.ID.Name)
			}
			union(bound, pos.VariableSet())
		default:
			union(bound, first.VariableSet())
			union(bound, second.VariableSet())
		}

	default:
		return true, fmt.Sprintf("rule has %d body predicates", len(preds))
	}

	if missing := difference(head, bound); len(missing) > 0 {
		return true, fmt.Sprintf("head variables %s are not bound in the body", strings.Join(missing, ", "))
	}
	return false, ""
}

// checkAssignment validates the optional `Var = Expr` element
func checkAssignment(file string, rule *datalog.LogicRule) error {
	a := rule.Assignment()
	if a == nil {
		return nil
	}
	if !rule.Head.VariableSet()[a.Target] {
		return datalog.Errorf(datalog.StructureError, file, rule.Line,
			"assignment target %s does not appear in the head", a.Target)
	}
	bound := positiveVariables(rule)
	if missing := difference(toSet(a.Expr.Variables), bound); len(missing) > 0 {
		return datalog.Errorf(datalog.SafetyError, file, rule.Line,
			"assignment to %s reads unbound variables %s", a.Target, strings.Join(missing, ", "))
	}
	return nil
}

// checkCondition validates the optional boolean expression
func checkCondition(file string, rule *datalog.LogicRule) error {
	c := rule.Condition()
	if c == nil {
		return nil
	}
	bound := positiveVariables(rule)
	if missing := difference(toSet(c.Expr.Variables), bound); len(missing) > 0 {
		return datalog.Errorf(datalog.SafetyError, file, rule.Line,
			"boolean expression %q reads unbound variables %s", c.Expr.Source, strings.Join(missing, ", "))
	}
	return nil
}

func positiveVariables(rule *datalog.LogicRule) map[string]bool {
	vars := make(map[string]bool)
	for _, p := range rule.Positive() {
		union(vars, p.VariableSet())
	}
	return vars
}

func union(dst, src map[string]bool) {
	for k := range src {
		dst[k] = true
	}
}

// difference returns the sorted members of a missing from b
func difference(a, b map[string]bool) []string {
	var missing []string
	for k := range a {
		if !b[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
