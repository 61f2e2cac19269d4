package planner

import (
	"time"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
)

// compilation is the state owned by one Compile call
type compilation struct {
	prog      *datalog.Program
	views     *ViewRegistry
	order     Ordering
	collector *annotations.Collector
}

func newCompilation(prog *datalog.Program, order Ordering, collector *annotations.Collector) *compilation {
	return &compilation{
		prog:      prog,
		views:     NewViewRegistry(collector),
		order:     order,
		collector: collector,
	}
}

// compileStratum rewrites every rule of a stratum into equations
func (c *compilation) compileStratum(s Stratum) (StratumPlan, error) {
	start := time.Now()

	plan := StratumPlan{Index: s.Index}
	members := make(datalog.IdentifierSet)

	for _, idx := range s.Rules {
		rule := &c.prog.Rules[idx]
		plan.Rules = append(plan.Rules, *rule)

		if err := c.checkArities(rule); err != nil {
			return StratumPlan{}, err
		}
		members.Add(rule.Head.ID)
		for _, p := range rule.Predicates() {
			members.Add(p.ID)
		}

		number := idx + 1
		positive := rule.Positive()
		switch len(positive) {
		case 1:
			plan.Equations = append(plan.Equations, c.unaryEquation(rule, number, positive[0]))
		case 2:
			for _, o := range []struct {
				orientation         Orientation
				driving, consulting datalog.Predicate
			}{
				{OrientationA, positive[0], positive[1]},
				{OrientationB, positive[1], positive[0]},
			} {
				eq, err := c.binaryEquation(rule, number, o.orientation, o.driving, o.consulting)
				if err != nil {
					return StratumPlan{}, err
				}
				plan.Equations = append(plan.Equations, eq)
			}
		default:
			return StratumPlan{}, datalog.Errorf(datalog.ConsistencyError, c.prog.File, rule.Line,
				"rule has %d positive body predicates", len(positive))
		}
	}

	plan.Views = viewsDataFor(plan.Equations, c.views)
	plan.Order = c.order.Restrict(members)

	if c.collector.Enabled() {
		c.collector.AddTiming(annotations.StratumCompiled, start, map[string]interface{}{
			"stratum":         s.Index,
			"equations.count": len(plan.Equations),
			"views.count":     len(plan.Views.Views),
		})
	}
	return plan, nil
}

// checkArities makes sure every predicate of the rule has a recorded arity
// matching its use
func (c *compilation) checkArities(rule *datalog.LogicRule) error {
	occurrences := append([]datalog.Predicate{rule.Head}, rule.Predicates()...)
	for _, p := range occurrences {
		arity, ok := c.prog.Arity[p.ID]
		if !ok {
			return datalog.Errorf(datalog.ConsistencyError, c.prog.File, rule.Line,
				"predicate %s has no known arity", p.ID.Name)
		}
		if arity != p.Arity() {
			return datalog.Errorf(datalog.ConsistencyError, c.prog.File, rule.Line,
				"predicate %s has arity %d, recorded %d", p.ID.Name, p.Arity(), arity)
		}
	}
	return nil
}

func (c *compilation) unaryEquation(rule *datalog.LogicRule, number int, driving datalog.Predicate) *UnaryEquation {
	positions, index, selections := positionMap(driving.Args)
	return &UnaryEquation{
		Rule:        number,
		Line:        rule.Line,
		Head:        rule.Head.ID,
		HeadArgs:    rewriteArgs(rule.Head.Args, index),
		Driving:     driving.ID,
		DrivingArgs: driving.Args,
		Positions:   positions,
		Selections:  selections,
		Condition:   rewriteCondition(rule, index),
		Assignment:  rewriteAssignment(rule, index),
		Negated:     rewriteNegated(rule, index),
	}
}

func (c *compilation) binaryEquation(rule *datalog.LogicRule, number int, orientation Orientation, driving, consulting datalog.Predicate) (*BinaryEquation, error) {
	positions, index, selections := positionMap(driving.Args)

	consultingArgs := make([]Term, len(consulting.Args))
	var common []VariablePosition
	seen := make(map[string]bool)
	for i, arg := range consulting.Args {
		if arg.IsVariable() {
			if p, ok := index[arg.Name]; ok {
				consultingArgs[i] = Pos(p)
				if !seen[arg.Name] {
					seen[arg.Name] = true
					common = append(common, VariablePosition{Name: arg.Name, Position: p})
				}
				continue
			}
		}
		consultingArgs[i] = Lit(arg)
	}

	canonical, combination, bound := ConstructOrderingForView(consultingArgs)
	if len(combination) != c.prog.Arity[consulting.ID] {
		return nil, datalog.Errorf(datalog.ConsistencyError, c.prog.File, rule.Line,
			"view over %s has %d columns, predicate arity is %d",
			consulting.ID.Name, len(combination), c.prog.Arity[consulting.ID])
	}

	view := c.views.Resolve(consulting.ID, combination, bound)
	alias := c.views.Alias(view, consulting.Args, number)

	return &BinaryEquation{
		Rule:           number,
		Line:           rule.Line,
		Orientation:    orientation,
		Head:           rule.Head.ID,
		HeadArgs:       rewriteArgs(rule.Head.Args, index),
		Driving:        driving.ID,
		DrivingArgs:    driving.Args,
		Positions:      positions,
		Selections:     selections,
		Consulting:     consulting.ID,
		ConsultingArgs: consultingArgs,
		CommonVars:     common,
		View:           canonical,
		Combination:    combination,
		BoundColumns:   bound,
		ViewName:       view.Name,
		Alias:          alias,
		Condition:      rewriteCondition(rule, index),
		Assignment:     rewriteAssignment(rule, index),
		Negated:        rewriteNegated(rule, index),
	}, nil
}

// positionMap indexes the driving predicate's variables by first position.
// Constants and repeated variables become selections on the driving tuple.
func positionMap(args []datalog.Argument) ([]VariablePosition, map[string]int, []Selection) {
	var positions []VariablePosition
	var selections []Selection
	index := make(map[string]int)

	for i, arg := range args {
		if arg.IsConstant() {
			selections = append(selections, Selection{Position: i, Equals: Lit(arg)})
			continue
		}
		if first, ok := index[arg.Name]; ok {
			selections = append(selections, Selection{Position: i, Equals: Pos(first)})
			continue
		}
		index[arg.Name] = i
		positions = append(positions, VariablePosition{Name: arg.Name, Position: i})
	}
	return positions, index, selections
}

// rewriteArgs replaces variables found in index by their driving position
func rewriteArgs(args []datalog.Argument, index map[string]int) []Term {
	out := make([]Term, len(args))
	for i, arg := range args {
		if arg.IsVariable() {
			if p, ok := index[arg.Name]; ok {
				out[i] = Pos(p)
				continue
			}
		}
		out[i] = Lit(arg)
	}
	return out
}

func rewriteExpr(expr datalog.Expression, index map[string]int) RewrittenExpr {
	out := RewrittenExpr{Source: expr.Source, Terms: make([]ExprTerm, len(expr.Tokens))}
	for i, tok := range expr.Tokens {
		if !tok.Variable {
			out.Terms[i] = ExprTerm{Text: tok.Text}
			continue
		}
		ref := Lit(datalog.Var(tok.Text))
		if p, ok := index[tok.Text]; ok {
			ref = Pos(p)
		}
		out.Terms[i] = ExprTerm{Text: tok.Text, Ref: ref, IsRef: true}
	}
	return out
}

func rewriteCondition(rule *datalog.LogicRule, index map[string]int) *RewrittenExpr {
	cond := rule.Condition()
	if cond == nil {
		return nil
	}
	expr := rewriteExpr(cond.Expr, index)
	return &expr
}

func rewriteAssignment(rule *datalog.LogicRule, index map[string]int) *RewrittenAssignment {
	a := rule.Assignment()
	if a == nil {
		return nil
	}
	return &RewrittenAssignment{Target: a.Target, Expr: rewriteExpr(a.Expr, index)}
}

func rewriteNegated(rule *datalog.LogicRule, index map[string]int) []NegatedElement {
	var out []NegatedElement
	for _, n := range rule.Negated() {
		out = append(out, NegatedElement{Predicate: n.ID, Args: rewriteArgs(n.Args, index)})
	}
	return out
}
