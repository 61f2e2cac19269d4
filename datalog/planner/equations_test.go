package planner

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-solvergen/datalog"
)

func compileStrata(t *testing.T, source string) (*datalog.Program, []StratumPlan) {
	t.Helper()
	prog := mustProgram(t, source)
	strata, err := Stratify(prog, nil)
	require.NoError(t, err)

	comp := newCompilation(prog, OrderPredicates(prog.Graph, prog.Intensional, prog.Negated, nil), nil)
	var plans []StratumPlan
	for _, s := range strata {
		sp, err := comp.compileStratum(s)
		require.NoError(t, err)
		plans = append(plans, sp)
	}
	return prog, plans
}

// equationsByHead indexes every equation of every stratum by head predicate name
func equationsByHead(plans []StratumPlan) map[string][]Equation {
	out := make(map[string][]Equation)
	for _, s := range plans {
		for _, eq := range s.Equations {
			out[eq.HeadPredicate().Name] = append(out[eq.HeadPredicate().Name], eq)
		}
	}
	return out
}

func TestCompileAncestors(t *testing.T) {
	_, plans := compileStrata(t, `anc(X,Y) :- parent(X,Y).
anc(X,Y) :- parent(X,Z), anc(Z,Y).`)
	require.Len(t, plans, 1)
	eqs := plans[0].Equations
	require.Len(t, eqs, 3)

	unary, ok := eqs[0].(*UnaryEquation)
	require.True(t, ok, "first rule compiles to a unary equation, got %T", eqs[0])
	assert.Equal(t, 1, unary.Rule)
	assert.Equal(t, "parent", unary.Driving.Name)
	assert.Equal(t, []Term{Pos(0), Pos(1)}, unary.HeadArgs)
	assert.Equal(t, []VariablePosition{{"X", 0}, {"Y", 1}}, unary.Positions)
	assert.Empty(t, unary.Selections)

	a, ok := eqs[1].(*BinaryEquation)
	require.True(t, ok)
	assert.Equal(t, OrientationA, a.Orientation)
	assert.Equal(t, 2, a.Rule)
	assert.Equal(t, "parent", a.Driving.Name)
	assert.Equal(t, "anc", a.Consulting.Name)
	assert.Equal(t, []VariablePosition{{"Z", 1}}, a.CommonVars)
	if diff := cmp.Diff([]Term{Pos(1), Lit(datalog.Var("Y"))}, a.View); diff != "" {
		t.Errorf("2a view mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{0, 1}, a.Combination)
	assert.Equal(t, 1, a.BoundColumns)
	assert.Equal(t, "anc_view_1", a.ViewName)
	assert.Equal(t, "anc_z_y", a.Alias)
	assert.Equal(t, []Term{Pos(0), Lit(datalog.Var("Y"))}, a.HeadArgs)
	assert.Equal(t, "anc($0, Y) <- parent ⋈ anc($1, Y) [anc_view_1]", a.String())

	b, ok := eqs[2].(*BinaryEquation)
	require.True(t, ok)
	assert.Equal(t, OrientationB, b.Orientation)
	assert.Equal(t, "anc", b.Driving.Name)
	assert.Equal(t, "parent", b.Consulting.Name)
	assert.Equal(t, []VariablePosition{{"Z", 0}}, b.CommonVars)
	assert.Equal(t, []Term{Lit(datalog.Var("X")), Pos(0)}, b.ConsultingArgs)
	assert.Equal(t, []Term{Pos(0), Lit(datalog.Var("X"))}, b.View)
	assert.Equal(t, []int{1, 0}, b.Combination)
	assert.Equal(t, "parent_view_1", b.ViewName)
	assert.Equal(t, "parent_z_x", b.Alias)
	assert.Equal(t, []Term{Lit(datalog.Var("X")), Pos(1)}, b.HeadArgs)

	views := plans[0].Views
	assert.Equal(t, []string{"anc_view_1", "parent_view_1"}, views.Order)
	assert.Equal(t, map[string]string{"anc_z_y": "anc_view_1", "parent_z_x": "parent_view_1"}, views.Aliases)
	assert.Equal(t, map[string][]string{"anc": {"anc_view_1"}, "parent": {"parent_view_1"}}, views.PredicateViews)

	assert.Equal(t, []string{"parent"}, identifierNames(plans[0].Order.Block1))
	assert.Equal(t, []string{"anc"}, identifierNames(plans[0].Order.Block3))
}

func TestCompileViewPatterns(t *testing.T) {
	_, plans := compileStrata(t, `r(X, Y) :- p(X), q(X, Y).
s(X, Y) :- t(X, Y), q(X, Y).
u(Y, X) :- w(X), q(X, Y).
v(X, Y) :- m(Y), q(X, Y).`)
	require.Len(t, plans, 1)
	eqs := plans[0].Equations
	require.Len(t, eqs, 8)

	viewOf := func(i int) (string, string) {
		bin := eqs[i].(*BinaryEquation)
		return bin.ViewName, bin.Alias
	}

	name, alias := viewOf(0)
	assert.Equal(t, "q_view_1", name, "common pattern [X]")
	assert.Equal(t, "q_x_y", alias)

	name, alias = viewOf(2)
	assert.Equal(t, "q_view_2", name, "common pattern [X, Y]")
	assert.Equal(t, "q_x_y_r2", alias)

	name, alias = viewOf(4)
	assert.Equal(t, "q_view_1", name, "same shape reuses the view")
	assert.Equal(t, "q_x_y", alias)

	name, alias = viewOf(6)
	assert.Equal(t, "q_view_3", name, "different permutation gets a new view")
	assert.Equal(t, "q_y_x", alias)

	u := eqs[4].(*BinaryEquation)
	assert.Equal(t, []Term{Lit(datalog.Var("Y")), Pos(0)}, u.HeadArgs)

	views := plans[0].Views
	assert.Equal(t, []string{"q_view_1", "q_view_2", "q_view_3"}, views.PredicateViews["q"])
	assert.Equal(t, []string{
		"q_view_2", "t_view_1",
		"m_view_1", "p_view_1", "q_view_1", "q_view_3", "w_view_1",
	}, views.Order)
	assert.Equal(t, "q_view_2", views.Aliases["q_x_y_r2"])
	assert.Equal(t, []int{1, 0}, views.Views["q_view_3"].Combination)
}

func TestCompileUnaryAttachments(t *testing.T) {
	_, plans := compileStrata(t, `next(X, Y) :- num(X), Y = X + 1.
big(X) :- num(X), X > 10.
diag(X) :- pair(X, X).
one(Y) :- pair(1, Y).
ok(X) :- item(X, Y), not blocked(Y).
blocked(Z) :- banned(Z).
scaled(X, Y) :- num(X), Y = max(X, 3) * 2.`)
	byHead := equationsByHead(plans)

	next := byHead["next"][0].(*UnaryEquation)
	assert.Equal(t, []Term{Pos(0), Lit(datalog.Var("Y"))}, next.HeadArgs)
	require.NotNil(t, next.Assignment)
	assert.Equal(t, "Y := $0 + 1", next.Assignment.String())
	assert.Equal(t, "X + 1", next.Assignment.Expr.Source)
	assert.Nil(t, next.Condition)

	big := byHead["big"][0].(*UnaryEquation)
	require.NotNil(t, big.Condition)
	assert.Equal(t, "$0 > 10", big.Condition.String())
	assert.Equal(t, "big($0) <- num if $0 > 10", big.String())

	diag := byHead["diag"][0].(*UnaryEquation)
	assert.Equal(t, []Selection{{Position: 1, Equals: Pos(0)}}, diag.Selections)
	assert.Equal(t, []VariablePosition{{"X", 0}}, diag.Positions)

	one := byHead["one"][0].(*UnaryEquation)
	assert.Equal(t, []Selection{{Position: 0, Equals: Lit(datalog.Const(1))}}, one.Selections)
	assert.Equal(t, []Term{Pos(1)}, one.HeadArgs)

	ok := byHead["ok"][0].(*UnaryEquation)
	assert.Equal(t, []NegatedElement{{Predicate: ok.Negated[0].Predicate, Args: []Term{Pos(1)}}}, ok.Negated)
	assert.Equal(t, "blocked", ok.Negated[0].Predicate.Name)
	assert.Equal(t, "ok($0) <- item, not blocked($1)", ok.String())

	scaled := byHead["scaled"][0].(*UnaryEquation)
	assert.Equal(t, "Y := max($0, 3) * 2", scaled.Assignment.String())
}

func TestCompileBinaryAttachments(t *testing.T) {
	_, plans := compileStrata(t, `join(X, Z) :- e(X, Y), f(Y, Z), Y > 3.
safe(X, Y) :- e(X, Y), f(Y, X).`)
	byHead := equationsByHead(plans)

	join := byHead["join"]
	require.Len(t, join, 2)
	a := join[0].(*BinaryEquation)
	b := join[1].(*BinaryEquation)
	assert.Equal(t, "$1 > 3", a.Condition.String())
	assert.Equal(t, "$0 > 3", b.Condition.String())
	assert.Equal(t, []Term{Pos(0), Lit(datalog.Var("Z"))}, a.HeadArgs)
	assert.Equal(t, []Term{Lit(datalog.Var("X")), Pos(1)}, b.HeadArgs)

	safe := byHead["safe"]
	require.Len(t, safe, 2)
	sa := safe[0].(*BinaryEquation)
	sb := safe[1].(*BinaryEquation)
	assert.True(t, sa.IsMembershipTest())
	assert.True(t, sb.IsMembershipTest())
	assert.Equal(t, []VariablePosition{{"Y", 1}, {"X", 0}}, sa.CommonVars, "consulting order, not driving order")
	assert.Equal(t, []Term{Pos(1), Pos(0)}, sa.View)
	assert.Equal(t, []int{0, 1}, sa.Combination)
}

func TestCompileConstantsInConsulting(t *testing.T) {
	_, plans := compileStrata(t, "hit(X, Z) :- src(X), edge(Z, 7, X).")
	eqs := plans[0].Equations
	a := eqs[0].(*BinaryEquation)

	assert.Equal(t, []Term{Pos(0), Lit(datalog.Const(7)), Lit(datalog.Var("Z"))}, a.View)
	assert.Equal(t, []int{2, 1, 0}, a.Combination)
	assert.Equal(t, 2, a.BoundColumns)
	assert.Equal(t, "edge_x_7_z", a.Alias)
}

func TestCompileStratumConsistencyError(t *testing.T) {
	prog := mustProgram(t, "a(X) :- b(X).")
	b, _ := prog.Symbols.Lookup("b")
	delete(prog.Arity, b)

	strata, err := Stratify(prog, nil)
	require.NoError(t, err)
	comp := newCompilation(prog, OrderPredicates(prog.Graph, prog.Intensional, prog.Negated, nil), nil)

	_, err = comp.compileStratum(strata[0])
	require.Error(t, err)
	assert.True(t, errors.Is(err, datalog.ErrConsistency))
	assert.Contains(t, err.Error(), "no known arity")
}

func TestCompileStratumOrdering(t *testing.T) {
	_, plans := compileStrata(t, `blocked(X) :- banned(X).
ok(X) :- item(X), not blocked(X).`)
	require.Len(t, plans, 2)

	assert.Equal(t, []string{"banned"}, identifierNames(plans[0].Order.Block1))
	assert.Equal(t, []string{"blocked"}, identifierNames(plans[0].Order.Block2))
	assert.Equal(t, []string{"item"}, identifierNames(plans[1].Order.Block1))
	assert.Equal(t, []string{"blocked", "ok"}, identifierNames(plans[1].Order.Block2))
}
