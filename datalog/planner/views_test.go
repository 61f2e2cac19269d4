package planner

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
)

func TestConstructOrderingForView(t *testing.T) {
	tests := []struct {
		name        string
		terms       []Term
		canonical   []Term
		combination []int
		bound       int
	}{
		{
			name:        "already canonical",
			terms:       []Term{Pos(1), Lit(datalog.Var("Y"))},
			canonical:   []Term{Pos(1), Lit(datalog.Var("Y"))},
			combination: []int{0, 1},
			bound:       1,
		},
		{
			name:        "free variable first",
			terms:       []Term{Lit(datalog.Var("X")), Pos(0)},
			canonical:   []Term{Pos(0), Lit(datalog.Var("X"))},
			combination: []int{1, 0},
			bound:       1,
		},
		{
			name:        "positions then constants then free",
			terms:       []Term{Lit(datalog.Var("Y")), Pos(2), Lit(datalog.Const(3)), Pos(0)},
			canonical:   []Term{Pos(2), Pos(0), Lit(datalog.Const(3)), Lit(datalog.Var("Y"))},
			combination: []int{1, 3, 2, 0},
			bound:       3,
		},
		{
			name:        "all free",
			terms:       []Term{Lit(datalog.Var("A")), Lit(datalog.Var("B"))},
			canonical:   []Term{Lit(datalog.Var("A")), Lit(datalog.Var("B"))},
			combination: []int{0, 1},
			bound:       0,
		},
		{
			name:        "membership",
			terms:       []Term{Pos(1), Pos(0)},
			canonical:   []Term{Pos(1), Pos(0)},
			combination: []int{0, 1},
			bound:       2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canonical, combination, bound := ConstructOrderingForView(tt.terms)
			if diff := cmp.Diff(tt.canonical, canonical); diff != "" {
				t.Errorf("canonical mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.combination, combination)
			assert.Equal(t, tt.bound, bound)

			for i, src := range combination {
				assert.Equal(t, tt.terms[src], canonical[i])
			}
		})
	}
}

func TestConstructOrderingForViewIdempotent(t *testing.T) {
	inputs := [][]Term{
		{Lit(datalog.Var("Y")), Pos(2), Lit(datalog.Const(3)), Pos(0)},
		{Lit(datalog.Const(-1)), Lit(datalog.Var("Z")), Pos(4)},
		{Pos(0)},
		{},
	}
	for _, terms := range inputs {
		canonical, _, bound := ConstructOrderingForView(terms)
		again, combination, boundAgain := ConstructOrderingForView(canonical)
		assert.True(t, IsIdentity(combination), "re-canonicalizing %s gave %v", FormatTerms(canonical), combination)
		assert.Equal(t, canonical, again)
		assert.Equal(t, bound, boundAgain)
	}
}

func TestViewRegistryDeduplicates(t *testing.T) {
	symbols := datalog.NewSymbolTable()
	q := symbols.Intern("q")
	r := symbols.Intern("r")
	reg := NewViewRegistry(nil)

	v1 := reg.Resolve(q, []int{0, 1}, 1)
	v2 := reg.Resolve(q, []int{0, 1}, 2)
	v3 := reg.Resolve(q, []int{0, 1}, 1)
	v4 := reg.Resolve(q, []int{1, 0}, 1)
	v5 := reg.Resolve(r, []int{0, 1}, 1)

	assert.Equal(t, "q_view_1", v1.Name)
	assert.Equal(t, "q_view_2", v2.Name, "same permutation with a longer bound prefix is a distinct view")
	assert.Equal(t, v1.Name, v3.Name, "identical shapes share a view")
	assert.Equal(t, "q_view_3", v4.Name)
	assert.Equal(t, "r_view_1", v5.Name, "numbering is per predicate")

	assert.Equal(t, 4, reg.Len())
	assert.Equal(t, []string{"q_view_1", "q_view_2", "q_view_3"}, reg.PredicateViews(q))

	got, ok := reg.Lookup("q_view_2")
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, got.Key())
	assert.Equal(t, 2, got.Bound)
}

func TestViewRegistryAliases(t *testing.T) {
	var events []annotations.Event
	collector := annotations.NewCollector(func(e annotations.Event) {
		events = append(events, e)
	})

	symbols := datalog.NewSymbolTable()
	q := symbols.Intern("q")
	reg := NewViewRegistry(collector)
	args := []datalog.Argument{datalog.Var("X"), datalog.Var("Y")}

	v1 := reg.Resolve(q, []int{0, 1}, 1)
	v2 := reg.Resolve(q, []int{0, 1}, 2)
	v3 := reg.Resolve(q, []int{1, 0}, 1)

	assert.Equal(t, "q_x_y", reg.Alias(v1, args, 1))
	assert.Equal(t, "q_x_y_r4", reg.Alias(v2, args, 4), "colliding alias gets the rule suffix")
	assert.Equal(t, "q_y_x", reg.Alias(v3, args, 5))
	assert.Equal(t, "q_x_y", reg.Alias(v1, []datalog.Argument{datalog.Var("A"), datalog.Var("B")}, 9),
		"a view keeps its first alias")

	v4 := reg.Resolve(q, []int{0, 1}, 0)
	assert.Equal(t, "q_x_y_r4_2", reg.Alias(v4, args, 4))

	var renamed []annotations.Event
	for _, e := range events {
		if e.Name == annotations.AliasRenamed {
			renamed = append(renamed, e)
		}
	}
	require.Len(t, renamed, 2)
	assert.Equal(t, "q_x_y", renamed[0].Data["alias"])
	assert.Equal(t, "q_x_y_r4", renamed[0].Data["renamed"])
	assert.Equal(t, "q_view_2", renamed[0].Data["view"])
}

func TestAliasConstants(t *testing.T) {
	symbols := datalog.NewSymbolTable()
	p := symbols.Intern("edge")
	reg := NewViewRegistry(nil)

	v := reg.Resolve(p, []int{1, 2, 0}, 2)
	alias := reg.Alias(v, []datalog.Argument{datalog.Var("Z"), datalog.Var("X"), datalog.Const(-2)}, 1)
	assert.Equal(t, "edge_x_neg2_z", alias)
}
