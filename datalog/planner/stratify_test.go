package planner

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
	"github.com/wbrown/janus-solvergen/datalog/ingest"
)

func mustProgram(t *testing.T, source string) *datalog.Program {
	t.Helper()
	prog, err := ingest.Ingest("test.dl", source, ingest.Options{})
	require.NoError(t, err)
	return prog
}

func TestStratifySingleStratum(t *testing.T) {
	prog := mustProgram(t, `
anc(X,Y) :- parent(X,Y).
anc(X,Y) :- parent(X,Z), anc(Z,Y).
`)
	strata, err := Stratify(prog, nil)
	require.NoError(t, err)
	require.Len(t, strata, 1)
	assert.Equal(t, []int{0, 1}, strata[0].Rules)
}

func TestStratifyNegation(t *testing.T) {
	prog := mustProgram(t, `
blocked(X) :- banned(X).
ok(X) :- item(X), not blocked(X).
`)
	strata, err := Stratify(prog, nil)
	require.NoError(t, err)
	require.Len(t, strata, 2)
	assert.Equal(t, []int{0}, strata[0].Rules)
	assert.Equal(t, []int{1}, strata[1].Rules)
}

func TestStratifyNegatedBeforeDefinition(t *testing.T) {
	// The negating rule appears before the rule it depends on
	prog := mustProgram(t, `
ok(X) :- item(X), not blocked(X).
blocked(X) :- banned(X).
`)
	strata, err := Stratify(prog, nil)
	require.NoError(t, err)
	require.Len(t, strata, 2)
	assert.Equal(t, []int{1}, strata[0].Rules)
	assert.Equal(t, []int{0}, strata[1].Rules)
}

func TestStratifyChain(t *testing.T) {
	prog := mustProgram(t, `
a(X) :- e(X).
b(X) :- e(X), not a(X).
c(X) :- e(X), not b(X).
d(X) :- c(X).
a(X) :- f(X).
report(X) :- d(X), e(X).
`)
	strata, err := Stratify(prog, nil)
	require.NoError(t, err)
	require.Len(t, strata, 3)

	assert.Equal(t, []int{0, 4}, strata[0].Rules)
	assert.Equal(t, []int{1}, strata[1].Rules)
	assert.Equal(t, []int{2, 3, 5}, strata[2].Rules, "positive consumers follow their producers")

	assertNegationOrdered(t, prog, strata)
}

func TestStratifyRecursionAboveNegation(t *testing.T) {
	prog := mustProgram(t, `
reach(X,Y) :- edge(X,Y).
reach(X,Y) :- edge(X,Z), reach(Z,Y).
unreach(X,Y) :- pair(X,Y), not reach(X,Y).
`)
	strata, err := Stratify(prog, nil)
	require.NoError(t, err)
	require.Len(t, strata, 2)
	assert.Equal(t, []int{0, 1}, strata[0].Rules)
	assert.Equal(t, []int{2}, strata[1].Rules)
	assertNegationOrdered(t, prog, strata)
}

func TestStratifyNegativeCycle(t *testing.T) {
	tests := []struct {
		name   string
		source string
		line   int
	}{
		{
			name:   "mutual negation",
			source: "a(X) :- base(X), not b(X).\nb(X) :- base(X), not a(X).",
			line:   1,
		},
		{
			name:   "self negation",
			source: "p(X) :- q(X), not p(X).",
			line:   1,
		},
		{
			name:   "negation through positive recursion",
			source: "a(X) :- b(X).\nb(X) :- base(X), not c(X).\nc(X) :- a(X).",
			line:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustProgram(t, tt.source)
			strata, err := Stratify(prog, nil)
			require.Error(t, err)
			assert.Nil(t, strata)
			assert.True(t, errors.Is(err, datalog.ErrCycle))

			ce, ok := datalog.AsCompileError(err)
			require.True(t, ok)
			assert.Equal(t, tt.line, ce.Line)
		})
	}
}

func TestStratifyAnnotations(t *testing.T) {
	var events []annotations.Event
	collector := annotations.NewCollector(func(e annotations.Event) {
		events = append(events, e)
	})

	prog := mustProgram(t, "blocked(X) :- banned(X).\nok(X) :- item(X), not blocked(X).")
	_, err := Stratify(prog, collector)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, annotations.StratifyRelocated, events[0].Name)
	assert.Equal(t, 2, events[0].Data["line"])
	assert.Equal(t, 0, events[0].Data["from"])
	assert.Equal(t, 1, events[0].Data["to"])
	assert.Equal(t, "blocked", events[0].Data["predicate"])
	assert.Equal(t, true, events[0].Data["negated"])
	assert.Equal(t, annotations.StratifyComplete, events[1].Name)
	assert.Equal(t, 2, events[1].Data["strata.count"])
}

func TestStratifyRelocationOutput(t *testing.T) {
	var buf bytes.Buffer
	collector := annotations.NewCollector(annotations.NewOutputFormatter(&buf).Handle)

	prog := mustProgram(t, "ok(X) :- item(X), not blocked(X).\nblocked(X) :- b(X).\ntop(X) :- ok(X).")
	_, err := Stratify(prog, collector)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Rule 1 negating blocked moved from stratum 0 to 1")
	assert.Contains(t, out, "Rule 3 consuming ok moved from stratum 0 to 1")
	assert.NotContains(t, out, "negating true")
	assert.NotContains(t, out, "negating false")
}

func TestStratumOf(t *testing.T) {
	strata := []Stratum{{Index: 0, Rules: []int{0, 2}}, {Index: 1, Rules: []int{1}}}
	assert.Equal(t, 0, StratumOf(strata, 2))
	assert.Equal(t, 1, StratumOf(strata, 1))
	assert.Equal(t, -1, StratumOf(strata, 7))
}

// assertNegationOrdered checks that every rule defining a negated predicate
// lands strictly before the rule negating it
func assertNegationOrdered(t *testing.T, prog *datalog.Program, strata []Stratum) {
	t.Helper()
	for i := range prog.Rules {
		for _, neg := range prog.Rules[i].Negated() {
			for _, def := range prog.DefiningRules(neg.ID) {
				if StratumOf(strata, def) >= StratumOf(strata, i) {
					t.Errorf("rule %d defining %s is in stratum %d, negating rule %d is in stratum %d",
						def, neg.ID.Name, StratumOf(strata, def), i, StratumOf(strata, i))
				}
			}
		}
	}
}
