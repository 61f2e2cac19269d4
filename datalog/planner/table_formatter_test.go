package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPlan(t *testing.T) {
	plan, err := NewCompiler(Options{}).Compile("neg.dl", `
reach(X,Y) :- edge(X,Y).
reach(X,Y) :- edge(X,Z), reach(Z,Y).
unreach(X,Y) :- pair(X,Y), not reach(X,Y).
`)
	require.NoError(t, err)

	out := NewTableFormatter().FormatPlan(plan)

	assert.True(t, strings.HasPrefix(out, "# neg.dl\n"))
	assert.Contains(t, out, "## Stratum 0")
	assert.Contains(t, out, "## Stratum 1")
	assert.Contains(t, out, "## Solution")
	for _, want := range []string{"reach_view_1", "edge_view_1", "reach_z_y", "not reach($0, $1)", "negated"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 1, strings.Count(out, "## Ordering"))
}

func TestFormatEmptyTable(t *testing.T) {
	tf := NewTableFormatter()
	out := tf.FormatSolution(&Plan{})
	assert.Equal(t, "_Columns: [Predicate Reasons]_\n\n_No rows_\n", out)
}

func TestTruncate(t *testing.T) {
	tf := &TableFormatter{MaxWidth: 8, TruncateString: "..."}
	assert.Equal(t, "short", tf.truncate("short"))
	assert.Equal(t, "abcde...", tf.truncate("abcdefghijk"))

	tf.MaxWidth = 0
	assert.Equal(t, "abcdefghijk", tf.truncate("abcdefghijk"))
}
