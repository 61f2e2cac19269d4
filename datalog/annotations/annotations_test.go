package annotations

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCollectorRecordsEvents(t *testing.T) {
	var seen []string
	c := NewCollector(func(e Event) { seen = append(seen, e.Name) })
	require.True(t, c.Enabled())

	c.Add(Event{Name: CompileInvoked})
	c.AddTiming(CompileComplete, time.Now(), map[string]interface{}{"success": true})

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, CompileComplete, events[1].Name)
	assert.False(t, events[1].End.Before(events[1].Start))
	assert.Equal(t, []string{CompileInvoked, CompileComplete}, seen)

	c.Reset()
	assert.Empty(t, c.Events())
}

func TestCollectorNilAndDisabled(t *testing.T) {
	var nilCollector *Collector
	assert.False(t, nilCollector.Enabled())
	nilCollector.Add(Event{Name: CacheHit})
	nilCollector.AddTiming(CacheMiss, time.Now(), nil)
	nilCollector.Reset()
	assert.Nil(t, nilCollector.Events())

	disabled := NewCollector(nil)
	assert.False(t, disabled.Enabled())
	disabled.Add(Event{Name: CacheHit})
	assert.Empty(t, disabled.Events())
}

func TestOutputFormatterPlain(t *testing.T) {
	var buf bytes.Buffer
	f := NewOutputFormatter(&buf)

	tests := []struct {
		event Event
		want  string
	}{
		{
			Event{Name: CompileInvoked, Latency: 3 * time.Microsecond,
				Data: map[string]interface{}{"file": "anc.dl", "lines.count": 2}},
			"[3µs] === Compiling anc.dl (2 lines)",
		},
		{
			Event{Name: CompileComplete, Latency: 1500 * time.Microsecond,
				Data: map[string]interface{}{"success": true, "rules.count": 2, "strata.count": 1,
					"equations.count": 3, "views.count": 1}},
			"[1.5ms] === Compiled 2 rules into 1 strata, 3 equations and 1 views.",
		},
		{
			Event{Name: CompileComplete,
				Data: map[string]interface{}{"success": false, "error": "boom"}},
			"[0µs] ✗ Compilation failed: boom",
		},
		{
			Event{Name: OrderComputed, Data: map[string]interface{}{
				"block1": []string{"edge"}, "block2": []string{}, "block3": []string{"reach"}}},
			"[0µs] Ordering seed [edge], derived [], recursive [reach]",
		},
		{
			Event{Name: StratifyRelocated, Data: map[string]interface{}{
				"line": 1, "predicate": "blocked", "negated": true, "from": 0, "to": 1}},
			"[0µs] Rule 1 negating blocked moved from stratum 0 to 1",
		},
		{
			Event{Name: StratifyRelocated, Data: map[string]interface{}{
				"line": 3, "predicate": "ok", "negated": false, "from": 0, "to": 1}},
			"[0µs] Rule 3 consuming ok moved from stratum 0 to 1",
		},
		{
			Event{Name: ViewMinted, Data: map[string]interface{}{
				"view": "q_view_1", "predicate": "q", "combination": []int{1, 0}, "bound": 1}},
			"[0µs] View(q_view_1 on q, [1 0], 1 bound)",
		},
		{
			Event{Name: ErrorCompile, Data: map[string]interface{}{
				"file": "bad.dl", "line": 4, "category": "syntax", "message": "expected ')'"}},
			"[0µs] ✗ bad.dl:4: syntax: expected ')'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.event.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Format(tt.event))
		})
	}

	f.Handle(tests[0].event)
	assert.Equal(t, tests[0].want+"\n", buf.String())
}

func TestOutputFormatterUnknownEvent(t *testing.T) {
	f := NewOutputFormatter(&bytes.Buffer{})
	out := f.Format(Event{Name: "custom/event", Data: map[string]interface{}{"k": 1}})
	assert.True(t, strings.HasPrefix(out, "[0µs] custom/event"), out)
}

func TestPredicateRendererPlain(t *testing.T) {
	r := NewPredicateRenderer(false)
	assert.Equal(t, "anc", r.RenderPredicate("anc"))
	assert.Equal(t, "[a b]", r.RenderPredicates([]string{"a", "b"}))
	assert.Equal(t, "[]", r.RenderPredicates(nil))
	assert.Equal(t, "View(v on p, [], 0 bound)", r.RenderView("v", "p", nil, 0))
}

func TestZapHandler(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := ZapHandler(zap.New(core))

	h(Event{Name: StratumCompiled, Latency: time.Millisecond,
		Data: map[string]interface{}{"stratum": 0, "equations.count": 2}})
	h(Event{Name: ErrorCompile, Data: map[string]interface{}{"line": 3}})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, StratumCompiled, entries[0].Message)
	ctx := entries[0].ContextMap()
	assert.EqualValues(t, 2, ctx["equations.count"])
	assert.Equal(t, time.Millisecond, ctx["latency"])

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, ErrorCompile, entries[1].Message)
}

func TestZapHandlerNilLogger(t *testing.T) {
	h := ZapHandler(nil)
	assert.NotPanics(t, func() { h(Event{Name: CacheHit}) })
}

func TestTee(t *testing.T) {
	assert.Nil(t, Tee())
	assert.Nil(t, Tee(nil, nil))

	var a, b int
	single := Tee(nil, func(Event) { a++ })
	single(Event{})
	assert.Equal(t, 1, a)

	both := Tee(func(Event) { a++ }, nil, func(Event) { b++ })
	both(Event{})
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}
