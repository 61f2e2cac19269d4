package planner

import (
	"sort"
	"time"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
)

// Stratify partitions the program's rules into strata. A rule negating P is
// placed strictly after every rule whose head is P; a rule consuming P
// positively is never placed before P's defining rules. Rules keep source
// order within a stratum and empty levels are dropped.
//
// Programs that recurse through negation have no stratification and are
// rejected with a CycleError before relocation starts.
func Stratify(prog *datalog.Program, collector *annotations.Collector) ([]Stratum, error) {
	start := time.Now()

	if err := checkNegativeCycles(prog); err != nil {
		return nil, err
	}

	defining := make(map[datalog.Identifier][]int)
	for i := range prog.Rules {
		head := prog.Rules[i].Head.ID
		defining[head] = append(defining[head], i)
	}

	level := make([]int, len(prog.Rules))
	maxLevel := func(id datalog.Identifier) (int, bool) {
		rules, ok := defining[id]
		if !ok {
			return 0, false
		}
		m := 0
		for _, r := range rules {
			if level[r] > m {
				m = level[r]
			}
		}
		return m, true
	}

	iterations := 0
	for changed := true; changed; {
		changed = false
		iterations++
		if iterations > len(prog.Rules)+1 {
			// Unreachable once negative cycles are excluded; levels are bounded by the rule count.
			return nil, datalog.Errorf(datalog.CycleError, prog.File, 0,
				"stratification did not converge after %d iterations", iterations)
		}

		for i := range prog.Rules {
			rule := &prog.Rules[i]
			for _, body := range rule.Predicates() {
				m, ok := maxLevel(body.ID)
				if !ok {
					continue
				}
				need := m
				if body.Negated {
					need = m + 1
				}
				if level[i] >= need {
					continue
				}

				if collector.Enabled() {
					collector.Add(annotations.Event{
						Name: annotations.StratifyRelocated,
						Data: map[string]interface{}{
							"line":      rule.Line,
							"rule":      rule.String(),
							"predicate": body.ID.Name,
							"negated":   body.Negated,
							"from":      level[i],
							"to":        need,
						},
					})
				}
				level[i] = need
				changed = true
			}
		}
	}

	strata := compactLevels(level)

	if collector.Enabled() {
		collector.AddTiming(annotations.StratifyComplete, start, map[string]interface{}{
			"strata.count": len(strata),
			"iterations":   iterations,
		})
	}

	return strata, nil
}

// compactLevels groups rule indexes by level, dropping empty levels
func compactLevels(level []int) []Stratum {
	byLevel := make(map[int][]int)
	var levels []int
	for i, l := range level {
		if _, ok := byLevel[l]; !ok {
			levels = append(levels, l)
		}
		byLevel[l] = append(byLevel[l], i)
	}
	sort.Ints(levels)

	strata := make([]Stratum, len(levels))
	for i, l := range levels {
		strata[i] = Stratum{Index: i, Rules: byLevel[l]}
	}
	return strata
}

// StratumOf returns the stratum index holding rule index r, or -1
func StratumOf(strata []Stratum, r int) int {
	for _, s := range strata {
		for _, idx := range s.Rules {
			if idx == r {
				return s.Index
			}
		}
	}
	return -1
}

// checkNegativeCycles rejects any negated body predicate that lies in the same
// strongly connected component as the rule's head.
func checkNegativeCycles(prog *datalog.Program) error {
	component := stronglyConnected(prog.Graph)

	for i := range prog.Rules {
		rule := &prog.Rules[i]
		for _, neg := range rule.Negated() {
			if component[neg.ID] != component[rule.Head.ID] {
				continue
			}
			var members []datalog.Identifier
			for id, c := range component {
				if c == component[rule.Head.ID] {
					members = append(members, id)
				}
			}
			datalog.SortIdentifiers(members)
			return datalog.Errorf(datalog.CycleError, prog.File, rule.Line,
				"%s depends negatively on %s within recursive cycle %s",
				rule.Head.ID.Name, neg.ID.Name, datalog.FormatIdentifiers(members))
		}
	}
	return nil
}

// stronglyConnected labels every node of g with a component number (Tarjan).
func stronglyConnected(g datalog.DependencyGraph) map[datalog.Identifier]int {
	var (
		index   = make(map[datalog.Identifier]int)
		lowlink = make(map[datalog.Identifier]int)
		onStack = make(map[datalog.Identifier]bool)
		comp    = make(map[datalog.Identifier]int)
		stack   []datalog.Identifier
		next    int
		count   int
	)

	var visit func(v datalog.Identifier)
	visit = func(v datalog.Identifier) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v].Sorted() {
			if _, seen := index[w]; !seen {
				visit(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] && index[w] < lowlink[v] {
				lowlink[v] = index[w]
			}
		}

		if lowlink[v] == index[v] {
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = count
				if w == v {
					break
				}
			}
			count++
		}
	}

	for _, v := range g.Keys() {
		if _, seen := index[v]; !seen {
			visit(v)
		}
	}
	return comp
}
