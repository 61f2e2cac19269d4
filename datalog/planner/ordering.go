package planner

import (
	"sort"
	"time"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
)

// OrderPredicates computes the three-block evaluation ordering of every
// predicate in graph ∪ intensional ∪ negated.
//
// Nodes are peeled source-first: a node whose remaining in-degree is zero is
// removed, repeatedly, until only cycles remain. Peeled nodes with no producers
// in the original graph form Block1; the other peeled nodes form Block2 in peel
// order. Whatever is left is recursive and forms Block3, ranked by how many
// producers it keeps once the peeled nodes are gone.
func OrderPredicates(graph datalog.DependencyGraph, intensional, negated datalog.IdentifierSet, collector *annotations.Collector) Ordering {
	start := time.Now()

	nodes := make(datalog.IdentifierSet)
	for id := range graph {
		nodes.Add(id)
	}
	for id := range intensional {
		nodes.Add(id)
	}
	for id := range negated {
		nodes.Add(id)
	}

	original := inDegrees(graph, nodes, nil)
	round := peel(graph, nodes)

	var block1, block2, block3 []datalog.Identifier
	for _, id := range nodes.Sorted() {
		_, peeled := round[id]
		switch {
		case peeled && original[id] == 0:
			block1 = append(block1, id)
		case peeled:
			block2 = append(block2, id)
		default:
			block3 = append(block3, id)
		}
	}

	sort.SliceStable(block2, func(i, j int) bool {
		return round[block2[i]] < round[block2[j]]
	})

	preds := Predecessors(graph)
	block1 = frontLoadPredecessors(block1, block2, preds)

	seeds := datalog.NewIdentifierSet(block1...)
	peeled := datalog.NewIdentifierSet(block1...)
	for _, id := range block2 {
		peeled.Add(id)
	}
	primary := inDegrees(graph, nodes, peeled)
	secondary := inDegrees(graph, nodes, seeds)
	sort.SliceStable(block3, func(i, j int) bool {
		a, b := block3[i], block3[j]
		if primary[a] != primary[b] {
			return primary[a] > primary[b]
		}
		if secondary[a] != secondary[b] {
			return secondary[a] > secondary[b]
		}
		return a.Compare(b) < 0
	})

	order := Ordering{Block1: block1, Block2: block2, Block3: block3}

	if collector.Enabled() {
		collector.AddTiming(annotations.OrderComputed, start, map[string]interface{}{
			"block1": identifierNames(block1),
			"block2": identifierNames(block2),
			"block3": identifierNames(block3),
		})
	}
	return order
}

// inDegrees counts distinct producers of every node once removed is taken out of the graph
func inDegrees(graph datalog.DependencyGraph, nodes, removed datalog.IdentifierSet) map[datalog.Identifier]int {
	producers := graph.Without(removed).Producers()
	deg := make(map[datalog.Identifier]int, len(nodes))
	for id := range nodes {
		if removed.Has(id) {
			continue
		}
		deg[id] = len(producers[id])
	}
	return deg
}

// peel removes zero in-degree nodes round by round and returns the round each
// peeled node left in. Nodes on or downstream of a cycle are never peeled.
func peel(graph datalog.DependencyGraph, nodes datalog.IdentifierSet) map[datalog.Identifier]int {
	remaining := make(datalog.IdentifierSet, len(nodes))
	for id := range nodes {
		remaining.Add(id)
	}
	removed := make(datalog.IdentifierSet)
	round := make(map[datalog.Identifier]int)

	for r := 0; ; r++ {
		deg := inDegrees(graph, remaining, removed)
		var ready []datalog.Identifier
		for id := range remaining {
			if deg[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			return round
		}
		for _, id := range ready {
			round[id] = r
			removed.Add(id)
			delete(remaining, id)
		}
	}
}

// frontLoadPredecessors moves Block1 members that reach some Block2 member to
// the front, otherwise keeping their order.
func frontLoadPredecessors(block1, block2 []datalog.Identifier, preds map[datalog.Identifier]datalog.IdentifierSet) []datalog.Identifier {
	feeds := func(id datalog.Identifier) bool {
		for _, b := range block2 {
			if preds[b].Has(id) {
				return true
			}
		}
		return false
	}

	out := make([]datalog.Identifier, 0, len(block1))
	var rest []datalog.Identifier
	for _, id := range block1 {
		if feeds(id) {
			out = append(out, id)
		} else {
			rest = append(rest, id)
		}
	}
	return append(out, rest...)
}

// Predecessors returns, for every node, the set of nodes that reach it through
// one or more producer edges. A node is never its own predecessor.
func Predecessors(graph datalog.DependencyGraph) map[datalog.Identifier]datalog.IdentifierSet {
	producers := graph.Producers()
	result := make(map[datalog.Identifier]datalog.IdentifierSet)

	var nodes []datalog.Identifier
	seen := make(datalog.IdentifierSet)
	for id, consumers := range graph {
		if !seen.Has(id) {
			seen.Add(id)
			nodes = append(nodes, id)
		}
		for c := range consumers {
			if !seen.Has(c) {
				seen.Add(c)
				nodes = append(nodes, c)
			}
		}
	}

	for _, id := range nodes {
		set := make(datalog.IdentifierSet)
		queue := producers[id].Sorted()
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if p == id || set.Has(p) {
				continue
			}
			set.Add(p)
			queue = append(queue, producers[p].Sorted()...)
		}
		result[id] = set
	}
	return result
}

// Precedes reports whether y must be evaluated before x
func Precedes(preds map[datalog.Identifier]datalog.IdentifierSet, y, x datalog.Identifier) bool {
	return preds[x].Has(y)
}

func identifierNames(ids []datalog.Identifier) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return names
}
