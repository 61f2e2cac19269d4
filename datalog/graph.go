package datalog

// DependencyGraph maps each predicate to the predicates whose rules consume it.
// An edge producer -> consumer exists when producer appears in the body of a rule
// whose head is consumer.
type DependencyGraph map[Identifier]IdentifierSet

// AddEdge records producer -> consumer
func (g DependencyGraph) AddEdge(producer, consumer Identifier) {
	consumers, ok := g[producer]
	if !ok {
		consumers = make(IdentifierSet)
		g[producer] = consumers
	}
	consumers.Add(consumer)
}

// AddNode makes sure id is a key of the graph
func (g DependencyGraph) AddNode(id Identifier) {
	if _, ok := g[id]; !ok {
		g[id] = make(IdentifierSet)
	}
}

// Keys returns the graph keys sorted by name
func (g DependencyGraph) Keys() []Identifier {
	ids := make([]Identifier, 0, len(g))
	for id := range g {
		ids = append(ids, id)
	}
	SortIdentifiers(ids)
	return ids
}

// Producers returns the reverse adjacency: consumer -> set of producers
func (g DependencyGraph) Producers() map[Identifier]IdentifierSet {
	rev := make(map[Identifier]IdentifierSet, len(g))
	for producer, consumers := range g {
		for consumer := range consumers {
			set, ok := rev[consumer]
			if !ok {
				set = make(IdentifierSet)
				rev[consumer] = set
			}
			set.Add(producer)
		}
	}
	return rev
}

// Without returns a copy of the graph with the given nodes and their edges removed
func (g DependencyGraph) Without(removed IdentifierSet) DependencyGraph {
	out := make(DependencyGraph, len(g))
	for producer, consumers := range g {
		if removed.Has(producer) {
			continue
		}
		set := make(IdentifierSet, len(consumers))
		for consumer := range consumers {
			if !removed.Has(consumer) {
				set.Add(consumer)
			}
		}
		out[producer] = set
	}
	return out
}

// Clone returns a deep copy
func (g DependencyGraph) Clone() DependencyGraph {
	return g.Without(nil)
}
