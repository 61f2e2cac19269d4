package datalog

// Program is the validated output of rule ingestion.
// It is built once and never mutated by later stages.
type Program struct {
	File        string
	Rules       []LogicRule
	Intensional IdentifierSet // Predicates defined by at least one rule head
	Extensional IdentifierSet // Predicates only ever consumed
	Negated     IdentifierSet // Predicates appearing negated in some body
	Graph       DependencyGraph
	Arity       map[Identifier]int
	Symbols     *SymbolTable
}

// NewProgram creates an empty program for file
func NewProgram(file string, symbols *SymbolTable) *Program {
	if symbols == nil {
		symbols = NewSymbolTable()
	}
	return &Program{
		File:        file,
		Intensional: make(IdentifierSet),
		Extensional: make(IdentifierSet),
		Negated:     make(IdentifierSet),
		Graph:       make(DependencyGraph),
		Arity:       make(map[Identifier]int),
		Symbols:     symbols,
	}
}

// Predicates returns graph keys plus intensional predicates, sorted by name
func (p *Program) Predicates() []Identifier {
	all := make(IdentifierSet, len(p.Graph)+len(p.Intensional))
	for id := range p.Graph {
		all.Add(id)
	}
	for id := range p.Intensional {
		all.Add(id)
	}
	return all.Sorted()
}

// DefiningRules returns the indexes of rules whose head is id
func (p *Program) DefiningRules(id Identifier) []int {
	var idx []int
	for i := range p.Rules {
		if p.Rules[i].Head.ID == id {
			idx = append(idx, i)
		}
	}
	return idx
}
