package datalog

// SymbolTable interns predicate names into Identifiers.
// Each compilation owns its own table; ids are assigned in first-appearance order
// starting at 1, so they are stable for a given source file.
type SymbolTable struct {
	ids   map[string]Identifier
	order []Identifier
}

// NewSymbolTable creates an empty table
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[string]Identifier)}
}

// Intern returns the identifier for name, allocating one on first use
func (t *SymbolTable) Intern(name string) Identifier {
	if id, ok := t.ids[name]; ok {
		return id
	}
	id := Identifier{Name: name, ID: len(t.order) + 1}
	t.ids[name] = id
	t.order = append(t.order, id)
	return id
}

// Lookup returns the identifier for name if it was interned
func (t *SymbolTable) Lookup(name string) (Identifier, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// Len returns the number of interned identifiers
func (t *SymbolTable) Len() int {
	return len(t.order)
}
