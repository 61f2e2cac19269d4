package datalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Identifier names a predicate within one compilation unit.
// Two identifiers are the same predicate iff their IDs match.
type Identifier struct {
	Name string // Predicate name as written in the source
	ID   int    // Stable id handed out by the SymbolTable
}

// String returns the predicate name
func (id Identifier) String() string {
	return id.Name
}

// Compare orders identifiers by name, then id
func (id Identifier) Compare(other Identifier) int {
	if c := strings.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	switch {
	case id.ID < other.ID:
		return -1
	case id.ID > other.ID:
		return 1
	}
	return 0
}

// ArgumentKind distinguishes variables from integer constants
type ArgumentKind uint8

const (
	ArgVariable ArgumentKind = iota
	ArgConstant
)

// Argument is a single predicate argument: a variable or an integer constant.
type Argument struct {
	Kind  ArgumentKind
	Name  string // Variable name (ArgVariable only)
	Value int64  // Constant value (ArgConstant only)
}

// Var creates a variable argument
func Var(name string) Argument {
	return Argument{Kind: ArgVariable, Name: name}
}

// Const creates a constant argument
func Const(v int64) Argument {
	return Argument{Kind: ArgConstant, Value: v}
}

// IsVariable reports whether the argument is a variable
func (a Argument) IsVariable() bool {
	return a.Kind == ArgVariable
}

// IsConstant reports whether the argument is a constant
func (a Argument) IsConstant() bool {
	return a.Kind == ArgConstant
}

// String returns the source form of the argument
func (a Argument) String() string {
	if a.Kind == ArgConstant {
		return strconv.FormatInt(a.Value, 10)
	}
	return a.Name
}

// Predicate is an atom: an identifier applied to arguments, possibly negated.
type Predicate struct {
	ID      Identifier
	Negated bool
	Args    []Argument
}

func (Predicate) bodyElement() {}

// Arity returns the argument count
func (p Predicate) Arity() int {
	return len(p.Args)
}

// Variables returns the distinct variable names in first-appearance order
func (p Predicate) Variables() []string {
	seen := make(map[string]bool, len(p.Args))
	var vars []string
	for _, arg := range p.Args {
		if arg.IsVariable() && !seen[arg.Name] {
			seen[arg.Name] = true
			vars = append(vars, arg.Name)
		}
	}
	return vars
}

// VariableSet returns the variables as a set
func (p Predicate) VariableSet() map[string]bool {
	set := make(map[string]bool, len(p.Args))
	for _, arg := range p.Args {
		if arg.IsVariable() {
			set[arg.Name] = true
		}
	}
	return set
}

// HasRepeatedVariable reports whether some variable occurs at more than one position
func (p Predicate) HasRepeatedVariable() bool {
	seen := make(map[string]bool, len(p.Args))
	for _, arg := range p.Args {
		if !arg.IsVariable() {
			continue
		}
		if seen[arg.Name] {
			return true
		}
		seen[arg.Name] = true
	}
	return false
}

// String returns the source form of the predicate
func (p Predicate) String() string {
	var sb strings.Builder
	if p.Negated {
		sb.WriteString("not ")
	}
	sb.WriteString(p.ID.Name)
	sb.WriteByte('(')
	for i, arg := range p.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// IdentifierSet is a set of predicate identifiers
type IdentifierSet map[Identifier]struct{}

// NewIdentifierSet creates a set holding ids
func NewIdentifierSet(ids ...Identifier) IdentifierSet {
	s := make(IdentifierSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id
func (s IdentifierSet) Add(id Identifier) {
	s[id] = struct{}{}
}

// Has reports membership
func (s IdentifierSet) Has(id Identifier) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members ordered by name
func (s IdentifierSet) Sorted() []Identifier {
	ids := make([]Identifier, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	SortIdentifiers(ids)
	return ids
}

// Names returns the sorted member names
func (s IdentifierSet) Names() []string {
	ids := s.Sorted()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return names
}

// SortIdentifiers sorts ids in place by name, then id
func SortIdentifiers(ids []Identifier) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Compare(ids[j]) < 0
	})
}

// FormatIdentifiers renders ids as "[a b c]"
func FormatIdentifiers(ids []Identifier) string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return fmt.Sprintf("[%s]", strings.Join(names, " "))
}
