package datalog

import (
	"strings"
)

// BodyElement is one element of a rule body: a Predicate, an *Assignment or a *Condition.
type BodyElement interface {
	bodyElement()
	String() string
}

// ExprToken is one token of an arithmetic or boolean expression
type ExprToken struct {
	Text     string
	Variable bool // Text names a rule variable
}

// Expression is a parsed arithmetic or comparison expression.
type Expression struct {
	Source    string      // Normalized source text
	Tokens    []ExprToken // Token stream, used for rewriting
	Variables []string    // Referenced variables in first-appearance order
}

// String returns the normalized source
func (e Expression) String() string {
	return e.Source
}

// Assignment binds Target to the value of Expr: `Var = Expr`.
type Assignment struct {
	Target string
	Expr   Expression
}

func (*Assignment) bodyElement() {}

func (a *Assignment) String() string {
	return a.Target + " = " + a.Expr.Source
}

// Condition is a boolean filter over bound variables: `X < Y`.
type Condition struct {
	Expr Expression
}

func (*Condition) bodyElement() {}

func (c *Condition) String() string {
	return c.Expr.Source
}

// RuleType classifies rules by body predicate count
type RuleType uint8

const (
	RuleUnary  RuleType = 1
	RuleBinary RuleType = 2
)

// LogicRule is a single validated source rule.
type LogicRule struct {
	Head Predicate
	Body []BodyElement
	Type RuleType
	Line int    // 1-based source line
	Text string // Source text, trimmed
}

// Predicates returns the body predicates in source order
func (r *LogicRule) Predicates() []Predicate {
	var preds []Predicate
	for _, elem := range r.Body {
		if p, ok := elem.(Predicate); ok {
			preds = append(preds, p)
		}
	}
	return preds
}

// Positive returns the non-negated body predicates
func (r *LogicRule) Positive() []Predicate {
	var preds []Predicate
	for _, elem := range r.Body {
		if p, ok := elem.(Predicate); ok && !p.Negated {
			preds = append(preds, p)
		}
	}
	return preds
}

// Negated returns the negated body predicates
func (r *LogicRule) Negated() []Predicate {
	var preds []Predicate
	for _, elem := range r.Body {
		if p, ok := elem.(Predicate); ok && p.Negated {
			preds = append(preds, p)
		}
	}
	return preds
}

// Assignments returns every assignment in the body
func (r *LogicRule) Assignments() []*Assignment {
	var out []*Assignment
	for _, elem := range r.Body {
		if a, ok := elem.(*Assignment); ok {
			out = append(out, a)
		}
	}
	return out
}

// Conditions returns every boolean expression in the body
func (r *LogicRule) Conditions() []*Condition {
	var out []*Condition
	for _, elem := range r.Body {
		if c, ok := elem.(*Condition); ok {
			out = append(out, c)
		}
	}
	return out
}

// Assignment returns the rule's assignment, or nil
func (r *LogicRule) Assignment() *Assignment {
	if as := r.Assignments(); len(as) > 0 {
		return as[0]
	}
	return nil
}

// Condition returns the rule's boolean expression, or nil
func (r *LogicRule) Condition() *Condition {
	if cs := r.Conditions(); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// Negates reports whether the body negates id
func (r *LogicRule) Negates(id Identifier) bool {
	for _, p := range r.Negated() {
		if p.ID == id {
			return true
		}
	}
	return false
}

// String returns the canonical source form of the rule
func (r *LogicRule) String() string {
	parts := make([]string, len(r.Body))
	for i, elem := range r.Body {
		parts[i] = elem.String()
	}
	return r.Head.String() + " :- " + strings.Join(parts, ", ") + "."
}
