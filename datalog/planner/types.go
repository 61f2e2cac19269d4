package planner

import (
	"fmt"
	"strings"

	"github.com/wbrown/janus-solvergen/datalog"
)

// Term is a rewritten argument. A positional term refers to a column of the
// driving tuple; any other term carries the original argument (a constant, a
// free variable of the consulting predicate, or an assignment-bound variable).
type Term struct {
	Positional bool
	Position   int
	Arg        datalog.Argument
}

// Pos creates a positional term
func Pos(i int) Term {
	return Term{Positional: true, Position: i}
}

// Lit creates a literal term
func Lit(arg datalog.Argument) Term {
	return Term{Arg: arg}
}

// IsConstant reports whether the term is a literal constant
func (t Term) IsConstant() bool {
	return !t.Positional && t.Arg.IsConstant()
}

// IsFree reports whether the term is a variable not bound by the driving tuple
func (t Term) IsFree() bool {
	return !t.Positional && t.Arg.IsVariable()
}

// String renders positions as $N
func (t Term) String() string {
	if t.Positional {
		return fmt.Sprintf("$%d", t.Position)
	}
	return t.Arg.String()
}

// FormatTerms renders terms as "($0, Y, 3)"
func FormatTerms(terms []Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// VariablePosition pairs a variable with its first position in the driving predicate
type VariablePosition struct {
	Name     string
	Position int
}

// Selection restricts a driving column: either to a constant or to equal another column
type Selection struct {
	Position int
	Equals   Term
}

// NegatedElement is a negated body predicate with its arguments rewritten
type NegatedElement struct {
	Predicate datalog.Identifier
	Args      []Term
}

// String renders the element as "not p($0, 3)"
func (n NegatedElement) String() string {
	return "not " + n.Predicate.Name + FormatTerms(n.Args)
}

// ExprTerm is one token of a rewritten expression
type ExprTerm struct {
	Text  string // Operator or literal text when IsRef is false
	Ref   Term   // Rewritten variable when IsRef is true
	IsRef bool
}

// RewrittenExpr is an expression whose variable references were rewritten to terms
type RewrittenExpr struct {
	Source string // Original expression text
	Terms  []ExprTerm
}

// String renders the rewritten expression
func (e *RewrittenExpr) String() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	for i, t := range e.Terms {
		text := t.Text
		if t.IsRef {
			text = t.Ref.String()
		}
		if i > 0 {
			prev := e.Terms[i-1]
			tight := prev.Text == "(" || text == ")" || text == "," ||
				(text == "(" && !prev.IsRef && isName(prev.Text))
			if !tight {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// RewrittenAssignment binds Target to a rewritten expression
type RewrittenAssignment struct {
	Target string
	Expr   RewrittenExpr
}

// String renders "Y := $0 + 1"
func (a *RewrittenAssignment) String() string {
	if a == nil {
		return ""
	}
	return a.Target + " := " + a.Expr.String()
}

// EquationKind tags the Equation variants
type EquationKind uint8

const (
	UnaryKind EquationKind = iota + 1
	BinaryKind
)

// String returns the kind name
func (k EquationKind) String() string {
	switch k {
	case UnaryKind:
		return "unary"
	case BinaryKind:
		return "binary"
	}
	return "unknown"
}

// Orientation names which body predicate drives a binary equation
type Orientation string

const (
	OrientationA Orientation = "2a" // First body predicate drives
	OrientationB Orientation = "2b" // Second body predicate drives
)

// Equation is a rewriting equation: *UnaryEquation or *BinaryEquation.
type Equation interface {
	Kind() EquationKind
	RuleNumber() int
	HeadPredicate() datalog.Identifier
	DrivingPredicate() datalog.Identifier
	String() string
	equation()
}

// UnaryEquation rewrites a rule with a single positive body predicate.
type UnaryEquation struct {
	Rule        int // 1-based rule number in the source
	Line        int
	Head        datalog.Identifier
	HeadArgs    []Term
	Driving     datalog.Identifier
	DrivingArgs []datalog.Argument
	Positions   []VariablePosition
	Selections  []Selection
	Condition   *RewrittenExpr
	Assignment  *RewrittenAssignment
	Negated     []NegatedElement
}

func (*UnaryEquation) equation() {}

// Kind returns UnaryKind
func (*UnaryEquation) Kind() EquationKind { return UnaryKind }

// RuleNumber returns the source rule number
func (e *UnaryEquation) RuleNumber() int { return e.Rule }

// HeadPredicate returns the derived predicate
func (e *UnaryEquation) HeadPredicate() datalog.Identifier { return e.Head }

// DrivingPredicate returns the body predicate
func (e *UnaryEquation) DrivingPredicate() datalog.Identifier { return e.Driving }

func (e *UnaryEquation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s <- %s", e.Head.Name, FormatTerms(e.HeadArgs), e.Driving.Name)
	writeAttachments(&sb, e.Condition, e.Assignment, e.Negated)
	return sb.String()
}

// BinaryEquation rewrites one orientation of a rule with two positive body predicates.
type BinaryEquation struct {
	Rule           int // 1-based rule number in the source
	Line           int
	Orientation    Orientation
	Head           datalog.Identifier
	HeadArgs       []Term
	Driving        datalog.Identifier
	DrivingArgs    []datalog.Argument
	Positions      []VariablePosition
	Selections     []Selection
	Consulting     datalog.Identifier
	ConsultingArgs []Term             // Consulting arguments in declared order, common variables substituted
	CommonVars     []VariablePosition // Deduplicated, first-appearance order
	View           []Term             // ConsultingArgs in canonical view order
	Combination    []int              // View[i] == ConsultingArgs[Combination[i]]
	BoundColumns   int                // Leading view columns fixed by the driving tuple
	ViewName       string
	Alias          string
	Condition      *RewrittenExpr
	Assignment     *RewrittenAssignment
	Negated        []NegatedElement
}

func (*BinaryEquation) equation() {}

// Kind returns BinaryKind
func (*BinaryEquation) Kind() EquationKind { return BinaryKind }

// RuleNumber returns the source rule number
func (e *BinaryEquation) RuleNumber() int { return e.Rule }

// HeadPredicate returns the derived predicate
func (e *BinaryEquation) HeadPredicate() datalog.Identifier { return e.Head }

// DrivingPredicate returns the predicate whose new facts trigger this equation
func (e *BinaryEquation) DrivingPredicate() datalog.Identifier { return e.Driving }

// IsMembershipTest reports whether every consulting column is fixed by the driving tuple
func (e *BinaryEquation) IsMembershipTest() bool {
	return e.BoundColumns == len(e.View)
}

func (e *BinaryEquation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s <- %s ⋈ %s%s [%s]",
		e.Head.Name, FormatTerms(e.HeadArgs),
		e.Driving.Name, e.Consulting.Name, FormatTerms(e.View), e.ViewName)
	writeAttachments(&sb, e.Condition, e.Assignment, e.Negated)
	return sb.String()
}

func writeAttachments(sb *strings.Builder, cond *RewrittenExpr, assign *RewrittenAssignment, negated []NegatedElement) {
	if cond != nil {
		fmt.Fprintf(sb, " if %s", cond)
	}
	if assign != nil {
		fmt.Fprintf(sb, " with %s", assign)
	}
	for _, n := range negated {
		fmt.Fprintf(sb, ", %s", n)
	}
}

// View is a canonical index shape over a consulting predicate
type View struct {
	Name        string
	Predicate   datalog.Identifier
	Combination []int
	Bound       int
}

// Key returns the bound prefix of the combination
func (v View) Key() []int {
	return v.Combination[:v.Bound]
}

// ViewsData describes the views one stratum's equations consult.
type ViewsData struct {
	Views          map[string]View     // view name -> view
	Aliases        map[string]string   // alias -> view name
	PredicateViews map[string][]string // predicate name -> view names, in first-use order
	Order          []string            // view names by bound columns (descending), then name
}

// Ordering is the three-block predicate ordering.
type Ordering struct {
	Block1 []datalog.Identifier // Seeds: no incoming edges in the original graph
	Block2 []datalog.Identifier // Non-recursive derived predicates
	Block3 []datalog.Identifier // Everything still cyclic after peeling
}

// All returns the blocks concatenated
func (o Ordering) All() []datalog.Identifier {
	out := make([]datalog.Identifier, 0, len(o.Block1)+len(o.Block2)+len(o.Block3))
	out = append(out, o.Block1...)
	out = append(out, o.Block2...)
	return append(out, o.Block3...)
}

// Restrict keeps only members of set, preserving order
func (o Ordering) Restrict(set datalog.IdentifierSet) Ordering {
	filter := func(ids []datalog.Identifier) []datalog.Identifier {
		var out []datalog.Identifier
		for _, id := range ids {
			if set.Has(id) {
				out = append(out, id)
			}
		}
		return out
	}
	return Ordering{
		Block1: filter(o.Block1),
		Block2: filter(o.Block2),
		Block3: filter(o.Block3),
	}
}

// Stratum is an ordered subset of the program's rules
type Stratum struct {
	Index int
	Rules []int // Indexes into Program.Rules, in source order
}

// StratumPlan is everything a code generator needs for one stratum
type StratumPlan struct {
	Index     int
	Rules     []datalog.LogicRule
	Equations []Equation
	Views     ViewsData
	Order     Ordering
}

// Plan is the complete compiled IR for one source file.
type Plan struct {
	File     string
	Key      string // Cache key of (source, options)
	Program  *datalog.Program
	Strata   []StratumPlan
	Order    Ordering
	Solution []datalog.Identifier // Predicates that must be persisted
	Reasons  map[datalog.Identifier][]SolutionReason
	Output   []string // Predicates echoed to the solver output
}

// EquationCount returns the number of equations across all strata
func (p *Plan) EquationCount() int {
	n := 0
	for _, s := range p.Strata {
		n += len(s.Equations)
	}
	return n
}

// ViewCount returns the number of distinct views across all strata
func (p *Plan) ViewCount() int {
	names := make(map[string]bool)
	for _, s := range p.Strata {
		for name := range s.Views.Views {
			names[name] = true
		}
	}
	return len(names)
}
