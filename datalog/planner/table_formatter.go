package planner

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter renders a Plan as markdown tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a cell
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       60,
		TruncateString: "...",
	}
}

// FormatPlan renders the ordering, every stratum and the solution set
func (tf *TableFormatter) FormatPlan(plan *Plan) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", plan.File)
	sb.WriteString("## Ordering\n\n")
	sb.WriteString(tf.FormatOrdering(plan.Order))

	for _, s := range plan.Strata {
		fmt.Fprintf(&sb, "\n## Stratum %d\n\n", s.Index)
		sb.WriteString(tf.FormatRules(s))
		sb.WriteString("\n")
		sb.WriteString(tf.FormatEquations(s.Equations))
		if len(s.Views.Order) > 0 {
			sb.WriteString("\n")
			sb.WriteString(tf.FormatViews(s.Views))
		}
	}

	sb.WriteString("\n## Solution\n\n")
	sb.WriteString(tf.FormatSolution(plan))
	return sb.String()
}

// FormatOrdering renders the three predicate blocks
func (tf *TableFormatter) FormatOrdering(o Ordering) string {
	return tf.formatTable([]string{"Block", "Predicates"}, [][]string{
		{"1", strings.Join(identifierNames(o.Block1), " ")},
		{"2", strings.Join(identifierNames(o.Block2), " ")},
		{"3", strings.Join(identifierNames(o.Block3), " ")},
	})
}

// FormatRules renders the rules assigned to a stratum
func (tf *TableFormatter) FormatRules(s StratumPlan) string {
	rows := make([][]string, 0, len(s.Rules))
	for i := range s.Rules {
		r := &s.Rules[i]
		rows = append(rows, []string{fmt.Sprintf("%d", r.Line), fmt.Sprintf("%d", r.Type), r.String()})
	}
	return tf.formatTable([]string{"Line", "Type", "Rule"}, rows)
}

// FormatEquations renders one row per equation
func (tf *TableFormatter) FormatEquations(equations []Equation) string {
	rows := make([][]string, 0, len(equations))
	for _, eq := range equations {
		switch e := eq.(type) {
		case *UnaryEquation:
			rows = append(rows, []string{
				fmt.Sprintf("%d", e.Rule), "1", e.Head.Name + FormatTerms(e.HeadArgs),
				e.Driving.Name, "", "", "", attachments(e.Condition, e.Assignment, e.Negated),
			})
		case *BinaryEquation:
			rows = append(rows, []string{
				fmt.Sprintf("%d", e.Rule), string(e.Orientation), e.Head.Name + FormatTerms(e.HeadArgs),
				e.Driving.Name, e.Consulting.Name + FormatTerms(e.View), e.ViewName, e.Alias,
				attachments(e.Condition, e.Assignment, e.Negated),
			})
		}
	}
	return tf.formatTable([]string{"Rule", "Type", "Head", "Driving", "Consulting", "View", "Alias", "Attached"}, rows)
}

// FormatViews renders the views of one stratum in view order
func (tf *TableFormatter) FormatViews(data ViewsData) string {
	docs := viewDocuments(data)
	rows := make([][]string, 0, len(docs))
	for _, v := range docs {
		rows = append(rows, []string{
			v.Name, v.Alias, v.Predicate, fmt.Sprintf("%v", v.Combination), fmt.Sprintf("%d", v.Bound),
		})
	}
	return tf.formatTable([]string{"View", "Alias", "Predicate", "Combination", "Bound"}, rows)
}

// FormatSolution renders the persisted predicates
func (tf *TableFormatter) FormatSolution(plan *Plan) string {
	rows := make([][]string, 0, len(plan.Solution))
	for _, id := range plan.Solution {
		reasons := make([]string, len(plan.Reasons[id]))
		for i, r := range plan.Reasons[id] {
			reasons[i] = string(r)
		}
		rows = append(rows, []string{id.Name, strings.Join(reasons, ", ")})
	}
	return tf.formatTable([]string{"Predicate", "Reasons"}, rows)
}

func attachments(cond *RewrittenExpr, assign *RewrittenAssignment, negated []NegatedElement) string {
	var parts []string
	if cond != nil {
		parts = append(parts, cond.String())
	}
	if assign != nil {
		parts = append(parts, assign.String())
	}
	for _, n := range negated {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, "; ")
}

// formatTable formats headers and rows as a markdown table
func (tf *TableFormatter) formatTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_\n", headers)
	}

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	table.Header(headers)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = tf.truncate(cell)
		}
		table.Append(cells)
	}
	table.Render()

	return tableString.String()
}

func (tf *TableFormatter) truncate(s string) string {
	if tf.MaxWidth <= 0 || len(s) <= tf.MaxWidth {
		return s
	}
	cut := tf.MaxWidth - len(tf.TruncateString)
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + tf.TruncateString
}
