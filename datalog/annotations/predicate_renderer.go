package annotations

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// PredicateRenderer provides pretty-printing for predicate sets and views
type PredicateRenderer struct {
	useColor bool
}

// NewPredicateRenderer creates a new predicate renderer
func NewPredicateRenderer(useColor bool) *PredicateRenderer {
	return &PredicateRenderer{useColor: useColor}
}

// RenderPredicate renders a single predicate name
func (r *PredicateRenderer) RenderPredicate(name string) string {
	if r.useColor {
		return color.CyanString(name)
	}
	return name
}

// RenderPredicates renders a list of predicate names as [a b c]
func (r *PredicateRenderer) RenderPredicates(names []string) string {
	list := strings.Join(names, " ")
	if r.useColor {
		return fmt.Sprintf("%s%s%s",
			color.BlueString("["),
			color.CyanString(list),
			color.BlueString("]"))
	}
	return "[" + list + "]"
}

// RenderView renders a view as View(name on pred, [combination], N bound)
func (r *PredicateRenderer) RenderView(name, predicate string, combination []int, bound int) string {
	combo := make([]string, len(combination))
	for i, c := range combination {
		combo[i] = fmt.Sprintf("%d", c)
	}
	comboStr := "[" + strings.Join(combo, " ") + "]"

	if r.useColor {
		return fmt.Sprintf("%s%s %s %s%s %s%s",
			color.BlueString("View("),
			color.CyanString(name),
			"on",
			color.CyanString(predicate),
			color.BlueString(","),
			color.YellowString(fmt.Sprintf("%s, %d bound", comboStr, bound)),
			color.BlueString(")"))
	}
	return fmt.Sprintf("View(%s on %s, %s, %d bound)", name, predicate, comboStr, bound)
}
