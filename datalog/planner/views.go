package planner

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/annotations"
)

// ConstructOrderingForView reorders a consulting predicate's rewritten
// arguments into view order: driving positions first, then constants, then
// free variables, each group keeping its relative order.
//
// combination maps canonical slots back to declared slots:
// canonical[i] == terms[combination[i]]. bound is the number of leading
// canonical columns fixed before the lookup (positions and constants).
func ConstructOrderingForView(terms []Term) (canonical []Term, combination []int, bound int) {
	combination = make([]int, 0, len(terms))
	for i, t := range terms {
		if t.Positional {
			combination = append(combination, i)
		}
	}
	for i, t := range terms {
		if t.IsConstant() {
			combination = append(combination, i)
		}
	}
	bound = len(combination)
	for i, t := range terms {
		if t.IsFree() {
			combination = append(combination, i)
		}
	}

	canonical = make([]Term, len(terms))
	for i, src := range combination {
		canonical[i] = terms[src]
	}
	return canonical, combination, bound
}

// IsIdentity reports whether a combination leaves every column in place
func IsIdentity(combination []int) bool {
	for i, c := range combination {
		if i != c {
			return false
		}
	}
	return true
}

type viewKey struct {
	predicate   datalog.Identifier
	combination string
	bound       int
}

func newViewKey(pred datalog.Identifier, combination []int, bound int) viewKey {
	parts := make([]string, len(combination))
	for i, c := range combination {
		parts[i] = strconv.Itoa(c)
	}
	return viewKey{predicate: pred, combination: strings.Join(parts, ","), bound: bound}
}

// ViewRegistry deduplicates and names the views of one compilation. Views are
// shared across strata; names and aliases never change once handed out.
type ViewRegistry struct {
	views       map[viewKey]View
	byName      map[string]View
	byPredicate map[datalog.Identifier][]string
	aliases     map[string]string // alias -> view name
	viewAlias   map[string]string // view name -> alias
	collector   *annotations.Collector
}

// NewViewRegistry creates an empty registry
func NewViewRegistry(collector *annotations.Collector) *ViewRegistry {
	return &ViewRegistry{
		views:       make(map[viewKey]View),
		byName:      make(map[string]View),
		byPredicate: make(map[datalog.Identifier][]string),
		aliases:     make(map[string]string),
		viewAlias:   make(map[string]string),
		collector:   collector,
	}
}

// Resolve returns the view for a (predicate, combination, bound) shape,
// minting predicate_view_N the first time a shape is seen.
func (r *ViewRegistry) Resolve(pred datalog.Identifier, combination []int, bound int) View {
	key := newViewKey(pred, combination, bound)
	if v, ok := r.views[key]; ok {
		return v
	}

	v := View{
		Name:        fmt.Sprintf("%s_view_%d", pred.Name, len(r.byPredicate[pred])+1),
		Predicate:   pred,
		Combination: append([]int(nil), combination...),
		Bound:       bound,
	}
	r.views[key] = v
	r.byName[v.Name] = v
	r.byPredicate[pred] = append(r.byPredicate[pred], v.Name)

	if r.collector.Enabled() {
		r.collector.Add(annotations.Event{
			Name: annotations.ViewMinted,
			Data: map[string]interface{}{
				"view":        v.Name,
				"predicate":   pred.Name,
				"combination": v.Combination,
				"bound":       bound,
			},
		})
	}
	return v
}

// Alias returns the readable alias of view as reached through args.
// The alias is predicate_<reordered lowercased args>; if that text already
// names another view it gets the _r<rule> suffix, then _2, _3, ...
func (r *ViewRegistry) Alias(v View, args []datalog.Argument, rule int) string {
	if alias, ok := r.viewAlias[v.Name]; ok {
		return alias
	}

	base := aliasText(v, args)
	alias := base
	if owner, taken := r.aliases[alias]; taken && owner != v.Name {
		alias = fmt.Sprintf("%s_r%d", base, rule)
		for n := 2; ; n++ {
			if _, taken := r.aliases[alias]; !taken {
				break
			}
			alias = fmt.Sprintf("%s_r%d_%d", base, rule, n)
		}
		if r.collector.Enabled() {
			r.collector.Add(annotations.Event{
				Name: annotations.AliasRenamed,
				Data: map[string]interface{}{
					"alias":   base,
					"renamed": alias,
					"view":    v.Name,
				},
			})
		}
	}

	r.aliases[alias] = v.Name
	r.viewAlias[v.Name] = alias
	return alias
}

func aliasText(v View, args []datalog.Argument) string {
	parts := make([]string, 0, len(v.Combination)+1)
	parts = append(parts, v.Predicate.Name)
	for _, src := range v.Combination {
		arg := args[src]
		if arg.IsConstant() && arg.Value < 0 {
			parts = append(parts, "neg"+strconv.FormatInt(-arg.Value, 10))
			continue
		}
		parts = append(parts, strings.ToLower(arg.String()))
	}
	return strings.Join(parts, "_")
}

// Lookup returns a view by name
func (r *ViewRegistry) Lookup(name string) (View, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// PredicateViews returns the view names minted for pred, in minting order
func (r *ViewRegistry) PredicateViews(pred datalog.Identifier) []string {
	return append([]string(nil), r.byPredicate[pred]...)
}

// Len returns the number of distinct views
func (r *ViewRegistry) Len() int {
	return len(r.byName)
}

// viewsDataFor collects the views consulted by a stratum's equations
func viewsDataFor(equations []Equation, registry *ViewRegistry) ViewsData {
	data := ViewsData{
		Views:          make(map[string]View),
		Aliases:        make(map[string]string),
		PredicateViews: make(map[string][]string),
	}

	for _, eq := range equations {
		bin, ok := eq.(*BinaryEquation)
		if !ok {
			continue
		}
		v, _ := registry.Lookup(bin.ViewName)
		if _, seen := data.Views[v.Name]; !seen {
			data.Views[v.Name] = v
			data.Order = append(data.Order, v.Name)
			pred := v.Predicate.Name
			data.PredicateViews[pred] = append(data.PredicateViews[pred], v.Name)
		}
		data.Aliases[bin.Alias] = v.Name
	}

	sort.SliceStable(data.Order, func(i, j int) bool {
		a, b := data.Views[data.Order[i]], data.Views[data.Order[j]]
		if a.Bound != b.Bound {
			return a.Bound > b.Bound
		}
		return a.Name < b.Name
	})
	return data
}
