package planner

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a Plan handed to code generators
type Document struct {
	File        string             `yaml:"file"`
	Key         string             `yaml:"key,omitempty"`
	Extensional []string           `yaml:"extensional"`
	Intensional []string           `yaml:"intensional"`
	Negated     []string           `yaml:"negated,omitempty"`
	Order       OrderDocument      `yaml:"order"`
	Strata      []StratumDocument  `yaml:"strata"`
	Solution    []SolutionDocument `yaml:"solution"`
	Output      []string           `yaml:"output,omitempty"`
}

// OrderDocument is a serialized Ordering
type OrderDocument struct {
	Block1 []string `yaml:"block1"`
	Block2 []string `yaml:"block2"`
	Block3 []string `yaml:"block3"`
}

// StratumDocument is a serialized StratumPlan
type StratumDocument struct {
	Index     int                `yaml:"index"`
	Rules     []string           `yaml:"rules"`
	Equations []EquationDocument `yaml:"equations"`
	Views     []ViewDocument     `yaml:"views,omitempty"`
	Order     OrderDocument      `yaml:"order"`
}

// EquationDocument is a serialized Unary or Binary equation
type EquationDocument struct {
	Kind        string             `yaml:"kind"`
	Orientation string             `yaml:"orientation,omitempty"`
	Rule        int                `yaml:"rule"`
	Line        int                `yaml:"line"`
	Head        string             `yaml:"head"`
	HeadArgs    []string           `yaml:"head_args"`
	Driving     string             `yaml:"driving"`
	Positions   []PositionDocument `yaml:"positions,omitempty"`
	Selections  []string           `yaml:"selections,omitempty"`
	Consulting  string             `yaml:"consulting,omitempty"`
	CommonVars  []PositionDocument `yaml:"common_vars,omitempty"`
	View        []string           `yaml:"view,omitempty"`
	Combination []int              `yaml:"combination,omitempty,flow"`
	Bound       int                `yaml:"bound,omitempty"`
	ViewName    string             `yaml:"view_name,omitempty"`
	Alias       string             `yaml:"alias,omitempty"`
	Condition   string             `yaml:"condition,omitempty"`
	Assignment  string             `yaml:"assignment,omitempty"`
	Negated     []string           `yaml:"negated,omitempty"`
}

// PositionDocument pairs a variable with a driving position
type PositionDocument struct {
	Var      string `yaml:"var"`
	Position int    `yaml:"position"`
}

// ViewDocument is a serialized View
type ViewDocument struct {
	Name        string `yaml:"name"`
	Alias       string `yaml:"alias"`
	Predicate   string `yaml:"predicate"`
	Combination []int  `yaml:"combination,flow"`
	Bound       int    `yaml:"bound"`
}

// SolutionDocument names a persisted predicate and why it is persisted
type SolutionDocument struct {
	Predicate string   `yaml:"predicate"`
	Reasons   []string `yaml:"reasons,flow"`
}

// NewDocument converts a Plan into its serialized form
func NewDocument(plan *Plan) *Document {
	doc := &Document{
		File:        plan.File,
		Key:         plan.Key,
		Extensional: plan.Program.Extensional.Names(),
		Intensional: plan.Program.Intensional.Names(),
		Negated:     plan.Program.Negated.Names(),
		Order:       orderDocument(plan.Order),
		Output:      plan.Output,
	}

	for _, s := range plan.Strata {
		sd := StratumDocument{Index: s.Index, Order: orderDocument(s.Order)}
		for i := range s.Rules {
			sd.Rules = append(sd.Rules, s.Rules[i].String())
		}
		for _, eq := range s.Equations {
			sd.Equations = append(sd.Equations, equationDocument(eq))
		}
		sd.Views = viewDocuments(s.Views)
		doc.Strata = append(doc.Strata, sd)
	}

	for _, id := range plan.Solution {
		sol := SolutionDocument{Predicate: id.Name}
		for _, r := range plan.Reasons[id] {
			sol.Reasons = append(sol.Reasons, string(r))
		}
		doc.Solution = append(doc.Solution, sol)
	}
	return doc
}

func orderDocument(o Ordering) OrderDocument {
	return OrderDocument{
		Block1: identifierNames(o.Block1),
		Block2: identifierNames(o.Block2),
		Block3: identifierNames(o.Block3),
	}
}

func equationDocument(eq Equation) EquationDocument {
	switch e := eq.(type) {
	case *UnaryEquation:
		return EquationDocument{
			Kind:       e.Kind().String(),
			Rule:       e.Rule,
			Line:       e.Line,
			Head:       e.Head.Name,
			HeadArgs:   termStrings(e.HeadArgs),
			Driving:    e.Driving.Name,
			Positions:  positionDocuments(e.Positions),
			Selections: selectionStrings(e.Selections),
			Condition:  e.Condition.String(),
			Assignment: e.Assignment.String(),
			Negated:    negatedStrings(e.Negated),
		}
	case *BinaryEquation:
		return EquationDocument{
			Kind:        e.Kind().String(),
			Orientation: string(e.Orientation),
			Rule:        e.Rule,
			Line:        e.Line,
			Head:        e.Head.Name,
			HeadArgs:    termStrings(e.HeadArgs),
			Driving:     e.Driving.Name,
			Positions:   positionDocuments(e.Positions),
			Selections:  selectionStrings(e.Selections),
			Consulting:  e.Consulting.Name,
			CommonVars:  positionDocuments(e.CommonVars),
			View:        termStrings(e.View),
			Combination: e.Combination,
			Bound:       e.BoundColumns,
			ViewName:    e.ViewName,
			Alias:       e.Alias,
			Condition:   e.Condition.String(),
			Assignment:  e.Assignment.String(),
			Negated:     negatedStrings(e.Negated),
		}
	}
	panic(fmt.Sprintf("unknown equation type %T", eq))
}

func viewDocuments(data ViewsData) []ViewDocument {
	aliasOf := make(map[string]string, len(data.Aliases))
	aliases := make([]string, 0, len(data.Aliases))
	for alias := range data.Aliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		name := data.Aliases[alias]
		if _, ok := aliasOf[name]; !ok {
			aliasOf[name] = alias
		}
	}

	docs := make([]ViewDocument, 0, len(data.Order))
	for _, name := range data.Order {
		v := data.Views[name]
		docs = append(docs, ViewDocument{
			Name:        v.Name,
			Alias:       aliasOf[name],
			Predicate:   v.Predicate.Name,
			Combination: v.Combination,
			Bound:       v.Bound,
		})
	}
	return docs
}

func termStrings(terms []Term) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.String()
	}
	return out
}

func positionDocuments(positions []VariablePosition) []PositionDocument {
	var out []PositionDocument
	for _, p := range positions {
		out = append(out, PositionDocument{Var: p.Name, Position: p.Position})
	}
	return out
}

func selectionStrings(selections []Selection) []string {
	var out []string
	for _, s := range selections {
		out = append(out, fmt.Sprintf("$%d = %s", s.Position, s.Equals))
	}
	return out
}

func negatedStrings(negated []NegatedElement) []string {
	var out []string
	for _, n := range negated {
		out = append(out, n.String())
	}
	return out
}

// WriteYAML encodes the plan's Document to w
func WriteYAML(w io.Writer, plan *Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(plan)); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return enc.Close()
}

// MarshalYAML returns the plan's Document as YAML bytes
func MarshalYAML(plan *Plan) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, plan); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseDocument decodes a YAML plan document
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan document: %w", err)
	}
	return &doc, nil
}
