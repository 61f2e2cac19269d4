// Package parser turns rule lines into datalog.LogicRule values.
//
// Grammar, one rule per line:
//
//	Head(Arg, ...) :- Body1(Args...)[, Body2(Args...)] [, Var = Expr] [, BoolExpr].
//
// Arguments are integer constants or variables; `_` introduces a fresh anonymous
// variable. A body predicate may be negated with `not` or `!`.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/lexer"
)

// SourceLine is a non-blank, non-comment line of a rule file
type SourceLine struct {
	Number int
	Text   string
}

// Lines splits source into rule lines, dropping blank lines and comments
// (lines starting with `%`, `#` or `//`).
func Lines(source string) []SourceLine {
	var out []SourceLine
	for i, raw := range strings.Split(source, "\n") {
		text := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if text == "" || strings.HasPrefix(text, "%") || strings.HasPrefix(text, "#") || strings.HasPrefix(text, "//") {
			continue
		}
		out = append(out, SourceLine{Number: i + 1, Text: text})
	}
	return out
}

// ParseRule parses a single rule. Every failure is a ParseError.
func ParseRule(symbols *datalog.SymbolTable, file string, line int, text string) (datalog.LogicRule, error) {
	text = strings.TrimSpace(text)
	tokens, err := lexer.Tokenize(text, line)
	if err != nil {
		return datalog.LogicRule{}, datalog.Errorf(datalog.ParseError, file, line, "%v", err)
	}

	p := &ruleParser{
		tokens:  tokens,
		file:    file,
		line:    line,
		symbols: symbols,
	}
	rule, err := p.parse()
	if err != nil {
		return datalog.LogicRule{}, err
	}
	rule.Line = line
	rule.Text = text
	return rule, nil
}

// ruleParser holds the state for parsing one rule
type ruleParser struct {
	tokens    []lexer.Token
	file      string
	line      int
	symbols   *datalog.SymbolTable
	anonymous int
}

func (p *ruleParser) errorf(format string, args ...interface{}) error {
	return datalog.Errorf(datalog.ParseError, p.file, p.line, format, args...)
}

func (p *ruleParser) parse() (datalog.LogicRule, error) {
	// Strip EOF
	toks := p.tokens[:len(p.tokens)-1]
	if len(toks) == 0 {
		return datalog.LogicRule{}, p.errorf("empty rule")
	}

	if err := checkBalanced(toks); err != nil {
		return datalog.LogicRule{}, p.errorf("%v", err)
	}

	implies := -1
	for i, tok := range toks {
		if tok.Type == lexer.TokenImplies {
			if implies >= 0 {
				return datalog.LogicRule{}, p.errorf("multiple ':-' separators at %d:%d", tok.Line, tok.Col)
			}
			implies = i
		}
	}
	if implies < 0 {
		return datalog.LogicRule{}, p.errorf("missing ':-' separator")
	}

	last := toks[len(toks)-1]
	if last.Type != lexer.TokenDot {
		return datalog.LogicRule{}, p.errorf("missing terminal '.'")
	}
	for _, tok := range toks[:len(toks)-1] {
		if tok.Type == lexer.TokenDot {
			return datalog.LogicRule{}, p.errorf("unexpected '.' at %d:%d", tok.Line, tok.Col)
		}
	}

	head, err := p.parseAtom(toks[:implies], true)
	if err != nil {
		return datalog.LogicRule{}, err
	}

	bodyToks := toks[implies+1 : len(toks)-1]
	if len(bodyToks) == 0 {
		return datalog.LogicRule{}, p.errorf("rule body is empty")
	}

	rule := datalog.LogicRule{Head: head}
	positive, predicates := 0, 0
	for _, seg := range splitTopLevel(bodyToks) {
		elem, err := p.parseBodyElement(seg)
		if err != nil {
			return datalog.LogicRule{}, err
		}
		if pred, ok := elem.(datalog.Predicate); ok {
			predicates++
			if !pred.Negated {
				positive++
			}
		}
		rule.Body = append(rule.Body, elem)
	}

	if positive > 2 {
		return datalog.LogicRule{}, p.errorf("more than two non-negated predicates in body (%d)", positive)
	}
	if predicates == 0 {
		return datalog.LogicRule{}, p.errorf("rule body has no predicate")
	}
	rule.Type = datalog.RuleType(predicates)

	return rule, nil
}

// checkBalanced verifies parenthesis nesting
func checkBalanced(toks []lexer.Token) error {
	depth := 0
	for _, tok := range toks {
		switch tok.Type {
		case lexer.TokenLeftParen:
			depth++
		case lexer.TokenRightParen:
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses: unexpected ')' at %d:%d", tok.Line, tok.Col)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses: %d unclosed '('", depth)
	}
	return nil
}

// splitTopLevel splits tokens on commas outside parentheses
func splitTopLevel(toks []lexer.Token) [][]lexer.Token {
	var segments [][]lexer.Token
	depth, start := 0, 0
	for i, tok := range toks {
		switch tok.Type {
		case lexer.TokenLeftParen:
			depth++
		case lexer.TokenRightParen:
			depth--
		case lexer.TokenComma:
			if depth == 0 {
				segments = append(segments, toks[start:i])
				start = i + 1
			}
		}
	}
	return append(segments, toks[start:])
}

func (p *ruleParser) parseBodyElement(seg []lexer.Token) (datalog.BodyElement, error) {
	if len(seg) == 0 {
		return nil, p.errorf("empty body element")
	}

	if seg[0].Type == lexer.TokenNot {
		if len(seg) > 1 && seg[1].Type == lexer.TokenIdent {
			if len(seg) > 2 && seg[2].Type == lexer.TokenLeftParen {
				atom, err := p.parseAtom(seg[1:], false)
				if err != nil {
					return nil, err
				}
				atom.Negated = true
				return atom, nil
			}
		}
		return nil, p.errorf("negation must apply to a predicate at %d:%d", seg[0].Line, seg[0].Col)
	}

	if isAtom(seg) {
		return p.parseAtom(seg, false)
	}

	if seg[0].Type == lexer.TokenIdent && len(seg) > 1 && seg[1].Type == lexer.TokenOp && seg[1].Value == "=" {
		if len(seg) == 2 {
			return nil, p.errorf("assignment to %s has no expression", seg[0].Value)
		}
		expr, err := p.parseExpression(seg[2:])
		if err != nil {
			return nil, err
		}
		return &datalog.Assignment{Target: seg[0].Value, Expr: expr}, nil
	}

	for _, tok := range seg {
		if tok.IsComparison() {
			expr, err := p.parseExpression(seg)
			if err != nil {
				return nil, err
			}
			return &datalog.Condition{Expr: expr}, nil
		}
	}

	return nil, p.errorf("expected predicate, assignment or comparison at %d:%d", seg[0].Line, seg[0].Col)
}

// isAtom reports whether seg has the shape Name( ... ) with the parens spanning the rest
func isAtom(seg []lexer.Token) bool {
	if len(seg) < 3 || seg[0].Type != lexer.TokenIdent || seg[1].Type != lexer.TokenLeftParen {
		return false
	}
	if seg[len(seg)-1].Type != lexer.TokenRightParen {
		return false
	}
	depth := 0
	for i := 1; i < len(seg); i++ {
		switch seg[i].Type {
		case lexer.TokenLeftParen:
			depth++
		case lexer.TokenRightParen:
			depth--
			if depth == 0 && i != len(seg)-1 {
				return false
			}
		}
	}
	return true
}

func (p *ruleParser) parseAtom(seg []lexer.Token, head bool) (datalog.Predicate, error) {
	if len(seg) > 0 && seg[0].Type == lexer.TokenNot && head {
		return datalog.Predicate{}, p.errorf("rule head cannot be negated")
	}
	if !isAtom(seg) {
		if len(seg) == 0 {
			return datalog.Predicate{}, p.errorf("missing rule head")
		}
		return datalog.Predicate{}, p.errorf("malformed predicate at %d:%d", seg[0].Line, seg[0].Col)
	}

	pred := datalog.Predicate{ID: p.symbols.Intern(seg[0].Value)}
	inner := seg[2 : len(seg)-1]
	if len(inner) == 0 {
		return pred, nil
	}

	for _, argToks := range splitTopLevel(inner) {
		arg, err := p.parseArgument(argToks, head)
		if err != nil {
			return datalog.Predicate{}, err
		}
		pred.Args = append(pred.Args, arg)
	}
	return pred, nil
}

func (p *ruleParser) parseArgument(toks []lexer.Token, head bool) (datalog.Argument, error) {
	switch {
	case len(toks) == 1 && toks[0].Type == lexer.TokenIdent:
		if toks[0].Value == "_" {
			if head {
				return datalog.Argument{}, p.errorf("anonymous variable in rule head at %d:%d", toks[0].Line, toks[0].Col)
			}
			p.anonymous++
			return datalog.Var(fmt.Sprintf("_%d", p.anonymous)), nil
		}
		return datalog.Var(toks[0].Value), nil

	case len(toks) == 1 && toks[0].Type == lexer.TokenInt:
		v, err := strconv.ParseInt(toks[0].Value, 10, 64)
		if err != nil {
			return datalog.Argument{}, p.errorf("invalid integer %s: %v", toks[0].Value, err)
		}
		return datalog.Const(v), nil

	case len(toks) == 2 && toks[0].Type == lexer.TokenOp && toks[0].Value == "-" && toks[1].Type == lexer.TokenInt:
		v, err := strconv.ParseInt("-"+toks[1].Value, 10, 64)
		if err != nil {
			return datalog.Argument{}, p.errorf("invalid integer -%s: %v", toks[1].Value, err)
		}
		return datalog.Const(v), nil

	case len(toks) == 0:
		return datalog.Argument{}, p.errorf("empty argument")

	default:
		return datalog.Argument{}, p.errorf("argument must be a variable or an integer at %d:%d", toks[0].Line, toks[0].Col)
	}
}
