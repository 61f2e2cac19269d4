package parser

import (
	"strings"

	"github.com/expr-lang/expr/ast"
	exprparser "github.com/expr-lang/expr/parser"

	"github.com/wbrown/janus-solvergen/datalog"
	"github.com/wbrown/janus-solvergen/datalog/lexer"
)

// parseExpression validates an arithmetic or comparison expression and
// records which identifiers are rule variables.
func (p *ruleParser) parseExpression(toks []lexer.Token) (datalog.Expression, error) {
	source := joinTokens(toks)

	vars, err := ExpressionVariables(source)
	if err != nil {
		return datalog.Expression{}, p.errorf("invalid expression %q: %v", source, err)
	}

	expr := datalog.Expression{Source: source}
	for _, tok := range toks {
		isVar := tok.Type == lexer.TokenIdent && vars[tok.Value]
		expr.Tokens = append(expr.Tokens, datalog.ExprToken{Text: tok.Text(), Variable: isVar})
	}
	seen := make(map[string]bool)
	for _, tok := range expr.Tokens {
		if tok.Variable && !seen[tok.Text] {
			seen[tok.Text] = true
			expr.Variables = append(expr.Variables, tok.Text)
		}
	}
	return expr, nil
}

// ExpressionVariables parses source as an expr-lang expression and returns the
// set of identifiers it reads. Function callees are not variables.
func ExpressionVariables(source string) (map[string]bool, error) {
	tree, err := exprparser.Parse(source)
	if err != nil {
		return nil, err
	}

	v := &identifierCollector{callees: make(map[*ast.IdentifierNode]bool)}
	ast.Walk(&tree.Node, v)

	vars := make(map[string]bool, len(v.idents))
	for _, ident := range v.idents {
		if !v.callees[ident] {
			vars[ident.Value] = true
		}
	}
	return vars, nil
}

// identifierCollector gathers identifier nodes and call targets
type identifierCollector struct {
	idents  []*ast.IdentifierNode
	callees map[*ast.IdentifierNode]bool
}

func (c *identifierCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.idents = append(c.idents, n)
	case *ast.CallNode:
		if ident, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.callees[ident] = true
		}
	}
}

// joinTokens renders tokens with single spaces, tight around parentheses
func joinTokens(toks []lexer.Token) string {
	var sb strings.Builder
	for i, tok := range toks {
		if i > 0 {
			prev := toks[i-1]
			tight := prev.Type == lexer.TokenLeftParen || tok.Type == lexer.TokenRightParen ||
				tok.Type == lexer.TokenComma ||
				(tok.Type == lexer.TokenLeftParen && prev.Type == lexer.TokenIdent)
			if !tight {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(tok.Text())
	}
	return sb.String()
}
