package lexer

import "fmt"

// TokenType represents the type of a rule token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenInt
	TokenLeftParen
	TokenRightParen
	TokenComma
	TokenImplies // :-
	TokenDot
	TokenOp  // = == != < <= > >= + - * / %
	TokenNot // not, !
)

// Token represents a lexical token in a rule line
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

// String returns a string representation of the token
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return fmt.Sprintf("EOF[%d:%d]", t.Line, t.Col)
	case TokenIdent:
		return fmt.Sprintf("Ident[%d:%d]:%s", t.Line, t.Col, t.Value)
	case TokenInt:
		return fmt.Sprintf("Int[%d:%d]:%s", t.Line, t.Col, t.Value)
	case TokenLeftParen:
		return fmt.Sprintf("LeftParen[%d:%d]", t.Line, t.Col)
	case TokenRightParen:
		return fmt.Sprintf("RightParen[%d:%d]", t.Line, t.Col)
	case TokenComma:
		return fmt.Sprintf("Comma[%d:%d]", t.Line, t.Col)
	case TokenImplies:
		return fmt.Sprintf("Implies[%d:%d]", t.Line, t.Col)
	case TokenDot:
		return fmt.Sprintf("Dot[%d:%d]", t.Line, t.Col)
	case TokenOp:
		return fmt.Sprintf("Op[%d:%d]:%s", t.Line, t.Col, t.Value)
	case TokenNot:
		return fmt.Sprintf("Not[%d:%d]", t.Line, t.Col)
	default:
		return fmt.Sprintf("Unknown[%d:%d]:%s", t.Line, t.Col, t.Value)
	}
}

// Text returns the source spelling of the token
func (t Token) Text() string {
	switch t.Type {
	case TokenLeftParen:
		return "("
	case TokenRightParen:
		return ")"
	case TokenComma:
		return ","
	case TokenImplies:
		return ":-"
	case TokenDot:
		return "."
	case TokenNot:
		return "not"
	default:
		return t.Value
	}
}

// IsComparison reports whether the token is a comparison operator
func (t Token) IsComparison() bool {
	if t.Type != TokenOp {
		return false
	}
	switch t.Value {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}
