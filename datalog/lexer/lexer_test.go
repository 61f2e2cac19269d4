package lexer

import (
	"reflect"
	"strings"
	"testing"
)

func TestLexerBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "empty input",
			input: "",
			expected: []Token{
				{Type: TokenEOF, Line: 1, Col: 1},
			},
		},
		{
			name:  "atom",
			input: "p(X, 1)",
			expected: []Token{
				{Type: TokenIdent, Value: "p", Line: 1, Col: 1},
				{Type: TokenLeftParen, Line: 1, Col: 2},
				{Type: TokenIdent, Value: "X", Line: 1, Col: 3},
				{Type: TokenComma, Line: 1, Col: 4},
				{Type: TokenInt, Value: "1", Line: 1, Col: 6},
				{Type: TokenRightParen, Line: 1, Col: 7},
				{Type: TokenEOF, Line: 1, Col: 8},
			},
		},
		{
			name:  "implies and dot",
			input: "a(X):-b(X).",
			expected: []Token{
				{Type: TokenIdent, Value: "a", Line: 1, Col: 1},
				{Type: TokenLeftParen, Line: 1, Col: 2},
				{Type: TokenIdent, Value: "X", Line: 1, Col: 3},
				{Type: TokenRightParen, Line: 1, Col: 4},
				{Type: TokenImplies, Line: 1, Col: 5},
				{Type: TokenIdent, Value: "b", Line: 1, Col: 7},
				{Type: TokenLeftParen, Line: 1, Col: 8},
				{Type: TokenIdent, Value: "X", Line: 1, Col: 9},
				{Type: TokenRightParen, Line: 1, Col: 10},
				{Type: TokenDot, Line: 1, Col: 11},
				{Type: TokenEOF, Line: 1, Col: 12},
			},
		},
		{
			name:  "negation keyword",
			input: "not q",
			expected: []Token{
				{Type: TokenNot, Line: 1, Col: 1},
				{Type: TokenIdent, Value: "q", Line: 1, Col: 5},
				{Type: TokenEOF, Line: 1, Col: 6},
			},
		},
		{
			name:  "bang negation and not-equal",
			input: "!q X!=Y",
			expected: []Token{
				{Type: TokenNot, Line: 1, Col: 1},
				{Type: TokenIdent, Value: "q", Line: 1, Col: 2},
				{Type: TokenIdent, Value: "X", Line: 1, Col: 4},
				{Type: TokenOp, Value: "!=", Line: 1, Col: 5},
				{Type: TokenIdent, Value: "Y", Line: 1, Col: 7},
				{Type: TokenEOF, Line: 1, Col: 8},
			},
		},
		{
			name:  "operators",
			input: "= == <= >= < > + - * / %",
			expected: []Token{
				{Type: TokenOp, Value: "=", Line: 1, Col: 1},
				{Type: TokenOp, Value: "==", Line: 1, Col: 3},
				{Type: TokenOp, Value: "<=", Line: 1, Col: 6},
				{Type: TokenOp, Value: ">=", Line: 1, Col: 9},
				{Type: TokenOp, Value: "<", Line: 1, Col: 12},
				{Type: TokenOp, Value: ">", Line: 1, Col: 14},
				{Type: TokenOp, Value: "+", Line: 1, Col: 16},
				{Type: TokenOp, Value: "-", Line: 1, Col: 18},
				{Type: TokenOp, Value: "*", Line: 1, Col: 20},
				{Type: TokenOp, Value: "/", Line: 1, Col: 22},
				{Type: TokenOp, Value: "%", Line: 1, Col: 24},
				{Type: TokenEOF, Line: 1, Col: 25},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input, 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(tokens, tt.expected) {
				t.Errorf("tokens mismatch\ngot:  %v\nwant: %v", tokens, tt.expected)
			}
		})
	}
}

func TestLexerLineNumber(t *testing.T) {
	tokens, err := Tokenize("p(X)", 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, tok := range tokens {
		if tok.Line != 42 {
			t.Errorf("token %v: expected line 42", tok)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		error string
	}{
		{"lone colon", "a(X) : b(X).", "expected ':-'"},
		{"unknown character", "a(X) :- b(X) & c(X).", "unexpected character '&'"},
		{"string literal", `a("x").`, "unexpected character '\"'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input, 1)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.error) {
				t.Errorf("expected error containing %q, got %q", tt.error, err.Error())
			}
		})
	}
}

func TestLexerPeekAndNext(t *testing.T) {
	l := NewLexer("a.", 1)
	if err := l.Lex(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok := l.PeekToken(); tok.Type != TokenIdent {
		t.Fatalf("expected ident, got %v", tok)
	}
	if tok := l.NextToken(); tok.Value != "a" {
		t.Fatalf("expected a, got %v", tok)
	}
	if tok := l.NextToken(); tok.Type != TokenDot {
		t.Fatalf("expected dot, got %v", tok)
	}
	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Fatalf("expected EOF, got %v", tok)
	}
	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Fatalf("expected EOF past end, got %v", tok)
	}
}
