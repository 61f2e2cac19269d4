// Package lexer tokenizes Datalog rule lines.
package lexer

import (
	"fmt"
	"unicode"
)

// Lexer tokenizes a single rule line
type Lexer struct {
	input   string
	pos     int
	line    int
	col     int
	tokens  []Token
	current int
}

// NewLexer creates a new lexer for input found on source line `line`
func NewLexer(input string, line int) *Lexer {
	if line <= 0 {
		line = 1
	}
	return &Lexer{
		input:   input,
		pos:     0,
		line:    line,
		col:     1,
		tokens:  []Token{},
		current: 0,
	}
}

// Tokenize lexes input and returns its tokens, EOF included
func Tokenize(input string, line int) ([]Token, error) {
	l := NewLexer(input, line)
	if err := l.Lex(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

// Lex tokenizes the entire input
func (l *Lexer) Lex() error {
	for l.pos < len(l.input) {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		startCol := l.col
		ch := l.peek()
		switch {
		case ch == '(':
			l.advance()
			l.emit(TokenLeftParen, "", startCol)
		case ch == ')':
			l.advance()
			l.emit(TokenRightParen, "", startCol)
		case ch == ',':
			l.advance()
			l.emit(TokenComma, "", startCol)
		case ch == '.':
			l.advance()
			l.emit(TokenDot, "", startCol)
		case ch == ':':
			if l.peekAt(1) != '-' {
				return fmt.Errorf("unexpected character ':' at %d:%d (expected ':-')", l.line, l.col)
			}
			l.advance()
			l.advance()
			l.emit(TokenImplies, "", startCol)
		case ch == '!':
			l.advance()
			if l.peek() == '=' {
				l.advance()
				l.emit(TokenOp, "!=", startCol)
			} else {
				l.emit(TokenNot, "", startCol)
			}
		case ch == '=' || ch == '<' || ch == '>':
			l.advance()
			op := string(ch)
			if l.peek() == '=' {
				l.advance()
				op += "="
			}
			l.emit(TokenOp, op, startCol)
		case ch == '+' || ch == '-' || ch == '*' || ch == '/' || ch == '%':
			l.advance()
			l.emit(TokenOp, string(ch), startCol)
		case isDigit(ch):
			l.emit(TokenInt, l.readWhile(isDigit), startCol)
		case isIdentStart(ch):
			word := l.readWhile(isIdentPart)
			if word == "not" {
				l.emit(TokenNot, "", startCol)
			} else {
				l.emit(TokenIdent, word, startCol)
			}
		default:
			return fmt.Errorf("unexpected character '%c' at %d:%d", ch, l.line, l.col)
		}
	}

	l.emit(TokenEOF, "", l.col)
	return nil
}

// Tokens returns the lexed tokens
func (l *Lexer) Tokens() []Token {
	return l.tokens
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	if l.current >= len(l.tokens) {
		return Token{Type: TokenEOF, Line: l.line, Col: l.col}
	}
	token := l.tokens[l.current]
	l.current++
	return token
}

// PeekToken returns the next token without advancing
func (l *Lexer) PeekToken() Token {
	if l.current >= len(l.tokens) {
		return Token{Type: TokenEOF, Line: l.line, Col: l.col}
	}
	return l.tokens[l.current]
}

func (l *Lexer) emit(typ TokenType, value string, col int) {
	l.tokens = append(l.tokens, Token{
		Type:  typ,
		Value: value,
		Line:  l.line,
		Col:   col,
	})
}

// peek returns the current character without advancing
func (l *Lexer) peek() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

// advance moves to the next character
func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		l.pos++
		l.col++
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.peek())) {
		l.advance()
	}
}

func (l *Lexer) readWhile(pred func(byte) bool) string {
	start := l.pos
	for l.pos < len(l.input) && pred(l.peek()) {
		l.advance()
	}
	return l.input[start:l.pos]
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
