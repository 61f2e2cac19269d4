package datalog

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies compilation failures
type ErrorCategory uint8

const (
	ParseError        ErrorCategory = iota + 1 // Malformed rule text
	SafetyError                                // Unbound head variable or disallowed negation
	RedefinitionError                          // Arity mismatch across occurrences of a predicate
	StructureError                             // Too many body predicates, assignments or conditions
	ConsistencyError                           // Internal invariant violated
	CycleError                                 // Recursion through negation
)

// String returns the category name
func (c ErrorCategory) String() string {
	switch c {
	case ParseError:
		return "ParseError"
	case SafetyError:
		return "SafetyError"
	case RedefinitionError:
		return "RedefinitionError"
	case StructureError:
		return "StructureError"
	case ConsistencyError:
		return "ConsistencyError"
	case CycleError:
		return "CycleError"
	default:
		return fmt.Sprintf("ErrorCategory(%d)", uint8(c))
	}
}

// CompileError is a fatal diagnostic tied to a source location.
// Line is 0 when the error is not attributable to a single rule.
type CompileError struct {
	File     string
	Line     int
	Category ErrorCategory
	Message  string
}

// Error formats the diagnostic as file:line: Category: message
func (e *CompileError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Category, e.Message)
}

// Is matches sentinel category errors such as ErrSafety
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	if !ok {
		return false
	}
	if t.Message == "" && t.Line == 0 && t.File == "" {
		return t.Category == e.Category
	}
	return *t == *e
}

// Sentinels for errors.Is
var (
	ErrParse        = &CompileError{Category: ParseError}
	ErrSafety       = &CompileError{Category: SafetyError}
	ErrRedefinition = &CompileError{Category: RedefinitionError}
	ErrStructure    = &CompileError{Category: StructureError}
	ErrConsistency  = &CompileError{Category: ConsistencyError}
	ErrCycle        = &CompileError{Category: CycleError}
)

// Errorf builds a CompileError
func Errorf(category ErrorCategory, file string, line int, format string, args ...interface{}) *CompileError {
	return &CompileError{
		File:     file,
		Line:     line,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// AsCompileError extracts the first CompileError in err's chain
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
