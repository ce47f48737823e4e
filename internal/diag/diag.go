// Package diag defines the typed error taxonomy shared by all compiler
// stages. Each stage fails with its own error class; the driver surfaces
// them unmodified and never attempts a later stage after a failure.
package diag

import (
	"fmt"

	"github.com/sable-lang/sable/internal/position"
)

// LexErrorKind classifies lexical errors.
type LexErrorKind int

const (
	InvalidCharacter LexErrorKind = iota
	UnterminatedString
	UnterminatedChar
	UnterminatedComment
	MalformedNumber
)

func (k LexErrorKind) String() string {
	switch k {
	case InvalidCharacter:
		return "invalid character"
	case UnterminatedString:
		return "unterminated string literal"
	case UnterminatedChar:
		return "unterminated character literal"
	case UnterminatedComment:
		return "unterminated block comment"
	case MalformedNumber:
		return "malformed numeric literal"
	default:
		return "lexical error"
	}
}

// LexError reports malformed input rejected by the lexer.
type LexError struct {
	Kind LexErrorKind
	Msg  string
	Pos  position.Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// ParseError reports a structural grammar violation. The parser recovers
// at statement boundaries and collects several of these per run.
type ParseError struct {
	Expected string
	Found    string
	Pos      position.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// TypeErrorKind classifies semantic errors found by the type checker.
type TypeErrorKind int

const (
	UndefinedIdentifier TypeErrorKind = iota
	UndefinedFunction
	UndefinedType
	TypeMismatch
	ArityMismatch
	DuplicateDeclaration
	ImmutableAssignment
	NonExhaustiveMatch
	InvalidOperand
)

func (k TypeErrorKind) String() string {
	switch k {
	case UndefinedIdentifier:
		return "undefined identifier"
	case UndefinedFunction:
		return "undefined function"
	case UndefinedType:
		return "undefined type"
	case TypeMismatch:
		return "type mismatch"
	case ArityMismatch:
		return "arity mismatch"
	case DuplicateDeclaration:
		return "duplicate declaration"
	case ImmutableAssignment:
		return "assignment to immutable binding"
	case NonExhaustiveMatch:
		return "non-exhaustive match"
	case InvalidOperand:
		return "invalid operand"
	default:
		return "type error"
	}
}

// TypeError reports a semantic error at a precise source position.
type TypeError struct {
	Kind TypeErrorKind
	Msg  string
	Pos  position.Position
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// OwnershipErrorKind classifies move/borrow violations.
type OwnershipErrorKind int

const (
	UseAfterMove OwnershipErrorKind = iota
	ConflictingBorrow
)

func (k OwnershipErrorKind) String() string {
	switch k {
	case UseAfterMove:
		return "use after move"
	case ConflictingBorrow:
		return "conflicting borrow"
	default:
		return "ownership error"
	}
}

// OwnershipError reports a move- or borrow-rule violation.
type OwnershipError struct {
	Kind OwnershipErrorKind
	Msg  string
	Pos  position.Position
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// BackendError reports a failed external tool invocation. Backend failures
// usually indicate a code-generation bug and are never retried.
type BackendError struct {
	Tool   string // tool that failed, e.g. "llc" or "gcc"
	Stderr string // captured standard error from the tool
	Err    error  // underlying exec error, if any
}

func (e *BackendError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %s", e.Tool, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
