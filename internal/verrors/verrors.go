// Package verrors defines the user-visible error kinds surfaced by the
// front end (spec.md §7). Errors are plain values, not panics, except
// for InternalInvariant which pipeline.Compile recovers at the
// boundary of a single top-level definition so one bad definition
// cannot take down the rest of the run (spec.md §7: "the pipeline
// halts on the first error in a given top-level definition but
// attempts to continue with subsequent definitions").
package verrors

import (
	"fmt"
	"strings"

	"verifier/internal/ast"
)

type Kind string

const (
	// SyntaxError covers the scanner/parser's own failures. spec.md §7
	// only names kinds for the semantic front end described there —
	// lexing and concrete syntax are called out as an out-of-scope
	// external collaborator — but SPEC_FULL.md's minimal front end
	// still needs somewhere to put a malformed-source error.
	SyntaxError         Kind = "SyntaxError"
	DuplicateName       Kind = "DuplicateName"
	UnknownName         Kind = "UnknownName"
	TypeMismatch        Kind = "TypeMismatch"
	MissingReturn       Kind = "MissingReturn"
	ReturnInVoid        Kind = "ReturnInVoid"
	ReturnMissingValue  Kind = "ReturnMissingValue"
	InconsistentRanking Kind = "InconsistentRankings"
	AmbiguousResult     Kind = "AmbiguousResult"
	IllegalAnnotation   Kind = "IllegalAnnotationForm"
	InternalInvariant   Kind = "InternalInvariant"
)

// Error is a single user-visible error with a source location.
type Error struct {
	Kind     Kind
	Message  string
	Position ast.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Position, e.Kind, e.Message)
}

func New(kind Kind, pos ast.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Position: pos, Message: fmt.Sprintf(format, args...)}
}

// TypeMismatchErr reports an expected/got type pair; expected and got
// are rendered with fmt.Stringer (internal/types.Type satisfies it) but
// kept as strings here so this package has no dependency on internal/types.
func TypeMismatchErr(pos ast.Position, expected, got string) *Error {
	return New(TypeMismatch, pos, "expected type %s, got %s", expected, got)
}

// List collects multiple errors so a caller can report as many
// top-level failures as were found in one run (spec.md §7 recovery).
type List []*Error

func (l List) Error() string {
	var b strings.Builder
	for i, e := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Error())
	}
	return b.String()
}

func (l List) HasErrors() bool { return len(l) > 0 }

// internalPanic is the recovered panic value for InternalInvariant
// violations — bugs in the front end that should never occur on
// well-formed input but must not crash the whole run.
type internalPanic struct {
	pos ast.Position
	msg string
}

// Internal panics with an InternalInvariant violation; callers at a
// definition boundary should recover and convert it via Recover.
func Internal(pos ast.Position, format string, args ...interface{}) {
	panic(internalPanic{pos: pos, msg: fmt.Sprintf(format, args...)})
}

// Recover converts a recovered internalPanic into an *Error, or
// re-panics if the recovered value is not one of ours.
func Recover(r interface{}) *Error {
	if p, ok := r.(internalPanic); ok {
		return New(InternalInvariant, p.pos, "%s", p.msg)
	}
	panic(r)
}
