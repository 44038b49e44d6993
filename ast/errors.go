// Package ast provides the pattern frontend: regex sources, flag sets,
// flavor translation, and the lexer/parser producing the tree IR consumed
// by the automaton builders.
//
// Patterns are parsed with ECMAScript semantics. Foreign flavors are
// rewritten to ECMAScript source by a FlavorProcessor before parsing.
package ast

import (
	"errors"
	"fmt"
)

// UnsupportedError signals that a pattern uses a feature outside the
// supported subset of the compiler, or exceeds an internal construction
// limit. It is a validation-class error: the same pattern fails the same
// way on every retry, so callers may cache the decision.
type UnsupportedError struct {
	// Reason is a human-readable explanation. The coordinator surfaces it
	// verbatim apart from an engine prefix.
	Reason string

	// Source is the offending pattern, attached by the coordinator before
	// the error escapes a compilation request.
	Source Source
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	if e.Source.Pattern != "" || e.Source.Flags != 0 {
		return fmt.Sprintf("unsupported regex %s: %s", e.Source, e.Reason)
	}
	return "unsupported regex: " + e.Reason
}

// Unsupported creates an UnsupportedError with the given reason.
func Unsupported(reason string) *UnsupportedError {
	return &UnsupportedError{Reason: reason}
}

// Unsupportedf creates an UnsupportedError with a formatted reason.
func Unsupportedf(format string, args ...any) *UnsupportedError {
	return &UnsupportedError{Reason: fmt.Sprintf(format, args...)}
}

// IsUnsupported reports whether err is (or wraps) an UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// SyntaxError reports a malformed pattern. Unlike UnsupportedError it
// means the pattern is invalid in every engine, not merely outside this
// compiler's subset.
type SyntaxError struct {
	Pattern string
	Pos     int
	Msg     string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid regex %q at position %d: %s", e.Pattern, e.Pos, e.Msg)
}
