// Package dfa provides the deterministic automaton stage: eager subset
// construction over an NFA, parameterized by direction, searching mode and
// capture tracking, producing table-driven executors.
package dfa

import "fmt"

// ErrorKind classifies DFA construction errors.
type ErrorKind uint8

const (
	// StateLimitExceeded indicates the determinization hit the configured
	// state cap. The pattern was feature-gated earlier, so this is a
	// resource condition, not an unsupported feature.
	StateLimitExceeded ErrorKind = iota

	// InvalidConfig indicates configuration validation failed.
	InvalidConfig
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case StateLimitExceeded:
		return "StateLimitExceeded"
	case InvalidConfig:
		return "InvalidConfig"
	default:
		return fmt.Sprintf("UnknownErrorKind(%d)", uint8(k))
	}
}

// BuildError represents an error during DFA construction.
type BuildError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return "dfa: " + e.Message
}

// Is implements error comparison for errors.Is.
func (e *BuildError) Is(target error) bool {
	t, ok := target.(*BuildError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ErrStateLimitExceeded is the sentinel for state-cap overflows.
var ErrStateLimitExceeded = &BuildError{
	Kind:    StateLimitExceeded,
	Message: "DFA state limit exceeded",
}

// ErrInvalidConfig is the sentinel for configuration failures.
var ErrInvalidConfig = &BuildError{
	Kind:    InvalidConfig,
	Message: "invalid DFA configuration",
}
