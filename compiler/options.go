// Package compiler implements the compilation request coordinator: the
// staged builder that turns one pattern source into one executable
// matcher via parse, feature gating, literal shortcut, NFA construction
// and DFA construction, selecting among the matcher variants based on
// pattern properties.
//
// A request is single-shot and single-threaded. Many requests may run
// concurrently, each owning its own scratch buffer; the options object
// and the logging channels are shared read-only.
package compiler

import (
	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/dfa"
	"github.com/coregx/jsregex/dump"
	"github.com/coregx/jsregex/nfa"
)

// Options is the static engine configuration a request reads at start.
// It is never mutated by a request.
type Options struct {
	// Flavor translates foreign-dialect patterns to ECMAScript before
	// parsing. Nil means patterns are already ECMAScript.
	Flavor ast.Flavor

	// RegressionTestMode forces the eager capture-tracking DFA. Set by
	// test drivers; the engine layer runs Compile and, when it selects the
	// NFA interpreter, replaces that matcher with the result of
	// CompileEagerDFAExecutor. Dead and literal matchers are kept.
	RegressionTestMode bool

	// TraceFinderEnabled allows the trace-finder fast path for loop-free
	// patterns with alternations.
	// Default: true.
	TraceFinderEnabled bool

	// DumpAutomata writes AST, NFA and DFA dumps after each stage.
	DumpAutomata bool

	// DumpFS is the dump target. Defaults to a ./regex-dump directory.
	DumpFS dump.FileSystem

	// MaxNFAStates caps NFA construction; exceeding it is an unsupported
	// pattern. Default: 10,000.
	MaxNFAStates int

	// MaxDFAStates caps each DFA determinization. Default: 10,000.
	MaxDFAStates int
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() Options {
	return Options{
		TraceFinderEnabled: true,
		MaxNFAStates:       nfa.DefaultMaxStates,
		MaxDFAStates:       dfa.DefaultConfig().MaxStates,
	}
}

// Validate checks the configuration.
func (o Options) Validate() error {
	if o.MaxNFAStates <= 0 {
		return &OptionsError{Field: "MaxNFAStates", Message: "must be > 0"}
	}
	if o.MaxDFAStates <= 0 {
		return &OptionsError{Field: "MaxDFAStates", Message: "must be > 0"}
	}
	return nil
}

// dumpFS returns the configured dump target or the default directory.
func (o Options) dumpFS() dump.FileSystem {
	if o.DumpFS != nil {
		return o.DumpFS
	}
	return dump.DirFS{Dir: "regex-dump"}
}

// OptionsError represents an invalid configuration parameter.
type OptionsError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *OptionsError) Error() string {
	return "jsregex: invalid options: " + e.Field + ": " + e.Message
}
