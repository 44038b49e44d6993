package compiler

import (
	"fmt"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/dfa"
	"github.com/coregx/jsregex/literal"
	"github.com/coregx/jsregex/nfa"
)

// MatcherKind tags the variant of a compiled matcher. Exactly one variant
// is produced per successful request; the kind determines the runtime
// cost model.
type MatcherKind uint8

const (
	// MatcherDead accepts nothing.
	MatcherDead MatcherKind = iota

	// MatcherLiteral is a specialized scanner for constant patterns.
	MatcherLiteral

	// MatcherNFAExec interprets the NFA directly; the default until the
	// lazy DFA path is compiled.
	MatcherNFAExec

	// MatcherLazyDFA is the assembled DFA search: forward searcher,
	// optional backward locator, optional capture tracker, optional
	// pre-calculated results.
	MatcherLazyDFA

	// MatcherEagerDFA is a single forward searching capture-tracking
	// executor, used in regression-test mode.
	MatcherEagerDFA
)

// String returns the kind name.
func (k MatcherKind) String() string {
	switch k {
	case MatcherDead:
		return "Dead"
	case MatcherLiteral:
		return "Literal"
	case MatcherNFAExec:
		return "NFAExec"
	case MatcherLazyDFA:
		return "LazyDFASearch"
	case MatcherEagerDFA:
		return "EagerDFA"
	default:
		return fmt.Sprintf("UnknownKind(%d)", uint8(k))
	}
}

// CompiledMatcher is the output handle of a compilation request: a tagged
// union over the five matcher variants. Ownership transfers to the
// caller; the matcher is immutable and safe for concurrent use.
type CompiledMatcher struct {
	kind         MatcherKind
	source       ast.Source
	captureCount int

	literal *literal.Matcher
	nfaExec *nfa.PikeVM
	lazy    *LazyDFASearch
	eager   *dfa.Executor
}

// Kind returns the variant tag.
func (m *CompiledMatcher) Kind() MatcherKind { return m.kind }

// Source returns the pattern the matcher was compiled from.
func (m *CompiledMatcher) Source() ast.Source { return m.source }

// CaptureCount returns the capture group count including group 0. It
// equals the parsed tree's value for every variant that can report
// captures.
func (m *CompiledMatcher) CaptureCount() int { return m.captureCount }

// LazySearch returns the lazy DFA assembly, if this matcher carries one.
func (m *CompiledMatcher) LazySearch() *LazyDFASearch { return m.lazy }

// WithLazySearch returns a matcher of kind MatcherLazyDFA wrapping the
// given assembly; the engine layer swaps it in once the lazy path is
// compiled. The receiver must be an NFAExec matcher.
func (m *CompiledMatcher) WithLazySearch(l *LazyDFASearch) *CompiledMatcher {
	if m.kind != MatcherNFAExec {
		panic("compiler: lazy search can only replace an NFA matcher")
	}
	return &CompiledMatcher{
		kind:         MatcherLazyDFA,
		source:       m.source,
		captureCount: m.captureCount,
		lazy:         l,
	}
}

// EagerMatcher wraps an eager capture-tracking executor as a matcher.
func EagerMatcher(source ast.Source, captureCount int, exec *dfa.Executor) *CompiledMatcher {
	return &CompiledMatcher{
		kind:         MatcherEagerDFA,
		source:       source,
		captureCount: captureCount,
		eager:        exec,
	}
}

// Find returns the leftmost match at or after from, or nil.
func (m *CompiledMatcher) Find(input string, from int) *nfa.Match {
	switch m.kind {
	case MatcherDead:
		return nil
	case MatcherLiteral:
		start, end, ok := m.literal.Find(input, from)
		if !ok {
			return nil
		}
		return &nfa.Match{Start: start, End: end, Slots: []int{start, end}}
	case MatcherNFAExec:
		return m.nfaExec.Search(input, from)
	case MatcherLazyDFA:
		return m.lazy.Run(input, from)
	case MatcherEagerDFA:
		return m.eager.Search(input, from)
	default:
		return nil
	}
}

// EntryNode is the host-side anchor of a lazy search: the entry point the
// runtime dispatches into for the forward executor.
type EntryNode struct {
	executor *dfa.Executor
}

// NewEntryNode wraps an executor; hosts call this from CreateEntryNode.
func NewEntryNode(exec *dfa.Executor) *EntryNode {
	return &EntryNode{executor: exec}
}

// Executor returns the wrapped executor.
func (e *EntryNode) Executor() *dfa.Executor { return e.executor }

// Host assembles runtime entry nodes for lazily compiled executors. The
// host reference passed to CompileLazyDFAExecutor is borrowed for the
// duration of the call only.
type Host interface {
	CreateEntryNode(exec *dfa.Executor) *EntryNode
}

// LazyDFASearch is the assembled lazy matcher: the forward searching
// executor rejects inputs without any match end, the interpreter fixes the
// span, the backward executor picks the pre-calculated result when there
// are several, and either the capture tracker or a pre-calculated result
// table fills the slots.
type LazyDFASearch struct {
	preCalc        []*nfa.PreCalculatedResult
	forward        *dfa.Executor
	backward       *dfa.Executor
	captureTracker *dfa.Executor
	entry          *EntryNode

	// vm pins exact greedy spans; the executors bound and classify the
	// match.
	vm           *nfa.PikeVM
	captureCount int
}

// Forward returns the forward searching executor.
func (l *LazyDFASearch) Forward() *dfa.Executor { return l.forward }

// Backward returns the backward executor, or nil when backward search has
// nothing to do.
func (l *LazyDFASearch) Backward() *dfa.Executor { return l.backward }

// CaptureTracker returns the capture-tracking executor, or nil when the
// pre-calculated results cover the pattern.
func (l *LazyDFASearch) CaptureTracker() *dfa.Executor { return l.captureTracker }

// PreCalculatedResults returns the result table, or nil.
func (l *LazyDFASearch) PreCalculatedResults() []*nfa.PreCalculatedResult { return l.preCalc }

// Entry returns the host entry node for the forward executor.
func (l *LazyDFASearch) Entry() *EntryNode { return l.entry }

// Run executes one search.
func (l *LazyDFASearch) Run(input string, from int) *nfa.Match {
	if !l.forward.IsFallback() {
		// Fast rejection: the forward DFA proves the absence of any
		// match end in O(n) before the interpreter runs.
		if _, ok := l.forward.FindEnd(input, from); !ok {
			return nil
		}
	}
	m := l.vm.Search(input, from)
	if m == nil {
		return nil
	}

	switch {
	case l.captureTracker != nil:
		if slots := l.captureTracker.Captures(input, m.Start, m.End); slots != nil {
			return &nfa.Match{Start: m.Start, End: m.End, Slots: slots}
		}
		return m

	case len(l.preCalc) == 1:
		slots := l.preCalc[0].Apply(input, m.Start, m.End)
		return &nfa.Match{Start: m.Start, End: m.End, Slots: mergeSlots(slots, m.Slots)}

	case len(l.preCalc) > 1:
		if l.backward != nil && !l.backward.IsFallback() {
			if _, tag, ok := l.backward.FindStartBackward(input, m.End); ok && tag >= 0 && tag < len(l.preCalc) {
				slots := l.preCalc[tag].Apply(input, m.Start, m.End)
				return &nfa.Match{Start: m.Start, End: m.End, Slots: mergeSlots(slots, m.Slots)}
			}
		}
		return m

	default:
		return m
	}
}

// mergeSlots prefers pre-calculated slot values and falls back to the
// interpreter's for positions the template left unset.
func mergeSlots(calc, exact []int) []int {
	if len(calc) != len(exact) {
		return exact
	}
	for i, v := range calc {
		if v < 0 {
			calc[i] = exact[i]
		}
	}
	return calc
}
