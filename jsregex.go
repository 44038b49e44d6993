// Package jsregex compiles ECMAScript regular expressions into executable
// matchers.
//
// The compilation pipeline stages a pattern through parsing, feature
// gating, a literal-engine shortcut, NFA construction and — on hot
// patterns — DFA construction, and selects the cheapest matcher variant
// the pattern admits:
//
//   - dead patterns are recognized at parse time and match nothing
//   - constant patterns use a literal scanner and skip the automata
//   - everything else starts on the NFA interpreter, with a lazy DFA
//     search compiled after repeated use
//
// Basic usage:
//
//	re, err := jsregex.Compile(`(a|b)c`, "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if re.MatchString("abc") {
//	    fmt.Println("matched")
//	}
//
// Patterns outside the supported subset (backreferences, negative
// look-around, giant counted repetitions) fail to compile with an
// *ast.UnsupportedError carrying a stable human-readable reason; the
// decision is deterministic and may be cached by callers.
package jsregex

import (
	"sync"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/compiler"
	"github.com/coregx/jsregex/dfa"
	"github.com/coregx/jsregex/nfa"
)

// lazyCompileThreshold is the search count at which an NFA matcher is
// upgraded to the lazy DFA search; that search already runs on it.
const lazyCompileThreshold = 8

// Regexp is a compiled regular expression. It is safe for concurrent
// use.
type Regexp struct {
	source ast.Source
	opts   compiler.Options

	mu       sync.Mutex
	matcher  *compiler.CompiledMatcher
	req      *compiler.Request
	runs     int
	upgraded bool
}

// Compile compiles an ECMAScript pattern with the given flag string
// (some subset of "imsuy").
func Compile(pattern, flags string) (*Regexp, error) {
	f, err := ast.ParseFlags(flags)
	if err != nil {
		return nil, err
	}
	return CompileSource(ast.NewSource(pattern, f), compiler.DefaultOptions())
}

// CompileSource compiles a source under explicit engine options.
func CompileSource(source ast.Source, opts compiler.Options) (*Regexp, error) {
	req := compiler.NewRequest(source, opts)

	m, err := req.Compile()
	if err != nil {
		return nil, err
	}

	if opts.RegressionTestMode && m.Kind() == compiler.MatcherNFAExec {
		// Test drivers force the eager capture-tracking DFA in place of
		// the deferred lazy path. Dead and literal matchers are kept;
		// there is no automaton to build eagerly for them.
		exec, err := req.CompileEagerDFAExecutor()
		if err != nil {
			return nil, err
		}
		m = compiler.EagerMatcher(source, req.AST().NumberOfCaptureGroups(), exec)
		return &Regexp{source: source, opts: opts, matcher: m, req: req, upgraded: true}, nil
	}

	return &Regexp{source: source, opts: opts, matcher: m, req: req}, nil
}

// MustCompile is Compile for patterns known to be valid; it panics on
// error.
func MustCompile(pattern, flags string) *Regexp {
	re, err := Compile(pattern, flags)
	if err != nil {
		panic("jsregex: Compile(" + pattern + "): " + err.Error())
	}
	return re
}

// String returns the pattern source in /pattern/flags notation.
func (re *Regexp) String() string { return re.source.String() }

// MatcherKind exposes the selected matcher variant.
func (re *Regexp) MatcherKind() compiler.MatcherKind {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.matcher.Kind()
}

// NumSubexp returns the number of explicit capture groups.
func (re *Regexp) NumSubexp() int {
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.matcher.CaptureCount() - 1
}

// MatchString reports whether the pattern matches anywhere in s.
func (re *Regexp) MatchString(s string) bool {
	return re.find(s, 0) != nil
}

// FindStringIndex returns the [start, end) span of the leftmost match,
// or nil.
func (re *Regexp) FindStringIndex(s string) []int {
	m := re.find(s, 0)
	if m == nil {
		return nil
	}
	return []int{m.Start, m.End}
}

// FindStringSubmatchIndex returns the slot vector of the leftmost match
// (2*(NumSubexp()+1) offsets, -1 for groups that did not participate), or
// nil.
func (re *Regexp) FindStringSubmatchIndex(s string) []int {
	m := re.find(s, 0)
	if m == nil {
		return nil
	}
	return m.Slots
}

// FindStringIndexAt is FindStringIndex starting the search at from.
func (re *Regexp) FindStringIndexAt(s string, from int) []int {
	if from < 0 || from > len(s) {
		return nil
	}
	m := re.find(s, from)
	if m == nil {
		return nil
	}
	return []int{m.Start, m.End}
}

// CreateEntryNode implements compiler.Host: it anchors the lazily
// compiled forward executor into this handle's runtime.
func (re *Regexp) CreateEntryNode(exec *dfa.Executor) *compiler.EntryNode {
	return compiler.NewEntryNode(exec)
}

func (re *Regexp) find(s string, from int) *nfa.Match {
	m := re.currentMatcher()
	return m.Find(s, from)
}

// currentMatcher counts the call and upgrades a hot NFA matcher to the
// lazy DFA search.
func (re *Regexp) currentMatcher() *compiler.CompiledMatcher {
	re.mu.Lock()
	defer re.mu.Unlock()
	re.runs++
	if !re.upgraded && re.runs >= lazyCompileThreshold && re.matcher.Kind() == compiler.MatcherNFAExec {
		re.upgraded = true
		if lazy, err := re.req.CompileLazyDFAExecutor(re); err == nil {
			re.matcher = re.matcher.WithLazySearch(lazy)
		}
		// A failed lazy compilation leaves the NFA matcher in place; the
		// pattern stays correct, only slower.
	}
	return re.matcher
}
