package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/dfa"
)

func newRequest(t *testing.T, pattern, flags string) *Request {
	t.Helper()
	f, err := ast.ParseFlags(flags)
	if err != nil {
		t.Fatal(err)
	}
	return NewRequest(ast.NewSource(pattern, f), DefaultOptions())
}

func mustCompile(t *testing.T, pattern, flags string) (*Request, *CompiledMatcher) {
	t.Helper()
	r := newRequest(t, pattern, flags)
	m, err := r.Compile()
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	return r, m
}

// TestCompile_VariantSelection checks the early-return cascade: exactly
// one variant per pattern, matching the pattern's shape.
func TestCompile_VariantSelection(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    MatcherKind
		result  string
	}{
		{"literal", "abc", MatcherLiteral, ResultLiteral},
		{"empty_pattern", "", MatcherLiteral, ResultLiteral},
		{"literal_alternation", "foo|bar", MatcherLiteral, ResultLiteral},
		{"dead_class", "[]", MatcherDead, ResultDead},
		{"dead_sequence", "x[]y", MatcherDead, ResultDead},
		{"alternation", "(a|b)c", MatcherNFAExec, ResultAutomaton},
		{"loop", "a*b", MatcherNFAExec, ResultAutomaton},
		{"captures", "(a)(b)", MatcherNFAExec, ResultAutomaton},
		{"positive_lookahead", "(?=x)y", MatcherNFAExec, ResultAutomaton},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := mustCompile(t, tt.pattern, "")
			if m.Kind() != tt.want {
				t.Errorf("Compile(%q) kind = %s, want %s", tt.pattern, m.Kind(), tt.want)
			}
			if rec := r.SizeRecord(); rec.CompilerResult != tt.result {
				t.Errorf("compilerResult = %q, want %q", rec.CompilerResult, tt.result)
			}
			if r.AST() != nil && m.CaptureCount() != r.AST().NumberOfCaptureGroups() {
				t.Errorf("CaptureCount = %d, AST says %d", m.CaptureCount(), r.AST().NumberOfCaptureGroups())
			}
		})
	}
}

// TestCompile_DeadSkipsNFA asserts that dead trees never reach the NFA
// builder.
func TestCompile_DeadSkipsNFA(t *testing.T) {
	r, m := mustCompile(t, "[]", "")
	if m.Kind() != MatcherDead {
		t.Fatalf("kind = %s", m.Kind())
	}
	if r.NFA() != nil {
		t.Error("dead pattern must not construct an NFA")
	}
	if rec := r.SizeRecord(); rec.NFAStates != 0 {
		t.Errorf("NFAStates = %d, want 0", rec.NFAStates)
	}
}

// TestCompile_Unsupported verifies the re-raise contract: engine prefix,
// verbatim reason, source attached, bailout record.
func TestCompile_Unsupported(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		reason  string
	}{
		{"negative_lookahead", "(?!x)y", "negative lookahead assertions not supported"},
		{"backreference", `\1(a)`, "backreferences not supported"},
		{"large_repeat", "a{0,100000}", "bounds of range quantifier too high"},
		{"negative_lookbehind", "(?<!a)b", "negative lookbehind assertions not supported"},
		{"complex_lookbehind", "(?<=a+)b", "body of lookbehind assertion too complex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(t, tt.pattern, "")
			_, err := r.Compile()
			var ue *ast.UnsupportedError
			if !errors.As(err, &ue) {
				t.Fatalf("Compile(%q) = %v, want UnsupportedError", tt.pattern, err)
			}
			if want := "jsregex: " + tt.reason; ue.Reason != want {
				t.Errorf("reason = %q, want %q", ue.Reason, want)
			}
			if ue.Source.Pattern != tt.pattern {
				t.Errorf("source = %q, want %q", ue.Source.Pattern, tt.pattern)
			}
			if rec := r.SizeRecord(); rec.CompilerResult != ResultBailout {
				t.Errorf("compilerResult = %q, want %q", rec.CompilerResult, ResultBailout)
			}
		})
	}
}

// TestCompile_Idempotent: equal sources on distinct requests produce the
// same variant and identical size records.
func TestCompile_Idempotent(t *testing.T) {
	for _, pattern := range []string{"abc", "(a|b)c", "[]", "a*b"} {
		r1, m1 := mustCompile(t, pattern, "")
		r2, m2 := mustCompile(t, pattern, "")
		if m1.Kind() != m2.Kind() {
			t.Errorf("kinds differ for %q: %s vs %s", pattern, m1.Kind(), m2.Kind())
		}
		if r1.SizeRecord() != r2.SizeRecord() {
			t.Errorf("size records differ for %q:\n%+v\n%+v", pattern, r1.SizeRecord(), r2.SizeRecord())
		}
	}
}

// TestCompile_SizeRecordEmission counts emitted records through a logrus
// hook: exactly one per request, on success and bailout alike.
func TestCompile_SizeRecordEmission(t *testing.T) {
	hook := logrustest.NewLocal(baseLogger)
	defer hook.Reset()
	oldLevel := baseLogger.GetLevel()
	baseLogger.SetLevel(logrus.DebugLevel)
	defer baseLogger.SetLevel(oldLevel)

	sizeRecords := func() int {
		count := 0
		for _, e := range hook.AllEntries() {
			if e.Data["channel"] == "automaton-sizes" {
				count++
			}
		}
		return count
	}

	mustCompile(t, "abc", "")
	if got := sizeRecords(); got != 1 {
		t.Fatalf("records after success = %d, want 1", got)
	}

	r := newRequest(t, "(?!x)y", "")
	if _, err := r.Compile(); err == nil {
		t.Fatal("expected bailout")
	}
	if got := sizeRecords(); got != 2 {
		t.Fatalf("records after bailout = %d, want 2", got)
	}
	last := hook.LastEntry()
	for _, e := range hook.AllEntries() {
		if e.Data["channel"] == "automaton-sizes" {
			last = e
		}
	}
	if !strings.Contains(last.Message, `"compilerResult":"bailout"`) {
		t.Errorf("bailout record = %s", last.Message)
	}
}

// TestCompile_PhaseLogsBalanced: every Start has a matching End.
func TestCompile_PhaseLogsBalanced(t *testing.T) {
	hook := logrustest.NewLocal(baseLogger)
	defer hook.Reset()
	oldLevel := baseLogger.GetLevel()
	baseLogger.SetLevel(logrus.DebugLevel)
	defer baseLogger.SetLevel(oldLevel)

	r, _ := mustCompile(t, "(a|b)c", "")
	if _, err := r.CompileLazyDFAExecutor(nil); err != nil {
		t.Fatal(err)
	}

	var depth int
	for _, e := range hook.AllEntries() {
		if e.Data["channel"] != "phases" {
			continue
		}
		switch {
		case strings.HasSuffix(e.Message, "Start"):
			depth++
		case strings.Contains(e.Message, "End, elapsed:"):
			depth--
		}
		if depth < 0 {
			t.Fatal("phase End without matching Start")
		}
	}
	if depth != 0 {
		t.Fatalf("unbalanced phase logs, depth %d", depth)
	}
}

// TestCompileLazyDFAExecutor_DecisionTree covers the pre-calculated
// result, capture tracker and backward executor selection.
func TestCompileLazyDFAExecutor_DecisionTree(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		preCalc     int
		tracker     bool
		backward    bool
		traceFinder bool
	}{
		// No alternations, no look-around: single pre-calculated result,
		// trace finder bypassed. Unanchored, so backward is skipped.
		{"fixed_captures", "(a)(b)", 1, false, false, false},

		// Same, but start-anchored: no reverse un-anchored entry, so the
		// backward executor is built from the main NFA.
		{"anchored_fixed", "^(a)(b)", 1, false, true, false},

		// Alternation without loops: trace finder supplies two results
		// and the backward executor comes from its automaton.
		{"alternation", "(a|b)c", 2, false, true, true},

		// Loops: trace finder is never attempted; no pre-calculated
		// results, backward from the main NFA, no captures to track.
		{"loop", "a*b", 0, false, true, false},

		// Loops with captures: the capture tracker is required.
		{"loop_captures", "(a|b)+", 0, true, true, false},

		// Trace finder bailout (look-around): recoverable, request
		// continues with a capture tracker.
		{"lookahead_bailout", "(?=ab)a|c", 0, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, m := mustCompile(t, tt.pattern, "")
			if m.Kind() != MatcherNFAExec {
				t.Fatalf("kind = %s, want NFAExec", m.Kind())
			}
			search, err := r.CompileLazyDFAExecutor(nil)
			if err != nil {
				t.Fatalf("CompileLazyDFAExecutor: %v", err)
			}
			if got := len(search.PreCalculatedResults()); got != tt.preCalc {
				t.Errorf("preCalc entries = %d, want %d", got, tt.preCalc)
			}
			if got := search.CaptureTracker() != nil; got != tt.tracker {
				t.Errorf("capture tracker = %v, want %v", got, tt.tracker)
			}
			if got := search.Backward() != nil; got != tt.backward {
				t.Errorf("backward executor = %v, want %v", got, tt.backward)
			}
			if search.Forward() == nil {
				t.Error("forward executor missing")
			}
			if rec := r.SizeRecord(); rec.TraceFinder != tt.traceFinder {
				t.Errorf("record.TraceFinder = %v, want %v", rec.TraceFinder, tt.traceFinder)
			}
		})
	}
}

// TestLazyDFASearch_Run checks end-to-end lazy matching per variant of
// the decision tree.
func TestLazyDFASearch_Run(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		input   string
		want    []int // full slot vector; nil for no match
	}{
		{"single_precalc", "(a)(b)", "zab", []int{1, 3, 1, 2, 2, 3}},
		{"tracefinder", "(a|b)c", "zac", []int{1, 3, 1, 2}},
		{"tracefinder_second_shape", "(a|b)c", "zbc", []int{1, 3, 1, 2}},
		{"loop_span", "a*b", "caab", []int{1, 4}},
		{"tracker", "(a|b)+", "xab", []int{1, 3, 2, 3}},
		{"lookahead", "(?=ab)a|c", "zab", []int{1, 2}},
		{"no_match", "(a|b)c", "zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := mustCompile(t, tt.pattern, "")
			search, err := r.CompileLazyDFAExecutor(nil)
			if err != nil {
				t.Fatal(err)
			}
			m := search.Run(tt.input, 0)
			if tt.want == nil {
				if m != nil {
					t.Fatalf("Run = %+v, want no match", m)
				}
				return
			}
			if m == nil {
				t.Fatalf("Run(%q, %q) = no match, want %v", tt.pattern, tt.input, tt.want)
			}
			for i := range tt.want {
				if i >= len(m.Slots) || m.Slots[i] != tt.want[i] {
					t.Fatalf("Slots = %v, want %v", m.Slots, tt.want)
				}
			}
		})
	}
}

func TestCompileLazyDFAExecutor_PanicsWithoutNFA(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("CompileLazyDFAExecutor on a fresh request must panic")
		}
	}()
	r := newRequest(t, "abc", "")
	_, _ = r.CompileLazyDFAExecutor(nil)
}

func TestCompileEagerDFAExecutor(t *testing.T) {
	r := newRequest(t, "^(a)b", "")
	exec, err := r.CompileEagerDFAExecutor()
	if err != nil {
		t.Fatalf("CompileEagerDFAExecutor: %v", err)
	}
	if exec.StateCount() == 0 && !exec.IsFallback() {
		t.Error("eager executor has no states")
	}
	p := exec.Props()
	if !p.Searching || !p.CaptureTracking {
		t.Errorf("eager executor props = %+v", p)
	}
	m := exec.Search("ab", 0)
	if m == nil || m.Start != 0 || m.End != 2 {
		t.Fatalf("Search(ab) = %+v, want [0,2]", m)
	}
	if len(m.Slots) != 4 || m.Slots[2] != 0 || m.Slots[3] != 1 {
		t.Errorf("Slots = %v, want group 1 = [0,1]", m.Slots)
	}
}

func TestCompileEagerDFAExecutor_PanicsOnDead(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("eager compilation of a dead pattern must panic")
		}
	}()
	r := newRequest(t, "[]", "")
	_, _ = r.CompileEagerDFAExecutor()
}

func TestCompileEagerDFAExecutor_PanicsOnUnsupported(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("eager compilation of an unsupported pattern must panic")
		}
	}()
	r := newRequest(t, `\1(a)`, "")
	_, _ = r.CompileEagerDFAExecutor()
}

func TestOptions_Validate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("DefaultOptions invalid: %v", err)
	}
	bad := DefaultOptions()
	bad.MaxNFAStates = 0
	var oe *OptionsError
	if err := bad.Validate(); !errors.As(err, &oe) {
		t.Fatalf("Validate = %v, want OptionsError", err)
	}
}

func TestRequest_HostEntryNode(t *testing.T) {
	r, _ := mustCompile(t, "(a|b)c", "")
	search, err := r.CompileLazyDFAExecutor(entryHost{})
	if err != nil {
		t.Fatal(err)
	}
	if search.Entry() == nil || search.Entry().Executor() != search.Forward() {
		t.Error("entry node must anchor the forward executor")
	}
}

type entryHost struct{}

func (entryHost) CreateEntryNode(exec *dfa.Executor) *EntryNode { return NewEntryNode(exec) }
