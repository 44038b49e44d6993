package dfa

import (
	"errors"
	"testing"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/internal/scratch"
	"github.com/coregx/jsregex/nfa"
)

func compileNFA(t *testing.T, pattern, flags string) *nfa.NFA {
	t.Helper()
	f, err := ast.ParseFlags(flags)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := ast.NewParser(ast.NewSource(pattern, f), scratch.New()).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	tree.PrepareForDFA()
	n, err := nfa.Generate(tree, scratch.New(), 0)
	if err != nil {
		t.Fatalf("Generate(%q): %v", pattern, err)
	}
	return n
}

func build(t *testing.T, n *nfa.NFA, props Props, name string) *Executor {
	t.Helper()
	b := NewBuilder(nil, n, props, scratch.New(), DefaultConfig())
	b.DebugName(name)
	if err := b.CalcDFA(); err != nil {
		t.Fatalf("CalcDFA: %v", err)
	}
	return b.CreateExecutor()
}

func TestExecutor_FindEnd(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		flags   string
		input   string
		from    int
		end     int
		ok      bool
	}{
		{"literal", "abc", "", "zzabc", 0, 5, true},
		{"literal_miss", "abc", "", "zzab", 0, 0, false},
		{"class", "[0-9][0-9]", "", "ab12", 0, 4, true},
		{"caret", "^ab", "", "zab", 0, 0, false},
		{"caret_hit", "^ab", "", "abz", 0, 2, true},
		{"dollar", "ab$", "", "zab", 0, 3, true},
		{"word_boundary", `\bfoo`, "", "a foo", 0, 5, true},
		{"word_boundary_miss", `\bfoo`, "", "afoo", 0, 0, false},
		{"from_offset", "ab", "", "abab", 1, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := build(t, compileNFA(t, tt.pattern, tt.flags), Props{Direction: Forward, Searching: true}, "forward")
			end, ok := exec.FindEnd(tt.input, tt.from)
			if ok != tt.ok || (ok && end != tt.end) {
				t.Errorf("FindEnd(%q, %q, %d) = (%d, %v), want (%d, %v)",
					tt.pattern, tt.input, tt.from, end, ok, tt.end, tt.ok)
			}
		})
	}
}

func TestExecutor_FindStartBackward(t *testing.T) {
	n := compileNFA(t, "abc", "")
	backward := build(t, nfa.Reverse(n), Props{Direction: Backward}, "backward")
	start, _, ok := backward.FindStartBackward("zzabc", 5)
	if !ok || start != 2 {
		t.Fatalf("FindStartBackward = (%d, %v), want (2, true)", start, ok)
	}
	if _, _, ok := backward.FindStartBackward("zzabx", 5); ok {
		t.Fatal("FindStartBackward should fail on a non-match")
	}
}

func TestExecutor_CapturesOnePass(t *testing.T) {
	n := compileNFA(t, "(a)(b+)", "")
	tracker := build(t, n, Props{Direction: Forward, CaptureTracking: true}, "tracker")
	slots := tracker.Captures("abb", 0, 3)
	want := []int{0, 3, 0, 1, 1, 3}
	if slots == nil {
		t.Fatal("Captures returned nil")
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("Captures = %v, want %v", slots, want)
		}
	}
}

func TestExecutor_LookFallback(t *testing.T) {
	n := compileNFA(t, "(?=ab)a", "")
	exec := build(t, n, Props{Direction: Forward, Searching: true}, "forward")
	if !exec.IsFallback() {
		t.Fatal("look-around automaton should produce a fallback executor")
	}
	end, ok := exec.FindEnd("zab", 0)
	if !ok || end != 2 {
		t.Fatalf("fallback FindEnd = (%d, %v), want (2, true)", end, ok)
	}
}

func TestBuilder_StateLimit(t *testing.T) {
	n := compileNFA(t, "[ab][cd][ef][gh]", "")
	b := NewBuilder(nil, n, Props{Direction: Forward, Searching: true}, scratch.New(), Config{MaxStates: 2})
	err := b.CalcDFA()
	if !errors.Is(err, ErrStateLimitExceeded) {
		t.Fatalf("CalcDFA = %v, want ErrStateLimitExceeded", err)
	}
}

func TestBuilder_CreateBeforeCalcPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("CreateExecutor before CalcDFA must panic")
		}
	}()
	b := NewBuilder(nil, compileNFA(t, "a", ""), Props{}, scratch.New(), DefaultConfig())
	b.CreateExecutor()
}

func TestBuilder_DebugName(t *testing.T) {
	b := NewBuilder(nil, compileNFA(t, "a", ""), Props{}, scratch.New(), DefaultConfig())
	if got := b.DebugName("forward"); got != "forward" {
		t.Errorf("DebugName = %q, want %q", got, "forward")
	}
	// The first suggestion sticks.
	if got := b.DebugName("other"); got != "forward" {
		t.Errorf("DebugName = %q, want %q", got, "forward")
	}
}

func TestExecutor_StateCount(t *testing.T) {
	exec := build(t, compileNFA(t, "abc", ""), Props{Direction: Forward, Searching: true}, "forward")
	if exec.StateCount() == 0 {
		t.Fatal("executor reports zero states")
	}
	if exec.Name() != "forward" {
		t.Errorf("Name = %q", exec.Name())
	}
}
