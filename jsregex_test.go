package jsregex

import (
	"strings"
	"testing"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/compiler"
)

func TestCompile_EndToEnd(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		flags   string
		input   string
		want    []int // nil for no match
	}{
		{"literal", "abc", "", "zzabczz", []int{2, 5}},
		{"literal_miss", "abc", "", "zzaczz", nil},
		{"alternation", "(a|b)c", "", "xbc", []int{1, 3}},
		{"loop", "a*b", "", "caaab", []int{1, 5}},
		{"dead", "[]", "", "anything", nil},
		{"empty", "", "", "abc", []int{0, 0}},
		{"lookahead", "(?=ab)a", "", "zab", []int{1, 2}},
		{"ignorecase", "abc", "i", "xAbC", []int{1, 4}},
		{"multiline", "^b$", "m", "a\nb\nc", []int{2, 3}},
		{"sticky", "ab", "y", "zab", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := Compile(tt.pattern, tt.flags)
			if err != nil {
				t.Fatalf("Compile(%q, %q): %v", tt.pattern, tt.flags, err)
			}
			got := re.FindStringIndex(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("FindStringIndex(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Errorf("FindStringIndex(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompile_MatcherKinds(t *testing.T) {
	tests := []struct {
		pattern string
		want    compiler.MatcherKind
	}{
		{"abc", compiler.MatcherLiteral},
		{"[]", compiler.MatcherDead},
		{"(a|b)c", compiler.MatcherNFAExec},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			re := MustCompile(tt.pattern, "")
			if got := re.MatcherKind(); got != tt.want {
				t.Errorf("MatcherKind(%q) = %s, want %s", tt.pattern, got, tt.want)
			}
		})
	}
}

// TestLazyUpgrade: a hot NFA matcher is upgraded to the lazy DFA search
// and keeps producing identical results.
func TestLazyUpgrade(t *testing.T) {
	re := MustCompile("(a|b)c", "")
	if re.MatcherKind() != compiler.MatcherNFAExec {
		t.Fatalf("initial kind = %s", re.MatcherKind())
	}
	for i := 0; i < 2*lazyCompileThreshold; i++ {
		if got := re.FindStringSubmatchIndex("zbc"); got == nil || got[0] != 1 || got[1] != 3 {
			t.Fatalf("run %d: FindStringSubmatchIndex = %v", i, got)
		}
	}
	if re.MatcherKind() != compiler.MatcherLazyDFA {
		t.Fatalf("kind after %d runs = %s, want LazyDFASearch", 2*lazyCompileThreshold, re.MatcherKind())
	}
	got := re.FindStringSubmatchIndex("zbc")
	want := []int{1, 3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("post-upgrade slots = %v, want %v", got, want)
		}
	}
}

func TestSubmatchIndexes(t *testing.T) {
	re := MustCompile("(a+)(b)?", "")
	got := re.FindStringSubmatchIndex("xaab")
	want := []int{1, 4, 1, 3, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
	if re.NumSubexp() != 2 {
		t.Errorf("NumSubexp = %d, want 2", re.NumSubexp())
	}
}

func TestCompile_UnsupportedSurface(t *testing.T) {
	_, err := Compile(`(?!x)y`, "")
	if !ast.IsUnsupported(err) {
		t.Fatalf("Compile((?!x)y) = %v, want UnsupportedError", err)
	}
	if !strings.Contains(err.Error(), "negative lookahead assertions not supported") {
		t.Errorf("error = %q, want the canonical reason", err)
	}
}

func TestMustCompile_Panics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustCompile must panic on unsupported patterns")
		}
		if !strings.Contains(r.(string), "jsregex") {
			t.Errorf("panic = %v", r)
		}
	}()
	MustCompile(`\1(a)`, "")
}

func TestRegressionTestMode(t *testing.T) {
	opts := compiler.DefaultOptions()
	opts.RegressionTestMode = true
	re, err := CompileSource(ast.NewSource("^(a)b", 0), opts)
	if err != nil {
		t.Fatal(err)
	}
	if re.MatcherKind() != compiler.MatcherEagerDFA {
		t.Fatalf("kind = %s, want EagerDFA", re.MatcherKind())
	}
	got := re.FindStringSubmatchIndex("ab")
	want := []int{0, 2, 0, 1}
	if got == nil {
		t.Fatal("no match")
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
	if re.FindStringSubmatchIndex("zb") != nil {
		t.Error("^(a)b must not match zb")
	}

	// Dead and literal patterns keep their cheap variants even in
	// regression mode.
	reDead, err := CompileSource(ast.NewSource("[]", 0), opts)
	if err != nil {
		t.Fatal(err)
	}
	if reDead.MatcherKind() != compiler.MatcherDead {
		t.Errorf("dead kind = %s", reDead.MatcherKind())
	}
}

func TestFindStringIndexAt(t *testing.T) {
	re := MustCompile("ab", "")
	if got := re.FindStringIndexAt("abab", 1); got == nil || got[0] != 2 {
		t.Errorf("FindStringIndexAt = %v, want [2,4]", got)
	}
	if got := re.FindStringIndexAt("abab", 5); got != nil {
		t.Errorf("out-of-range from should return nil, got %v", got)
	}
}
