package ast

import (
	"errors"
	"testing"

	"github.com/coregx/jsregex/internal/scratch"
)

func parse(t *testing.T, pattern, flags string) *AST {
	t.Helper()
	f, err := ParseFlags(flags)
	if err != nil {
		t.Fatalf("ParseFlags(%q): %v", flags, err)
	}
	tree, err := NewParser(NewSource(pattern, f), scratch.New()).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	tree.PrepareForDFA()
	return tree
}

// TestParser_Properties checks the boolean pattern summary for a variety
// of pattern classes.
func TestParser_Properties(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    Properties
	}{
		{"literal", "abc", Properties{}},
		{"alternation", "a|b", Properties{HasAlternations: true}},
		{"capture", "(a)b", Properties{HasCaptureGroups: true}},
		{"noncapture", "(?:a)b", Properties{}},
		{"star", "a*b", Properties{HasAlternations: true, HasLoops: true}},
		{"plus", "a+", Properties{HasAlternations: true, HasLoops: true}},
		{"quest", "ab?", Properties{HasAlternations: true}},
		{"fixed_repeat", "a{3}", Properties{}},
		{"open_repeat", "a{2,}", Properties{HasAlternations: true, HasLoops: true}},
		{"large_repeat", "a{0,100000}", Properties{HasAlternations: true, HasLargeCountedRepetitions: true}},
		{"lookahead", "(?=x)y", Properties{HasLookAroundAssertions: true}},
		{"negative_lookahead", "(?!x)y", Properties{HasLookAroundAssertions: true, HasNegativeLookAhead: true}},
		{"lookbehind_literal", "(?<=ab)c", Properties{HasLookAroundAssertions: true}},
		{"lookbehind_complex", `(?<=a+)c`, Properties{
			HasAlternations:         true,
			HasLookAroundAssertions: true,
			HasNonLiteralLookBehind: true,
			HasLoops:                true,
		}},
		{"negative_lookbehind", "(?<!a)c", Properties{
			HasLookAroundAssertions: true,
			HasNegativeLookBehind:   true,
		}},
		{"backreference", `\1(a)`, Properties{HasBackReferences: true, HasCaptureGroups: true}},
		{"named_backreference", `(?<x>a)\k<x>`, Properties{HasBackReferences: true, HasCaptureGroups: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.pattern, "")
			if got := tree.Properties(); got != tt.want {
				t.Errorf("Properties(%q) = %+v, want %+v", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestParser_CaptureGroups(t *testing.T) {
	tests := []struct {
		pattern string
		want    int // including group 0
	}{
		{"abc", 1},
		{"(a)", 2},
		{"(a)(b)", 3},
		{"(a(b))", 3},
		{"(?:a)(b)", 2},
		{"(?<name>a)", 2},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tree := parse(t, tt.pattern, "")
			if got := tree.NumberOfCaptureGroups(); got != tt.want {
				t.Errorf("NumberOfCaptureGroups(%q) = %d, want %d", tt.pattern, got, tt.want)
			}
		})
	}
}

func TestParser_DeadAndMinPath(t *testing.T) {
	tests := []struct {
		pattern string
		dead    bool
		minPath int
	}{
		{"abc", false, 3},
		{"", false, 0},
		{"[]", true, 1},
		{"a[]", true, 2},
		{"a|[]", false, 1},
		{"a|bc", false, 1},
		{"a{3}", false, 3},
		{"(ab)c", false, 3},
		{"(?=xyz)ab", false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			tree := parse(t, tt.pattern, "")
			if got := tree.IsDead(); got != tt.dead {
				t.Errorf("IsDead(%q) = %v, want %v", tt.pattern, got, tt.dead)
			}
			if tt.dead {
				return
			}
			if got := tree.MinPath(); got != tt.minPath {
				t.Errorf("MinPath(%q) = %d, want %d", tt.pattern, got, tt.minPath)
			}
		})
	}
}

func TestParser_SyntaxErrors(t *testing.T) {
	tests := []string{
		"(a",
		"a)",
		"[a",
		"*a",
		"a{2,1}",
		`\`,
		"(?<",
		"(?<x>a)(?<x>b)",
	}
	for _, pattern := range tests {
		t.Run(pattern, func(t *testing.T) {
			_, err := NewParser(NewSource(pattern, 0), scratch.New()).Parse()
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Errorf("Parse(%q) = %v, want SyntaxError", pattern, err)
			}
		})
	}
}

func TestParser_UnsupportedEscapes(t *testing.T) {
	_, err := NewParser(NewSource(`\p{L}+`, 0), scratch.New()).Parse()
	if !IsUnsupported(err) {
		t.Fatalf("Parse(\\p{L}+) = %v, want UnsupportedError", err)
	}
}

func TestParser_LiteralBraces(t *testing.T) {
	// An invalid counted quantifier leaves `{` as a literal character.
	tree := parse(t, "a{x}", "")
	runes, ok := IsLiteralNode(tree.Root())
	if !ok || string(runes) != "a{x}" {
		t.Fatalf("a{x} should parse as the literal %q, got %q (ok=%v)", "a{x}", string(runes), ok)
	}
}

func TestParser_ClassRanges(t *testing.T) {
	tree := parse(t, "[a-cx]", "")
	class, ok := tree.Root().(*CharClass)
	if !ok {
		t.Fatalf("[a-cx] root = %T, want *CharClass", tree.Root())
	}
	for _, r := range []rune{'a', 'b', 'c', 'x'} {
		if !class.Matches(r) {
			t.Errorf("[a-cx] should match %q", r)
		}
	}
	if class.Matches('d') {
		t.Error("[a-cx] should not match 'd'")
	}
}

func TestParser_NegatedClass(t *testing.T) {
	tree := parse(t, "[^a-z]", "")
	class := tree.Root().(*CharClass)
	if class.Matches('m') {
		t.Error("[^a-z] should not match 'm'")
	}
	if !class.Matches('A') || !class.Matches('0') {
		t.Error("[^a-z] should match 'A' and '0'")
	}
}

func TestParser_IgnoreCaseFolding(t *testing.T) {
	tree := parse(t, "a", "i")
	class := tree.Root().(*CharClass)
	if !class.Matches('a') || !class.Matches('A') {
		t.Error("/a/i should match both cases")
	}
}

func TestFlags_RoundTrip(t *testing.T) {
	f, err := ParseFlags("imy")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Has(FlagIgnoreCase) || !f.Has(FlagMultiline) || !f.Has(FlagSticky) || f.Has(FlagDotAll) {
		t.Errorf("ParseFlags(imy) = %v", f)
	}
	if f.String() != "imy" {
		t.Errorf("String() = %q, want %q", f.String(), "imy")
	}
	if _, err := ParseFlags("ii"); err == nil {
		t.Error("duplicate flag should fail")
	}
	if _, err := ParseFlags("z"); err == nil {
		t.Error("unknown flag should fail")
	}
}

func TestStartAnchored(t *testing.T) {
	tests := []struct {
		pattern   string
		multiline bool
		want      bool
	}{
		{"^ab", false, true},
		{"ab", false, false},
		{"^a|^b", false, true},
		{"^a|b", false, false},
		{"^ab", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			flags := ""
			if tt.multiline {
				flags = "m"
			}
			tree := parse(t, tt.pattern, flags)
			if got := StartAnchored(tree.Root(), tt.multiline); got != tt.want {
				t.Errorf("StartAnchored(%q, m=%v) = %v, want %v", tt.pattern, tt.multiline, got, tt.want)
			}
		})
	}
}
