// Package literal implements the literal engine: specialized scanners for
// patterns that denote one constant string or an alternation of constant
// strings. When the engine applies, the whole automaton pipeline is
// bypassed.
package literal

import (
	"strings"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/jsregex/ast"
)

// matcherKind selects the scanning strategy.
type matcherKind uint8

const (
	kindEmpty matcherKind = iota
	kindSingle
	kindAlternation
)

// Matcher is a compiled literal pattern.
type Matcher struct {
	kind   matcherKind
	needle string

	startAnchored bool
	endAnchored   bool
	sticky        bool

	auto *ahocorasick.Automaton
}

// TryCreate inspects a prepared AST and returns a literal matcher when the
// pattern is one constant string (with optional ^/$ anchors) or an
// unanchored alternation of constant strings. Returns nil when the
// pattern is not literal; the caller proceeds with automaton
// construction.
func TryCreate(a *ast.AST) *Matcher {
	// The multiline flag changes anchor meaning and the ignore-case flag
	// turns characters into folded classes; both disqualify the shortcut.
	if a.Flags().Has(ast.FlagMultiline) || a.Flags().Has(ast.FlagIgnoreCase) {
		return nil
	}
	sticky := a.Flags().Has(ast.FlagSticky)

	root, startAnchored, endAnchored := stripAnchors(a.Root())
	if runes, ok := ast.IsLiteralNode(root); ok {
		kind := kindSingle
		if len(runes) == 0 {
			kind = kindEmpty
		}
		return &Matcher{
			kind:          kind,
			needle:        string(runes),
			startAnchored: startAnchored,
			endAnchored:   endAnchored,
			sticky:        sticky,
		}
	}

	if startAnchored || endAnchored {
		return nil
	}
	alts, ok := literalAlternatives(root)
	if !ok {
		return nil
	}
	builder := ahocorasick.NewBuilder()
	for _, alt := range alts {
		builder.AddPattern([]byte(alt))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &Matcher{kind: kindAlternation, auto: auto, sticky: sticky}
}

// stripAnchors peels a leading ^ and trailing $ off a sequence.
func stripAnchors(n ast.Node) (body ast.Node, start, end bool) {
	seq, ok := n.(*ast.Sequence)
	if !ok {
		if pa, isAssert := n.(*ast.PositionAssertion); isAssert {
			switch pa.Kind {
			case ast.AssertCaret:
				return &ast.Empty{}, true, false
			case ast.AssertDollar:
				return &ast.Empty{}, false, true
			}
		}
		return n, false, false
	}
	terms := seq.Terms
	if len(terms) > 0 {
		if pa, isAssert := terms[0].(*ast.PositionAssertion); isAssert && pa.Kind == ast.AssertCaret {
			start = true
			terms = terms[1:]
		}
	}
	if len(terms) > 0 {
		if pa, isAssert := terms[len(terms)-1].(*ast.PositionAssertion); isAssert && pa.Kind == ast.AssertDollar {
			end = true
			terms = terms[:len(terms)-1]
		}
	}
	switch len(terms) {
	case 0:
		return &ast.Empty{}, start, end
	case 1:
		return terms[0], start, end
	default:
		return &ast.Sequence{Terms: terms}, start, end
	}
}

// literalAlternatives extracts the constant strings of an alternation of
// literals. At least two non-empty alternatives are required; the
// Aho-Corasick automaton cannot represent the empty needle.
func literalAlternatives(n ast.Node) ([]string, bool) {
	alt, ok := n.(*ast.Alternation)
	if !ok {
		return nil, false
	}
	alts := make([]string, 0, len(alt.Alternatives))
	for _, sub := range alt.Alternatives {
		runes, isLit := ast.IsLiteralNode(sub)
		if !isLit || len(runes) == 0 {
			return nil, false
		}
		alts = append(alts, string(runes))
	}
	return alts, len(alts) >= 2
}

// String describes the matcher for logs.
func (m *Matcher) String() string {
	switch m.kind {
	case kindEmpty:
		return "literal:empty"
	case kindAlternation:
		return "literal:alternation"
	default:
		return "literal:" + m.needle
	}
}

// Find returns the span of the leftmost match at or after from.
func (m *Matcher) Find(input string, from int) (start, end int, ok bool) {
	switch m.kind {
	case kindEmpty:
		return m.findEmpty(input, from)
	case kindAlternation:
		match := m.auto.Find([]byte(input), from)
		if match == nil {
			return 0, 0, false
		}
		if m.sticky && match.Start != from {
			return 0, 0, false
		}
		return match.Start, match.End, true
	default:
		return m.findSingle(input, from)
	}
}

func (m *Matcher) findEmpty(input string, from int) (int, int, bool) {
	if m.startAnchored {
		if from > 0 {
			return 0, 0, false
		}
		if m.endAnchored && len(input) != 0 {
			return 0, 0, false
		}
		return 0, 0, true
	}
	if m.endAnchored {
		if m.sticky && from != len(input) {
			return 0, 0, false
		}
		return len(input), len(input), true
	}
	return from, from, true
}

func (m *Matcher) findSingle(input string, from int) (int, int, bool) {
	switch {
	case m.startAnchored:
		if from > 0 {
			return 0, 0, false
		}
		if !strings.HasPrefix(input, m.needle) {
			return 0, 0, false
		}
		if m.endAnchored && len(input) != len(m.needle) {
			return 0, 0, false
		}
		return 0, len(m.needle), true

	case m.endAnchored:
		if !strings.HasSuffix(input, m.needle) {
			return 0, 0, false
		}
		start := len(input) - len(m.needle)
		if start < from || (m.sticky && start != from) {
			return 0, 0, false
		}
		return start, len(input), true

	case m.sticky:
		if len(input)-from < len(m.needle) || input[from:from+len(m.needle)] != m.needle {
			return 0, 0, false
		}
		return from, from + len(m.needle), true

	default:
		idx := strings.Index(input[from:], m.needle)
		if idx < 0 {
			return 0, 0, false
		}
		return from + idx, from + idx + len(m.needle), true
	}
}
