package nfa

import (
	"unicode/utf8"

	"github.com/coregx/jsregex/ast"
)

// Match is one match result. Slots holds 2*CaptureCount byte offsets in
// group order; unset slots are -1. Slots[0] and Slots[1] duplicate Start
// and End.
type Match struct {
	Start, End int
	Slots      []int
}

// Group returns the [start, end) span of a capture group, or (-1, -1) if
// the group did not participate in the match.
func (m *Match) Group(i int) (int, int) {
	if 2*i+1 >= len(m.Slots) {
		return -1, -1
	}
	return m.Slots[2*i], m.Slots[2*i+1]
}

// PikeVM interprets an NFA directly. It is the default execution engine of
// a freshly compiled pattern: correct for the full supported feature set
// (captures, assertions, positive look-ahead, literal look-behind), with
// the DFAs taking over on hot patterns.
//
// The interpreter walks the state graph in priority order, which yields
// ECMAScript's leftmost-first match. Failed (state, position) pairs are
// memoized, bounding the walk at O(states * positions).
type PikeVM struct {
	n *NFA
}

// NewPikeVM creates an interpreter over the given NFA.
func NewPikeVM(n *NFA) *PikeVM {
	return &PikeVM{n: n}
}

// NFA returns the interpreted automaton.
func (p *PikeVM) NFA() *NFA { return p.n }

// CaptureCount returns the capture group count including group 0.
func (p *PikeVM) CaptureCount() int { return p.n.CaptureCount() }

// Search finds the leftmost match at or after from. With the sticky flag
// the match must begin exactly at from. Returns nil if there is no match.
func (p *PikeVM) Search(input string, from int) *Match {
	r := newRunner(p.n, input)
	sticky := p.n.Flags().Has(ast.FlagSticky)
	for start := from; start <= len(input); {
		if m := r.match(start); m != nil {
			return m
		}
		if sticky {
			return nil
		}
		if start == len(input) {
			break
		}
		_, size := utf8.DecodeRuneInString(input[start:])
		start += size
	}
	return nil
}

// SearchAnchored finds a match beginning exactly at start, regardless of
// the sticky flag. Used by the capture-tracking fallback once the span is
// known.
func (p *PikeVM) SearchAnchored(input string, start int) *Match {
	return newRunner(p.n, input).match(start)
}

// visit-state values in runner.seen.
const (
	visitActive uint8 = 1 + iota
	visitFailed
)

// runner is the per-search interpreter state. The failure memo is shared
// across start positions; assertions depend on absolute positions only, so
// a failed (state, position) pair stays failed.
type runner struct {
	n     *NFA
	input string
	slots []int
	seen  map[uint64]uint8
	end   int

	multiline bool
}

func newRunner(n *NFA, input string) *runner {
	return &runner{
		n:         n,
		input:     input,
		slots:     make([]int, 2*n.CaptureCount()),
		seen:      make(map[uint64]uint8),
		multiline: n.Flags().Has(ast.FlagMultiline),
	}
}

func (r *runner) match(start int) *Match {
	for i := range r.slots {
		r.slots[i] = -1
	}
	if !r.step(r.n.Start(), start) {
		return nil
	}
	slots := make([]int, len(r.slots))
	copy(slots, r.slots)
	if len(slots) >= 2 {
		slots[0], slots[1] = start, r.end
	}
	return &Match{Start: start, End: r.end, Slots: slots}
}

func (r *runner) step(id StateID, pos int) bool {
	if id == InvalidState {
		return false
	}
	key := uint64(id)<<32 | uint64(uint32(pos))
	switch r.seen[key] {
	case visitFailed:
		return false
	case visitActive:
		// Epsilon cycle: repeating an empty match makes no progress.
		return false
	}
	r.seen[key] = visitActive

	s := r.n.State(id)
	ok := false
	switch s.Kind {
	case StateRange:
		if pos < len(r.input) {
			c, size := utf8.DecodeRuneInString(r.input[pos:])
			if c >= s.Lo && c <= s.Hi {
				ok = r.step(s.Next, pos+size)
			}
		}
	case StateSplit:
		ok = r.step(s.Next, pos) || r.step(s.Alt, pos)
	case StateEpsilon:
		ok = r.step(s.Next, pos)
	case StateCapture:
		old := r.slots[s.Slot]
		r.slots[s.Slot] = pos
		ok = r.step(s.Next, pos)
		if !ok {
			r.slots[s.Slot] = old
		}
	case StateAssert:
		ok = r.assertHolds(s.Assert, pos) && r.step(s.Next, pos)
	case StateLook:
		ok = r.lookHolds(s.Look, pos) && r.step(s.Next, pos)
	case StateMatch:
		r.end = pos
		ok = true
	}

	if ok {
		delete(r.seen, key)
	} else {
		r.seen[key] = visitFailed
	}
	return ok
}

func (r *runner) assertHolds(kind ast.AssertionKind, pos int) bool {
	switch kind {
	case ast.AssertCaret:
		if pos == 0 {
			return true
		}
		if !r.multiline {
			return false
		}
		c, _ := utf8.DecodeLastRuneInString(r.input[:pos])
		return ast.IsLineTerminator(c)
	case ast.AssertDollar:
		if pos == len(r.input) {
			return true
		}
		if !r.multiline {
			return false
		}
		c, _ := utf8.DecodeRuneInString(r.input[pos:])
		return ast.IsLineTerminator(c)
	case ast.AssertWordBoundary:
		return r.isWordAt(pos-1, true) != r.isWordAt(pos, false)
	case ast.AssertNonWordBoundary:
		return r.isWordAt(pos-1, true) == r.isWordAt(pos, false)
	default:
		return false
	}
}

// isWordAt reports whether the rune ending (last=true) or starting
// (last=false) at the given byte position is a word character.
func (r *runner) isWordAt(pos int, last bool) bool {
	if last {
		if pos < 0 {
			return false
		}
		c, _ := utf8.DecodeLastRuneInString(r.input[:pos+1])
		return ast.IsWordRune(c)
	}
	if pos >= len(r.input) {
		return false
	}
	c, _ := utf8.DecodeRuneInString(r.input[pos:])
	return ast.IsWordRune(c)
}

func (r *runner) lookHolds(look *LookOp, pos int) bool {
	if look.Ahead {
		// Anchored run of the sub-automaton. Capture slots are shared:
		// groups inside a successful look-ahead remain observable.
		sub := &runner{
			n:         look.Sub,
			input:     r.input,
			slots:     r.slots,
			seen:      make(map[uint64]uint8),
			multiline: r.multiline,
		}
		return sub.step(look.Sub.Start(), pos)
	}
	needle := string(look.Literal)
	return pos >= len(needle) && r.input[pos-len(needle):pos] == needle
}
