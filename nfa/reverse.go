package nfa

import "github.com/coregx/jsregex/ast"

// reverseEdge is one flipped transition, entering `to` (an original state
// ID) with the payload of the original state `from`.
type reverseEdge struct {
	kind   StateKind
	lo, hi rune
	assert ast.AssertionKind
	look   *LookOp
	from   StateID
}

// Reverse builds the reverse automaton of n: every transition is flipped,
// the match state becomes the entry, and the former start accepts. The
// backward DFA is determinized from this automaton to locate match starts
// by scanning backward from a known match end.
//
// Capture states are dropped (backward search never tracks captures) and
// the ^ / $ assertions swap roles, since the reverse automaton sees the
// input back to front.
func Reverse(n *NFA) *NFA {
	count := len(n.states)

	// Collect flipped edges, indexed by the original target state.
	incoming := make([][]reverseEdge, count)
	addEdge := func(to StateID, e reverseEdge) {
		if to != InvalidState {
			incoming[to] = append(incoming[to], e)
		}
	}
	for id := range n.states {
		s := &n.states[id]
		from := StateID(id)
		switch s.Kind {
		case StateRange:
			addEdge(s.Next, reverseEdge{kind: StateRange, lo: s.Lo, hi: s.Hi, from: from})
		case StateSplit:
			addEdge(s.Next, reverseEdge{kind: StateEpsilon, from: from})
			addEdge(s.Alt, reverseEdge{kind: StateEpsilon, from: from})
		case StateCapture:
			// Backward search reports spans only; capture slots are
			// re-derived by the forward capture tracker.
			addEdge(s.Next, reverseEdge{kind: StateEpsilon, from: from})
		case StateAssert:
			addEdge(s.Next, reverseEdge{kind: StateAssert, assert: flipAssert(s.Assert), from: from})
		case StateLook:
			addEdge(s.Next, reverseEdge{kind: StateLook, look: s.Look, from: from})
		case StateEpsilon:
			addEdge(s.Next, reverseEdge{kind: StateEpsilon, from: from})
		}
	}

	g := &generator{tree: n.tree, maxStates: DefaultMaxStates * 2}

	// One junction per original state. Junctions are filled after all IDs
	// are known.
	junctions := make([]StateID, count)
	for i := range junctions {
		junctions[i] = g.add(State{Kind: StateEpsilon, Next: InvalidState, Alt: InvalidState})
	}

	// The former start accepts in reverse.
	match := g.add(State{Kind: StateMatch, Next: InvalidState, Alt: InvalidState, Tag: -1})
	g.states[junctions[n.start]].Next = match

	var entries []StateID
	for id := range n.states {
		if n.states[id].Kind == StateMatch {
			entries = append(entries, junctions[id])
		}
		var targets []StateID
		for _, e := range incoming[id] {
			edgeState := g.add(State{
				Kind:   e.kind,
				Lo:     e.lo,
				Hi:     e.hi,
				Assert: e.assert,
				Look:   e.look,
				Next:   junctions[e.from],
				Alt:    InvalidState,
				Tag:    -1,
			})
			targets = append(targets, edgeState)
		}
		g.connectJunction(junctions[id], targets)
	}

	start := g.joinEntries(entries)
	r := &NFA{
		states:       g.states,
		start:        start,
		tree:         n.tree,
		captureCount: n.captureCount,
	}
	r.transitions = countTransitions(r)
	return r
}

// connectJunction wires a junction state to its targets via a split chain.
// The junction for the former start already carries an accept edge in its
// Next field.
func (g *generator) connectJunction(junction StateID, targets []StateID) {
	for _, t := range targets {
		if g.states[junction].Next == InvalidState {
			g.states[junction].Next = t
			continue
		}
		// Grow a split in front of the existing chain.
		split := g.add(State{Kind: StateSplit, Next: g.states[junction].Next, Alt: t})
		g.states[junction].Next = split
	}
}

// joinEntries merges the reverse entry points (one per original match
// state) into a single start state.
func (g *generator) joinEntries(entries []StateID) StateID {
	switch len(entries) {
	case 0:
		// No match state: the reverse automaton is dead.
		return g.add(State{Kind: StateRange, Next: InvalidState, Alt: InvalidState, Lo: 1, Hi: 0})
	case 1:
		return entries[0]
	}
	start := entries[0]
	for _, e := range entries[1:] {
		start = g.add(State{Kind: StateSplit, Next: start, Alt: e})
	}
	return start
}

func flipAssert(k ast.AssertionKind) ast.AssertionKind {
	switch k {
	case ast.AssertCaret:
		return ast.AssertDollar
	case ast.AssertDollar:
		return ast.AssertCaret
	default:
		return k
	}
}
