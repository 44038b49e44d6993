package nfa

import (
	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/internal/scratch"
)

// DefaultMaxStates caps NFA construction when the caller passes no limit.
const DefaultMaxStates = 10_000

// Generate builds an NFA from the given AST using Thompson construction.
// The buffer is borrowed for the duration of the call. Construction fails
// with an UnsupportedError when the state limit is exceeded or the tree
// contains gated features the automaton cannot express. Deterministic in
// the AST.
func Generate(a *ast.AST, buf *scratch.Buffer, maxStates int) (*NFA, error) {
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	g := &generator{tree: a, maxStates: maxStates}
	f, err := g.compile(a.Root())
	if err != nil {
		return nil, err
	}
	match := g.add(State{Kind: StateMatch, Next: InvalidState, Alt: InvalidState, Tag: -1})
	g.patch(f.out, match)

	n := &NFA{
		states:                 g.states,
		start:                  f.start,
		tree:                   a,
		captureCount:           a.NumberOfCaptureGroups(),
		reverseUnAnchoredEntry: !ast.StartAnchored(a.Root(), a.Flags().Has(ast.FlagMultiline)),
	}
	n.transitions = countTransitions(n)
	n.dead = !matchReachable(n, buf)
	return n, nil
}

// generator accumulates states for one automaton.
type generator struct {
	states    []State
	tree      *ast.AST
	maxStates int
}

// patchPoint addresses a dangling Next or Alt field of a state.
type patchPoint struct {
	id  StateID
	alt bool
}

// frag is a partial automaton with a start state and dangling exits.
type frag struct {
	start StateID
	out   []patchPoint
}

// add appends a state and returns its ID. Dangling targets must be set to
// InvalidState by the caller; zero is a valid state ID.
func (g *generator) add(s State) StateID {
	id := StateID(len(g.states))
	g.states = append(g.states, s)
	return id
}

func (g *generator) patch(out []patchPoint, to StateID) {
	for _, p := range out {
		if p.alt {
			g.states[p.id].Alt = to
		} else {
			g.states[p.id].Next = to
		}
	}
}

func (g *generator) compile(n ast.Node) (frag, error) {
	if len(g.states) > g.maxStates {
		return frag{}, ast.Unsupported("too many NFA states")
	}
	switch t := n.(type) {
	case *ast.Empty:
		id := g.add(State{Kind: StateEpsilon, Next: InvalidState, Alt: InvalidState})
		return frag{start: id, out: []patchPoint{{id: id}}}, nil

	case *ast.CharClass:
		return g.compileClass(t), nil

	case *ast.Sequence:
		return g.compileSequence(t.Terms)

	case *ast.Alternation:
		return g.compileAlternation(t.Alternatives)

	case *ast.Group:
		if !t.Capturing {
			return g.compile(t.Body)
		}
		startCap := g.add(State{Kind: StateCapture, Next: InvalidState, Alt: InvalidState, Slot: 2 * t.Index})
		body, err := g.compile(t.Body)
		if err != nil {
			return frag{}, err
		}
		g.states[startCap].Next = body.start
		endCap := g.add(State{Kind: StateCapture, Next: InvalidState, Alt: InvalidState, Slot: 2*t.Index + 1})
		g.patch(body.out, endCap)
		return frag{start: startCap, out: []patchPoint{{id: endCap}}}, nil

	case *ast.Quantifier:
		return g.compileQuantifier(t)

	case *ast.PositionAssertion:
		id := g.add(State{Kind: StateAssert, Next: InvalidState, Alt: InvalidState, Assert: t.Kind})
		return frag{start: id, out: []patchPoint{{id: id}}}, nil

	case *ast.LookAround:
		return g.compileLookAround(t)

	case *ast.Backreference:
		return frag{}, ast.Unsupported("backreferences not supported")

	default:
		return frag{}, ast.Unsupportedf("unexpected pattern node %T", n)
	}
}

func (g *generator) compileClass(c *ast.CharClass) frag {
	// One Range state per codepoint range, chained by priority splits.
	var f frag
	var lastSplit StateID = InvalidState
	for i, r := range c.Ranges {
		rangeID := g.add(State{Kind: StateRange, Next: InvalidState, Alt: InvalidState, Lo: r.Lo, Hi: r.Hi})
		f.out = append(f.out, patchPoint{id: rangeID})
		if i == 0 {
			f.start = rangeID
			continue
		}
		if i == 1 {
			split := g.add(State{Kind: StateSplit, Next: f.start, Alt: rangeID})
			f.start = split
			lastSplit = split
			continue
		}
		split := g.add(State{Kind: StateSplit, Next: g.states[lastSplit].Alt, Alt: rangeID})
		g.states[lastSplit].Alt = split
		lastSplit = split
	}
	if len(c.Ranges) == 0 {
		// Dead class: a range no codepoint satisfies. Reachable only via
		// trees the coordinator already declared dead.
		id := g.add(State{Kind: StateRange, Next: InvalidState, Alt: InvalidState, Lo: 1, Hi: 0})
		f.start = id
		f.out = []patchPoint{{id: id}}
	}
	return f
}

func (g *generator) compileSequence(terms []ast.Node) (frag, error) {
	if len(terms) == 0 {
		id := g.add(State{Kind: StateEpsilon, Next: InvalidState, Alt: InvalidState})
		return frag{start: id, out: []patchPoint{{id: id}}}, nil
	}
	first, err := g.compile(terms[0])
	if err != nil {
		return frag{}, err
	}
	for _, term := range terms[1:] {
		next, err := g.compile(term)
		if err != nil {
			return frag{}, err
		}
		g.patch(first.out, next.start)
		first.out = next.out
	}
	return first, nil
}

func (g *generator) compileAlternation(alts []ast.Node) (frag, error) {
	var f frag
	var prevSplit StateID = InvalidState
	for i, alt := range alts {
		sub, err := g.compile(alt)
		if err != nil {
			return frag{}, err
		}
		f.out = append(f.out, sub.out...)
		switch i {
		case 0:
			f.start = sub.start
		case 1:
			split := g.add(State{Kind: StateSplit, Next: f.start, Alt: sub.start})
			f.start = split
			prevSplit = split
		default:
			split := g.add(State{Kind: StateSplit, Next: g.states[prevSplit].Alt, Alt: sub.start})
			g.states[prevSplit].Alt = split
			prevSplit = split
		}
	}
	return f, nil
}

func (g *generator) compileQuantifier(q *ast.Quantifier) (frag, error) {
	if q.Max == 0 {
		id := g.add(State{Kind: StateEpsilon, Next: InvalidState, Alt: InvalidState})
		return frag{start: id, out: []patchPoint{{id: id}}}, nil
	}

	var f frag
	// Required copies.
	for i := 0; i < q.Min; i++ {
		sub, err := g.compile(q.Body)
		if err != nil {
			return frag{}, err
		}
		if i == 0 {
			f = sub
		} else {
			g.patch(f.out, sub.start)
			f.out = sub.out
		}
	}

	if q.Max < 0 {
		// Unbounded tail: a split loop.
		sub, err := g.compile(q.Body)
		if err != nil {
			return frag{}, err
		}
		loop := g.add(g.loopSplit(q.Greedy, sub.start))
		g.patch(sub.out, loop)
		if q.Min == 0 {
			f.start = loop
		} else {
			g.patch(f.out, loop)
		}
		f.out = []patchPoint{{id: loop, alt: q.Greedy}}
		return f, nil
	}

	// Optional copies for min < count <= max.
	for i := q.Min; i < q.Max; i++ {
		sub, err := g.compile(q.Body)
		if err != nil {
			return frag{}, err
		}
		var split StateID
		if q.Greedy {
			split = g.add(State{Kind: StateSplit, Next: sub.start, Alt: InvalidState})
		} else {
			split = g.add(State{Kind: StateSplit, Next: InvalidState, Alt: sub.start})
		}
		if i == 0 && q.Min == 0 {
			f.start = split
		} else {
			g.patch(f.out, split)
		}
		f.out = append(sub.out, patchPoint{id: split, alt: q.Greedy})
	}
	return f, nil
}

// loopSplit returns the split state of an unbounded loop: the greedy
// variant prefers re-entering the body, the lazy variant prefers leaving.
func (g *generator) loopSplit(greedy bool, body StateID) State {
	if greedy {
		return State{Kind: StateSplit, Next: body, Alt: InvalidState}
	}
	return State{Kind: StateSplit, Next: InvalidState, Alt: body}
}

func (g *generator) compileLookAround(l *ast.LookAround) (frag, error) {
	if l.Negated {
		return frag{}, ast.Unsupported("negative look-around assertions not supported")
	}
	op := &LookOp{Ahead: l.Ahead}
	if l.Ahead {
		sub, err := g.compileSub(l.Body)
		if err != nil {
			return frag{}, err
		}
		op.Sub = sub
	} else {
		literal, ok := ast.IsLiteralNode(l.Body)
		if !ok {
			return frag{}, ast.Unsupported("body of lookbehind assertion too complex")
		}
		op.Literal = literal
	}
	id := g.add(State{Kind: StateLook, Next: InvalidState, Alt: InvalidState, Look: op})
	return frag{start: id, out: []patchPoint{{id: id}}}, nil
}

// compileSub builds an anchored sub-automaton for a look-ahead body. It
// shares the parent's capture slot numbering; groups inside a look-ahead
// stay observable after the assertion succeeds.
func (g *generator) compileSub(body ast.Node) (*NFA, error) {
	sub := &generator{tree: g.tree, maxStates: g.maxStates}
	f, err := sub.compile(body)
	if err != nil {
		return nil, err
	}
	match := sub.add(State{Kind: StateMatch, Next: InvalidState, Alt: InvalidState, Tag: -1})
	sub.patch(f.out, match)
	n := &NFA{
		states:       sub.states,
		start:        f.start,
		tree:         g.tree,
		captureCount: g.tree.NumberOfCaptureGroups(),
	}
	n.transitions = countTransitions(n)
	return n, nil
}

func countTransitions(n *NFA) int {
	count := 0
	for i := range n.states {
		switch n.states[i].Kind {
		case StateRange, StateEpsilon, StateCapture, StateAssert, StateLook:
			count++
		case StateSplit:
			count += 2
		}
	}
	return count
}

// matchReachable reports whether any Match state is reachable from the
// start, treating consuming and non-consuming edges alike.
func matchReachable(n *NFA, buf *scratch.Buffer) bool {
	if len(n.states) == 0 {
		return false
	}
	buf.ClearMarks()
	work := buf.TakeIDs()
	defer buf.PutIDs(work)
	work = append(work, uint32(n.start))
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		if buf.Mark(uint64(id)) {
			continue
		}
		s := &n.states[id]
		if s.Kind == StateMatch {
			return true
		}
		// A dead range can never be crossed.
		if s.Kind == StateRange && s.Lo > s.Hi {
			continue
		}
		if s.Next != InvalidState {
			work = append(work, uint32(s.Next))
		}
		if s.Kind == StateSplit && s.Alt != InvalidState {
			work = append(work, uint32(s.Alt))
		}
	}
	return false
}
