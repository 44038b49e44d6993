package nfa

import (
	"unicode/utf8"

	"github.com/coregx/jsregex/ast"
)

// MaxTraceFinderResults caps the number of distinct match shapes a trace
// finder may enumerate. Beyond that a capture-tracking DFA is cheaper than
// the result table.
const MaxTraceFinderResults = 16

// SlotValue locates one capture slot relative to the match boundaries, in
// codepoints. Unset slots belong to groups that do not participate in the
// shape.
type SlotValue struct {
	FromEnd bool
	Runes   int
	Unset   bool
}

// PreCalculatedResult is a match-shape template: given the span of a
// recognized match it emits the full slot vector without running a
// capture-tracking automaton.
type PreCalculatedResult struct {
	// MinLength is the minimum match length in codepoints. For shapes
	// enumerated by the trace finder the length is exact.
	MinLength int

	Slots []SlotValue
}

// Apply materializes byte-offset slots for a match spanning
// input[start:end).
func (r *PreCalculatedResult) Apply(input string, start, end int) []int {
	slots := make([]int, len(r.Slots))
	for i, sv := range r.Slots {
		if sv.Unset {
			slots[i] = -1
			continue
		}
		if sv.FromEnd {
			slots[i] = advanceRunes(input, end, -sv.Runes)
		} else {
			slots[i] = advanceRunes(input, start, sv.Runes)
		}
	}
	if len(slots) >= 2 {
		slots[0], slots[1] = start, end
	}
	return slots
}

// advanceRunes moves a byte position by n codepoints (negative n moves
// backward).
func advanceRunes(input string, pos, n int) int {
	for ; n > 0 && pos < len(input); n-- {
		_, size := utf8.DecodeRuneInString(input[pos:])
		pos += size
	}
	for ; n < 0 && pos > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(input[:pos])
		pos -= size
	}
	return pos
}

// TraceFinderNFA is a reverse automaton over the distinct match shapes of
// a loop-free pattern. Scanning backward from a match end, the accepting
// state identifies which shape matched; Results[tag] then produces the
// full match without capture tracking.
type TraceFinderNFA struct {
	NFA     *NFA
	Results []*PreCalculatedResult
}

// GenerateTraceFinder enumerates the match shapes of the automaton's
// pattern and builds the reverse shape automaton. The caller must have
// checked that the pattern has no loops. Fails with an UnsupportedError
// when the pattern's shapes cannot be enumerated or exceed
// MaxTraceFinderResults; a failed attempt leaves nothing behind.
func GenerateTraceFinder(n *NFA) (*TraceFinderNFA, error) {
	tree := n.AST()
	if tree == nil {
		return nil, ast.Unsupported("trace finder requires a pattern tree")
	}
	e := &shapeEnumerator{captureCount: tree.NumberOfCaptureGroups()}
	shapes, err := e.enumerate(tree.Root(), []*shape{e.emptyShape()})
	if err != nil {
		return nil, err
	}
	if len(shapes) == 0 {
		return nil, ast.Unsupported("pattern has no realizable match shape")
	}

	results := make([]*PreCalculatedResult, len(shapes))
	for i, sh := range shapes {
		results[i] = sh.result()
	}
	return &TraceFinderNFA{
		NFA:     buildShapeNFA(n, shapes),
		Results: results,
	}, nil
}

// shape is one fully determined way the pattern can match: a fixed
// sequence of codepoint classes plus the capture offsets along it.
type shape struct {
	classes []*ast.CharClass
	slots   []SlotValue
}

func (s *shape) clone() *shape {
	c := &shape{
		classes: append([]*ast.CharClass(nil), s.classes...),
		slots:   append([]SlotValue(nil), s.slots...),
	}
	return c
}

func (s *shape) result() *PreCalculatedResult {
	r := &PreCalculatedResult{MinLength: len(s.classes), Slots: s.slots}
	r.Slots[0] = SlotValue{Runes: 0}
	r.Slots[1] = SlotValue{FromEnd: true, Runes: 0}
	return r
}

type shapeEnumerator struct {
	captureCount int
}

func (e *shapeEnumerator) emptyShape() *shape {
	slots := make([]SlotValue, 2*e.captureCount)
	for i := range slots {
		slots[i].Unset = true
	}
	return &shape{slots: slots}
}

// enumerate threads every current shape through the node, multiplying at
// alternations and bounded quantifiers.
func (e *shapeEnumerator) enumerate(n ast.Node, shapes []*shape) ([]*shape, error) {
	switch t := n.(type) {
	case *ast.Empty:
		return shapes, nil

	case *ast.CharClass:
		for _, sh := range shapes {
			sh.classes = append(sh.classes, t)
		}
		return shapes, nil

	case *ast.Sequence:
		var err error
		for _, term := range t.Terms {
			shapes, err = e.enumerate(term, shapes)
			if err != nil {
				return nil, err
			}
		}
		return shapes, nil

	case *ast.Alternation:
		var out []*shape
		for _, alt := range t.Alternatives {
			branch := make([]*shape, len(shapes))
			for i, sh := range shapes {
				branch[i] = sh.clone()
			}
			branch, err := e.enumerate(alt, branch)
			if err != nil {
				return nil, err
			}
			out = append(out, branch...)
			if len(out) > MaxTraceFinderResults {
				return nil, ast.Unsupported("too many pre-calculated results")
			}
		}
		return out, nil

	case *ast.Group:
		if !t.Capturing {
			return e.enumerate(t.Body, shapes)
		}
		starts := make([]int, len(shapes))
		for i, sh := range shapes {
			starts[i] = len(sh.classes)
		}
		shapes, err := e.enumerate(t.Body, shapes)
		if err != nil {
			return nil, err
		}
		// Shape multiplication inside the body appends whole blocks of
		// clones in input order, so the shape at index i descends from the
		// input shape at index i modulo the input count.
		for i, sh := range shapes {
			sh.slots[2*t.Index] = SlotValue{Runes: starts[i%len(starts)]}
			sh.slots[2*t.Index+1] = SlotValue{Runes: len(sh.classes)}
		}
		return shapes, nil

	case *ast.Quantifier:
		if t.Max < 0 {
			return nil, ast.Unsupported("loops not supported by trace finder")
		}
		var out []*shape
		for count := t.Min; count <= t.Max; count++ {
			branch := make([]*shape, len(shapes))
			for i, sh := range shapes {
				branch[i] = sh.clone()
			}
			var err error
			for rep := 0; rep < count; rep++ {
				branch, err = e.enumerate(t.Body, branch)
				if err != nil {
					return nil, err
				}
			}
			out = append(out, branch...)
			if len(out) > MaxTraceFinderResults {
				return nil, ast.Unsupported("too many pre-calculated results")
			}
		}
		return out, nil

	case *ast.LookAround:
		return nil, ast.Unsupported("look-around assertions not supported by trace finder")

	case *ast.PositionAssertion:
		return nil, ast.Unsupported("position assertions not supported by trace finder")

	default:
		return nil, ast.Unsupportedf("pattern node %T not supported by trace finder", n)
	}
}

// buildShapeNFA constructs the reverse automaton: one chain per shape,
// classes in reverse order, accepting with the shape's result tag.
func buildShapeNFA(n *NFA, shapes []*shape) *NFA {
	g := &generator{tree: n.tree, maxStates: DefaultMaxStates}
	var entries []StateID
	for tag, sh := range shapes {
		match := g.add(State{Kind: StateMatch, Next: InvalidState, Alt: InvalidState, Tag: tag})
		next := match
		for _, class := range sh.classes {
			f := g.compileClass(class)
			g.patch(f.out, next)
			next = f.start
		}
		entries = append(entries, next)
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

// SingleResult derives the one pre-calculated result of a pattern without
// alternations and without look-around by walking the tree once. Slots in
// a fixed-length prefix are start-relative, slots in a fixed-length suffix
// are end-relative, and slots stranded between variable-length parts stay
// unset.
func SingleResult(a *ast.AST) *PreCalculatedResult {
	r := &PreCalculatedResult{
		MinLength: a.MinPath(),
		Slots:     make([]SlotValue, 2*a.NumberOfCaptureGroups()),
	}
	for i := range r.Slots {
		r.Slots[i].Unset = true
	}
	scanForward(a.Root(), 0, true, r.Slots)
	scanBackward(a.Root(), 0, true, r.Slots)
	r.Slots[0] = SlotValue{Runes: 0}
	r.Slots[1] = SlotValue{FromEnd: true, Runes: 0}
	return r
}

// fixedLength returns the exact codepoint length of n when every match of
// n has the same length.
func fixedLength(n ast.Node) (int, bool) {
	switch t := n.(type) {
	case *ast.CharClass:
		return 1, true
	case *ast.Sequence:
		sum := 0
		for _, term := range t.Terms {
			l, ok := fixedLength(term)
			if !ok {
				return 0, false
			}
			sum += l
		}
		return sum, true
	case *ast.Group:
		return fixedLength(t.Body)
	case *ast.Quantifier:
		if t.Min != t.Max {
			return 0, false
		}
		l, ok := fixedLength(t.Body)
		if !ok {
			return 0, false
		}
		return l * t.Min, true
	case *ast.Alternation:
		return 0, false
	default:
		// Zero-width nodes.
		return 0, true
	}
}

// scanForward records start-relative slot offsets for groups inside the
// fixed-length prefix of n. Returns the offset after n and whether it is
// still exact.
func scanForward(n ast.Node, off int, known bool, slots []SlotValue) (int, bool) {
	switch t := n.(type) {
	case *ast.CharClass:
		return off + 1, known
	case *ast.Sequence:
		for _, term := range t.Terms {
			off, known = scanForward(term, off, known, slots)
		}
		return off, known
	case *ast.Group:
		start := off
		off, bodyKnown := scanForward(t.Body, off, known, slots)
		if t.Capturing && known && bodyKnown {
			slots[2*t.Index] = SlotValue{Runes: start}
			slots[2*t.Index+1] = SlotValue{Runes: off}
		}
		return off, bodyKnown
	case *ast.Quantifier:
		if l, ok := fixedLength(t); ok && known {
			if t.Min == t.Max && t.Min >= 1 {
				// Captures stick at their last iteration.
				bodyLen := l / t.Min
				scanForward(t.Body, off+l-bodyLen, true, slots)
			}
			return off + l, true
		}
		return off, false
	case *ast.Alternation:
		// Only reachable through quantifier bodies of single-alternative
		// trees; treated as variable.
		return off, false
	default:
		return off, known
	}
}

// scanBackward mirrors scanForward from the pattern's end, recording
// end-relative offsets for groups the forward scan could not fix.
// The off argument counts codepoints from the match end.
func scanBackward(n ast.Node, off int, known bool, slots []SlotValue) (int, bool) {
	switch t := n.(type) {
	case *ast.CharClass:
		return off + 1, known
	case *ast.Sequence:
		for i := len(t.Terms) - 1; i >= 0; i-- {
			off, known = scanBackward(t.Terms[i], off, known, slots)
		}
		return off, known
	case *ast.Group:
		end := off
		off, bodyKnown := scanBackward(t.Body, off, known, slots)
		if t.Capturing && known && bodyKnown {
			if slots[2*t.Index].Unset {
				slots[2*t.Index] = SlotValue{FromEnd: true, Runes: off}
			}
			if slots[2*t.Index+1].Unset {
				slots[2*t.Index+1] = SlotValue{FromEnd: true, Runes: end}
			}
		}
		return off, bodyKnown
	case *ast.Quantifier:
		if l, ok := fixedLength(t); ok && known {
			if t.Min == t.Max && t.Min >= 1 {
				bodyLen := l / t.Min
				scanBackward(t.Body, off+l-bodyLen, true, slots)
			}
			return off + l, true
		}
		return off, false
	case *ast.Alternation:
		return off, false
	default:
		return off, known
	}
}
