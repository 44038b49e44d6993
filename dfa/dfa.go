package dfa

import (
	"unicode/utf8"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/nfa"
)

// Direction is the scan direction of an executor.
type Direction uint8

const (
	// Forward scans from a start position toward the input end.
	Forward Direction = iota

	// Backward scans from a known match end toward the input start, over
	// a reverse NFA.
	Backward
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Props selects the executor variant within the direction × searching ×
// capture-tracking space. Not every cell is requested by the coordinator;
// backward capture tracking in particular never is.
type Props struct {
	Direction       Direction
	Searching       bool
	CaptureTracking bool
}

// Config bounds DFA construction.
type Config struct {
	// MaxStates caps the number of determinized states.
	// Default: 10,000.
	MaxStates int
}

// DefaultConfig returns the default construction bounds.
func DefaultConfig() Config {
	return Config{MaxStates: 10_000}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxStates <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// CompilationTarget is the opaque re-entry handle to the compilation
// request that owns this builder. The builder uses it to schedule
// subordinate executors; it exposes nothing else of the request.
type CompilationTarget interface {
	CreateDFAExecutor(n *nfa.NFA, props Props, nameSuggestion string) (*Executor, error)
}

// context encodes what precedes the current position, as far as
// assertions care: input begin, a word character, a line terminator, or
// anything else. For backward executors "precedes" is relative to the
// scan direction.
type context uint8

const (
	ctxBegin context = iota
	ctxPlain
	ctxWord
	ctxLT
	numContexts
)

// dstate is one determinized state: per-class transitions, per-class
// accept tags (-1 for none; index len(classes) is end-of-input), and the
// capture slot operations of a one-pass capture tracker.
type dstate struct {
	trans     []int32
	accept    []int32
	ops       [][]int
	acceptOps [][]int
}

// Executor is a compiled deterministic automaton. It is immutable and
// safe for concurrent use.
type Executor struct {
	name  string
	props Props
	nfa   *nfa.NFA

	// starts indexes the entry state by the context of the scan origin.
	starts [numContexts]int32

	alphabet  []rune // sorted class start codepoints
	classWord []bool
	classLT   []bool
	states    []dstate

	captureCount int
	multiline    bool

	// onePass is set when capture operations could be attached to the
	// transition table. When false, capture extraction delegates to the
	// anchored NFA interpreter.
	onePass bool

	// fallback handles patterns whose automaton contains look-around
	// states, which a table DFA cannot resolve; the interpreter serves
	// all queries then.
	fallback *nfa.PikeVM

	// span is a subordinate non-tracking executor compiled through the
	// request; the capture fallback uses it to locate match ends before
	// handing the bounded span to the interpreter.
	span *Executor
}

// Name returns the executor's debug name.
func (e *Executor) Name() string { return e.name }

// Props returns the variant parameters.
func (e *Executor) Props() Props { return e.props }

// StateCount returns the number of determinized states, for size logging.
func (e *Executor) StateCount() int { return len(e.states) }

// IsFallback reports whether the executor delegates to the NFA
// interpreter instead of its tables.
func (e *Executor) IsFallback() bool { return e.fallback != nil }

// NFA returns the automaton the executor was determinized from.
func (e *Executor) NFA() *nfa.NFA { return e.nfa }

// classOf returns the alphabet class of r.
func (e *Executor) classOf(r rune) int {
	lo, hi := 0, len(e.alphabet)
	for lo < hi {
		mid := (lo + hi) / 2
		if e.alphabet[mid] <= r {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// eoi is the virtual end-of-input class index.
func (e *Executor) eoi() int { return len(e.alphabet) }

// contextAt determines the entry context for a forward scan starting at
// pos.
func (e *Executor) contextAt(input string, pos int) context {
	if pos == 0 {
		return ctxBegin
	}
	c, _ := utf8.DecodeLastRuneInString(input[:pos])
	return contextOf(c)
}

// contextAtBackward determines the entry context for a backward scan
// starting at pos; the "preceding" rune is the one at pos.
func (e *Executor) contextAtBackward(input string, pos int) context {
	if pos == len(input) {
		return ctxBegin
	}
	c, _ := utf8.DecodeRuneInString(input[pos:])
	return contextOf(c)
}

func contextOf(c rune) context {
	switch {
	case ast.IsWordRune(c):
		return ctxWord
	case ast.IsLineTerminator(c):
		return ctxLT
	default:
		return ctxPlain
	}
}

// FindEnd scans forward from `from` and returns the earliest position
// where the automaton accepts. Valid on forward executors.
func (e *Executor) FindEnd(input string, from int) (int, bool) {
	if e.fallback != nil {
		if m := e.fallback.Search(input, from); m != nil {
			return m.End, true
		}
		return 0, false
	}
	state := e.starts[e.contextAt(input, from)]
	pos := from
	for {
		if state < 0 {
			return 0, false
		}
		st := &e.states[state]
		var class int
		var size int
		if pos < len(input) {
			c, s := utf8.DecodeRuneInString(input[pos:])
			class, size = e.classOf(c), s
		} else {
			class = e.eoi()
		}
		if st.accept[class] >= 0 {
			return pos, true
		}
		if pos >= len(input) {
			return 0, false
		}
		state = st.trans[class]
		pos += size
	}
}

// FindStartBackward scans backward from `end` and returns the farthest
// position where the (reverse) automaton accepts, together with the
// accept tag. Valid on backward executors.
func (e *Executor) FindStartBackward(input string, end int) (int, int, bool) {
	if e.fallback != nil {
		// The reverse interpreter cannot run backward; a backward
		// fallback executor reports the trivial span. Callers pair it
		// with a forward fallback that already produced exact spans.
		return end, -1, false
	}
	state := e.starts[e.contextAtBackward(input, end)]
	pos := end
	bestStart, bestTag, found := 0, -1, false
	for {
		if state < 0 {
			return bestStart, bestTag, found
		}
		st := &e.states[state]
		var class int
		var size int
		if pos > 0 {
			c, s := utf8.DecodeLastRuneInString(input[:pos])
			class, size = e.classOf(c), s
		} else {
			class = e.eoi()
		}
		if tag := st.accept[class]; tag >= 0 {
			bestStart, bestTag, found = pos, int(tag), true
		}
		if pos == 0 {
			return bestStart, bestTag, found
		}
		state = st.trans[class]
		pos -= size
	}
}

// Captures runs the capture tracker over the known match span
// input[start:end) and returns the slot vector. Valid on forward
// capture-tracking executors; the span must have been produced by the
// paired searching executor.
func (e *Executor) Captures(input string, start, end int) []int {
	if e.fallback != nil || !e.onePass {
		vm := e.fallback
		if vm == nil {
			vm = nfa.NewPikeVM(e.nfa)
		}
		if m := vm.SearchAnchored(input, start); m != nil {
			return m.Slots
		}
		return nil
	}

	slots := make([]int, 2*e.captureCount)
	for i := range slots {
		slots[i] = -1
	}
	state := e.starts[e.contextAt(input, start)]
	pos := start
	for {
		if state < 0 {
			return nil
		}
		st := &e.states[state]
		var class int
		var size int
		if pos < end {
			c, s := utf8.DecodeRuneInString(input[pos:])
			class, size = e.classOf(c), s
		} else {
			class = e.eoi()
			if pos < len(input) {
				c, _ := utf8.DecodeRuneInString(input[pos:])
				class = e.classOf(c)
			}
		}
		if pos >= end {
			if st.accept[class] < 0 {
				return nil
			}
			for _, slot := range st.acceptOps[class] {
				slots[slot] = pos
			}
			break
		}
		for _, slot := range st.ops[class] {
			slots[slot] = pos
		}
		state = st.trans[class]
		pos += size
	}
	slots[0], slots[1] = start, end
	return slots
}

// Search runs the full match pipeline of an eager searching
// capture-tracking executor: the tables locate the match end, the capture
// machinery fills the slots.
func (e *Executor) Search(input string, from int) *nfa.Match {
	if e.fallback != nil {
		return e.fallback.Search(input, from)
	}
	if e.onePass && !e.nfa.HasReverseUnAnchoredEntry() {
		// One-pass start-anchored pattern: the match starts where the
		// search starts and the tables carry the slot operations.
		end, ok := e.FindEnd(input, from)
		if !ok {
			return nil
		}
		slots := e.Captures(input, from, end)
		if slots == nil {
			return nil
		}
		return &nfa.Match{Start: from, End: end, Slots: slots}
	}
	// Span check through the subordinate executor, exact semantics
	// through the interpreter.
	if e.span != nil {
		if _, ok := e.span.FindEnd(input, from); !ok {
			return nil
		}
	}
	return nfa.NewPikeVM(e.nfa).Search(input, from)
}

// View is a read-only projection of the executor's tables for dump
// emitters.
type View struct {
	Name            string
	Direction       string
	Searching       bool
	CaptureTracking bool
	Fallback        bool
	Alphabet        []rune
	Transitions     [][]int32
	Accepts         [][]int32
	Starts          []int32
}

// Describe returns the dump projection of the executor.
func (e *Executor) Describe() View {
	v := View{
		Name:            e.name,
		Direction:       e.props.Direction.String(),
		Searching:       e.props.Searching,
		CaptureTracking: e.props.CaptureTracking,
		Fallback:        e.fallback != nil,
		Alphabet:        e.alphabet,
		Starts:          e.starts[:],
	}
	for i := range e.states {
		v.Transitions = append(v.Transitions, e.states[i].trans)
		v.Accepts = append(v.Accepts, e.states[i].accept)
	}
	return v
}
