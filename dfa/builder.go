package dfa

import (
	"encoding/binary"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/internal/scratch"
	"github.com/coregx/jsregex/nfa"
)

// Builder determinizes one NFA into one executor. The usual sequence is
//
//	b := dfa.NewBuilder(request, n, props, buf, cfg)
//	b.DebugName("forward")
//	if err := b.CalcDFA(); err != nil { ... }
//	exec := b.CreateExecutor()
//
// Construction is eager and deterministic in the NFA. Unsupported pattern
// features never surface here; they were gated before NFA construction.
// CalcDFA fails on an invalid configuration, on the configured state cap,
// or when a subordinate executor requested through the target fails.
type Builder struct {
	target CompilationTarget
	n      *nfa.NFA
	props  Props
	cfg    Config
	buf    *scratch.Buffer
	name   string

	alphabet  []rune
	classWord []bool
	classLT   []bool
	multiline bool

	meta    []stateSet
	states  []dstate
	index   map[string]int32
	onePass bool

	exec     *Executor
	calcDone bool
}

// stateSet is the unresolved NFA state set behind one DFA state, plus the
// context its assertions will be resolved under.
type stateSet struct {
	ids []nfa.StateID
	ctx context
}

// NewBuilder creates a builder. The target is the owning request's
// re-entry handle and may be nil in tests; the buffer is borrowed for the
// duration of CalcDFA.
func NewBuilder(target CompilationTarget, n *nfa.NFA, props Props, buf *scratch.Buffer, cfg Config) *Builder {
	return &Builder{
		target:    target,
		n:         n,
		props:     props,
		cfg:       cfg,
		buf:       buf,
		multiline: n.Flags().Has(ast.FlagMultiline),
	}
}

// DebugName sets the executor name on first use and returns it.
func (b *Builder) DebugName(suggested string) string {
	if b.name == "" {
		b.name = suggested
	}
	return b.name
}

// CreateExecutor returns the executor computed by CalcDFA. Calling it
// before CalcDFA is a programming error.
func (b *Builder) CreateExecutor() *Executor {
	if !b.calcDone {
		panic("dfa: CreateExecutor called before CalcDFA")
	}
	return b.exec
}

// CalcDFA runs the determinization.
func (b *Builder) CalcDFA() error {
	if err := b.cfg.Validate(); err != nil {
		return err
	}
	if b.calcDone {
		return nil
	}

	b.exec = &Executor{
		name:         b.name,
		props:        b.props,
		nfa:          b.n,
		captureCount: b.n.CaptureCount(),
		multiline:    b.multiline,
	}

	if containsLook(b.n) {
		// Look-around states cannot be resolved by a transition table;
		// the interpreter serves this executor.
		b.exec.fallback = nfa.NewPikeVM(b.n)
		b.calcDone = true
		return nil
	}

	b.buildAlphabet()
	b.index = make(map[string]int32)
	b.onePass = b.props.CaptureTracking

	for ctx := ctxBegin; ctx < numContexts; ctx++ {
		id, err := b.intern([]nfa.StateID{b.n.Start()}, ctx)
		if err != nil {
			return err
		}
		b.exec.starts[ctx] = id
	}

	// b.meta grows while states are processed; plain index iteration is
	// the work queue.
	for i := 0; i < len(b.meta); i++ {
		if err := b.fillState(int32(i)); err != nil {
			return err
		}
	}

	b.exec.alphabet = b.alphabet
	b.exec.classWord = b.classWord
	b.exec.classLT = b.classLT
	b.exec.states = b.states
	b.exec.onePass = b.onePass

	if b.props.CaptureTracking && b.props.Searching && !b.onePass && b.target != nil {
		span, err := b.target.CreateDFAExecutor(b.n, Props{Direction: b.props.Direction, Searching: true}, b.name+"-span")
		if err != nil {
			return err
		}
		b.exec.span = span
	}

	b.calcDone = true
	return nil
}

func containsLook(n *nfa.NFA) bool {
	for i := 0; i < n.NumberOfStates(); i++ {
		if n.State(nfa.StateID(i)).Kind == nfa.StateLook {
			return true
		}
	}
	return false
}

// buildAlphabet partitions the codepoint space so that every partition is
// uniform with respect to every range transition, the word-character set
// and the line-terminator set.
func (b *Builder) buildAlphabet() {
	starts := []rune{0}
	addRange := func(lo, hi rune) {
		starts = append(starts, lo)
		if hi < ast.MaxRune {
			starts = append(starts, hi+1)
		}
	}
	for i := 0; i < b.n.NumberOfStates(); i++ {
		s := b.n.State(nfa.StateID(i))
		if s.Kind == nfa.StateRange && s.Lo <= s.Hi {
			addRange(s.Lo, s.Hi)
		}
	}
	addRange('0', '9')
	addRange('A', 'Z')
	addRange('_', '_')
	addRange('a', 'z')
	addRange('\n', '\n')
	addRange('\r', '\r')
	addRange(0x2028, 0x2029)

	// Sort and deduplicate.
	for i := 1; i < len(starts); i++ {
		for j := i; j > 0 && starts[j] < starts[j-1]; j-- {
			starts[j], starts[j-1] = starts[j-1], starts[j]
		}
	}
	alphabet := starts[:1]
	for _, s := range starts[1:] {
		if s != alphabet[len(alphabet)-1] {
			alphabet = append(alphabet, s)
		}
	}
	b.alphabet = alphabet
	b.classWord = make([]bool, len(alphabet))
	b.classLT = make([]bool, len(alphabet))
	for i, r := range alphabet {
		b.classWord[i] = ast.IsWordRune(r)
		b.classLT[i] = ast.IsLineTerminator(r)
	}
}

// intern returns the DFA state for the given unresolved set and context,
// creating it if needed.
func (b *Builder) intern(ids []nfa.StateID, ctx context) (int32, error) {
	key := b.setKey(ids, ctx)
	if id, ok := b.index[key]; ok {
		return id, nil
	}
	if len(b.meta) >= b.cfg.MaxStates {
		return -1, ErrStateLimitExceeded
	}
	id := int32(len(b.meta))
	b.meta = append(b.meta, stateSet{ids: ids, ctx: ctx})
	b.states = append(b.states, dstate{})
	b.index[key] = id
	return id, nil
}

func (b *Builder) setKey(ids []nfa.StateID, ctx context) string {
	bs := b.buf.TakeBytes()
	bs = append(bs, byte(ctx))
	for _, id := range ids {
		bs = binary.LittleEndian.AppendUint32(bs, uint32(id))
	}
	key := string(bs)
	b.buf.PutBytes(bs)
	return key
}

// fillState computes transitions and accepts for one DFA state.
func (b *Builder) fillState(id int32) error {
	set := b.meta[id]
	numClasses := len(b.alphabet)
	st := dstate{
		trans:  make([]int32, numClasses+1),
		accept: make([]int32, numClasses+1),
	}
	if b.props.CaptureTracking {
		st.ops = make([][]int, numClasses+1)
		st.acceptOps = make([][]int, numClasses+1)
	}

	for class := 0; class <= numClasses; class++ {
		res := b.resolve(set.ids, set.ctx, class)
		st.accept[class] = res.matchTag
		if b.props.CaptureTracking {
			st.acceptOps[class] = res.matchOps
		}

		if class == numClasses {
			// End of input: nothing to consume.
			st.trans[class] = -1
			continue
		}

		targets := make([]nfa.StateID, 0, len(res.consuming)+1)
		for _, entry := range res.consuming {
			targets = appendUniqueState(targets, entry.next)
		}
		if b.props.Searching {
			targets = appendUniqueState(targets, b.n.Start())
		}
		if len(targets) == 0 {
			st.trans[class] = -1
			continue
		}
		next, err := b.intern(targets, classContext(b.classWord[class], b.classLT[class]))
		if err != nil {
			return err
		}
		st.trans[class] = next

		if b.props.CaptureTracking {
			if len(res.consuming) == 1 {
				st.ops[class] = res.consuming[0].ops
			} else if len(res.consuming) > 1 {
				// Two distinct consuming paths on the same codepoint:
				// the pattern is not one-pass and slot operations cannot
				// be attached to the table.
				b.onePass = false
			}
		}
	}

	b.states[id] = st
	return nil
}

func appendUniqueState(ids []nfa.StateID, id nfa.StateID) []nfa.StateID {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}

func classContext(word, lt bool) context {
	switch {
	case word:
		return ctxWord
	case lt:
		return ctxLT
	default:
		return ctxPlain
	}
}

// consumeEntry is one consuming NFA state reachable from the resolved
// closure, with the capture slots recorded on the epsilon path to it.
type consumeEntry struct {
	id   nfa.StateID
	next nfa.StateID
	ops  []int
}

// resolution is the outcome of resolving a state set under a known
// context and upcoming class.
type resolution struct {
	consuming []consumeEntry
	matchTag  int32
	matchOps  []int
}

// resolve epsilon-closes the set, evaluating assertions against the
// stored context (what precedes the position) and the upcoming class
// (what follows it). Priority order is preserved: the first match found
// is the leftmost-first one.
func (b *Builder) resolve(ids []nfa.StateID, ctx context, class int) resolution {
	res := resolution{matchTag: -1}
	seen := make(map[nfa.StateID]bool, len(ids)*4)
	var ops []int

	var visit func(id nfa.StateID)
	visit = func(id nfa.StateID) {
		if id == nfa.InvalidState || seen[id] {
			return
		}
		seen[id] = true
		s := b.n.State(id)
		switch s.Kind {
		case nfa.StateRange:
			if s.Lo > s.Hi || class >= len(b.alphabet) {
				return
			}
			rep := b.alphabet[class]
			if rep >= s.Lo && rep <= s.Hi {
				entry := consumeEntry{id: id, next: s.Next}
				if b.props.CaptureTracking && len(ops) > 0 {
					entry.ops = append([]int(nil), ops...)
				}
				res.consuming = append(res.consuming, entry)
			}
		case nfa.StateSplit:
			visit(s.Next)
			visit(s.Alt)
		case nfa.StateEpsilon:
			visit(s.Next)
		case nfa.StateCapture:
			ops = append(ops, s.Slot)
			visit(s.Next)
			ops = ops[:len(ops)-1]
		case nfa.StateAssert:
			if b.assertHolds(s.Assert, ctx, class) {
				visit(s.Next)
			}
		case nfa.StateMatch:
			if res.matchTag < 0 {
				tag := s.Tag
				if tag < 0 {
					tag = 0
				}
				res.matchTag = int32(tag)
				if b.props.CaptureTracking {
					res.matchOps = append([]int(nil), ops...)
				}
			}
		}
	}
	for _, id := range ids {
		visit(id)
	}
	return res
}

func (b *Builder) assertHolds(kind ast.AssertionKind, ctx context, class int) bool {
	eoi := class >= len(b.alphabet)
	switch kind {
	case ast.AssertCaret:
		return ctx == ctxBegin || (b.multiline && ctx == ctxLT)
	case ast.AssertDollar:
		return eoi || (b.multiline && b.classLT[class])
	case ast.AssertWordBoundary:
		return (ctx == ctxWord) != (!eoi && b.classWord[class])
	case ast.AssertNonWordBoundary:
		return (ctx == ctxWord) == (!eoi && b.classWord[class])
	default:
		return false
	}
}
