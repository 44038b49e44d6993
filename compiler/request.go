package compiler

import (
	"errors"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/dfa"
	"github.com/coregx/jsregex/dump"
	"github.com/coregx/jsregex/internal/scratch"
	"github.com/coregx/jsregex/literal"
	"github.com/coregx/jsregex/nfa"
)

// Request is one single-shot compilation: pattern source in, matcher
// variant out. It owns the intermediate representations (AST, NFA, trace
// finder) and the scratch buffer shared by the stages; stages run at most
// once, in declared order, and once set the AST and NFA never change.
//
// Entry points:
//
//   - Compile runs the full staged pipeline and selects a Dead, Literal
//     or NFAExec matcher. DFA work is deferred.
//   - CompileLazyDFAExecutor assumes AST and NFA exist and assembles the
//     lazy DFA search (forward searcher, optional backward locator,
//     optional capture tracker, optional pre-calculated results).
//   - CompileEagerDFAExecutor builds AST and NFA if needed and produces a
//     single forward searching capture-tracking executor.
//
// A Request is not safe for concurrent use; independent requests may run
// in parallel.
type Request struct {
	opts   Options
	source ast.Source
	buf    *scratch.Buffer

	timer  *phaseTimer
	record AutomatonSizeRecord

	parser      *ast.Parser
	tree        *ast.AST
	nfaGraph    *nfa.NFA
	traceFinder *nfa.TraceFinderNFA
}

// NewRequest creates a request for the given source.
func NewRequest(source ast.Source, opts Options) *Request {
	return &Request{
		opts:   opts,
		source: source,
		buf:    scratch.New(),
		record: AutomatonSizeRecord{
			Pattern: source.Pattern,
			Flags:   source.Flags.String(),
		},
	}
}

// NewRequestFromNFA creates a request around a pre-built NFA, for eager
// DFA compilation reuse. The NFA must carry its pattern tree.
func NewRequestFromNFA(n *nfa.NFA, opts Options) *Request {
	if n.AST() == nil {
		panic("compiler: NewRequestFromNFA requires an NFA with a pattern tree")
	}
	r := NewRequest(n.AST().Source(), opts)
	r.tree = n.AST()
	r.nfaGraph = n
	return r
}

// AST returns the parsed tree, once the parse stage has run.
func (r *Request) AST() *ast.AST { return r.tree }

// NFA returns the constructed automaton, once the NFA stage has run.
func (r *Request) NFA() *nfa.NFA { return r.nfaGraph }

// SizeRecord returns a copy of the automaton-size record accumulated so
// far.
func (r *Request) SizeRecord() AutomatonSizeRecord { return r.record }

// Compile runs the full pipeline:
//
//  1. parse (with flavor translation) and the prepare-for-DFA post-pass
//  2. feature gate over the pattern properties
//  3. dead patterns short-circuit to the Dead matcher
//  4. literal patterns short-circuit to the literal engine
//  5. NFA construction; a dead NFA is a Dead matcher
//  6. otherwise the NFA interpreter is the matcher
//
// The heavy DFA work is deferred: the engine layer compiles the lazy DFA
// path on hot patterns via CompileLazyDFAExecutor.
//
// On unsupported patterns the automaton-size record is emitted with a
// bailout result and the error is re-raised with the engine prefix and
// the source attached.
func (r *Request) Compile() (*CompiledMatcher, error) {
	if err := r.opts.Validate(); err != nil {
		return nil, err
	}
	m, err := r.compile()
	if err != nil {
		var ue *ast.UnsupportedError
		if errors.As(err, &ue) {
			r.record.CompilerResult = ResultBailout
			r.record.emit()
			logCompilations.WithField("pattern", r.source.String()).
				Debugf("compilation bailed out: %s", ue.Reason)
			return nil, &ast.UnsupportedError{Reason: "jsregex: " + ue.Reason, Source: r.source}
		}
		return nil, err
	}
	r.record.CompilerResult = resultFor(m.kind)
	r.record.emit()
	logCompilations.WithField("pattern", r.source.String()).
		Debugf("compiled as %s", m.kind)
	return m, nil
}

func resultFor(kind MatcherKind) string {
	switch kind {
	case MatcherDead:
		return ResultDead
	case MatcherLiteral:
		return ResultLiteral
	default:
		return ResultAutomaton
	}
}

func (r *Request) compile() (*CompiledMatcher, error) {
	r.timer = newPhaseTimer()

	if err := r.createAST(); err != nil {
		return nil, err
	}
	props := r.tree.Properties()
	if err := CheckSupport(props); err != nil {
		return nil, err
	}
	if r.tree.IsDead() {
		return r.newMatcher(MatcherDead), nil
	}
	if lit := literal.TryCreate(r.tree); lit != nil {
		m := r.newMatcher(MatcherLiteral)
		m.literal = lit
		return m, nil
	}
	if err := r.createNFA(); err != nil {
		return nil, err
	}
	if r.nfaGraph.IsDead() {
		return r.newMatcher(MatcherDead), nil
	}
	m := r.newMatcher(MatcherNFAExec)
	m.nfaExec = nfa.NewPikeVM(r.nfaGraph)
	return m, nil
}

func (r *Request) newMatcher(kind MatcherKind) *CompiledMatcher {
	m := &CompiledMatcher{kind: kind, source: r.source}
	if r.tree != nil {
		m.captureCount = r.tree.NumberOfCaptureGroups()
	}
	return m
}

// createAST runs the parser frontend: flavor translation, parse, and the
// prepare-for-DFA post-pass.
func (r *Request) createAST() error {
	if r.tree != nil {
		return nil
	}
	r.timer.Start("parse")
	defer r.timer.End()

	src := r.source
	if src.Flavor == nil && r.opts.Flavor != nil {
		src.Flavor = r.opts.Flavor
	}
	r.parser = ast.NewParser(src, r.buf)
	tree, err := r.parser.Parse()
	if err != nil {
		return err
	}
	tree.PrepareForDFA()
	r.tree = tree
	r.record.Props = tree.Properties().String()
	r.record.ASTNodes = tree.NumberOfNodes()
	if r.opts.DumpAutomata {
		_ = dump.AST(r.opts.dumpFS(), tree)
	}
	return nil
}

// createNFA runs the NFA builder stage.
func (r *Request) createNFA() error {
	if r.nfaGraph != nil {
		return nil
	}
	r.timer.Start("nfa")
	defer r.timer.End()

	n, err := nfa.Generate(r.tree, r.buf, r.opts.MaxNFAStates)
	if err != nil {
		return err
	}
	r.nfaGraph = n
	r.record.NFAStates = n.NumberOfStates()
	r.record.NFATransitions = n.NumberOfTransitions()
	if r.opts.DumpAutomata {
		_ = dump.NFA(r.opts.dumpFS(), n)
	}
	return nil
}

// CompileLazyDFAExecutor assembles the lazy DFA search for an already
// compiled request. The AST and NFA must exist; calling this on a fresh
// request is a programming error. The host reference is borrowed for the
// duration of the call.
//
// Decision tree:
//
//  1. No alternations and no look-around: a single pre-calculated result
//     is derived from one tree walk; the trace finder is bypassed.
//  2. Otherwise, loop-free patterns attempt trace-finder generation when
//     enabled. An unsupported trace finder is logged and discarded; the
//     request continues on the main path.
//  3. A capture tracker is needed when the pattern has capture groups or
//     look-around and no pre-calculated results exist.
//  4. The forward searching DFA is always built.
//  5. The backward DFA is built from the trace-finder automaton when it
//     recognizes two or more shapes, from the reversed main NFA when
//     there are no pre-calculated results or no reverse un-anchored
//     entry, and skipped otherwise.
func (r *Request) CompileLazyDFAExecutor(host Host) (*LazyDFASearch, error) {
	if r.tree == nil || r.nfaGraph == nil {
		panic("compiler: CompileLazyDFAExecutor requires AST and NFA")
	}
	if r.timer == nil {
		r.timer = newPhaseTimer()
	}
	props := r.tree.Properties()

	var preCalc []*nfa.PreCalculatedResult
	switch {
	case !props.HasAlternations && !props.HasLookAroundAssertions:
		preCalc = []*nfa.PreCalculatedResult{nfa.SingleResult(r.tree)}

	case r.opts.TraceFinderEnabled && !props.HasLoops:
		r.timer.Start("traceFinder")
		tf, err := nfa.GenerateTraceFinder(r.nfaGraph)
		r.timer.End()
		if err != nil {
			if !ast.IsUnsupported(err) {
				return nil, err
			}
			// Recoverable: discard the attempt and continue without
			// pre-calculated results.
			traceFinderBailouts.Inc()
			logBailouts.WithField("pattern", r.source.String()).
				Debugf("trace finder bailed out: %v", err)
		} else {
			r.traceFinder = tf
			preCalc = tf.Results
			r.record.TraceFinder = true
			if r.opts.DumpAutomata {
				_ = dump.TraceFinder(r.opts.dumpFS(), tf)
			}
		}
	}

	needCaptureTracker := (props.HasCaptureGroups || props.HasLookAroundAssertions) && preCalc == nil

	r.timer.Start("dfa")
	defer r.timer.End()

	forward, err := r.CreateDFAExecutor(r.nfaGraph, dfa.Props{Direction: dfa.Forward, Searching: true}, "forward")
	if err != nil {
		return nil, err
	}
	r.record.DFAStatesFwd = forward.StateCount()

	var captureTracker *dfa.Executor
	if needCaptureTracker {
		captureTracker, err = r.CreateDFAExecutor(r.nfaGraph, dfa.Props{Direction: dfa.Forward, CaptureTracking: true}, "captureTracker")
		if err != nil {
			return nil, err
		}
		r.record.DFAStatesCG = captureTracker.StateCount()
	}

	var backward *dfa.Executor
	switch {
	case len(preCalc) >= 2:
		backward, err = r.CreateDFAExecutor(r.traceFinder.NFA, dfa.Props{Direction: dfa.Backward}, "traceFinderBackward")
	case preCalc == nil || !r.nfaGraph.HasReverseUnAnchoredEntry():
		backward, err = r.CreateDFAExecutor(nfa.Reverse(r.nfaGraph), dfa.Props{Direction: dfa.Backward}, "backward")
	default:
		// A single pre-calculated result on a pattern with a reverse
		// un-anchored entry: no backward executor is built.
	}
	if err != nil {
		return nil, err
	}
	if backward != nil {
		r.record.DFAStatesBck = backward.StateCount()
	}

	search := &LazyDFASearch{
		preCalc:        preCalc,
		forward:        forward,
		backward:       backward,
		captureTracker: captureTracker,
		vm:             nfa.NewPikeVM(r.nfaGraph),
		captureCount:   r.tree.NumberOfCaptureGroups(),
	}
	if host != nil {
		search.entry = host.CreateEntryNode(forward)
	}
	return search, nil
}

// CompileEagerDFAExecutor builds the AST and NFA as needed and produces a
// single forward, searching, capture-tracking executor. The pattern must
// be supported and alive; violating either is a programming error, since
// the engine layer is expected to have consulted IsSupported first.
func (r *Request) CompileEagerDFAExecutor() (*dfa.Executor, error) {
	if r.timer == nil {
		r.timer = newPhaseTimer()
	}
	if err := r.createAST(); err != nil {
		return nil, err
	}
	if !IsSupported(r.tree.Properties()) {
		panic("compiler: CompileEagerDFAExecutor requires a supported pattern")
	}
	if r.tree.IsDead() {
		panic("compiler: CompileEagerDFAExecutor requires a live pattern")
	}
	if err := r.createNFA(); err != nil {
		return nil, err
	}
	if r.nfaGraph.IsDead() {
		panic("compiler: CompileEagerDFAExecutor requires a live NFA")
	}

	r.timer.Start("dfa")
	defer r.timer.End()
	exec, err := r.CreateDFAExecutor(r.nfaGraph, dfa.Props{
		Direction:       dfa.Forward,
		Searching:       true,
		CaptureTracking: true,
	}, "eager")
	if err != nil {
		return nil, err
	}
	r.record.DFAStatesFwd = exec.StateCount()
	r.record.DFAStatesCG = exec.StateCount()
	return exec, nil
}

// EmitSizeRecord finalizes and emits the size record for entry points
// that bypass Compile (the eager path). The result should be
// ResultAutomaton on success.
func (r *Request) EmitSizeRecord(result string) {
	r.record.CompilerResult = result
	r.record.emit()
}

// CreateDFAExecutor is the re-entry point the DFA builder calls to
// schedule subordinate executors; it also serves the coordinator's own
// executor construction. It implements dfa.CompilationTarget.
func (r *Request) CreateDFAExecutor(n *nfa.NFA, props dfa.Props, nameSuggestion string) (*dfa.Executor, error) {
	b := dfa.NewBuilder(r, n, props, r.buf, dfa.Config{MaxStates: r.opts.MaxDFAStates})
	b.DebugName(nameSuggestion)
	if err := b.CalcDFA(); err != nil {
		return nil, err
	}
	exec := b.CreateExecutor()
	if r.opts.DumpAutomata {
		_ = dump.DFA(r.opts.dumpFS(), exec)
	}
	return exec, nil
}

var _ dfa.CompilationTarget = (*Request)(nil)
