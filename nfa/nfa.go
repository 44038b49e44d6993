// Package nfa provides the nondeterministic automaton stage of the
// compilation pipeline: Thompson construction from the pattern tree,
// reverse automata for backward search, a backtracking interpreter used as
// the default execution engine, and the trace finder that pre-calculates
// match shapes for loop-free patterns.
package nfa

import (
	"fmt"

	"github.com/coregx/jsregex/ast"
)

// StateID identifies a state within one NFA.
type StateID uint32

// InvalidState is a sentinel for "no state".
const InvalidState StateID = ^StateID(0)

// StateKind enumerates NFA state kinds.
type StateKind uint8

const (
	// StateRange consumes one codepoint in [Lo, Hi] and moves to Next.
	StateRange StateKind = iota

	// StateSplit branches to Next (higher priority) and Alt.
	StateSplit

	// StateEpsilon moves to Next without consuming input.
	StateEpsilon

	// StateCapture records the current position into Slot and moves to
	// Next.
	StateCapture

	// StateAssert tests a position assertion and moves to Next.
	StateAssert

	// StateLook tests a look-around assertion and moves to Next.
	StateLook

	// StateMatch accepts. Tag identifies the pre-calculated result in a
	// trace-finder automaton, and is -1 elsewhere.
	StateMatch
)

// String returns a human-readable state kind name.
func (k StateKind) String() string {
	switch k {
	case StateRange:
		return "Range"
	case StateSplit:
		return "Split"
	case StateEpsilon:
		return "Epsilon"
	case StateCapture:
		return "Capture"
	case StateAssert:
		return "Assert"
	case StateLook:
		return "Look"
	case StateMatch:
		return "Match"
	default:
		return fmt.Sprintf("UnknownKind(%d)", uint8(k))
	}
}

// LookOp is the payload of a StateLook state. After feature gating only
// positive look-ahead (arbitrary body, as a sub-automaton) and positive
// literal look-behind (as a codepoint sequence) reach NFA construction.
type LookOp struct {
	Ahead   bool
	Sub     *NFA   // anchored sub-automaton, look-ahead only
	Literal []rune // look-behind only
}

// State is one NFA state. Fields are interpreted per Kind; see the
// StateKind constants.
type State struct {
	Kind   StateKind
	Lo, Hi rune
	Next   StateID
	Alt    StateID
	Slot   int
	Assert ast.AssertionKind
	Look   *LookOp
	Tag    int
}

// NFA is a directed graph of states with labeled transitions, produced
// from an AST by Generate. Once handed to the request it is immutable.
type NFA struct {
	states []State
	start  StateID

	tree                   *ast.AST
	dead                   bool
	reverseUnAnchoredEntry bool
	transitions            int
	captureCount           int
}

// NumberOfStates returns the state count.
func (n *NFA) NumberOfStates() int { return len(n.states) }

// NumberOfTransitions returns the count of outgoing edges of all states,
// consuming and non-consuming alike (two per split state).
func (n *NFA) NumberOfTransitions() int { return n.transitions }

// IsDead reports whether no accepting state is reachable.
func (n *NFA) IsDead() bool { return n.dead }

// HasReverseUnAnchoredEntry reports whether the reverse automaton has an
// un-anchored entry, i.e. a match may start at any input position. False
// for start-anchored patterns.
func (n *NFA) HasReverseUnAnchoredEntry() bool { return n.reverseUnAnchoredEntry }

// AST returns the tree the NFA was generated from. Nil for derived
// automata such as reverse NFAs.
func (n *NFA) AST() *ast.AST { return n.tree }

// Start returns the initial state.
func (n *NFA) Start() StateID { return n.start }

// State returns the state with the given ID.
func (n *NFA) State(id StateID) *State { return &n.states[id] }

// CaptureCount returns the number of capture groups, including the
// implicit group 0, matching the AST's value.
func (n *NFA) CaptureCount() int { return n.captureCount }

// Flags returns the flag snapshot of the originating pattern.
func (n *NFA) Flags() ast.Flags {
	if n.tree == nil {
		return 0
	}
	return n.tree.Flags()
}
