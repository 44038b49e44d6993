package ast

// AST is the tree IR of a parsed pattern, together with its flag snapshot,
// property summary and aggregate counts. An AST is immutable once its
// owning request has called PrepareForDFA.
type AST struct {
	source Source
	root   Node
	flags  Flags
	props  Properties

	captureGroups int
	nodeCount     int
	minPath       int
	dead          bool
	prepared      bool
}

// Source returns the pattern source the AST was parsed from.
func (a *AST) Source() Source { return a.source }

// Root returns the root expression.
func (a *AST) Root() Node { return a.root }

// Flags returns the flag snapshot taken at parse time.
func (a *AST) Flags() Flags { return a.flags }

// Properties returns the boolean pattern summary.
func (a *AST) Properties() Properties { return a.props }

// NumberOfCaptureGroups returns the number of capture groups including the
// implicit group 0 covering the whole match. Every executor produced from
// this AST uses the same count.
func (a *AST) NumberOfCaptureGroups() int { return a.captureGroups }

// NumberOfNodes returns the node count of the tree.
func (a *AST) NumberOfNodes() int { return a.nodeCount }

// MinPath returns the minimum input length needed to reach an accept.
// Valid after PrepareForDFA.
func (a *AST) MinPath() int { return a.minPath }

// IsDead reports whether the root expression provably matches nothing.
// Valid after PrepareForDFA.
func (a *AST) IsDead() bool { return a.dead }

// PrepareForDFA runs the post-parse normalization pass: dead alternatives
// are pruned, the dead flag is computed, and the minimum path is fixed.
// It is idempotent.
func (a *AST) PrepareForDFA() {
	if a.prepared {
		return
	}
	a.root = pruneDead(a.root)
	a.dead = IsDeadNode(a.root)
	a.minPath = MinPath(a.root)
	a.nodeCount = CountNodes(a.root)
	a.prepared = true
}

// pruneDead removes provably dead alternatives so the automaton builders
// never see them. A node that is dead as a whole is kept; the dead flag on
// the AST covers it.
func pruneDead(n Node) Node {
	switch t := n.(type) {
	case *Alternation:
		live := t.Alternatives[:0]
		for _, alt := range t.Alternatives {
			alt = pruneDead(alt)
			if !IsDeadNode(alt) {
				live = append(live, alt)
			}
		}
		switch len(live) {
		case 0:
			return &CharClass{} // dead
		case 1:
			return live[0]
		default:
			t.Alternatives = live
			return t
		}
	case *Sequence:
		for i, term := range t.Terms {
			t.Terms[i] = pruneDead(term)
		}
		return t
	case *Group:
		t.Body = pruneDead(t.Body)
		return t
	case *Quantifier:
		t.Body = pruneDead(t.Body)
		if t.Min == 0 && IsDeadNode(t.Body) {
			// Zero repetitions of a dead body match empty.
			return &Empty{}
		}
		return t
	case *LookAround:
		t.Body = pruneDead(t.Body)
		return t
	default:
		return n
	}
}
