// Package dump writes compiled automata to a host file system for
// offline inspection: the AST as LaTeX and JSON, NFAs as Graphviz and
// JSON, and DFAs as Graphviz and JSON. File names are fixed; concurrent
// requests dumping into the same directory must be excluded by the
// caller.
package dump

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/dfa"
	"github.com/coregx/jsregex/nfa"
)

// FileSystem abstracts the dump target.
type FileSystem interface {
	WriteFile(name string, data []byte) error
}

// DirFS writes dump files into a directory, creating it on first use.
type DirFS struct {
	Dir string
}

// WriteFile implements FileSystem.
func (d DirFS) WriteFile(name string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Dir, name), data, 0o644)
}

// AST writes ast.tex and ast.json.
func AST(fs FileSystem, a *ast.AST) error {
	if err := fs.WriteFile("ast.tex", astLaTeX(a)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(astJSON(a.Root()), "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFile("ast.json", data)
}

// NFA writes nfa.gv, nfa_reverse.gv, nfa.tex and nfa.json.
func NFA(fs FileSystem, n *nfa.NFA) error {
	if err := fs.WriteFile("nfa.gv", nfaDot(n, "nfa")); err != nil {
		return err
	}
	if err := fs.WriteFile("nfa_reverse.gv", nfaDot(nfa.Reverse(n), "nfa_reverse")); err != nil {
		return err
	}
	if err := fs.WriteFile("nfa.tex", nfaLaTeX(n)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(nfaJSON(n), "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFile("nfa.json", data)
}

// TraceFinder writes trace_finder.gv and nfa_trace_finder.json.
func TraceFinder(fs FileSystem, t *nfa.TraceFinderNFA) error {
	if err := fs.WriteFile("trace_finder.gv", nfaDot(t.NFA, "trace_finder")); err != nil {
		return err
	}
	obj := map[string]any{
		"automaton": nfaJSON(t.NFA),
		"results":   t.Results,
	}
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFile("nfa_trace_finder.json", data)
}

// DFA writes dfa_<name>.gv and dfa_<name>.json.
func DFA(fs FileSystem, e *dfa.Executor) error {
	v := e.Describe()
	name := v.Name
	if name == "" {
		name = "unnamed"
	}
	if err := fs.WriteFile("dfa_"+name+".gv", dfaDot(v)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fs.WriteFile("dfa_"+name+".json", data)
}

func astLaTeX(a *ast.AST) []byte {
	var b strings.Builder
	b.WriteString("% pattern " + a.Source().String() + "\n")
	b.WriteString("\\begin{tikzpicture}\n")
	writeASTNodeTeX(&b, a.Root(), 1)
	b.WriteString("\\end{tikzpicture}\n")
	return []byte(b.String())
}

func writeASTNodeTeX(b *strings.Builder, n ast.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s\\node {%s};\n", indent, nodeLabel(n))
	for _, child := range children(n) {
		writeASTNodeTeX(b, child, depth+1)
	}
}

func nfaLaTeX(n *nfa.NFA) []byte {
	var b strings.Builder
	b.WriteString("\\begin{tikzpicture}[->,auto]\n")
	for i := 0; i < n.NumberOfStates(); i++ {
		s := n.State(nfa.StateID(i))
		fmt.Fprintf(&b, "  \\node[state] (q%d) {%s};\n", i, s.Kind)
	}
	b.WriteString("\\end{tikzpicture}\n")
	return []byte(b.String())
}

func nodeLabel(n ast.Node) string {
	switch t := n.(type) {
	case *ast.Alternation:
		return "alt"
	case *ast.Sequence:
		return "seq"
	case *ast.CharClass:
		return classLabel(t)
	case *ast.Group:
		if t.Capturing {
			return fmt.Sprintf("group %d", t.Index)
		}
		return "group"
	case *ast.Quantifier:
		return fmt.Sprintf("repeat{%d,%d}", t.Min, t.Max)
	case *ast.LookAround:
		if t.Ahead {
			return "lookahead"
		}
		return "lookbehind"
	case *ast.PositionAssertion:
		return t.Kind.String()
	case *ast.Backreference:
		return fmt.Sprintf("backref %d", t.Index)
	default:
		return "empty"
	}
}

func children(n ast.Node) []ast.Node {
	switch t := n.(type) {
	case *ast.Alternation:
		return t.Alternatives
	case *ast.Sequence:
		return t.Terms
	case *ast.Group:
		return []ast.Node{t.Body}
	case *ast.Quantifier:
		return []ast.Node{t.Body}
	case *ast.LookAround:
		return []ast.Node{t.Body}
	default:
		return nil
	}
}

func astJSON(n ast.Node) map[string]any {
	obj := map[string]any{"label": nodeLabel(n)}
	kids := children(n)
	if len(kids) > 0 {
		arr := make([]map[string]any, len(kids))
		for i, k := range kids {
			arr[i] = astJSON(k)
		}
		obj["children"] = arr
	}
	return obj
}

func classLabel(c *ast.CharClass) string {
	if r, ok := c.IsSingleRune(); ok && r > 0x20 && r < 0x7F {
		return string(r)
	}
	var parts []string
	for _, rr := range c.Ranges {
		if rr.Lo == rr.Hi {
			parts = append(parts, fmt.Sprintf("%#x", rr.Lo))
		} else {
			parts = append(parts, fmt.Sprintf("%#x-%#x", rr.Lo, rr.Hi))
		}
		if len(parts) == 4 {
			parts = append(parts, "...")
			break
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func nfaDot(n *nfa.NFA, name string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n  rankdir=LR;\n", name)
	for i := 0; i < n.NumberOfStates(); i++ {
		s := n.State(nfa.StateID(i))
		shape := "circle"
		if s.Kind == nfa.StateMatch {
			shape = "doublecircle"
		}
		fmt.Fprintf(&b, "  q%d [shape=%s];\n", i, shape)
		switch s.Kind {
		case nfa.StateRange:
			if s.Next != nfa.InvalidState {
				label := classLabel(&ast.CharClass{Ranges: []ast.RuneRange{{Lo: s.Lo, Hi: s.Hi}}})
				fmt.Fprintf(&b, "  q%d -> q%d [label=%q];\n", i, s.Next, label)
			}
		case nfa.StateSplit:
			if s.Next != nfa.InvalidState {
				fmt.Fprintf(&b, "  q%d -> q%d [style=dashed];\n", i, s.Next)
			}
			if s.Alt != nfa.InvalidState {
				fmt.Fprintf(&b, "  q%d -> q%d [style=dashed];\n", i, s.Alt)
			}
		case nfa.StateEpsilon, nfa.StateCapture, nfa.StateAssert, nfa.StateLook:
			if s.Next != nfa.InvalidState {
				fmt.Fprintf(&b, "  q%d -> q%d [style=dotted,label=%q];\n", i, s.Next, s.Kind.String())
			}
		}
	}
	fmt.Fprintf(&b, "  start [shape=point];\n  start -> q%d;\n}\n", n.Start())
	return []byte(b.String())
}

type nfaStateJSON struct {
	ID   int    `json:"id"`
	Kind string `json:"kind"`
	Next int64  `json:"next"`
	Alt  int64  `json:"alt,omitempty"`
}

func nfaJSON(n *nfa.NFA) map[string]any {
	states := make([]nfaStateJSON, n.NumberOfStates())
	for i := range states {
		s := n.State(nfa.StateID(i))
		states[i] = nfaStateJSON{
			ID:   i,
			Kind: s.Kind.String(),
			Next: signedID(s.Next),
			Alt:  signedID(s.Alt),
		}
	}
	return map[string]any{
		"start":       n.Start(),
		"states":      states,
		"transitions": n.NumberOfTransitions(),
		"dead":        n.IsDead(),
	}
}

func signedID(id nfa.StateID) int64 {
	if id == nfa.InvalidState {
		return -1
	}
	return int64(id)
}

func dfaDot(v dfa.View) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph dfa_%s {\n  rankdir=LR;\n", v.Name)
	for i, trans := range v.Transitions {
		shape := "circle"
		for _, tag := range v.Accepts[i] {
			if tag >= 0 {
				shape = "doublecircle"
				break
			}
		}
		fmt.Fprintf(&b, "  s%d [shape=%s];\n", i, shape)
		for class, next := range trans {
			if next < 0 {
				continue
			}
			fmt.Fprintf(&b, "  s%d -> s%d [label=\"c%d\"];\n", i, next, class)
		}
	}
	b.WriteString("}\n")
	return []byte(b.String())
}
