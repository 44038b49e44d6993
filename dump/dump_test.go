package dump

import (
	"strings"
	"testing"

	"github.com/coregx/jsregex/ast"
	"github.com/coregx/jsregex/dfa"
	"github.com/coregx/jsregex/internal/scratch"
	"github.com/coregx/jsregex/nfa"
)

// memFS collects dump files in memory.
type memFS map[string][]byte

func (m memFS) WriteFile(name string, data []byte) error {
	m[name] = data
	return nil
}

func setup(t *testing.T, pattern string) (*ast.AST, *nfa.NFA) {
	t.Helper()
	tree, err := ast.NewParser(ast.NewSource(pattern, 0), scratch.New()).Parse()
	if err != nil {
		t.Fatal(err)
	}
	tree.PrepareForDFA()
	n, err := nfa.Generate(tree, scratch.New(), 0)
	if err != nil {
		t.Fatal(err)
	}
	return tree, n
}

func TestDump_FixedFileNames(t *testing.T) {
	tree, n := setup(t, "(a|b)c")
	fs := memFS{}

	if err := AST(fs, tree); err != nil {
		t.Fatalf("AST: %v", err)
	}
	if err := NFA(fs, n); err != nil {
		t.Fatalf("NFA: %v", err)
	}
	tf, err := nfa.GenerateTraceFinder(n)
	if err != nil {
		t.Fatalf("GenerateTraceFinder: %v", err)
	}
	if err := TraceFinder(fs, tf); err != nil {
		t.Fatalf("TraceFinder: %v", err)
	}

	b := dfa.NewBuilder(nil, n, dfa.Props{Direction: dfa.Forward, Searching: true}, scratch.New(), dfa.DefaultConfig())
	b.DebugName("forward")
	if err := b.CalcDFA(); err != nil {
		t.Fatal(err)
	}
	if err := DFA(fs, b.CreateExecutor()); err != nil {
		t.Fatalf("DFA: %v", err)
	}

	for _, name := range []string{
		"ast.tex", "ast.json",
		"nfa.gv", "nfa_reverse.gv", "nfa.tex", "nfa.json",
		"trace_finder.gv", "nfa_trace_finder.json",
		"dfa_forward.gv", "dfa_forward.json",
	} {
		if _, ok := fs[name]; !ok {
			t.Errorf("missing dump file %s", name)
		}
	}

	if !strings.HasPrefix(string(fs["nfa.gv"]), "digraph") {
		t.Error("nfa.gv is not a Graphviz document")
	}
	if !strings.Contains(string(fs["ast.json"]), `"label"`) {
		t.Error("ast.json carries no labels")
	}
}
