package compiler

import "github.com/coregx/jsregex/ast"

// CheckSupport validates pattern properties against the supported feature
// set. The checks run in a fixed order, so the reported reason is stable
// for any given pattern.
func CheckSupport(p ast.Properties) error {
	switch {
	case p.HasBackReferences:
		return ast.Unsupported("backreferences not supported")
	case p.HasLargeCountedRepetitions:
		return ast.Unsupported("bounds of range quantifier too high")
	case p.HasNegativeLookAhead:
		return ast.Unsupported("negative lookahead assertions not supported")
	case p.HasNonLiteralLookBehind:
		return ast.Unsupported("body of lookbehind assertion too complex")
	case p.HasNegativeLookBehind:
		return ast.Unsupported("negative lookbehind assertions not supported")
	default:
		return nil
	}
}

// IsSupported exposes CheckSupport as a predicate.
func IsSupported(p ast.Properties) bool {
	return CheckSupport(p) == nil
}
