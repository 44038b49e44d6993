package ast

import "strings"

// Properties is the boolean summary of a parsed pattern. The feature gate
// and the matcher-variant decision tree consume it; it never changes after
// parsing.
type Properties struct {
	HasAlternations            bool
	HasCaptureGroups           bool
	HasLookAroundAssertions    bool
	HasBackReferences          bool
	HasLargeCountedRepetitions bool
	HasNegativeLookAhead       bool
	HasNonLiteralLookBehind    bool
	HasNegativeLookBehind      bool
	HasLoops                   bool
}

// String returns a compact comma-separated list of the set properties,
// used in log records.
func (p Properties) String() string {
	var parts []string
	add := func(set bool, name string) {
		if set {
			parts = append(parts, name)
		}
	}
	add(p.HasAlternations, "alt")
	add(p.HasCaptureGroups, "capture")
	add(p.HasLookAroundAssertions, "look")
	add(p.HasBackReferences, "backref")
	add(p.HasLargeCountedRepetitions, "largeRepeat")
	add(p.HasNegativeLookAhead, "negLookAhead")
	add(p.HasNonLiteralLookBehind, "complexLookBehind")
	add(p.HasNegativeLookBehind, "negLookBehind")
	add(p.HasLoops, "loop")
	return strings.Join(parts, ",")
}
