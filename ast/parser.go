package ast

import (
	"unicode"

	"github.com/coregx/jsregex/internal/scratch"
)

// MaxBoundedRepetition is the largest bound accepted for a counted
// quantifier like a{m,n}. Larger bounds would explode the automaton; the
// parser records them in the properties and the feature gate rejects them.
const MaxBoundedRepetition = 2048

// Parser parses one ECMAScript pattern source into an AST.
//
// Usage:
//
//	p := ast.NewParser(src, buf)
//	tree, err := p.Parse()
//	if err != nil { ... }
//	tree.PrepareForDFA()
type Parser struct {
	src     Source
	pattern []rune
	pos     int
	flags   Flags
	buf     *scratch.Buffer

	groupCount int
	groupNames map[string]int
	props      Properties
}

// NewParser creates a parser for the given source. The buffer is borrowed
// for the duration of Parse and not retained.
func NewParser(src Source, buf *scratch.Buffer) *Parser {
	return &Parser{src: src, buf: buf}
}

// Parse parses the pattern. Foreign flavors are rewritten to ECMAScript
// first. Malformed patterns yield a SyntaxError; patterns using features
// this frontend cannot represent yield an UnsupportedError.
func (p *Parser) Parse() (*AST, error) {
	src := p.src
	if src.Flavor != nil {
		translated, err := src.Flavor.ForRegex(src).ToECMAScript()
		if err != nil {
			return nil, err
		}
		translated.Flavor = nil
		src = translated
	}

	p.pattern = []rune(src.Pattern)
	p.pos = 0
	p.flags = src.Flags
	p.groupNames = make(map[string]int)

	root, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, p.syntaxError("unmatched ')'")
	}

	return &AST{
		source:        p.src,
		root:          root,
		flags:         p.flags,
		props:         p.props,
		captureGroups: p.groupCount + 1, // group 0 is the whole match
		nodeCount:     CountNodes(root),
	}, nil
}

func (p *Parser) eof() bool { return p.pos >= len(p.pattern) }

func (p *Parser) peek() rune {
	if p.eof() {
		return -1
	}
	return p.pattern[p.pos]
}

func (p *Parser) next() rune {
	r := p.pattern[p.pos]
	p.pos++
	return r
}

func (p *Parser) consume(r rune) bool {
	if !p.eof() && p.pattern[p.pos] == r {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) syntaxError(msg string) error {
	return &SyntaxError{Pattern: p.src.Pattern, Pos: p.pos, Msg: msg}
}

// parseDisjunction parses alternative|alternative|...
func (p *Parser) parseDisjunction() (Node, error) {
	first, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if p.peek() != '|' {
		return first, nil
	}
	alts := []Node{first}
	for p.consume('|') {
		alt, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	p.props.HasAlternations = true
	return &Alternation{Alternatives: alts}, nil
}

// parseSequence parses a (possibly empty) run of terms up to |, ) or EOF.
func (p *Parser) parseSequence() (Node, error) {
	var terms []Node
	for !p.eof() && p.peek() != '|' && p.peek() != ')' {
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	switch len(terms) {
	case 0:
		return &Empty{}, nil
	case 1:
		return terms[0], nil
	default:
		return &Sequence{Terms: terms}, nil
	}
}

// parseTerm parses one assertion or quantified atom.
func (p *Parser) parseTerm() (Node, error) {
	var atom Node
	var quantifiable bool
	var err error

	switch p.peek() {
	case '^':
		p.next()
		atom = &PositionAssertion{Kind: AssertCaret}
	case '$':
		p.next()
		atom = &PositionAssertion{Kind: AssertDollar}
	case '(':
		atom, quantifiable, err = p.parseGroup()
	default:
		atom, err = p.parseAtom()
		quantifiable = true
	}
	if err != nil {
		return nil, err
	}

	quant, hasQuant, err := p.parseQuantifier()
	if err != nil {
		return nil, err
	}
	if !hasQuant {
		return atom, nil
	}
	if !quantifiable {
		return nil, p.syntaxError("nothing to repeat")
	}
	quant.Body = atom
	if quant.Max < 0 {
		p.props.HasLoops = true
	}
	if quant.Min != quant.Max {
		// A variable repetition count is a branch between match shapes,
		// exactly like an alternation.
		p.props.HasAlternations = true
	}
	if quant.Min > MaxBoundedRepetition || quant.Max > MaxBoundedRepetition {
		p.props.HasLargeCountedRepetitions = true
	}
	return quant, nil
}

// parseQuantifier parses *, +, ?, {m}, {m,}, {m,n} and the lazy suffix.
func (p *Parser) parseQuantifier() (*Quantifier, bool, error) {
	q := &Quantifier{Greedy: true}
	switch p.peek() {
	case '*':
		p.next()
		q.Min, q.Max = 0, -1
	case '+':
		p.next()
		q.Min, q.Max = 1, -1
	case '?':
		p.next()
		q.Min, q.Max = 0, 1
	case '{':
		min, max, ok := p.parseBraces()
		if !ok {
			// Not a valid counted quantifier: `{` is a literal character.
			return nil, false, nil
		}
		if max >= 0 && max < min {
			return nil, false, p.syntaxError("numbers out of order in {} quantifier")
		}
		q.Min, q.Max = min, max
	default:
		return nil, false, nil
	}
	if p.consume('?') {
		q.Greedy = false
	}
	return q, true, nil
}

// parseBraces attempts to read {m}, {m,} or {m,n} at the current position.
// On failure the position is restored and the brace is left for the caller
// to treat as a literal.
func (p *Parser) parseBraces() (min, max int, ok bool) {
	start := p.pos
	p.next() // '{'
	min, ok = p.parseDecimal()
	if !ok {
		p.pos = start
		return 0, 0, false
	}
	max = min
	if p.consume(',') {
		if p.peek() == '}' {
			max = -1
		} else {
			max, ok = p.parseDecimal()
			if !ok {
				p.pos = start
				return 0, 0, false
			}
		}
	}
	if !p.consume('}') {
		p.pos = start
		return 0, 0, false
	}
	return min, max, true
}

// parseDecimal reads a non-negative decimal integer, saturating far above
// any accepted repetition bound.
func (p *Parser) parseDecimal() (int, bool) {
	const saturate = 1 << 30
	start := p.pos
	n := 0
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		if n < saturate {
			n = n*10 + int(p.next()-'0')
		} else {
			p.next()
		}
	}
	return n, p.pos > start
}

// parseGroup parses ( ... ) in all its forms. The second result reports
// whether a quantifier may follow.
func (p *Parser) parseGroup() (Node, bool, error) {
	p.next() // '('
	if !p.consume('?') {
		return p.finishCapturingGroup("")
	}

	switch p.peek() {
	case ':':
		p.next()
		body, err := p.parseGroupBody()
		if err != nil {
			return nil, false, err
		}
		return &Group{Body: body}, true, nil
	case '=', '!':
		negated := p.next() == '!'
		return p.finishLookAround(true, negated)
	case '<':
		p.next()
		switch p.peek() {
		case '=', '!':
			negated := p.next() == '!'
			return p.finishLookAround(false, negated)
		default:
			name, err := p.parseGroupName()
			if err != nil {
				return nil, false, err
			}
			return p.finishCapturingGroup(name)
		}
	default:
		return nil, false, p.syntaxError("invalid group")
	}
}

func (p *Parser) finishCapturingGroup(name string) (Node, bool, error) {
	p.groupCount++
	index := p.groupCount
	if name != "" {
		if _, dup := p.groupNames[name]; dup {
			return nil, false, p.syntaxError("duplicate capture group name " + name)
		}
		p.groupNames[name] = index
	}
	body, err := p.parseGroupBody()
	if err != nil {
		return nil, false, err
	}
	p.props.HasCaptureGroups = true
	return &Group{Index: index, Name: name, Capturing: true, Body: body}, true, nil
}

func (p *Parser) finishLookAround(ahead, negated bool) (Node, bool, error) {
	body, err := p.parseGroupBody()
	if err != nil {
		return nil, false, err
	}
	p.props.HasLookAroundAssertions = true
	if ahead && negated {
		p.props.HasNegativeLookAhead = true
	}
	if !ahead {
		if negated {
			p.props.HasNegativeLookBehind = true
		}
		if _, literal := IsLiteralNode(body); !literal {
			p.props.HasNonLiteralLookBehind = true
		}
	}
	return &LookAround{Ahead: ahead, Negated: negated, Body: body}, ahead, nil
}

func (p *Parser) parseGroupBody() (Node, error) {
	body, err := p.parseDisjunction()
	if err != nil {
		return nil, err
	}
	if !p.consume(')') {
		return nil, p.syntaxError("missing closing parenthesis")
	}
	return body, nil
}

func (p *Parser) parseGroupName() (string, error) {
	runes := p.buf.TakeRunes()
	defer p.buf.PutRunes(runes)
	for !p.eof() && p.peek() != '>' {
		runes = append(runes, p.next())
	}
	if !p.consume('>') || len(runes) == 0 {
		return "", p.syntaxError("invalid capture group name")
	}
	return string(runes), nil
}

// parseAtom parses ., a character class, an escape, or a literal
// character.
func (p *Parser) parseAtom() (Node, error) {
	switch p.peek() {
	case '.':
		p.next()
		return p.dotClass(), nil
	case '[':
		return p.parseCharClass()
	case '\\':
		return p.parseEscape()
	case '*', '+', '?':
		return nil, p.syntaxError("nothing to repeat")
	case ')':
		return nil, p.syntaxError("unmatched ')'")
	default:
		return p.literalClass(p.next()), nil
	}
}

// dotClass returns the class `.` denotes under the current flags.
func (p *Parser) dotClass() *CharClass {
	if p.flags.Has(FlagDotAll) {
		return &CharClass{Ranges: []RuneRange{{Lo: 0, Hi: MaxRune}}}
	}
	return &CharClass{Ranges: negateRanges([]RuneRange{
		{Lo: '\n', Hi: '\n'},
		{Lo: '\r', Hi: '\r'},
		{Lo: 0x2028, Hi: 0x2029},
	})}
}

// literalClass wraps a single character, applying case folding under the
// i flag.
func (p *Parser) literalClass(r rune) *CharClass {
	if !p.flags.Has(FlagIgnoreCase) {
		return SingleRune(r)
	}
	ranges := []RuneRange{{Lo: r, Hi: r}}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		ranges = append(ranges, RuneRange{Lo: f, Hi: f})
	}
	return &CharClass{Ranges: normalizeRanges(ranges)}
}

// parseEscape parses a backslash escape outside a character class.
func (p *Parser) parseEscape() (Node, error) {
	p.next() // '\\'
	if p.eof() {
		return nil, p.syntaxError("trailing backslash")
	}
	r := p.peek()
	switch {
	case r == 'b':
		p.next()
		return &PositionAssertion{Kind: AssertWordBoundary}, nil
	case r == 'B':
		p.next()
		return &PositionAssertion{Kind: AssertNonWordBoundary}, nil
	case r >= '1' && r <= '9':
		index, _ := p.parseDecimal()
		p.props.HasBackReferences = true
		return &Backreference{Index: index}, nil
	case r == 'k':
		p.next()
		if !p.consume('<') {
			return nil, p.syntaxError("invalid named backreference")
		}
		name, err := p.parseGroupName()
		if err != nil {
			return nil, err
		}
		p.props.HasBackReferences = true
		return &Backreference{Name: name, Index: p.groupNames[name]}, nil
	case r == 'p' || r == 'P':
		return nil, Unsupported("unicode property escapes not supported")
	default:
		ranges, err := p.parseClassEscape(false)
		if err != nil {
			return nil, err
		}
		return p.classFromRanges(ranges), nil
	}
}

// classFromRanges builds a class applying case folding under the i flag.
func (p *Parser) classFromRanges(ranges []RuneRange) *CharClass {
	if p.flags.Has(FlagIgnoreCase) {
		ranges = addCaseFoldings(ranges)
	}
	return &CharClass{Ranges: normalizeRanges(ranges)}
}

// parseClassEscape parses the portion of an escape shared between atoms
// and class members: predefined classes, control escapes and identity
// escapes. The backslash is already consumed; the escape character is not.
func (p *Parser) parseClassEscape(inClass bool) ([]RuneRange, error) {
	r := p.next()
	switch r {
	case 'd':
		return []RuneRange{{Lo: '0', Hi: '9'}}, nil
	case 'D':
		return negateRanges([]RuneRange{{Lo: '0', Hi: '9'}}), nil
	case 'w':
		return wordRanges(), nil
	case 'W':
		return negateRanges(wordRanges()), nil
	case 's':
		return spaceRanges(), nil
	case 'S':
		return negateRanges(spaceRanges()), nil
	case 'n':
		return single('\n'), nil
	case 'r':
		return single('\r'), nil
	case 't':
		return single('\t'), nil
	case 'f':
		return single('\f'), nil
	case 'v':
		return single('\v'), nil
	case '0':
		return single(0), nil
	case 'b':
		if inClass {
			return single(0x08), nil
		}
		return nil, p.syntaxError("invalid escape")
	case 'x':
		v, err := p.parseHex(2)
		if err != nil {
			return nil, err
		}
		return single(v), nil
	case 'u':
		return p.parseUnicodeEscape()
	case 'c':
		if !p.eof() && isASCIILetter(p.peek()) {
			return single(p.next() % 32), nil
		}
		return nil, p.syntaxError("invalid control escape")
	default:
		// Identity escape.
		return single(r), nil
	}
}

func (p *Parser) parseUnicodeEscape() ([]RuneRange, error) {
	if p.flags.Has(FlagUnicode) && p.consume('{') {
		v := rune(0)
		digits := 0
		for !p.eof() && p.peek() != '}' {
			d, ok := hexDigit(p.next())
			if !ok {
				return nil, p.syntaxError("invalid unicode escape")
			}
			v = v*16 + d
			digits++
			if v > MaxRune {
				return nil, p.syntaxError("unicode escape out of range")
			}
		}
		if !p.consume('}') || digits == 0 {
			return nil, p.syntaxError("invalid unicode escape")
		}
		return single(v), nil
	}
	v, err := p.parseHex(4)
	if err != nil {
		return nil, err
	}
	return single(v), nil
}

func (p *Parser) parseHex(n int) (rune, error) {
	v := rune(0)
	for i := 0; i < n; i++ {
		if p.eof() {
			return 0, p.syntaxError("invalid hex escape")
		}
		d, ok := hexDigit(p.next())
		if !ok {
			return 0, p.syntaxError("invalid hex escape")
		}
		v = v*16 + d
	}
	return v, nil
}

// parseCharClass parses [...] including negation and ranges.
func (p *Parser) parseCharClass() (Node, error) {
	p.next() // '['
	negated := p.consume('^')
	var ranges []RuneRange

	for {
		if p.eof() {
			return nil, p.syntaxError("unterminated character class")
		}
		if p.peek() == ']' {
			p.next()
			break
		}
		lo, loRanges, err := p.parseClassMember()
		if err != nil {
			return nil, err
		}
		if loRanges != nil {
			// A multi-character escape such as \d cannot open a range.
			ranges = append(ranges, loRanges...)
			continue
		}
		if p.peek() == '-' && p.pos+1 < len(p.pattern) && p.pattern[p.pos+1] != ']' {
			p.next() // '-'
			hi, hiRanges, err := p.parseClassMember()
			if err != nil {
				return nil, err
			}
			if hiRanges != nil {
				// `[a-\d]`: the dash is a literal member.
				ranges = append(ranges, RuneRange{Lo: lo, Hi: lo}, RuneRange{Lo: '-', Hi: '-'})
				ranges = append(ranges, hiRanges...)
				continue
			}
			if hi < lo {
				return nil, p.syntaxError("range out of order in character class")
			}
			ranges = append(ranges, RuneRange{Lo: lo, Hi: hi})
			continue
		}
		ranges = append(ranges, RuneRange{Lo: lo, Hi: lo})
	}

	if p.flags.Has(FlagIgnoreCase) {
		ranges = addCaseFoldings(ranges)
	}
	ranges = normalizeRanges(ranges)
	if negated {
		ranges = negateRanges(ranges)
	}
	return &CharClass{Ranges: ranges}, nil
}

// parseClassMember returns either a single codepoint or, for predefined
// class escapes, a range set.
func (p *Parser) parseClassMember() (rune, []RuneRange, error) {
	if p.peek() != '\\' {
		return p.next(), nil, nil
	}
	p.next() // '\\'
	if p.eof() {
		return 0, nil, p.syntaxError("trailing backslash")
	}
	switch p.peek() {
	case 'd', 'D', 'w', 'W', 's', 'S':
		ranges, err := p.parseClassEscape(true)
		return 0, ranges, err
	case 'p', 'P':
		return 0, nil, Unsupported("unicode property escapes not supported")
	default:
		ranges, err := p.parseClassEscape(true)
		if err != nil {
			return 0, nil, err
		}
		return ranges[0].Lo, nil, nil
	}
}

func single(r rune) []RuneRange {
	return []RuneRange{{Lo: r, Hi: r}}
}

func wordRanges() []RuneRange {
	return []RuneRange{
		{Lo: '0', Hi: '9'},
		{Lo: 'A', Hi: 'Z'},
		{Lo: '_', Hi: '_'},
		{Lo: 'a', Hi: 'z'},
	}
}

func spaceRanges() []RuneRange {
	return []RuneRange{
		{Lo: '\t', Hi: '\r'},
		{Lo: ' ', Hi: ' '},
		{Lo: 0x00A0, Hi: 0x00A0},
		{Lo: 0x1680, Hi: 0x1680},
		{Lo: 0x2000, Hi: 0x200A},
		{Lo: 0x2028, Hi: 0x2029},
		{Lo: 0x202F, Hi: 0x202F},
		{Lo: 0x205F, Hi: 0x205F},
		{Lo: 0x3000, Hi: 0x3000},
		{Lo: 0xFEFF, Hi: 0xFEFF},
	}
}

// addCaseFoldings extends ranges with the simple case foldings of their
// members. Large non-ASCII ranges are kept as-is; enumerating them would
// dominate parse time for classes that rarely care.
func addCaseFoldings(ranges []RuneRange) []RuneRange {
	const maxEnumerate = 256
	out := ranges
	for _, r := range ranges {
		if r.Hi-r.Lo >= maxEnumerate {
			continue
		}
		for c := r.Lo; c <= r.Hi; c++ {
			for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
				out = append(out, RuneRange{Lo: f, Hi: f})
			}
		}
	}
	return out
}

func hexDigit(r rune) (rune, bool) {
	switch {
	case r >= '0' && r <= '9':
		return r - '0', true
	case r >= 'a' && r <= 'f':
		return r - 'a' + 10, true
	case r >= 'A' && r <= 'F':
		return r - 'A' + 10, true
	default:
		return 0, false
	}
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// IsWordRune reports whether r is a word character for \b and \w
// purposes.
func IsWordRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || r == '_' || (r >= 'a' && r <= 'z')
}

// IsLineTerminator reports whether r terminates a line in ECMAScript.
func IsLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == 0x2028 || r == 0x2029
}
