package filter

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"sort"
	"strings"
	"unicode"
)

const (
	rawRegexPrefix = "raw-regex:"
	regexPrefix    = "regex:"
)

// ErrInvalidPattern is matched by every *InvalidPatternError.
var ErrInvalidPattern = errors.New("invalid filter pattern")

// InvalidPatternError reports a filter definition that does not compile.
type InvalidPatternError struct {
	Definition string
	Err        error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid filter pattern %q: %v", e.Definition, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

func (e *InvalidPatternError) Is(target error) bool { return target == ErrInvalidPattern }

// Syntax is the form a filter definition was written in.
type Syntax int

const (
	SyntaxText Syntax = iota
	SyntaxRegex
	SyntaxRawRegex
)

func (s Syntax) String() string {
	switch s {
	case SyntaxRegex:
		return "regex"
	case SyntaxRawRegex:
		return "raw-regex"
	default:
		return "text"
	}
}

// Matcher is a compiled filter definition. Two matchers are the same filter
// when their Text is equal.
type Matcher struct {
	text   string
	syntax Syntax
	re     *regexp.Regexp
}

// Compile turns a raw filter definition into a matcher.
//
//	raw-regex:<body>  compiled as is, case-insensitive
//	regex:<body>      every literal and character class widened with homoglyphs,
//	                  word boundaries at the pattern edges made Unicode-aware
//	anything else     literal text, confusable characters widened with homoglyphs
func Compile(definition string) (*Matcher, error) {
	var (
		pattern string
		kind    Syntax
		err     error
	)
	switch {
	case strings.HasPrefix(definition, rawRegexPrefix):
		kind = SyntaxRawRegex
		pattern = strings.TrimPrefix(definition, rawRegexPrefix)
	case strings.HasPrefix(definition, regexPrefix):
		kind = SyntaxRegex
		pattern, err = expandRegex(strings.TrimPrefix(definition, regexPrefix))
	default:
		kind = SyntaxText
		pattern = expandText(definition)
	}
	if err != nil {
		return nil, &InvalidPatternError{Definition: definition, Err: err}
	}
	if pattern == "" {
		return nil, &InvalidPatternError{Definition: definition, Err: errors.New("empty pattern")}
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, &InvalidPatternError{Definition: definition, Err: err}
	}
	return &Matcher{text: definition, syntax: kind, re: re}, nil
}

// Text returns the definition the matcher was compiled from.
func (m *Matcher) Text() string { return m.text }

// Syntax returns the form of the definition.
func (m *Matcher) Syntax() Syntax { return m.syntax }

// Pattern returns the compiled regular expression source.
func (m *Matcher) Pattern() string { return m.re.String() }

// Matches tests content as is and with every whitespace and invisible
// character removed.
func (m *Matcher) Matches(content string) bool {
	if m.re.MatchString(content) {
		return true
	}
	stripped := stripInvisible(content)
	return stripped != content && m.re.MatchString(stripped)
}

func expandText(text string) string {
	if text == "" {
		return ""
	}
	node := &syntax.Regexp{Op: syntax.OpLiteral, Rune: []rune(text)}
	expandNode(node)
	return node.String()
}

func expandRegex(body string) (string, error) {
	if body == "" {
		return "", errors.New("empty pattern")
	}
	re, err := syntax.Parse(body, syntax.Perl)
	if err != nil {
		return "", err
	}
	expandNode(re)
	rewriteBoundaries(re, true, true)
	return re.String(), nil
}

// Word boundaries in regexp are ASCII only, so a confusable rune next to
// \b reads as a non-word character. Boundaries at the edges of a pattern
// are replaced by classes that consume the neighbouring rune instead.
var (
	leadingBoundary    = mustParse(`(?:\A|[^\pL\pN_])`)
	trailingBoundary   = mustParse(`(?:[^\pL\pN_]|\z)`)
	wordNeighbour      = mustParse(`[\pL\pN_]`)
	emptyBoundaryMatch = &syntax.Regexp{Op: syntax.OpEmptyMatch}
)

func mustParse(expr string) *syntax.Regexp {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		panic(err)
	}
	return re
}

// rewriteBoundaries walks the pattern tracking whether a node sits at its
// start or end. Interior boundaries are dropped since the runes on both
// sides are already consumed by the pattern.
func rewriteBoundaries(re *syntax.Regexp, atStart, atEnd bool) {
	switch re.Op {
	case syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		if atStart && atEnd {
			// A pattern that is only a boundary keeps its own semantics.
			return
		}
		var repl *syntax.Regexp
		switch {
		case !atStart && !atEnd:
			repl = emptyBoundaryMatch
		case re.Op == syntax.OpNoWordBoundary:
			repl = wordNeighbour
		case atStart:
			repl = leadingBoundary
		default:
			repl = trailingBoundary
		}
		*re = *cloneRegexp(repl)
	case syntax.OpConcat:
		last := len(re.Sub) - 1
		for i, sub := range re.Sub {
			rewriteBoundaries(sub, atStart && i == 0, atEnd && i == last)
		}
	case syntax.OpAlternate, syntax.OpCapture:
		for _, sub := range re.Sub {
			rewriteBoundaries(sub, atStart, atEnd)
		}
	default:
		for _, sub := range re.Sub {
			rewriteBoundaries(sub, false, false)
		}
	}
}

func cloneRegexp(re *syntax.Regexp) *syntax.Regexp {
	c := *re
	c.Rune = append([]rune(nil), re.Rune...)
	c.Sub = make([]*syntax.Regexp, len(re.Sub))
	for i, sub := range re.Sub {
		c.Sub[i] = cloneRegexp(sub)
	}
	return &c
}

// expandNode rewrites literals and character classes in place, recursing
// into every sub-expression.
func expandNode(re *syntax.Regexp) {
	switch re.Op {
	case syntax.OpLiteral:
		expandLiteral(re)
	case syntax.OpCharClass:
		re.Rune = expandClass(re.Rune)
	}
	for _, sub := range re.Sub {
		expandNode(sub)
	}
}

// expandLiteral turns a literal into a concatenation where confusable runes
// become classes and runs of plain runes stay literal.
func expandLiteral(re *syntax.Regexp) {
	var (
		parts   []*syntax.Regexp
		pending []rune
		widened bool
	)
	flush := func() {
		if len(pending) > 0 {
			parts = append(parts, &syntax.Regexp{Op: syntax.OpLiteral, Flags: re.Flags, Rune: pending})
			pending = nil
		}
	}
	for _, r := range re.Rune {
		glyphs := Homoglyphs(r)
		if len(glyphs) == 0 {
			pending = append(pending, r)
			continue
		}
		widened = true
		flush()
		set := append([]rune{r}, glyphs...)
		parts = append(parts, &syntax.Regexp{Op: syntax.OpCharClass, Flags: re.Flags, Rune: runesToRanges(set)})
	}
	if !widened {
		return
	}
	flush()
	if len(parts) == 1 {
		*re = *parts[0]
		return
	}
	re.Op = syntax.OpConcat
	re.Rune = nil
	re.Sub = parts
}

// expandClass widens a class with the homoglyphs of every rune it contains.
// Classes reaching the top of the rune space are complements, so the
// excluded runes are widened instead and the class complemented again.
func expandClass(ranges []rune) []rune {
	ranges = normalizeRanges(ranges)
	if len(ranges) >= 2 && ranges[len(ranges)-1] == unicode.MaxRune {
		excluded := complementRanges(ranges)
		return complementRanges(widenRanges(excluded))
	}
	return widenRanges(ranges)
}

func widenRanges(ranges []rune) []rune {
	extra := make([]rune, 0)
	for _, r := range confusableRunes() {
		if inRanges(ranges, r) {
			extra = append(extra, Homoglyphs(r)...)
		}
	}
	if len(extra) == 0 {
		return ranges
	}
	return normalizeRanges(append(append([]rune(nil), ranges...), runesToRanges(extra)...))
}

func inRanges(ranges []rune, r rune) bool {
	i := sort.Search(len(ranges)/2, func(i int) bool { return ranges[2*i+1] >= r })
	return i < len(ranges)/2 && ranges[2*i] <= r
}

func runesToRanges(runes []rune) []rune {
	out := make([]rune, 0, 2*len(runes))
	for _, r := range runes {
		out = append(out, r, r)
	}
	return normalizeRanges(out)
}

// normalizeRanges sorts and merges [lo, hi] pairs.
func normalizeRanges(ranges []rune) []rune {
	n := len(ranges) / 2
	if n == 0 {
		return ranges
	}
	pairs := make([][2]rune, n)
	for i := 0; i < n; i++ {
		pairs[i] = [2]rune{ranges[2*i], ranges[2*i+1]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	out := make([]rune, 0, len(ranges))
	cur := pairs[0]
	for _, p := range pairs[1:] {
		if p[0] <= cur[1]+1 {
			if p[1] > cur[1] {
				cur[1] = p[1]
			}
			continue
		}
		out = append(out, cur[0], cur[1])
		cur = p
	}
	return append(out, cur[0], cur[1])
}

func complementRanges(ranges []rune) []rune {
	out := make([]rune, 0, len(ranges)+2)
	next := rune(0)
	for i := 0; i < len(ranges); i += 2 {
		if ranges[i] > next {
			out = append(out, next, ranges[i]-1)
		}
		next = ranges[i+1] + 1
	}
	if next <= unicode.MaxRune {
		out = append(out, next, unicode.MaxRune)
	}
	return out
}
