package filter

import (
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// crossScript lists homoglyphs that compatibility normalization does not fold,
// mostly Cyrillic, Greek and Armenian letters from the Unicode confusables table.
// Uppercase look-alikes are keyed by the lowercase base; matching is case-insensitive.
var crossScript = map[rune]string{
	'a': "аɑα⍺АΑ",
	'b': "ƅЬᏏВΒ",
	'c': "сϲᴄСϹ",
	'd': "ԁꓒ",
	'e': "еҽ℮ЕΕ",
	'g': "ɡց",
	'h': "һհНΗ",
	'i': "іɩιӏıІΙ",
	'j': "јϳЈ",
	'k': "κКΚ",
	'l': "1|ǀӏℓ",
	'm': "МΜ",
	'n': "ոռ",
	'o': "0оοօᴏОΟ",
	'p': "рρ⍴РΡ",
	'q': "ԛզ",
	'r': "гᴦ",
	's': "ѕꜱЅ",
	't': "ТΤ",
	'u': "υսʋᴜ",
	'v': "νѵᴠ",
	'w': "ԝɯᴡ",
	'x': "х×ХΧ",
	'y': "уүγყҮΥ",
	'z': "ᴢΖ",
	'3': "ЗƷ",
}

// scanLimit bounds the compatibility scan; it covers the BMP and the
// mathematical alphanumeric symbols block.
const scanLimit = 0x1FFFF

var (
	homoglyphOnce  sync.Once
	homoglyphIndex map[rune][]rune
)

// Homoglyphs returns the runes visually confusable with r, excluding r itself.
// The result is sorted and must not be modified.
func Homoglyphs(r rune) []rune {
	homoglyphOnce.Do(buildHomoglyphIndex)
	return homoglyphIndex[r]
}

// HasHomoglyphs reports whether r has at least one confusable.
func HasHomoglyphs(r rune) bool {
	return len(Homoglyphs(r)) > 0
}

func buildHomoglyphIndex() {
	groups := make(map[rune]map[rune]struct{})
	add := func(base, r rune) {
		g, ok := groups[base]
		if !ok {
			g = map[rune]struct{}{base: {}, unicode.ToUpper(base): {}}
			groups[base] = g
		}
		g[r] = struct{}{}
	}

	for base, glyphs := range crossScript {
		for _, r := range glyphs {
			add(base, r)
		}
	}

	// Fullwidth forms, mathematical alphanumerics, circled letters and the
	// like all fold to ASCII under NFKC.
	for r := rune(0x80); r <= scanLimit; r++ {
		if r >= 0xD800 && r <= 0xDFFF {
			continue
		}
		folded := norm.NFKC.String(string(r))
		if utf8.RuneCountInString(folded) != 1 {
			continue
		}
		base, _ := utf8.DecodeRuneInString(folded)
		if base == r || base >= utf8.RuneSelf {
			continue
		}
		if !unicode.IsLetter(base) && !unicode.IsDigit(base) {
			continue
		}
		add(unicode.ToLower(base), r)
	}

	index := make(map[rune]map[rune]struct{})
	for _, g := range groups {
		for member := range g {
			set, ok := index[member]
			if !ok {
				set = make(map[rune]struct{})
				index[member] = set
			}
			for other := range g {
				if other != member {
					set[other] = struct{}{}
				}
			}
		}
	}

	homoglyphIndex = make(map[rune][]rune, len(index))
	for r, set := range index {
		out := make([]rune, 0, len(set))
		for other := range set {
			out = append(out, other)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		homoglyphIndex[r] = out
	}
}

// confusableRunes returns every rune that has at least one homoglyph.
func confusableRunes() []rune {
	homoglyphOnce.Do(buildHomoglyphIndex)
	out := make([]rune, 0, len(homoglyphIndex))
	for r := range homoglyphIndex {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// stripInvisible removes every Unicode whitespace and invisible format
// character (zero width spaces, joiners, soft hyphens).
func stripInvisible(s string) string {
	out := make([]rune, 0, len(s))
	changed := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.In(r, unicode.White_Space, unicode.Zs, unicode.Cf) {
			changed = true
			continue
		}
		out = append(out, r)
	}
	if !changed {
		return s
	}
	return string(out)
}
