package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks, which covers Arabic tashkeel as
// well as Latin diacritics.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// arabicFolds maps orthographic variants that spell the same word in
// different outlets' house styles.
var arabicFolds = strings.NewReplacer(
	"أ", "ا",
	"إ", "ا",
	"آ", "ا",
	"ى", "ي",
	"ة", "ه",
	"ٱ", "ا",
)

// Fingerprint derives a normalized text signature from a title:
// case-folded, diacritics stripped, Arabic variants folded, punctuation
// removed, whitespace collapsed. Near-duplicate stories from different
// sources normalize to near-identical fingerprints.
func Fingerprint(title string) string {
	return strings.Join(fingerprintTokens(title), " ")
}

func fingerprintTokens(title string) []string {
	s := strings.ToLower(title)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = arabicFolds.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// similarity is the Jaccard index over two token sets.
func similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, tok := range a {
		set[tok] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, tok := range b {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := set[tok]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
