package textutil

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes diacritical marks and drops any rune left outside
// the ASCII range, so "Oveŕsizé" compares equal to "Oversize" after case
// folding. The transformer chain is built per call; chained transformers
// carry internal state and are not safe for concurrent reuse.
func StripDiacritics(s string) string {
	stripper := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
	out, _, err := transform.String(stripper, s)
	if err != nil {
		return s
	}
	return out
}
