package ctt

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases, strips diacritics and collapses whitespace, so that
// "  EN  TRÁNSITO " and "en transito" compare equal
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Chained transformers carry buffers, so build one per call
	stripAccents := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if stripped, _, err := transform.String(stripAccents, s); err == nil {
		s = stripped
	}

	return strings.Join(strings.Fields(s), " ")
}
