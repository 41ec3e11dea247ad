package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeTerm trims and lower-cases a search term.
func NormalizeTerm(term string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(term))
}

// Filter returns the products whose title, subtitle or description contains
// term, case-insensitively. An empty term returns a copy of the full list.
// The input slice is never modified and order is preserved.
func Filter(products []Product, term string) []Product {
	out := make([]Product, 0, len(products))
	t := NormalizeTerm(term)
	if t == "" {
		return append(out, products...)
	}

	lower := cases.Lower(language.Und)
	for _, p := range products {
		if matches(lower, p, t) {
			out = append(out, p)
		}
	}
	return out
}

func matches(lower cases.Caser, p Product, term string) bool {
	for _, field := range [...]string{p.Title, p.Subtitle, p.Description} {
		if field != "" && strings.Contains(lower.String(field), term) {
			return true
		}
	}
	return false
}
