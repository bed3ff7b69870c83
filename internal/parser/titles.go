package parser

import (
	"slices"
	"strings"

	"github.com/nao1215/homeowners/internal/model"
)

// titleTable maps a lowercased title token to its canonical form.
// It is never written after initialization.
var titleTable = map[string]model.Title{
	"mr":       model.TitleMr,
	"mrs":      model.TitleMrs,
	"ms":       model.TitleMs,
	"miss":     model.TitleMiss,
	"dr":       model.TitleDr,
	"prof":     model.TitleProf,
	"mister":   model.TitleMr,
	"mistress": model.TitleMrs,
}

// conjunctions separate the people in a single name string.
var conjunctions = map[string]struct{}{
	"and": {},
	"&":   {},
}

// NormalizeTitle returns the canonical title for token, matched
// case-insensitively. The second result is false for unknown titles.
func NormalizeTitle(token string) (model.Title, bool) {
	title, ok := titleTable[strings.ToLower(token)]
	return title, ok
}

// Titles returns the distinct canonical titles, sorted.
func Titles() []model.Title {
	titles := make([]model.Title, 0, len(titleTable))
	for _, t := range titleTable {
		if !slices.Contains(titles, t) {
			titles = append(titles, t)
		}
	}
	slices.Sort(titles)
	return titles
}

// TitleAliases returns the accepted title tokens (lowercased), sorted.
func TitleAliases() []string {
	aliases := make([]string, 0, len(titleTable))
	for alias := range titleTable {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	return aliases
}

// isConjunction reports whether token joins two people.
func isConjunction(token string) bool {
	_, ok := conjunctions[strings.ToLower(token)]
	return ok
}
