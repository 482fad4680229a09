// Package match resolves free-text names typed by visitors to guest records.
//
// Names are compared after Normalize, first exactly and then by Levenshtein
// similarity. Matching is a convenience for guests, not an identity check:
// two similarly named guests can collide and have to be sorted out by hand.
package match

import (
	"strings"
	"unicode"

	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"wedding-rsvp/internal/models"
)

const (
	// Threshold is the default minimum similarity accepted by the fuzzy pass
	Threshold = 90.0
	// MinQueryLength is the shortest trimmed query worth searching for
	MinQueryLength = 3
)

var distanceOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: func(a, b rune) bool { return a == b },
}

// Normalize lower-cases raw, drops everything but letters, digits and
// whitespace, and collapses whitespace runs to single spaces.
func Normalize(raw string) string {
	lowered := cases.Lower(language.Und).String(norm.NFC.String(raw))
	kept := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, lowered)
	return strings.Join(strings.Fields(kept), " ")
}

// Distance is the Levenshtein edit distance between a and b, counted in runes
func Distance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(a), []rune(b), distanceOptions)
}

// Similarity scores a and b in [0,100] after normalizing both
func Similarity(a, b string) float64 {
	return similarity(Normalize(a), Normalize(b))
}

func similarity(na, nb string) float64 {
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	if maxLen == 0 {
		return 100
	}
	d := Distance(na, nb)
	return 100 * float64(maxLen-d) / float64(maxLen)
}

// Matcher finds guests by name
type Matcher struct {
	Threshold float64
}

// New returns a matcher using threshold, or the default when threshold is not
// in (0,100].
func New(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = Threshold
	}
	return &Matcher{Threshold: threshold}
}

// FindMatch returns the guest whose name best matches query. An exact
// normalized match wins outright; otherwise the highest similarity at or
// above the threshold wins, and ties keep the earlier guest.
func (m *Matcher) FindMatch(query string, guests []models.Guest) (models.Guest, bool) {
	q := Normalize(query)

	names := make([]string, len(guests))
	for i, g := range guests {
		names[i] = Normalize(g.Name)
		if names[i] == q {
			return guests[i], true
		}
	}

	best, bestScore := -1, 0.0
	for i := range guests {
		score := similarity(q, names[i])
		if score >= m.Threshold && score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return models.Guest{}, false
	}
	return guests[best], true
}

// FindMatch matches with the default threshold
func FindMatch(query string, guests []models.Guest) (models.Guest, bool) {
	return New(Threshold).FindMatch(query, guests)
}
