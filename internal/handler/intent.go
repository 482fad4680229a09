package handler

import (
	"strings"
	"unicode"

	"wedding-rsvp/internal/models"
)

var (
	// affirmations accept on their own
	affirmations = [][]string{
		{"yes"}, {"yep"}, {"yeah"}, {"yup"},
		{"accept"}, {"accepting"}, {"attending"}, {"coming"},
		{"will", "come"}, {"be", "there"}, {"✅"},
	}

	// attendance words only count once negated, as in "can't make it"
	attendance = [][]string{
		{"come"}, {"make", "it"}, {"join"}, {"attend"},
	}

	refusals = map[string]bool{
		"no": true, "nope": true, "decline": true, "declining": true, "declined": true, "❌": true,
	}

	negators = map[string]bool{
		"no": true, "not": true, "cannot": true, "unable": true, "never": true,
		"won't": true, "wont": true, "can't": true, "cant": true,
	}
)

// negationReach is how many words before an attendance phrase a negator
// still applies to, as in "won't be able to come".
const negationReach = 4

// intent reads a free-text RSVP answer. It returns confirmed or declined, or
// "" when the text is no answer. ambiguous is set when the text says both,
// like "yes, no problem"; nothing should be recorded then.
func intent(text string) (status models.GuestStatus, ambiguous bool) {
	words := tokenize(text)

	accepted, declined := false, false
	for _, w := range words {
		if refusals[w] {
			declined = true
		}
	}
	for i := range words {
		for _, phrase := range affirmations {
			if hasPhraseAt(words, i, phrase) {
				if negatedBefore(words, i) {
					declined = true
				} else {
					accepted = true
				}
			}
		}
		for _, phrase := range attendance {
			if hasPhraseAt(words, i, phrase) && negatedBefore(words, i) {
				declined = true
			}
		}
	}

	switch {
	case accepted && declined:
		return "", true
	case accepted:
		return models.StatusConfirmed, false
	case declined:
		return models.StatusDeclined, false
	}
	return "", false
}

// tokenize lower-cases text, folds typographic apostrophes and splits it
// into words. Emoji are words of their own.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	text = strings.NewReplacer("’", "'", "‘", "'", "`", "'").Replace(text)

	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			cur = append(cur, r)
		case unicode.IsSymbol(r):
			flush()
			words = append(words, string(r))
		default:
			flush()
		}
	}
	flush()
	return words
}

func hasPhraseAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for j, p := range phrase {
		if words[i+j] != p {
			return false
		}
	}
	return true
}

// negatedBefore reports a negator shortly before words[i]. "can't wait"
// is excitement, not a refusal.
func negatedBefore(words []string, i int) bool {
	for j := max(0, i-negationReach); j < i; j++ {
		if negators[words[j]] && !(j+1 < len(words) && words[j+1] == "wait") {
			return true
		}
	}
	return false
}
