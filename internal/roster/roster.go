// Package roster keeps a guest's companion slots in step with the headcount
// the invitation allows.
package roster

import (
	"strings"

	"wedding-rsvp/internal/models"
)

// Slots is the number of companions an allowance admits: the primary guest
// takes one seat.
func Slots(allowedGuests int) int {
	return max(0, allowedGuests-1)
}

// Sync returns a new list of exactly Slots(allowedGuests) companions. Entries
// past the end are dropped, missing ones are added blank, and entries at
// retained indices are copied unchanged.
func Sync(allowedGuests int, current []models.Companion) []models.Companion {
	n := Slots(allowedGuests)
	out := make([]models.Companion, n)
	copy(out, current)
	return out
}

// Missing counts companions whose name is blank after trimming
func Missing(companions []models.Companion) int {
	missing := 0
	for _, c := range companions {
		if strings.TrimSpace(c.Name) == "" {
			missing++
		}
	}
	return missing
}

// Trim returns companions with surrounding whitespace removed from each field
func Trim(companions []models.Companion) []models.Companion {
	out := make([]models.Companion, len(companions))
	for i, c := range companions {
		out[i] = models.Companion{
			Name:         strings.TrimSpace(c.Name),
			Relationship: strings.TrimSpace(c.Relationship),
		}
	}
	return out
}
