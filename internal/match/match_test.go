package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Maria Dela Cruz", "maria dela cruz"},
		{"  JOHN   smith  ", "john smith"},
		{"O'Brien-Smith, Jr.", "obriensmith jr"},
		{"Ana\tMarie\nLopez", "ana marie lopez"},
		{"José", "josé"},
		{"José", "josé"},
		{"!!!", ""},
		{"", ""},
		{"Table 12", "table 12"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("abc", "abc"))
	assert.Equal(t, 1, Distance("abc", "abd"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 1, Distance("maria dela cruz", "maria delacruz"))
	assert.Equal(t, 4, Distance("", "juan"))
	assert.Equal(t, 1, Distance("josé", "jose"))
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"juan", "juan carlos reyes"},
		{"", "abc"},
		{"flaw", "lawn"},
		{"mañana", "manana"},
	}
	for _, p := range pairs {
		assert.Equal(t, Distance(p[0], p[1]), Distance(p[1], p[0]), "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity(t *testing.T) {
	for _, s := range []string{"", "a", "Maria Dela Cruz", "!!"} {
		assert.Equal(t, 100.0, Similarity(s, s), s)
	}
	assert.Equal(t, 100.0, Similarity("", ""))
	assert.InDelta(t, 93.33, Similarity("Maria Dela Cruz", "maria delacruz"), 0.01)
	assert.Less(t, Similarity("Juan", "Juan Carlos Reyes"), Threshold)
	assert.Equal(t, 0.0, Similarity("", "abc"))
}

func guests(names ...string) []models.Guest {
	out := make([]models.Guest, len(names))
	for i, n := range names {
		out[i] = models.Guest{ID: n, Name: n, AllowedGuests: 1}
	}
	return out
}

func TestFindMatchExact(t *testing.T) {
	list := guests("Robert Williams", "Maria Dela Cruz", "Mary Johnson")
	g, ok := FindMatch("  maria DELA cruz!", list)
	require.True(t, ok)
	assert.Equal(t, "Maria Dela Cruz", g.ID)
}

func TestFindMatchExactIsFirstInOrder(t *testing.T) {
	list := []models.Guest{
		{ID: "first", Name: "John Smith"},
		{ID: "second", Name: "john  smith"},
	}
	g, ok := FindMatch("JOHN SMITH", list)
	require.True(t, ok)
	assert.Equal(t, "first", g.ID)
}

func TestFindMatchExactBeatsEarlierFuzzy(t *testing.T) {
	list := guests("Maria Dela Cruzz", "Maria Dela Cruz")
	g, ok := FindMatch("Maria Dela Cruz", list)
	require.True(t, ok)
	assert.Equal(t, "Maria Dela Cruz", g.ID)
}

func TestFindMatchFuzzy(t *testing.T) {
	list := guests("Maria Dela Cruz")
	g, ok := FindMatch("maria delacruz", list)
	require.True(t, ok)
	assert.Equal(t, "Maria Dela Cruz", g.ID)
}

func TestFindMatchBelowThreshold(t *testing.T) {
	_, ok := FindMatch("Juan", guests("Juan Carlos Reyes"))
	assert.False(t, ok)

	_, ok = FindMatch("", guests("Juan Carlos Reyes"))
	assert.False(t, ok)

	_, ok = FindMatch("anyone", nil)
	assert.False(t, ok)
}

func TestFindMatchPicksBestScore(t *testing.T) {
	// two edits (90%) seen before one edit (95%)
	list := guests("Christophr Robinsn", "Christopher Robinsan")
	g, ok := FindMatch("christopher robinson", list)
	require.True(t, ok)
	assert.Equal(t, "Christopher Robinsan", g.ID)
}

func TestFindMatchTieKeepsEarliest(t *testing.T) {
	list := guests("Christopher Robinsan", "Christopher Robinsen")
	g, ok := FindMatch("christopher robinson", list)
	require.True(t, ok)
	assert.Equal(t, "Christopher Robinsan", g.ID)
}

func TestMatcherThreshold(t *testing.T) {
	list := guests("Maria Dela Cruz")
	_, ok := New(95).FindMatch("maria delacruz", list)
	assert.False(t, ok)

	assert.Equal(t, Threshold, New(0).Threshold)
	assert.Equal(t, Threshold, New(150).Threshold)
}
