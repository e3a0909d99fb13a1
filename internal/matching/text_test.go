package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimplify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Song", "Song"},
		{"Song - 2011 Remaster", "Song"},
		{"Song (Live at Wembley)", "Song"},
		{"Song [Deluxe Edition]", "Song"},
		{"  Song (Live) - Edit [Bonus] ", "Song"},
		{"Song [Bonus] (Live)", "Song"},
		{"-", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "Beyonce", Fold("Beyoncé"))
	assert.Equal(t, "Sigur Ros", Fold("Sigur Rós"))
	assert.Equal(t, "Motorhead", Fold("Motörhead"))
	assert.Equal(t, "plain ascii", Fold("plain ascii"))
	assert.Equal(t, "", Fold("東京"))
}

func TestSplitArtist(t *testing.T) {
	assert.Equal(t, []string{"A ", " B"}, splitArtist("A & B"))
	assert.Equal(t, []string{"A", " B"}, splitArtist("A, B"))
	assert.Equal(t, []string{"A ", " B, C"}, splitArtist("A & B, C"), "only one delimiter per string")
	assert.Equal(t, []string{"Solo"}, splitArtist("Solo"))
}

func TestArtistsOverlap(t *testing.T) {
	tests := []struct {
		name   string
		target []string
		source []string
		want   bool
	}{
		{"exact", []string{"Daft Punk"}, []string{"Daft Punk"}, true},
		{"case insensitive", []string{"DAFT PUNK"}, []string{"daft punk"}, true},
		{"split ampersand", []string{"Simon & Garfunkel"}, []string{"Garfunkel"}, true},
		{"split comma", []string{"Calvin Harris, Rihanna"}, []string{"Rihanna"}, true},
		{"any of many", []string{"X", "Y"}, []string{"Z", "Y"}, true},
		{"folded", []string{"Beyonce"}, []string{"Beyoncé"}, true},
		{"simplified token", []string{"Artist (US)"}, []string{"Artist"}, true},
		{"disjoint", []string{"Muse"}, []string{"Blur"}, false},
		{"empty tokens never match", []string{"-"}, []string{"("}, false},
		{"trailing delimiter leaves no shared empty token", []string{"A &"}, []string{"B &"}, false},
		{"trailing comma leaves no shared empty token", []string{"A,"}, []string{"B,"}, false},
		{"empty lists", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ArtistsOverlap(tt.target, tt.source))
		})
	}
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 1.0, Ratio("", ""), 1e-9)
	assert.InDelta(t, 1.0, Ratio("Discovery", "Discovery"), 1e-9)
	assert.InDelta(t, 0.0, Ratio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 0.75, Ratio("abcd", "bcde"), 1e-9)
	assert.Less(t, Ratio("Discovery", "discovery"), 1.0, "ratio is case sensitive")
	assert.GreaterOrEqual(t, Ratio("Random Access Memories", "Random Access Memories Deluxe"), 0.6)
	assert.InDelta(t, 0.0, Ratio("", "abc"), 1e-9)

	// Longest matching blocks, not the longest common subsequence: once "Remastered"
	// is matched, the leftover "Greatest" and "Hits " on opposite sides cannot pair up.
	assert.InDelta(t, 26.0/45.0, Ratio("Remastered Greatest", "Hits Remastered Remastered"), 1e-9)
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, EditDistance("Discovery", "Discovery"))
	assert.Equal(t, 1, EditDistance("Discovery", "Discovary"))
	assert.Equal(t, 3, EditDistance("", "abc"))
}
