package matching

import (
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var dmp = diffmatchpatch.New()

// Simplify keeps the part of a title before any hyphen, parenthesis or bracket.
//
// "Song - 2011 Remaster" and "Song (Live) [Deluxe]" both become "Song".
func Simplify(s string) string {
	for _, sep := range []string{"-", "(", "["} {
		if i := strings.Index(s, sep); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// Fold decomposes s (NFD) and drops every rune outside ASCII, so "Beyoncé" becomes "Beyonce".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// stripFeaturing drops a trailing "feat." clause from an already lower-cased name.
func stripFeaturing(s string) string {
	if i := strings.Index(s, "feat."); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// splitArtist splits a credit like "A & B" or "A, B" into individual names.
// Only one delimiter is used per string and '&' wins.
func splitArtist(artist string) []string {
	switch {
	case strings.Contains(artist, "&"):
		return strings.Split(artist, "&")
	case strings.Contains(artist, ","):
		return strings.Split(artist, ",")
	default:
		return []string{artist}
	}
}

// artistSet builds the set of simplified, lower-cased artist tokens.
func artistSet(artists []string, fold bool) map[string]struct{} {
	set := make(map[string]struct{}, len(artists))
	for _, artist := range artists {
		if fold {
			artist = Fold(artist)
		}
		for _, part := range splitArtist(artist) {
			token := Simplify(strings.ToLower(strings.TrimSpace(part)))
			// "A &" must not overlap "B &" through the empty token.
			if token == "" {
				continue
			}
			set[token] = struct{}{}
		}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// ArtistsOverlap reports whether the two credit lists share at least one artist,
// comparing raw tokens first and diacritic-folded tokens second.
func ArtistsOverlap(target, source []string) bool {
	if intersects(artistSet(target, false), artistSet(source, false)) {
		return true
	}
	return intersects(artistSet(target, true), artistSet(source, true))
}

// Ratio returns a similarity score in [0, 1] computed as 2*M/T, where M is the number of
// runes in the longest matching blocks between a and b and T the total rune count.
//
// Two empty strings are identical and score 1.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// EditDistance returns the rune level Levenshtein distance between a and b.
func EditDistance(a, b string) int {
	return dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
}
