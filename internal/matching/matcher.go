package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/desertthunder/plsync/internal/models"
)

const (
	DefaultDurationTolerance = 2.0 // seconds
	DefaultAlbumThreshold    = 0.6
)

// exclusionMarkers denote recordings that must never match their plain counterpart.
var exclusionMarkers = []string{"instrumental", "acapella", "remix"}

// Tracer receives one human-readable line per matching decision.
type Tracer interface {
	Tracef(format string, args ...any)
}

func tracef(tr Tracer, format string, args ...any) {
	if tr != nil {
		tr.Tracef(format, args...)
	}
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// Options tunes the combined and album checks. Zero values fall back to the defaults.
type Options struct {
	DurationTolerance float64 // Maximum duration difference in seconds (exclusive)
	AlbumThreshold    float64 // Minimum album name similarity ratio (inclusive)
}

// Matcher decides whether target catalog items denote the same recording as source catalog items.
//
// A Matcher holds no mutable state and is safe for concurrent use.
type Matcher struct {
	opts Options
}

// New creates a Matcher with the given options.
func New(opts Options) *Matcher {
	if opts.DurationTolerance <= 0 {
		opts.DurationTolerance = DefaultDurationTolerance
	}
	if opts.AlbumThreshold <= 0 {
		opts.AlbumThreshold = DefaultAlbumThreshold
	}
	return &Matcher{opts: opts}
}

// Options returns the effective options.
func (m *Matcher) Options() Options {
	return m.opts
}

// Match reports whether target is the same recording as source.
func (m *Matcher) Match(target models.TargetTrack, source models.SourceTrack, tr Tracer) bool {
	if source.ID == "" {
		tracef(tr, "No source track ID - skipping match")
		return false
	}

	if m.ISRCMatch(target, source) {
		tracef(tr, "✓ ISRC MATCH: %s by %s", target.Name, target.ArtistNames())
		return true
	}
	tracef(tr, "✗ ISRC no match: target ISRC=%s, source ISRC=%s", orNone(target.ISRC), orNone(source.ISRC))

	durationOK := m.DurationMatch(target, source)
	nameOK := m.NameMatch(target, source)
	artistOK := ArtistsOverlap(target.Artists, source.Artists)

	tracef(tr, "Duration match: %s (target: %.3fs, source: %.3fs)", mark(durationOK), target.Duration, source.Duration)
	tracef(tr, "Name match: %s (target: '%s', source: '%s')", mark(nameOK), target.Name, source.Name)
	tracef(tr, "Artist match: %s (target: %s, source: %s)", mark(artistOK), target.ArtistNames(), source.ArtistNames())

	if durationOK && nameOK && artistOK {
		tracef(tr, "✓ COMBINED MATCH: %s by %s", target.Name, target.ArtistNames())
		return true
	}
	tracef(tr, "✗ Combined criteria failed")
	return false
}

// ISRCMatch reports whether both tracks carry the same non-empty ISRC.
func (m *Matcher) ISRCMatch(target models.TargetTrack, source models.SourceTrack) bool {
	return source.ISRC != "" && target.ISRC == source.ISRC
}

// DurationMatch reports whether the durations differ by strictly less than the tolerance.
func (m *Matcher) DurationMatch(target models.TargetTrack, source models.SourceTrack) bool {
	return math.Abs(target.Duration-source.Duration) < m.opts.DurationTolerance
}

// NameMatch applies the exclusion markers and then checks that the simplified source name
// is contained in the target name, raw or folded.
func (m *Matcher) NameMatch(target models.TargetTrack, source models.SourceTrack) bool {
	for _, marker := range exclusionMarkers {
		if excluded(marker, target, source) {
			return false
		}
	}

	sourceName := stripFeaturing(Simplify(strings.ToLower(source.Name)))
	targetName := strings.ToLower(target.Name)
	if strings.Contains(targetName, sourceName) {
		return true
	}
	return strings.Contains(Fold(targetName), Fold(sourceName))
}

// excluded reports whether exactly one side carries marker.
func excluded(marker string, target models.TargetTrack, source models.SourceTrack) bool {
	sourceHas := strings.Contains(strings.ToLower(source.Name), marker)
	targetHas := strings.Contains(strings.ToLower(target.Name), marker) ||
		(target.Version != "" && strings.Contains(strings.ToLower(target.Version), marker))
	return sourceHas != targetHas
}

// AlbumSimilar reports whether target is plausibly the source track's album.
func (m *Matcher) AlbumSimilar(target models.TargetAlbum, source models.SourceAlbum, tr Tracer) bool {
	sourceName, targetName := Simplify(source.Name), Simplify(target.Name)
	ratio := Ratio(sourceName, targetName)
	artistOK := ArtistsOverlap(target.Artists, source.Artists)
	ok := ratio >= m.opts.AlbumThreshold && artistOK

	tracef(tr, "📀 Album similarity: name_ratio=%.3f (threshold=%s, edits=%d), artist_match=%t → %s",
		ratio, formatThreshold(m.opts.AlbumThreshold), EditDistance(sourceName, targetName), artistOK, mark(ok))
	return ok
}

func formatThreshold(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
