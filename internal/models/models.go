package models

import (
	"strings"
	"time"
)

// SourceAlbum is the album a [SourceTrack] belongs to.
type SourceAlbum struct {
	Name    string
	Artists []string
}

// SourceTrack represents a track on the source catalog.
//
// An empty ID means the catalog returned a local or unavailable item; such tracks never match.
type SourceTrack struct {
	ID          string
	Name        string
	Artists     []string
	Album       SourceAlbum
	TrackNumber int     // 1-based position within Album
	Duration    float64 // Duration in seconds
	ISRC        string  // International Standard Recording Code, may be empty
}

// ArtistNames joins the track's artists for display.
func (t SourceTrack) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// HasAlbumArtist reports whether the album carries a usable first artist.
func (t SourceTrack) HasAlbumArtist() bool {
	return len(t.Album.Artists) > 0 && strings.TrimSpace(t.Album.Artists[0]) != ""
}

// TargetTrack represents a track on the target catalog.
type TargetTrack struct {
	ID        string
	Name      string
	Version   string // Subtitle such as "Radio Edit", may be empty
	Artists   []string
	Duration  float64 // Duration in seconds
	ISRC      string
	Available bool
}

// ArtistNames joins the track's artists for display.
func (t TargetTrack) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// TargetAlbum represents an album search result on the target catalog.
//
// NumTracks is the count declared by the catalog; the actual track list may disagree.
type TargetAlbum struct {
	ID        string
	Name      string
	Artists   []string
	NumTracks int
}

// Playlist represents a music playlist from any service
type Playlist struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	TrackCount  int
	Public      bool
}

// User represents the account a catalog session belongs to.
type User struct {
	ID          string
	DisplayName string
}

// MatchRecord binds a source track id to the target track id it resolved to.
type MatchRecord struct {
	SourceID string
	TargetID string
}

// TraceLine is one timestamped decision recorded while searching for a track.
type TraceLine struct {
	At      time.Time
	Level   string
	Message string
}

// Trace is the ordered decision log of one search, keyed by the source track id.
type Trace struct {
	TrackID string
	Lines   []TraceLine
}
