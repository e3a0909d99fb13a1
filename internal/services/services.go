// package services defines the catalog interfaces the sync engine consumes
//
// Spotify (source), YouTube Music via proxy (target)
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// SourceCatalog is the catalog playlists are read from.
type SourceCatalog interface {
	// CurrentUser returns the account the session belongs to.
	CurrentUser(ctx context.Context) (*models.User, error)

	// Playlists lists every playlist visible to the user, following pagination.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// Playlist retrieves a playlist by ID without its tracks.
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// PlaylistTracks returns the playlist's tracks in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error)

	// Favorites returns the user's saved tracks, newest first.
	Favorites(ctx context.Context) ([]models.SourceTrack, error)

	Name() string
}

// SearchKind selects what [TargetCatalog.Search] looks for.
type SearchKind string

const (
	SearchAlbums SearchKind = "albums"
	SearchTracks SearchKind = "songs"
)

// SearchResult holds candidates in the order the catalog ranked them.
// Only the slice matching the requested kind is populated.
type SearchResult struct {
	Albums []models.TargetAlbum
	Tracks []models.TargetTrack
}

// FavoritesOrder controls the order of [TargetCatalog.Favorites].
type FavoritesOrder string

const (
	ByDateAdded FavoritesOrder = "recently_added"
	ByTitle     FavoritesOrder = "a_to_z"
)

// TargetCatalog is the catalog playlists are written to.
type TargetCatalog interface {
	Search(ctx context.Context, query string, kind SearchKind) (*SearchResult, error)

	// AlbumTracks fetches the album's track list in album order.
	AlbumTracks(ctx context.Context, album models.TargetAlbum) ([]models.TargetTrack, error)

	PlaylistTracks(ctx context.Context, playlistID string) ([]models.TargetTrack, error)
	Playlists(ctx context.Context) ([]models.Playlist, error)
	Playlist(ctx context.Context, playlistID string) (*models.Playlist, error)
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// ClearPlaylist removes every item from the playlist.
	ClearPlaylist(ctx context.Context, playlistID string) error

	// AppendTracks adds ids to the end of the playlist, in order, in chunks.
	AppendTracks(ctx context.Context, playlistID string, ids []string) error

	Favorites(ctx context.Context, order FavoritesOrder) ([]models.TargetTrack, error)
	AddFavorite(ctx context.Context, trackID string) error

	Name() string
}

// APIError is a non-2xx response from a catalog.
//
// It matches [shared.ErrAPIRequest] with [errors.Is], plus [shared.ErrRateLimited] for 429s,
// [shared.ErrNotFound] for 404s and [shared.ErrNotAuthenticated] for 401s and 403s.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	if e.StatusCode == http.StatusTooManyRequests {
		errs = append(errs, shared.ErrRateLimited)
	}
	if e.StatusCode == http.StatusNotFound {
		errs = append(errs, shared.ErrNotFound)
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		errs = append(errs, shared.ErrNotAuthenticated)
	}
	if e.StatusCode >= 500 {
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	return errs
}

// IsNotFound reports whether err is a 404 from a catalog.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}

const maxErrorBody = 4 << 10

// decodeResponse turns a non-2xx response into an [APIError] and otherwise decodes the JSON body into result.
func decodeResponse(service string, resp *http.Response, result any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		var detail struct {
			Detail string `json:"detail"`
			Error  struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := string(body)
		if json.Unmarshal(body, &detail) == nil {
			switch {
			case detail.Detail != "":
				msg = detail.Detail
			case detail.Error.Message != "":
				msg = detail.Error.Message
			}
		}
		return &APIError{Service: service, StatusCode: resp.StatusCode, Body: msg}
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
