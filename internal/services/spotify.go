// Spotify Web API implementation of [SourceCatalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPageSize      = 50
	spotifyTrackPageSize = 100
)

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []spotifyArtist `json:"artists"`
	TotalTracks int             `json:"total_tracks"`
}

// SpotifyTrack represents a Spotify track object. ID is null for local files.
type SpotifyTrack struct {
	ID          *string         `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Artists     []spotifyArtist `json:"artists"`
	Album       *spotifyAlbum   `json:"album"`
	TrackNumber int             `json:"track_number"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylist represents a simplified playlist object.
type SpotifyPlaylist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       spotifyOwner `json:"owner"`
	Public      bool         `json:"public"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type spotifyPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

type spotifyTrackItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyService implements [SourceCatalog] against the Spotify Web API.
//
// Uses [oauth2] with the access and refresh tokens from config; expired tokens are refreshed by the client.
type SpotifyService struct {
	baseURL    string
	config     *oauth2.Config
	httpClient *http.Client
}

// NewSpotifyService creates a Spotify client. base carries the shared middleware chain and may be nil.
func NewSpotifyService(ctx context.Context, cfg shared.SpotifyConfig, base *http.Client) (*SpotifyService, error) {
	if cfg.AccessToken == "" && cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify access_token or refresh_token", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes: []string{
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL},
	}

	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	token := &oauth2.Token{AccessToken: cfg.AccessToken, RefreshToken: cfg.RefreshToken}

	return &SpotifyService{
		baseURL:    spotifyBaseURL,
		config:     config,
		httpClient: config.Client(ctx, token),
	}, nil
}

// WithBaseURL points the service at a different API root.
func (s *SpotifyService) WithBaseURL(u string) *SpotifyService {
	s.baseURL = u
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

func (s *SpotifyService) get(ctx context.Context, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse("spotify", resp, result)
}

// paginate follows limit/offset pages until next is null.
func paginate[T any](ctx context.Context, s *SpotifyService, endpoint string, limit int) ([]T, error) {
	var all []T
	for offset := 0; ; offset += limit {
		q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}

		var page spotifyPage[T]
		if err := s.get(ctx, endpoint+"?"+q.Encode(), &page); err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		if page.Next == nil || len(page.Items) == 0 {
			return all, nil
		}
	}
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*models.User, error) {
	var user spotifyOwner
	if err := s.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &models.User{ID: user.ID, DisplayName: user.DisplayName}, nil
}

// Playlists retrieves all of the current user's playlists.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	items, err := paginate[SpotifyPlaylist](ctx, s, "/me/playlists", spotifyPageSize)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(items))
	for i, p := range items {
		playlists[i] = p.toModel()
	}
	return playlists, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var sp SpotifyPlaylist
	if err := s.get(ctx, "/playlists/"+url.PathEscape(playlistID), &sp); err != nil {
		return nil, err
	}
	p := sp.toModel()
	return &p, nil
}

// PlaylistTracks retrieves every track of a playlist. Episodes and removed items are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.SourceTrack, error) {
	items, err := paginate[spotifyTrackItem](ctx, s, "/playlists/"+url.PathEscape(playlistID)+"/tracks", spotifyTrackPageSize)
	if err != nil {
		return nil, err
	}
	return toSourceTracks(items), nil
}

// Favorites retrieves the user's saved tracks, newest first.
func (s *SpotifyService) Favorites(ctx context.Context) ([]models.SourceTrack, error) {
	items, err := paginate[spotifyTrackItem](ctx, s, "/me/tracks", spotifyPageSize)
	if err != nil {
		return nil, err
	}
	return toSourceTracks(items), nil
}

func (p SpotifyPlaylist) toModel() models.Playlist {
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.Owner.ID,
		TrackCount:  p.Tracks.Total,
		Public:      p.Public,
	}
}

func toSourceTracks(items []spotifyTrackItem) []models.SourceTrack {
	tracks := make([]models.SourceTrack, 0, len(items))
	for _, item := range items {
		if item.Track == nil || (item.Track.Type != "" && item.Track.Type != "track") {
			continue
		}
		tracks = append(tracks, item.Track.toModel())
	}
	return tracks
}

func (t SpotifyTrack) toModel() models.SourceTrack {
	track := models.SourceTrack{
		Name:        t.Name,
		Artists:     artistNames(t.Artists),
		TrackNumber: t.TrackNumber,
		Duration:    float64(t.DurationMS) / 1000,
		ISRC:        t.ExternalIDs.ISRC,
	}
	if t.ID != nil {
		track.ID = *t.ID
	}
	if t.Album != nil {
		track.Album = models.SourceAlbum{Name: t.Album.Name, Artists: artistNames(t.Album.Artists)}
	}
	return track
}

func artistNames(artists []spotifyArtist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}
