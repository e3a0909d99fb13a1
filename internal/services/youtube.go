// YouTube Music implementation of [TargetCatalog]
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
// The proxy handles YouTube Music authentication; the headers file path is sent via X-Auth-File.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

const (
	defaultYTBaseURL = "http://localhost:8080"

	// appendChunkSize bounds the video ids sent in one add-items request.
	appendChunkSize = 100
)

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a song in search results, albums and playlists.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	SetVideoID  string          `json:"setVideoId,omitempty"`
	Title       string          `json:"title"`
	Version     string          `json:"version,omitempty"`
	Artists     []YouTubeArtist `json:"artists"`
	DurationSec float64         `json:"duration_seconds"`
	ISRC        string          `json:"isrc,omitempty"`
	IsAvailable *bool           `json:"isAvailable,omitempty"`
}

// YouTubeAlbum represents an album search result or album page.
type YouTubeAlbum struct {
	BrowseID   string          `json:"browseId"`
	Title      string          `json:"title"`
	Artists    []YouTubeArtist `json:"artists"`
	TrackCount int             `json:"trackCount"`
	Tracks     []YouTubeTrack  `json:"tracks,omitempty"`
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID          string         `json:"id"`
	PlaylistID  string         `json:"playlistId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Privacy     string         `json:"privacy"`
	TrackCount  int            `json:"trackCount"`
	Count       int            `json:"count"`
	Tracks      []YouTubeTrack `json:"tracks,omitempty"`
}

// YouTubeService implements [TargetCatalog] via the proxy.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance. client may be nil.
func NewYouTubeService(cfg shared.YouTubeConfig, client *http.Client) *YouTubeService {
	baseURL := cfg.ProxyURL
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YouTubeService{
		baseURL:    baseURL,
		authFile:   cfg.HeadersPath,
		httpClient: client,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse("youtube music", resp, result)
}

// Search calls GET /api/search?q={query}&filter={albums|songs}.
func (y *YouTubeService) Search(ctx context.Context, query string, kind SearchKind) (*SearchResult, error) {
	q := url.Values{"q": {query}, "filter": {string(kind)}}
	endpoint := "/api/search?" + q.Encode()

	result := &SearchResult{}
	switch kind {
	case SearchAlbums:
		var albums []YouTubeAlbum
		if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &albums); err != nil {
			return nil, err
		}
		for _, a := range albums {
			result.Albums = append(result.Albums, a.toModel())
		}
	case SearchTracks:
		var tracks []YouTubeTrack
		if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &tracks); err != nil {
			return nil, err
		}
		result.Tracks = toTargetTracks(tracks)
	default:
		return nil, fmt.Errorf("%w: search kind %q", shared.ErrInvalidArgument, kind)
	}
	return result, nil
}

// AlbumTracks calls GET /api/albums/{id}.
func (y *YouTubeService) AlbumTracks(ctx context.Context, album models.TargetAlbum) ([]models.TargetTrack, error) {
	var page YouTubeAlbum
	if err := y.doRequest(ctx, http.MethodGet, "/api/albums/"+url.PathEscape(album.ID), nil, &page); err != nil {
		return nil, err
	}
	return toTargetTracks(page.Tracks), nil
}

func (y *YouTubeService) fetchPlaylist(ctx context.Context, playlistID string) (*YouTubePlaylist, error) {
	var p YouTubePlaylist
	if err := y.doRequest(ctx, http.MethodGet, "/api/playlists/"+url.PathEscape(playlistID), nil, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = playlistID
	}
	return &p, nil
}

// PlaylistTracks calls GET /api/playlists/{id} and returns its tracks.
func (y *YouTubeService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.TargetTrack, error) {
	p, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return toTargetTracks(p.Tracks), nil
}

// Playlist calls GET /api/playlists/{id}.
func (y *YouTubeService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	p, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	m := p.toModel()
	return &m, nil
}

// Playlists calls GET /api/library/playlists.
func (y *YouTubeService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var ytPlaylists []YouTubePlaylist
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &ytPlaylists); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(ytPlaylists))
	for i, p := range ytPlaylists {
		playlists[i] = p.toModel()
	}
	return playlists, nil
}

// CreatePlaylist calls POST /api/playlists. New playlists are private.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	req := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{name, description, "PRIVATE"}

	var resp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", req, &resp); err != nil {
		return nil, err
	}
	if resp.PlaylistID == "" {
		return nil, fmt.Errorf("%w: create playlist returned no id", shared.ErrAPIRequest)
	}

	return &models.Playlist{ID: resp.PlaylistID, Name: name, Description: description}, nil
}

// ClearPlaylist removes every item via DELETE /api/playlists/{id}/items.
func (y *YouTubeService) ClearPlaylist(ctx context.Context, playlistID string) error {
	p, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(p.Tracks) == 0 {
		return nil
	}

	type item struct {
		VideoID    string `json:"videoId"`
		SetVideoID string `json:"setVideoId"`
	}
	items := make([]item, len(p.Tracks))
	for i, t := range p.Tracks {
		items[i] = item{t.VideoID, t.SetVideoID}
	}

	body := struct {
		Videos []item `json:"videos"`
	}{items}
	return y.doRequest(ctx, http.MethodDelete, "/api/playlists/"+url.PathEscape(playlistID)+"/items", body, nil)
}

// AppendTracks adds ids in chunks via POST /api/playlists/{id}/items.
func (y *YouTubeService) AppendTracks(ctx context.Context, playlistID string, ids []string) error {
	endpoint := "/api/playlists/" + url.PathEscape(playlistID) + "/items"
	for start := 0; start < len(ids); start += appendChunkSize {
		end := min(start+appendChunkSize, len(ids))
		body := struct {
			VideoIDs   []string `json:"video_ids"`
			Duplicates bool     `json:"duplicates"`
		}{ids[start:end], true}

		if err := y.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return fmt.Errorf("failed to add tracks %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Favorites calls GET /api/library/liked-songs?order={order}.
func (y *YouTubeService) Favorites(ctx context.Context, order FavoritesOrder) ([]models.TargetTrack, error) {
	if order == "" {
		order = ByDateAdded
	}
	var liked YouTubePlaylist
	endpoint := "/api/library/liked-songs?" + url.Values{"order": {string(order)}}.Encode()
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &liked); err != nil {
		return nil, err
	}
	return toTargetTracks(liked.Tracks), nil
}

// AddFavorite calls POST /api/songs/{id}/like.
func (y *YouTubeService) AddFavorite(ctx context.Context, trackID string) error {
	return y.doRequest(ctx, http.MethodPost, "/api/songs/"+url.PathEscape(trackID)+"/like", nil, nil)
}

func (p YouTubePlaylist) toModel() models.Playlist {
	id := p.ID
	if id == "" {
		id = p.PlaylistID
	}
	count := p.TrackCount
	if count == 0 {
		count = p.Count
	}
	return models.Playlist{
		ID:          id,
		Name:        p.Title,
		Description: p.Description,
		TrackCount:  count,
		Public:      p.Privacy == "PUBLIC",
	}
}

func (a YouTubeAlbum) toModel() models.TargetAlbum {
	return models.TargetAlbum{
		ID:        a.BrowseID,
		Name:      a.Title,
		Artists:   ytArtistNames(a.Artists),
		NumTracks: a.TrackCount,
	}
}

func (t YouTubeTrack) toModel() models.TargetTrack {
	return models.TargetTrack{
		ID:        t.VideoID,
		Name:      t.Title,
		Version:   t.Version,
		Artists:   ytArtistNames(t.Artists),
		Duration:  t.DurationSec,
		ISRC:      t.ISRC,
		Available: t.IsAvailable == nil || *t.IsAvailable,
	}
}

func toTargetTracks(tracks []YouTubeTrack) []models.TargetTrack {
	out := make([]models.TargetTrack, len(tracks))
	for i, t := range tracks {
		out[i] = t.toModel()
	}
	return out
}

func ytArtistNames(artists []YouTubeArtist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}
