package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/desertthunder/plsync/internal/shared"
)

func newTestSpotify(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewSpotifyService(context.Background(), shared.SpotifyConfig{AccessToken: "token"}, server.Client())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc.WithBaseURL(server.URL)
}

func spotifyTrackJSON(id any, name string, number int) map[string]any {
	return map[string]any{
		"id":           id,
		"type":         "track",
		"name":         name,
		"artists":      []map[string]any{{"name": "Artist"}},
		"album":        map[string]any{"name": "Album", "artists": []map[string]any{{"name": "Artist"}}},
		"track_number": number,
		"duration_ms":  215500,
		"external_ids": map[string]any{"isrc": "USRC1" + strconv.Itoa(number)},
	}
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("requires a token", func(t *testing.T) {
			_, err := NewSpotifyService(context.Background(), shared.SpotifyConfig{ClientID: "id"}, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("name", func(t *testing.T) {
			svc, err := NewSpotifyService(context.Background(), shared.SpotifyConfig{AccessToken: "t"}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if svc.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", svc.Name())
			}
		})
	})

	t.Run("sends bearer token", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer token" {
				t.Errorf("expected bearer token, got %q", got)
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "user1", "display_name": "User"})
		})

		user, err := svc.CurrentUser(context.Background())
		if err != nil {
			t.Fatalf("CurrentUser failed: %v", err)
		}
		if user.ID != "user1" || user.DisplayName != "User" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("Playlists paginates", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

			page := map[string]any{"next": nil}
			if offset == 0 {
				next := "more"
				page["next"] = next
				page["items"] = []map[string]any{{"id": "p1", "name": "One", "owner": map[string]any{"id": "user1"}, "tracks": map[string]any{"total": 3}}}
			} else {
				page["items"] = []map[string]any{{"id": "p2", "name": "Two", "owner": map[string]any{"id": "other"}}}
			}
			json.NewEncoder(w).Encode(page)
		})

		playlists, err := svc.Playlists(context.Background())
		if err != nil {
			t.Fatalf("Playlists failed: %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].OwnerID != "user1" || playlists[0].TrackCount != 3 {
			t.Errorf("unexpected first playlist %+v", playlists[0])
		}
	})

	t.Run("PlaylistTracks maps and filters", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/p1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("limit") != "100" {
				t.Errorf("expected limit 100, got %s", r.URL.Query().Get("limit"))
			}
			episode := spotifyTrackJSON("ep1", "Episode", 1)
			episode["type"] = "episode"

			json.NewEncoder(w).Encode(map[string]any{
				"next": nil,
				"items": []map[string]any{
					{"track": spotifyTrackJSON("t1", "First", 1)},
					{"track": nil},
					{"track": episode},
					{"track": spotifyTrackJSON(nil, "Local File", 2)},
				},
			})
		})

		tracks, err := svc.PlaylistTracks(context.Background(), "p1")
		if err != nil {
			t.Fatalf("PlaylistTracks failed: %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		first := tracks[0]
		if first.ID != "t1" || first.Duration != 215.5 || first.TrackNumber != 1 || first.ISRC != "USRC11" {
			t.Errorf("unexpected mapping %+v", first)
		}
		if first.Album.Name != "Album" || !first.HasAlbumArtist() {
			t.Errorf("album not mapped: %+v", first.Album)
		}
		if tracks[1].ID != "" {
			t.Errorf("local file should have empty id, got %q", tracks[1].ID)
		}
	})

	t.Run("Favorites", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{{"track": spotifyTrackJSON("new", "Newest", 1)}, {"track": spotifyTrackJSON("old", "Oldest", 2)}},
			})
		})

		tracks, err := svc.Favorites(context.Background())
		if err != nil {
			t.Fatalf("Favorites failed: %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != "new" {
			t.Errorf("unexpected favorites %+v", tracks)
		}
	})

	t.Run("errors", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			check  func(error) bool
		}{
			{"rate limited", http.StatusTooManyRequests, func(err error) bool { return errors.Is(err, shared.ErrRateLimited) }},
			{"not found", http.StatusNotFound, IsNotFound},
			{"unauthorized", http.StatusUnauthorized, func(err error) bool { return errors.Is(err, shared.ErrNotAuthenticated) }},
			{"server error", http.StatusBadGateway, func(err error) bool { return errors.Is(err, shared.ErrServiceUnavailable) }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					fmt.Fprintf(w, `{"error":{"status":%d,"message":"nope"}}`, tt.status)
				})

				_, err := svc.Playlist(context.Background(), "p1")
				if !tt.check(err) || !errors.Is(err, shared.ErrAPIRequest) {
					t.Errorf("unexpected error %v", err)
				}

				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Body != "nope" {
					t.Errorf("expected APIError with message, got %v", err)
				}
			})
		}
	})
}
