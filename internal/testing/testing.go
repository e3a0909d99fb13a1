// package testing contains shared testing utilities
package testing

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// FakeSource is an in-memory [services.SourceCatalog].
type FakeSource struct {
	User      models.User
	Lists     []models.Playlist
	Tracks    map[string][]models.SourceTrack
	Favorited []models.SourceTrack // newest first
}

func (f *FakeSource) Name() string { return "fake source" }

func (f *FakeSource) CurrentUser(context.Context) (*models.User, error) {
	u := f.User
	return &u, nil
}

func (f *FakeSource) Playlists(context.Context) ([]models.Playlist, error) {
	return slices.Clone(f.Lists), nil
}

func (f *FakeSource) Playlist(_ context.Context, id string) (*models.Playlist, error) {
	for _, p := range f.Lists {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &services.APIError{Service: "fake", StatusCode: 404}
}

func (f *FakeSource) PlaylistTracks(_ context.Context, id string) ([]models.SourceTrack, error) {
	return slices.Clone(f.Tracks[id]), nil
}

func (f *FakeSource) Favorites(context.Context) ([]models.SourceTrack, error) {
	return slices.Clone(f.Favorited), nil
}

// FakeTarget is an in-memory [services.TargetCatalog] that records every call.
// It is safe for concurrent use.
type FakeTarget struct {
	mu sync.Mutex

	AlbumResults map[string][]models.TargetAlbum // keyed by query
	TrackResults map[string][]models.TargetTrack // keyed by query
	Albums       map[string][]models.TargetTrack // album id -> tracks
	Lists        []models.Playlist
	Items        map[string][]models.TargetTrack // playlist id -> tracks
	Liked        []models.TargetTrack

	// SearchErr, when set, is consulted before every search.
	SearchErr func(query string, kind services.SearchKind) error

	Searches []string
	Cleared  []string
	Appended map[string][][]string
	Created  []models.Playlist
	LikedIDs []string
	nextID   int
}

// NewFakeTarget returns an empty FakeTarget.
func NewFakeTarget() *FakeTarget {
	return &FakeTarget{
		AlbumResults: map[string][]models.TargetAlbum{},
		TrackResults: map[string][]models.TargetTrack{},
		Albums:       map[string][]models.TargetTrack{},
		Items:        map[string][]models.TargetTrack{},
		Appended:     map[string][][]string{},
	}
}

func (f *FakeTarget) Name() string { return "fake target" }

func (f *FakeTarget) Search(_ context.Context, query string, kind services.SearchKind) (*services.SearchResult, error) {
	f.mu.Lock()
	f.Searches = append(f.Searches, string(kind)+":"+query)
	hook := f.SearchErr
	f.mu.Unlock()

	if hook != nil {
		if err := hook(query, kind); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == services.SearchAlbums {
		return &services.SearchResult{Albums: slices.Clone(f.AlbumResults[query])}, nil
	}
	return &services.SearchResult{Tracks: slices.Clone(f.TrackResults[query])}, nil
}

// SearchCount returns how many searches were issued.
func (f *FakeTarget) SearchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Searches)
}

func (f *FakeTarget) AlbumTracks(_ context.Context, album models.TargetAlbum) ([]models.TargetTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Albums[album.ID]), nil
}

func (f *FakeTarget) PlaylistTracks(_ context.Context, id string) ([]models.TargetTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Items[id]), nil
}

func (f *FakeTarget) Playlists(context.Context) ([]models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Lists), nil
}

func (f *FakeTarget) Playlist(_ context.Context, id string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Lists {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &services.APIError{Service: "fake", StatusCode: 404}
}

func (f *FakeTarget) CreatePlaylist(_ context.Context, name, description string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := models.Playlist{ID: fmt.Sprintf("PL%d", f.nextID), Name: name, Description: description}
	f.Lists = append(f.Lists, p)
	f.Created = append(f.Created, p)
	return &p, nil
}

func (f *FakeTarget) ClearPlaylist(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Cleared = append(f.Cleared, id)
	f.Items[id] = nil
	return nil
}

func (f *FakeTarget) AppendTracks(_ context.Context, id string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Appended[id] = append(f.Appended[id], slices.Clone(ids))
	for _, v := range ids {
		f.Items[id] = append(f.Items[id], models.TargetTrack{ID: v, Available: true})
	}
	return nil
}

func (f *FakeTarget) Favorites(context.Context, services.FavoritesOrder) ([]models.TargetTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Liked), nil
}

func (f *FakeTarget) AddFavorite(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LikedIDs = append(f.LikedIDs, id)
	f.Liked = append(f.Liked, models.TargetTrack{ID: id, Available: true})
	return nil
}

// ItemIDs returns the ids currently in a playlist.
func (f *FakeTarget) ItemIDs(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.Items[id]))
	for i, t := range f.Items[id] {
		ids[i] = t.ID
	}
	return ids
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
