package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/matching"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/ratelimit"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
)

// SyncEngine defines the sync operations exposed to the CLI.
type SyncEngine interface {
	// Mappings resolves which source playlists sync into which target playlists.
	Mappings(ctx context.Context) ([]PlaylistPair, error)

	// SyncPlaylist brings one target playlist in line with its source.
	SyncPlaylist(ctx context.Context, pair PlaylistPair, progress chan<- ProgressUpdate) (*PlaylistSyncResult, error)

	// SyncFavorites adds matched source favorites to the target favorites.
	SyncFavorites(ctx context.Context, progress chan<- ProgressUpdate) (*FavoritesSyncResult, error)

	// Run syncs every mapped playlist in order and optionally favorites.
	Run(ctx context.Context, opts RunOptions, progress chan<- ProgressUpdate) (*RunResult, error)
}

// PlaylistPair maps a source playlist to its target. A nil Target means it will be created.
type PlaylistPair struct {
	Source models.Playlist
	Target *models.Playlist
}

// PlaylistSyncResult reports one playlist sync.
type PlaylistSyncResult struct {
	Source     models.Playlist
	Target     *models.Playlist
	Created    bool
	Total      int // usable source tracks
	Paired     int // pairs recovered from the existing target playlist
	Searched   int
	Found      int
	NotFound   []models.SourceTrack
	Duplicates []Duplicate
	Plan       Plan
}

// FavoritesSyncResult reports a favorites sync.
type FavoritesSyncResult struct {
	Total    int
	Paired   int
	Searched int
	Found    int
	Added    []string
	NotFound []models.SourceTrack
}

// RunOptions selects what [PlaylistEngine.Run] syncs.
type RunOptions struct {
	PlaylistID string // sync only this source playlist when set
	Favorites  bool
	SkipLists  bool // favorites only
}

// RunResult collects the results of a run.
type RunResult struct {
	Playlists []*PlaylistSyncResult
	Favorites *FavoritesSyncResult
}

// NotFound returns every unresolved track of the run.
func (r *RunResult) NotFound() []models.SourceTrack {
	var out []models.SourceTrack
	for _, p := range r.Playlists {
		out = append(out, p.NotFound...)
	}
	if r.Favorites != nil {
		out = append(out, r.Favorites.NotFound...)
	}
	return out
}

// EngineConfig wires a [PlaylistEngine].
type EngineConfig struct {
	Source   services.SourceCatalog
	Target   services.TargetCatalog
	Matches  MatchStore
	Failures FailureStore
	Retry    *retry.Policy
	Logger   *log.Logger
	Clock    ratelimit.Clock
	RunID    string

	Sync shared.SyncConfig
}

// PlaylistEngine implements SyncEngine against a source and a target catalog.
type PlaylistEngine struct {
	source   services.SourceCatalog
	target   services.TargetCatalog
	matches  MatchStore
	matcher  *matching.Matcher
	searcher *Searcher
	retry    *retry.Policy
	logger   *log.Logger
	cfg      shared.SyncConfig
}

// NewPlaylistEngine creates a PlaylistEngine.
func NewPlaylistEngine(cfg EngineConfig) *PlaylistEngine {
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.New(cfg.Logger)
	}

	matcher := matching.New(matching.Options{
		DurationTolerance: cfg.Sync.DurationTolerance,
		AlbumThreshold:    cfg.Sync.AlbumThreshold,
	})

	searcher := NewSearcher(SearcherConfig{
		Target:      cfg.Target,
		Matcher:     matcher,
		Matches:     cfg.Matches,
		Failures:    cfg.Failures,
		Retry:       cfg.Retry,
		Logger:      cfg.Logger,
		Concurrency: cfg.Sync.MaxConcurrency,
		Rate:        cfg.Sync.RateLimit,
		Clock:       cfg.Clock,
		Diagnostics: cfg.Sync.Diagnostics,
		TraceFile:   cfg.Sync.TraceFile,
		RunID:       cfg.RunID,
	})

	return &PlaylistEngine{
		source:   cfg.Source,
		target:   cfg.Target,
		matches:  cfg.Matches,
		matcher:  matcher,
		searcher: searcher,
		retry:    cfg.Retry,
		logger:   cfg.Logger,
		cfg:      cfg.Sync,
	}
}

// Mappings returns the configured playlist pairs, or every owned source playlist
// paired by exact name with an existing target playlist.
func (e *PlaylistEngine) Mappings(ctx context.Context) ([]PlaylistPair, error) {
	if len(e.cfg.Playlists) > 0 {
		return e.configuredMappings(ctx)
	}

	user, err := retry.Do(ctx, e.retry, "current user", nil, e.source.CurrentUser)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	sources, err := retry.Do(ctx, e.retry, "source playlists", nil, e.source.Playlists)
	if err != nil {
		return nil, fmt.Errorf("failed to list source playlists: %w", err)
	}
	targets, err := retry.Do(ctx, e.retry, "target playlists", nil, e.target.Playlists)
	if err != nil {
		return nil, fmt.Errorf("failed to list target playlists: %w", err)
	}

	excluded := make(map[string]struct{}, len(e.cfg.ExcludedPlaylists))
	for _, id := range e.cfg.ExcludedPlaylists {
		excluded[PlaylistID(id)] = struct{}{}
	}

	byName := make(map[string]models.Playlist, len(targets))
	for _, t := range targets {
		if _, ok := byName[t.Name]; !ok {
			byName[t.Name] = t
		}
	}

	var pairs []PlaylistPair
	for _, p := range sources {
		if p.OwnerID != user.ID {
			continue
		}
		if _, skip := excluded[p.ID]; skip {
			e.logger.Debug("skipping excluded playlist", "id", p.ID, "name", p.Name)
			continue
		}
		pair := PlaylistPair{Source: p}
		if t, ok := byName[p.Name]; ok {
			pair.Target = &t
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func (e *PlaylistEngine) configuredMappings(ctx context.Context) ([]PlaylistPair, error) {
	pairs := make([]PlaylistPair, 0, len(e.cfg.Playlists))
	for _, m := range e.cfg.Playlists {
		pair, err := e.pairFor(ctx, PlaylistID(m.SourceID), m.TargetID)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, *pair)
	}
	return pairs, nil
}

// Pair builds the mapping for a single source playlist. The target is the configured one
// when the playlist is listed in the config, else a target playlist with the same name.
func (e *PlaylistEngine) Pair(ctx context.Context, sourceID string) (*PlaylistPair, error) {
	sourceID = PlaylistID(sourceID)
	for _, m := range e.cfg.Playlists {
		if PlaylistID(m.SourceID) == sourceID {
			return e.pairFor(ctx, sourceID, m.TargetID)
		}
	}

	pair, err := e.pairFor(ctx, sourceID, "")
	if err != nil {
		return nil, err
	}
	targets, err := retry.Do(ctx, e.retry, "target playlists", nil, e.target.Playlists)
	if err != nil {
		return nil, fmt.Errorf("failed to list target playlists: %w", err)
	}
	for _, t := range targets {
		if t.Name == pair.Source.Name {
			pair.Target = &t
			break
		}
	}
	return pair, nil
}

func (e *PlaylistEngine) pairFor(ctx context.Context, sourceID, targetID string) (*PlaylistPair, error) {
	source, err := retry.Do(ctx, e.retry, "source playlist", []any{sourceID}, func(ctx context.Context) (*models.Playlist, error) {
		return e.source.Playlist(ctx, sourceID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: source %s: %w", shared.ErrPlaylistNotFound, sourceID, err)
	}

	pair := &PlaylistPair{Source: *source}
	if targetID == "" {
		return pair, nil
	}

	target, err := retry.Do(ctx, e.retry, "target playlist", []any{targetID}, func(ctx context.Context) (*models.Playlist, error) {
		return e.target.Playlist(ctx, targetID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: target %s: %w", shared.ErrPlaylistNotFound, targetID, err)
	}
	pair.Target = target
	return pair, nil
}

// SyncPlaylist fetches both sides, recovers pairs from the existing target, searches the rest
// and applies the smallest update to the target playlist.
func (e *PlaylistEngine) SyncPlaylist(ctx context.Context, pair PlaylistPair, progress chan<- ProgressUpdate) (*PlaylistSyncResult, error) {
	logger := shared.WithLogger(e.logger, "playlist", pair.Source.Name)
	result := &PlaylistSyncResult{Source: pair.Source, Target: pair.Target}

	sendProgress(progress, fetchSourceUpdate(pair.Source.Name))
	fetched, err := retry.Do(ctx, e.retry, "source playlist tracks", []any{pair.Source.ID}, func(ctx context.Context) ([]models.SourceTrack, error) {
		return e.source.PlaylistTracks(ctx, pair.Source.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source tracks: %w", err)
	}
	sources := UsableTracks(fetched)
	result.Total = len(sources)
	if len(sources) == 0 {
		logger.Info("source playlist has no usable tracks")
		return result, nil
	}

	var current []models.TargetTrack
	if pair.Target == nil {
		logger.Info("no target playlist found, creating one")
		created, err := retry.Do(ctx, e.retry, "create playlist", []any{pair.Source.Name}, func(ctx context.Context) (*models.Playlist, error) {
			return e.target.CreatePlaylist(ctx, pair.Source.Name, pair.Source.Description)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create target playlist: %w", err)
		}
		result.Target = created
		result.Created = true
		sendProgress(progress, createPlaylistUpdate(created))
	} else {
		sendProgress(progress, fetchTargetUpdate(pair.Target.Name))
		current, err = retry.Do(ctx, e.retry, "target playlist tracks", []any{pair.Target.ID}, func(ctx context.Context) ([]models.TargetTrack, error) {
			return e.target.PlaylistTracks(ctx, pair.Target.ID)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch target tracks: %w", err)
		}
	}

	result.Paired, err = Populate(e.matches, e.matcher, sources, current)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, populateUpdate(result.Paired, len(current)))

	report, err := e.searcher.SearchAll(ctx, pair.Source.Name, sources, progress)
	if err != nil {
		return nil, err
	}
	result.Searched = report.Searched
	result.Found = report.Found()
	result.NotFound = report.NotFound
	e.reportNotFound(logger, report.NotFound)

	desired, dups, err := DesiredIDs(sources, e.matches)
	if err != nil {
		return nil, err
	}
	result.Duplicates = dups
	for _, d := range dups {
		logger.Info("duplicate match dropped", "track", d.Track.ID, "name", d.Track.Name, "target", d.TargetID)
	}

	result.Plan = Reconcile(desired, TrackIDs(current))
	sendProgress(progress, reconcileUpdate(result.Plan))
	logger.Info(result.Plan.String(), "plan", result.Plan.Kind)
	if err := Apply(ctx, e.target, e.retry, result.Target.ID, result.Plan); err != nil {
		return nil, fmt.Errorf("failed to update target playlist: %w", err)
	}
	return result, nil
}

// SyncFavorites adds matched source favorites, oldest first, that the target does not already favorite.
func (e *PlaylistEngine) SyncFavorites(ctx context.Context, progress chan<- ProgressUpdate) (*FavoritesSyncResult, error) {
	logger := shared.WithLogger(e.logger, "playlist", "favorites")

	sendProgress(progress, fetchSourceUpdate("favorites"))
	fetched, err := retry.Do(ctx, e.retry, "source favorites", nil, e.source.Favorites)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source favorites: %w", err)
	}
	sources := UsableTracks(fetched)
	slices.Reverse(sources)

	sendProgress(progress, fetchTargetUpdate("favorites"))
	current, err := retry.Do(ctx, e.retry, "target favorites", nil, func(ctx context.Context) ([]models.TargetTrack, error) {
		return e.target.Favorites(ctx, services.ByDateAdded)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch target favorites: %w", err)
	}

	result := &FavoritesSyncResult{Total: len(sources)}
	result.Paired, err = Populate(e.matches, e.matcher, sources, current)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, populateUpdate(result.Paired, len(current)))

	report, err := e.searcher.SearchAll(ctx, "Favorites", sources, progress)
	if err != nil {
		return nil, err
	}
	result.Searched = report.Searched
	result.Found = report.Found()
	result.NotFound = report.NotFound
	e.reportNotFound(logger, report.NotFound)

	have := make(map[string]struct{}, len(current))
	for _, t := range current {
		have[t.ID] = struct{}{}
	}
	var pending []string
	for _, t := range sources {
		id, ok, err := e.matches.Get(t.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, dup := have[id]; dup {
			continue
		}
		have[id] = struct{}{}
		pending = append(pending, id)
	}

	if len(pending) == 0 {
		logger.Info("no new tracks to add to favorites")
		return result, nil
	}
	for i, id := range pending {
		if err := retry.Run(ctx, e.retry, "add favorite", []any{id}, func(ctx context.Context) error {
			return e.target.AddFavorite(ctx, id)
		}); err != nil {
			return result, fmt.Errorf("failed to add favorite %s: %w", id, err)
		}
		result.Added = append(result.Added, id)
		sendProgress(progress, favoriteUpdate(i+1, len(pending), id))
	}
	logger.Info("added favorites", "count", len(result.Added))
	return result, nil
}

// Run syncs the selected playlists one after another, then favorites when asked.
// It stops at the first error.
func (e *PlaylistEngine) Run(ctx context.Context, opts RunOptions, progress chan<- ProgressUpdate) (*RunResult, error) {
	result := &RunResult{}

	if !opts.SkipLists {
		var pairs []PlaylistPair
		if opts.PlaylistID != "" {
			pair, err := e.Pair(ctx, opts.PlaylistID)
			if err != nil {
				return result, err
			}
			pairs = []PlaylistPair{*pair}
		} else {
			var err error
			if pairs, err = e.Mappings(ctx); err != nil {
				return result, err
			}
		}

		for _, pair := range pairs {
			e.logger.Info("syncing playlist", "source", pair.Source.Name, "id", pair.Source.ID)
			res, err := e.SyncPlaylist(ctx, pair, progress)
			if err != nil {
				return result, fmt.Errorf("playlist %q: %w", pair.Source.Name, err)
			}
			result.Playlists = append(result.Playlists, res)
		}
	}

	if opts.Favorites || opts.SkipLists {
		fav, err := e.SyncFavorites(ctx, progress)
		if err != nil {
			return result, fmt.Errorf("favorites: %w", err)
		}
		result.Favorites = fav
	}
	return result, nil
}

func (e *PlaylistEngine) reportNotFound(logger *log.Logger, tracks []models.SourceTrack) {
	for _, t := range tracks {
		logger.Info("could not find track", "track", formatter.NotFoundLine(t))
	}
	if e.cfg.NotFoundFile == "" {
		return
	}
	if err := formatter.AppendNotFound(e.cfg.NotFoundFile, tracks); err != nil {
		logger.Warn("failed to write not found report", "file", e.cfg.NotFoundFile, "err", err)
	}
}

// UsableTracks drops source records that cannot enter matching: no id or no album artist.
func UsableTracks(tracks []models.SourceTrack) []models.SourceTrack {
	out := make([]models.SourceTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || !t.HasAlbumArtist() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// PlaylistID strips a "spotify:playlist:" style URI prefix.
func PlaylistID(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// IsNotFound reports whether err came from a missing playlist.
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrPlaylistNotFound) || services.IsNotFound(err)
}
