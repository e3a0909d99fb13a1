package tasks

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/matching"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/ratelimit"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/sync/errgroup"
)

// MatchStore is the match relation consumed by the engine.
// [repositories.MatchRepository] implements it.
type MatchStore interface {
	Get(sourceID string) (string, bool, error)
	Insert(m models.MatchRecord) error
}

// FailureStore is the failure set consumed by the engine.
// [repositories.FailureRepository] implements it.
type FailureStore interface {
	Has(sourceID string) (bool, error)
	Cache(sourceID string) error
	Remove(sourceID string) error
}

// Limiter gates catalog searches.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// SearcherConfig wires a [Searcher].
type SearcherConfig struct {
	Target   services.TargetCatalog
	Matcher  *matching.Matcher
	Matches  MatchStore
	Failures FailureStore
	Retry    *retry.Policy
	Logger   *log.Logger

	Concurrency int     // max_concurrency
	Rate        float64 // rate_limit, searches per second
	Clock       ratelimit.Clock

	Diagnostics bool
	TraceFile   string
	RunID       string
}

// Searcher resolves source tracks to target tracks with a two-phase search.
type Searcher struct {
	cfg    SearcherConfig
	logger *log.Logger
}

// NewSearcher creates a Searcher. Missing matcher, retry policy and logger get defaults.
func NewSearcher(cfg SearcherConfig) *Searcher {
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}
	if cfg.Matcher == nil {
		cfg.Matcher = matching.New(matching.Options{})
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.New(cfg.Logger)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 10
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	return &Searcher{cfg: cfg, logger: cfg.Logger}
}

// SearchOutcome is the result for one searched track.
type SearchOutcome struct {
	Track  models.SourceTrack
	Target *models.TargetTrack // nil when not found
}

// SearchReport summarizes a batch.
type SearchReport struct {
	Total    int // tracks handed to the batch
	Searched int // tracks that needed a search
	Outcomes []SearchOutcome
	NotFound []models.SourceTrack
	Traces   []models.Trace
}

// Found returns the number of tracks resolved by the batch.
func (r *SearchReport) Found() int {
	return r.Searched - len(r.NotFound)
}

// Pending returns the tracks with an id and neither a cached match nor a cached failure.
func (s *Searcher) Pending(tracks []models.SourceTrack) ([]models.SourceTrack, error) {
	var pending []models.SourceTrack
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, ok, err := s.cfg.Matches.Get(t.ID); err != nil {
			return nil, err
		} else if ok {
			continue
		}
		if failed, err := s.cfg.Failures.Has(t.ID); err != nil {
			return nil, err
		} else if failed {
			continue
		}
		pending = append(pending, t)
	}
	return pending, nil
}

// SearchAll searches every pending track concurrently and updates the caches.
//
// Results are recombined by index. The limiter's refill loop runs only for the batch.
// A retry exhaustion cancels the remaining searches and is returned.
func (s *Searcher) SearchAll(ctx context.Context, name string, tracks []models.SourceTrack, progress chan<- ProgressUpdate) (*SearchReport, error) {
	pending, err := s.Pending(tracks)
	if err != nil {
		return nil, err
	}

	report := &SearchReport{Total: len(tracks), Searched: len(pending)}
	if len(pending) == 0 {
		return report, nil
	}

	s.logger.Info("searching", "playlist", name, "pending", len(pending), "total", len(tracks))
	sendProgress(progress, searchStartUpdate(len(pending), len(tracks), name))

	bucket := ratelimit.NewBucket(s.cfg.Concurrency, s.cfg.Rate, s.cfg.Clock)
	if err := bucket.Start(); err != nil {
		return nil, err
	}

	traces := NewTraceStore(nil)
	outcomes := make([]SearchOutcome, len(pending))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, track := range pending {
		g.Go(func() error {
			target, err := s.SearchTrack(gctx, bucket, track, traces.For(track.ID))
			if err != nil {
				return err
			}
			outcomes[i] = SearchOutcome{Track: track, Target: target}
			sendProgress(progress, searchTrackUpdate(int(done.Add(1)), len(pending), track, target != nil))
			return nil
		})
	}
	err = g.Wait()
	bucket.Stop()

	report.Traces = traces.Traces()
	if s.cfg.Diagnostics && s.cfg.TraceFile != "" {
		if werr := formatter.AppendTraces(s.cfg.TraceFile, s.cfg.RunID, time.Now(), report.Traces); werr != nil {
			s.logger.Warn("failed to write search traces", "file", s.cfg.TraceFile, "err", werr)
		}
	}
	if err != nil {
		return report, err
	}

	report.Outcomes = outcomes
	for _, o := range outcomes {
		if o.Target == nil {
			report.NotFound = append(report.NotFound, o.Track)
		}
	}
	return report, nil
}

// SearchTrack runs the two-phase search for one track inside the retry policy and records the result.
//
// It returns nil without error when no target matched.
func (s *Searcher) SearchTrack(ctx context.Context, limiter Limiter, track models.SourceTrack, tr *TrackTracer) (*models.TargetTrack, error) {
	tr.Tracef("🚀 STARTING TRACK SEARCH: '%s' by %s", track.Name, track.ArtistNames())

	target, err := retry.Do(ctx, s.cfg.Retry, "search", []any{track.ID, track.Name}, func(ctx context.Context) (*models.TargetTrack, error) {
		return s.search(ctx, limiter, track, tr)
	})
	if err != nil {
		tr.Logf(LevelError, "💥 TRACK SEARCH FAILED WITH EXCEPTION: %v", err)
		return nil, err
	}

	if target == nil {
		tr.Logf(LevelWarning, "❌ TRACK SEARCH COMPLETED - NOT FOUND")
		if err := s.cfg.Failures.Cache(track.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	tr.Logf(LevelSuccess, "✅ TRACK SEARCH COMPLETED - FOUND: '%s' by %s", target.Name, target.ArtistNames())
	if err := s.cfg.Matches.Insert(models.MatchRecord{SourceID: track.ID, TargetID: target.ID}); err != nil {
		return nil, err
	}
	if err := s.cfg.Failures.Remove(track.ID); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *Searcher) search(ctx context.Context, limiter Limiter, track models.SourceTrack, tr *TrackTracer) (*models.TargetTrack, error) {
	tr.Tracef("🔍 Starting search for: '%s' by %s", track.Name, track.ArtistNames())

	if err := limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	found, err := s.searchAlbum(ctx, track, tr)
	if err != nil {
		return nil, err
	}
	if found != nil {
		tr.Tracef("🎉 Found via album search: '%s'", found.Name)
		return found, nil
	}

	if err := limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	found, err = s.searchStandalone(ctx, track, tr)
	if err != nil {
		return nil, err
	}
	if found != nil {
		tr.Tracef("🎉 Found via standalone search: '%s'", found.Name)
	}
	return found, nil
}

// searchAlbum looks the track up by position on albums similar to the source album.
func (s *Searcher) searchAlbum(ctx context.Context, track models.SourceTrack, tr *TrackTracer) (*models.TargetTrack, error) {
	if !track.HasAlbumArtist() {
		return nil, nil
	}

	query := AlbumQuery(track)
	tr.Tracef("📀 Album search query: '%s'", query)

	result, err := s.cfg.Target.Search(ctx, query, services.SearchAlbums)
	if err != nil {
		return nil, err
	}
	tr.Tracef("📀 Found %d albums", len(result.Albums))

	for i, album := range result.Albums {
		tr.Tracef("📀 Checking album %d/%d: '%s' by %s", i+1, len(result.Albums), album.Name, strings.Join(album.Artists, ", "))

		if track.TrackNumber < 1 || album.NumTracks < track.TrackNumber || !s.cfg.Matcher.AlbumSimilar(album, track.Album, tr) {
			tr.Tracef("📀 Album similarity failed or insufficient tracks")
			continue
		}

		tr.Tracef("📀 Album similarity passed, getting tracks (track #%d)", track.TrackNumber)
		tracks, err := s.cfg.Target.AlbumTracks(ctx, album)
		if err != nil {
			return nil, err
		}
		if len(tracks) < track.TrackNumber {
			tr.Tracef("📀 Album has insufficient tracks (%d < %d)", len(tracks), track.TrackNumber)
			continue
		}

		candidate := tracks[track.TrackNumber-1]
		tr.Tracef("📀 Testing track from album: '%s' by %s", candidate.Name, candidate.ArtistNames())
		if s.cfg.Matcher.Match(candidate, track, tr) {
			return &candidate, nil
		}
	}
	return nil, nil
}

// searchStandalone accepts the first search hit that matches.
func (s *Searcher) searchStandalone(ctx context.Context, track models.SourceTrack, tr *TrackTracer) (*models.TargetTrack, error) {
	query := TrackQuery(track)
	tr.Tracef("🎵 Standalone search query: '%s'", query)

	result, err := s.cfg.Target.Search(ctx, query, services.SearchTracks)
	if err != nil {
		return nil, err
	}
	tr.Tracef("🎵 Found %d tracks", len(result.Tracks))

	for i, candidate := range result.Tracks {
		tr.Tracef("🎵 Testing track %d/%d: '%s' by %s", i+1, len(result.Tracks), candidate.Name, candidate.ArtistNames())
		if s.cfg.Matcher.Match(candidate, track, tr) {
			return &candidate, nil
		}
	}
	return nil, nil
}

// AlbumQuery is the album-phase query: simplified album name and first album artist.
func AlbumQuery(t models.SourceTrack) string {
	return joinQuery(matching.Simplify(t.Album.Name), firstSimplified(t.Album.Artists))
}

// TrackQuery is the standalone query: simplified track name and first artist.
func TrackQuery(t models.SourceTrack) string {
	return joinQuery(matching.Simplify(t.Name), firstSimplified(t.Artists))
}

func firstSimplified(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return matching.Simplify(names[0])
}

func joinQuery(parts ...string) string {
	return strings.TrimSpace(strings.Join(parts, " "))
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	var exhausted *retry.ExhaustedError
	return errors.As(err, &exhausted)
}
