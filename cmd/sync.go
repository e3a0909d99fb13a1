package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/desertthunder/plsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// Sync runs a playlist sync, followed by a favorites sync when requested.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.RunOptions{
		PlaylistID: cmd.String("playlist"),
		Favorites:  r.cfg().Sync.SyncFavoritesDefault,
	}
	if cmd.IsSet("favorites") {
		opts.Favorites = cmd.Bool("favorites")
	}
	if cmd.Bool("all") {
		r.cfg().Sync.Playlists = nil
	}
	return r.run(ctx, opts)
}

// SyncFavorites syncs liked songs only.
func (r *Runner) SyncFavorites(ctx context.Context, cmd *cli.Command) error {
	return r.run(ctx, tasks.RunOptions{SkipLists: true})
}

func (r *Runner) run(ctx context.Context, opts tasks.RunOptions) error {
	lock, err := shared.AcquireRunLock(r.cfg().Database.Path)
	if err != nil {
		return err
	}
	defer lock.Release()

	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("starting sync", "playlist", opts.PlaylistID, "favorites", opts.Favorites || opts.SkipLists)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writeProgress(update)
		}
	}()

	result, err := engine.Run(ctx, opts, progressCh)
	close(progressCh)
	<-done

	if result != nil {
		r.writeSummary(result)
	}
	return err
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchSource, tasks.FetchTarget:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.CreatePlaylist:
		r.writePlain("📝 %s\n", update.Message)
	case tasks.SearchTracks:
		if update.Step == 0 {
			r.writePlain("\n🔍 %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.ReconcilePlaylist:
		r.writePlain("✏️  %s\n", update.Message)
	case tasks.AddFavorites:
		r.writePlain("   %s\n", update.Message)
	}
}

func (r *Runner) writeSummary(result *tasks.RunResult) {
	if len(result.Playlists) == 0 && result.Favorites == nil {
		return
	}

	r.writePlain("\n")
	r.writePlainHeader(ui.Styles.Title("Sync Complete"))
	for _, p := range result.Playlists {
		name := p.Source.Name
		if p.Created {
			name += " (created)"
		}
		r.writePlain("%s: %d tracks, %d searched, %d found, %s\n",
			name, p.Total, p.Searched, p.Found, p.Plan.Kind)
		if len(p.Duplicates) > 0 {
			r.writePlain("%s\n", ui.Styles.Warn("  %d duplicate matches dropped", len(p.Duplicates)))
		}
	}
	if f := result.Favorites; f != nil {
		r.writePlain("Favorites: %d tracks, %d searched, %d added\n", f.Total, f.Searched, len(f.Added))
	}

	r.writeNotFound(result.NotFound())
}

func (r *Runner) writeNotFound(tracks []models.SourceTrack) {
	if len(tracks) == 0 {
		r.writePlain("%s\n", ui.Styles.OK("✓ every track was found"))
		return
	}

	r.writePlainln("Could not find %d tracks:", len(tracks))
	for _, t := range tracks {
		r.writePlain("%s\n", ui.Styles.Err("Could not find the track %s", formatter.NotFoundLine(t)))
	}
	if path := r.cfg().Sync.NotFoundFile; path != "" {
		r.writePlain("%s\n", ui.Styles.Help("appended to %s", path))
	}
}

// describePair renders a mapping for listings.
func describePair(p tasks.PlaylistPair) string {
	if p.Target == nil {
		return fmt.Sprintf("%s → (new playlist)", p.Source.Name)
	}
	return fmt.Sprintf("%s → %s", p.Source.Name, p.Target.ID)
}
