package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Playlists lists the playlists of one service, or the sync mappings.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	if cmd.Bool("mappings") {
		return r.writeMappings(ctx)
	}

	policy := r.retryPolicy()
	var (
		playlists []models.Playlist
		err       error
	)
	switch service := cmd.String("service"); service {
	case "spotify":
		playlists, err = retry.Do(ctx, policy, "source playlists", nil, r.source.Playlists)
	case "youtube", "ytmusic":
		playlists, err = retry.Do(ctx, policy, "target playlists", nil, r.target.Playlists)
	default:
		return fmt.Errorf("%w: invalid service '%s' (must be 'spotify' or 'youtube')", shared.ErrInvalidArgument, service)
	}
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		rows = append(rows, []string{p.ID, p.Name, p.OwnerID, strconv.Itoa(p.TrackCount)})
	}
	r.writePlain("%s\n", renderTable(
		[]string{"ID", "Name", "Owner", "Tracks"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

func (r *Runner) writeMappings(ctx context.Context) error {
	engine, err := r.engine(ctx)
	if err != nil {
		return err
	}
	pairs, err := engine.Mappings(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		target := "(new)"
		if p.Target != nil {
			target = p.Target.ID
		}
		rows = append(rows, []string{p.Source.ID, p.Source.Name, target})
		r.logger.Debug("mapping", "pair", describePair(p))
	}
	r.writePlain("%s\n", renderTable([]string{"Spotify ID", "Name", "YouTube Music ID"}, rows, nil))
	return nil
}

func (r *Runner) retryPolicy() *retry.Policy {
	if r.retry == nil {
		r.retry = retry.New(r.logger)
	}
	return r.retry
}
