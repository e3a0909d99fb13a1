package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached matches and failures.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	store, err := r.openStore()
	if err != nil {
		return err
	}

	matches, err := store.Matches().Count()
	if err != nil {
		return fmt.Errorf("failed to count matches: %w", err)
	}
	failures, err := store.Failures().Count()
	if err != nil {
		return fmt.Errorf("failed to count failures: %w", err)
	}

	r.writePlain("%s\n", renderTable(
		[]string{"Cache", "Entries"},
		[][]string{{"matches", strconv.Itoa(matches)}, {"not found", strconv.Itoa(failures)}},
		[]columnAlignment{alignLeft, alignRight},
	))
	r.writePlain("%s\n", ui.Styles.Help("database: %s", r.cfg().Database.Path))
	return nil
}

// CacheForget drops everything cached for one source track so the next sync searches it again.
func (r *Runner) CacheForget(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("id")
	if id == "" {
		return fmt.Errorf("%w: --id", shared.ErrMissingArgument)
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	if err := store.Matches().Delete(id); err != nil {
		return fmt.Errorf("failed to forget match: %w", err)
	}
	if err := store.Failures().Remove(id); err != nil {
		return fmt.Errorf("failed to forget failure: %w", err)
	}

	r.logger.Info("forgot track", "id", id)
	r.writePlain("%s\n", ui.Styles.OK("✓ forgot %s", id))
	return nil
}

// CacheClearFailures empties the failure set.
func (r *Runner) CacheClearFailures(ctx context.Context, cmd *cli.Command) error {
	lock, err := shared.AcquireRunLock(r.cfg().Database.Path)
	if err != nil {
		return err
	}
	defer lock.Release()

	store, err := r.openStore()
	if err != nil {
		return err
	}

	n, err := store.Failures().Clear()
	if err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}

	r.logger.Info("cleared failures", "count", n)
	r.writePlain("%s\n", ui.Styles.OK("✓ cleared %d not found tracks", n))
	return nil
}
