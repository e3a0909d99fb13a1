package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/shared"
	tu "github.com/desertthunder/plsync/internal/testing"
	"github.com/urfave/cli/v3"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func track(id, name string) models.SourceTrack {
	return models.SourceTrack{
		ID:          id,
		Name:        name,
		Artists:     []string{"Artist"},
		Album:       models.SourceAlbum{Name: name + " Album", Artists: []string{"Artist"}},
		TrackNumber: 1,
		Duration:    200,
	}
}

type fixture struct {
	runner *Runner
	output *bytes.Buffer
	source *tu.FakeSource
	target *tu.FakeTarget
	store  *repositories.Store
	config *shared.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "plsync.db")
	config.Sync.NotFoundFile = filepath.Join(dir, "songs not found.txt")
	config.Sync.RateLimit = 1000

	store, err := repositories.OpenStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	source := &tu.FakeSource{
		User:  models.User{ID: "me"},
		Lists: []models.Playlist{{ID: "p1", Name: "Road", OwnerID: "me", TrackCount: 2}},
		Tracks: map[string][]models.SourceTrack{
			"p1": {track("s1", "Alpha"), track("s2", "Charlie")},
		},
		Favorited: []models.SourceTrack{track("s1", "Alpha")},
	}

	target := tu.NewFakeTarget()
	target.TrackResults["Alpha Artist"] = []models.TargetTrack{
		{ID: "t1", Name: "Alpha", Artists: []string{"Artist"}, Duration: 200, Available: true},
	}

	policy := retry.New(shared.NewLogger(io.Discard))
	policy.Sleep = func(context.Context, time.Duration) error { return nil }

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: config,
		Source: source,
		Target: target,
		Store:  store,
		Retry:  policy,
		Logger: shared.NewLogger(io.Discard),
		Output: output,
		RunID:  "0f8fad5b-d9cb-469f-a165-70867728950e",
	})

	return &fixture{runner: runner, output: output, source: source, target: target, store: store, config: config}
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:     "plsync",
		Flags:    globalFlags(),
		Before:   f.runner.Before,
		Commands: f.runner.register(),
		Writer:   io.Discard,
	}
	return app.Run(context.Background(), append([]string{"plsync", "--env", filepath.Join(t.TempDir(), ".env")}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("generates a run id", func(t *testing.T) {
			a := NewRunner(RunnerOpts{})
			b := NewRunner(RunnerOpts{})
			if a.runID == "" || a.runID == b.runID {
				t.Errorf("expected unique run ids, got %q and %q", a.runID, b.runID)
			}
		})

		t.Run("keeps injected dependencies", func(t *testing.T) {
			f := newFixture(t)
			if f.runner.config != f.config {
				t.Error("expected config to be set")
			}
			if f.runner.store != f.store || f.runner.ownsStore {
				t.Error("expected injected store not to be owned")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		runner = NewRunner(RunnerOpts{Output: failingWriter{}})
		if err := runner.writePlain("test"); err == nil || !strings.Contains(err.Error(), "failed to write output") {
			t.Errorf("expected write error, got %v", err)
		}
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()
		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "sync", "playlists", "cache"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("Close leaves injected store open", func(t *testing.T) {
		f := newFixture(t)
		if err := f.runner.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := f.store.Matches().Count(); err != nil {
			t.Errorf("expected store to stay open, got %v", err)
		}
	})
}

func TestRunnerBefore(t *testing.T) {
	t.Run("loads config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := shared.CreateConfigFile(path); err != nil {
			t.Fatalf("failed to create config: %v", err)
		}

		store, err := repositories.OpenStore(":memory:")
		if err != nil {
			t.Fatal(err)
		}
		defer store.Close()

		runner := NewRunner(RunnerOpts{Store: store, Logger: shared.NewLogger(io.Discard), Output: io.Discard})
		app := &cli.Command{Name: "plsync", Flags: globalFlags(), Before: runner.Before, Commands: runner.register()}
		if err := app.Run(context.Background(), []string{"plsync", "--config", path, "--env", filepath.Join(dir, ".env"), "cache", "stats"}); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if runner.config == nil || runner.configPath != path {
			t.Fatalf("expected config loaded from %s", path)
		}
		if runner.config.Sync.MaxConcurrency != 10 {
			t.Errorf("expected max_concurrency 10, got %d", runner.config.Sync.MaxConcurrency)
		}
	})

	t.Run("missing config falls back to defaults and env", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("PLSYNC_DATABASE_PATH", filepath.Join(dir, "env.db"))

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
		config, err := runner.loadConfig(filepath.Join(dir, "missing.toml"))
		if err != nil {
			t.Fatalf("loadConfig failed: %v", err)
		}
		if config.Database.Path != filepath.Join(dir, "env.db") {
			t.Errorf("expected env database path, got %s", config.Database.Path)
		}
	})

	t.Run("invalid config is an error", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte("[sync]\nmax_concurrency = 0\n"), 0644); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
		if _, err := runner.loadConfig(path); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("syncs a playlist and reports missing tracks", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "sync", "--playlist", "spotify:playlist:p1"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		if len(f.target.Created) != 1 || f.target.Created[0].Name != "Road" {
			t.Fatalf("expected Road to be created, got %+v", f.target.Created)
		}
		if got := f.target.ItemIDs(f.target.Created[0].ID); len(got) != 1 || got[0] != "t1" {
			t.Errorf("expected playlist [t1], got %v", got)
		}

		out := f.output.String()
		for _, want := range []string{"Sync Complete", "Road (created)", "Could not find the track s2: Artist - Charlie"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if len(f.target.LikedIDs) != 0 {
			t.Errorf("favorites synced without being asked: %v", f.target.LikedIDs)
		}
		tu.AssertFileExists(t, f.config.Sync.NotFoundFile)
	})

	t.Run("favorites flag", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "sync", "--favorites"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if len(f.target.LikedIDs) != 1 || f.target.LikedIDs[0] != "t1" {
			t.Errorf("expected t1 to be liked, got %v", f.target.LikedIDs)
		}
	})

	t.Run("favorites subcommand", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "sync", "favorites"); err != nil {
			t.Fatalf("sync favorites failed: %v", err)
		}
		if len(f.target.Created) != 0 {
			t.Errorf("expected no playlists to be created, got %+v", f.target.Created)
		}
		if len(f.target.LikedIDs) != 1 {
			t.Errorf("expected one favorite, got %v", f.target.LikedIDs)
		}
	})

	t.Run("refuses to run while locked", func(t *testing.T) {
		f := newFixture(t)
		lock, err := shared.AcquireRunLock(f.config.Database.Path)
		if err != nil {
			t.Fatalf("failed to take lock: %v", err)
		}
		defer lock.Release()

		if err := f.run(t, "sync"); !errors.Is(err, shared.ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}
	})
}

func TestPlaylistsCommand(t *testing.T) {
	t.Run("lists spotify playlists", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "playlists"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "Road") || !strings.Contains(out, "p1") {
			t.Errorf("expected playlist row, got:\n%s", out)
		}
	})

	t.Run("shows mappings", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "playlists", "--mappings"); err != nil {
			t.Fatalf("playlists failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "(new)") {
			t.Errorf("expected unmapped playlist, got:\n%s", out)
		}
	})

	t.Run("rejects unknown service", func(t *testing.T) {
		f := newFixture(t)
		if err := f.run(t, "playlists", "--service", "tidal"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Matches().Insert(models.MatchRecord{SourceID: "s1", TargetID: "t1"}); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Failures().Cache("s2"); err != nil {
		t.Fatal(err)
	}

	t.Run("stats", func(t *testing.T) {
		if err := f.run(t, "cache", "stats"); err != nil {
			t.Fatalf("cache stats failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "matches") || !strings.Contains(out, "not found") {
			t.Errorf("unexpected stats output:\n%s", out)
		}
	})

	t.Run("forget", func(t *testing.T) {
		if err := f.run(t, "cache", "forget", "--id", "s1"); err != nil {
			t.Fatalf("cache forget failed: %v", err)
		}
		if _, ok, _ := f.store.Matches().Get("s1"); ok {
			t.Error("expected s1 to be forgotten")
		}
	})

	t.Run("clear failures", func(t *testing.T) {
		if err := f.run(t, "cache", "clear-failures"); err != nil {
			t.Fatalf("cache clear-failures failed: %v", err)
		}
		if n, _ := f.store.Failures().Count(); n != 0 {
			t.Errorf("expected no failures, got %d", n)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	dir := t.TempDir()
	tu.MustChdir(t, dir)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})
	app := &cli.Command{Name: "plsync", Flags: globalFlags(), Before: runner.Before, Commands: runner.register()}
	if err := app.Run(context.Background(), []string{"plsync", "setup", "database"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "plsync.db"))
	if !strings.Contains(output.String(), "cache database ready") {
		t.Errorf("unexpected output: %s", output.String())
	}
}
