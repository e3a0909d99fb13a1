package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Catalog services and the cache store are created on first use so commands that need
// neither (setup, help) work without credentials.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceCatalog
	target     services.TargetCatalog
	store      *repositories.Store
	ownsStore  bool
	httpClient *http.Client
	retry      *retry.Policy
	logger     *log.Logger
	output     io.Writer
	runID      string
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceCatalog
	Target     services.TargetCatalog
	Store      *repositories.Store
	HTTPClient *http.Client
	Retry      *retry.Policy
	Logger     *log.Logger
	Output     io.Writer
	RunID      string
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.RunID == "" {
		opts.RunID = shared.GenerateID()
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		target:     opts.Target,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		retry:      opts.Retry,
		logger:     shared.WithLogger(opts.Logger, "run", opts.RunID[:min(8, len(opts.RunID))]),
		output:     opts.Output,
		runID:      opts.RunID,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, playlistsCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags: log level, .env file and configuration.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	shared.SetLogLevel(r.logger, shared.LevelFromFlags(cmd.Bool("verbose"), cmd.Bool("debug")))

	if err := shared.LoadDotEnv(cmd.String("env")); err != nil {
		return ctx, err
	}
	if cmd.IsSet("config") || r.configPath == "" {
		r.configPath = cmd.String("config")
	}
	if r.config != nil {
		return ctx, nil
	}

	config, err := r.loadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// loadConfig reads path, falling back to the defaults and environment when the file is missing.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config, err := shared.LoadConfig(path)
	if err == nil {
		r.logger.Debug("loaded config", "path", path)
		return config, nil
	}
	if !errors.Is(err, shared.ErrMissingConfig) {
		return nil, err
	}

	r.logger.Warn("config file not found, using defaults", "path", path)
	config = shared.DefaultConfig()
	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// openStore opens the cache database named in the config unless one was injected.
func (r *Runner) openStore() (*repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db := r.cfg().Database
	store, err := repositories.OpenStore(db.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	shared.ConfigureDatabase(store.DB(), db.MaxOpenConns, db.MaxIdleConns)

	r.store = store
	r.ownsStore = true
	return store, nil
}

// connect creates the catalog services that were not injected.
func (r *Runner) connect(ctx context.Context) error {
	if r.httpClient == nil {
		r.httpClient = shared.NewHTTPClient(r.cfg().HTTP, r.logger)
	}

	if r.source == nil {
		svc, err := services.NewSpotifyService(ctx, r.cfg().Credentials.Spotify, r.httpClient)
		if err != nil {
			return err
		}
		r.source = svc
	}
	if r.target == nil {
		if r.cfg().Credentials.YouTube.ProxyURL == "" {
			return fmt.Errorf("%w: youtube proxy_url", shared.ErrMissingCredentials)
		}
		r.target = services.NewYouTubeService(r.cfg().Credentials.YouTube, r.httpClient)
	}
	return nil
}

// engine wires a sync engine over the services and cache store.
func (r *Runner) engine(ctx context.Context) (*tasks.PlaylistEngine, error) {
	if err := r.connect(ctx); err != nil {
		return nil, err
	}
	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	return tasks.NewPlaylistEngine(tasks.EngineConfig{
		Source:   r.source,
		Target:   r.target,
		Matches:  store.Matches(),
		Failures: store.Failures(),
		Retry:    r.retryPolicy(),
		Logger:   r.logger,
		RunID:    r.runID,
		Sync:     r.cfg().Sync,
	}), nil
}

// Close releases the cache store when the runner opened it.
func (r *Runner) Close() error {
	if r.store == nil || !r.ownsStore {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
