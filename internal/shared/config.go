package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Sync        SyncConfig        `toml:"sync"`
	HTTP        HTTPConfig        `toml:"http"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials. Tokens are issued out of band.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
	RefreshToken string `toml:"refresh_token"`
}

// YouTubeConfig points at the ytmusicapi proxy.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig tunes matching, search throttling and diagnostics.
type SyncConfig struct {
	MaxConcurrency       int           `toml:"max_concurrency"`
	RateLimit            float64       `toml:"rate_limit"`
	Diagnostics          bool          `toml:"diagnostics"`
	DurationTolerance    float64       `toml:"duration_tolerance"`
	AlbumThreshold       float64       `toml:"album_threshold"`
	TraceFile            string        `toml:"trace_file"`
	NotFoundFile         string        `toml:"not_found_file"`
	SyncFavoritesDefault bool          `toml:"sync_favorites_default"`
	ExcludedPlaylists    []string      `toml:"excluded_playlists"`
	Playlists            []PlaylistMap `toml:"playlists"`
}

// PlaylistMap pairs a source playlist with an existing target playlist.
type PlaylistMap struct {
	SourceID string `toml:"source_id"`
	TargetID string `toml:"target_id"`
}

// HTTPConfig configures the shared provider HTTP client.
type HTTPConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	UserAgent         string  `toml:"user_agent"`
}

// LoadConfig reads a TOML configuration file on top of the embedded defaults,
// applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadDotEnv loads a .env file into the process environment if one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides credentials from PLSYNC_* environment variables.
func (c *Config) ApplyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PLSYNC_SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"PLSYNC_SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"PLSYNC_SPOTIFY_ACCESS_TOKEN", &c.Credentials.Spotify.AccessToken},
		{"PLSYNC_SPOTIFY_REFRESH_TOKEN", &c.Credentials.Spotify.RefreshToken},
		{"PLSYNC_YOUTUBE_PROXY_URL", &c.Credentials.YouTube.ProxyURL},
		{"PLSYNC_YOUTUBE_HEADERS_PATH", &c.Credentials.YouTube.HeadersPath},
		{"PLSYNC_DATABASE_PATH", &c.Database.Path},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
}

// Validate checks the sync tuning values.
func (c *Config) Validate() error {
	switch {
	case c.Sync.MaxConcurrency < 1:
		return fmt.Errorf("%w: sync.max_concurrency must be positive, got %d", ErrInvalidConfig, c.Sync.MaxConcurrency)
	case c.Sync.RateLimit <= 0:
		return fmt.Errorf("%w: sync.rate_limit must be positive, got %g", ErrInvalidConfig, c.Sync.RateLimit)
	case c.Sync.DurationTolerance <= 0:
		return fmt.Errorf("%w: sync.duration_tolerance must be positive, got %g", ErrInvalidConfig, c.Sync.DurationTolerance)
	case c.Sync.AlbumThreshold <= 0 || c.Sync.AlbumThreshold > 1:
		return fmt.Errorf("%w: sync.album_threshold must be in (0, 1], got %g", ErrInvalidConfig, c.Sync.AlbumThreshold)
	case c.HTTP.RequestsPerSecond < 0:
		return fmt.Errorf("%w: http.requests_per_second must not be negative", ErrInvalidConfig)
	}

	for i, p := range c.Sync.Playlists {
		if p.SourceID == "" {
			return fmt.Errorf("%w: sync.playlists[%d] is missing source_id", ErrInvalidConfig, i)
		}
	}
	return nil
}
