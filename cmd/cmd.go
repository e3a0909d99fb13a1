// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if missing and run cache migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// syncCommand runs playlist and favorites syncs.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync Spotify playlists to YouTube Music",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Only sync this Spotify playlist ID or URI",
			},
			&cli.BoolFlag{
				Name:    "favorites",
				Aliases: []string{"f"},
				Usage:   "Also sync liked songs (defaults to sync.sync_favorites_default)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Ignore configured playlist pairs and sync every owned playlist by name",
			},
		},
		Action: r.Sync,
		Commands: []*cli.Command{
			{
				Name:   "favorites",
				Usage:  "Only sync liked songs",
				Action: r.SyncFavorites,
			},
		},
	}
}

// playlistsCommand lists playlists on either service.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Service to list (spotify or youtube)",
				Value:   "spotify",
			},
			&cli.BoolFlag{
				Name:  "mappings",
				Usage: "Show which Spotify playlists sync into which YouTube Music playlists",
			},
		},
		Action: r.Playlists,
	}
}

// cacheCommand inspects and edits the match cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and edit the track match cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cached matches and failures",
				Action: r.CacheStats,
			},
			{
				Name:  "forget",
				Usage: "Drop the cached match and failure for a Spotify track",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Spotify track ID",
						Required: true,
					},
				},
				Action: r.CacheForget,
			},
			{
				Name:   "clear-failures",
				Usage:  "Forget every track that was not found so the next sync searches again",
				Action: r.CacheClearFailures,
			},
		},
	}
}
