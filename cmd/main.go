package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/plsync/internal/retry"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "plsync",
		Usage:    "Sync Spotify playlists and favorites to YouTube Music",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   runner.Before,
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close cache database", "error", cerr)
	}
	if err == nil {
		return
	}

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		logger.Error("retries exhausted, aborting run",
			"op", exhausted.Op,
			"args", fmt.Sprint(exhausted.Args...),
			"attempts", exhausted.Attempts,
			"error", exhausted.Err,
		)
		fmt.Fprintf(os.Stderr, "%s\n", exhausted.Stack)
		os.Exit(1)
	}
	logger.Fatalf("application error: %v", err)
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Path to a .env file with credential overrides",
			Value: ".env",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Log progress at info level",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Log requests and matching decisions",
		},
	}
}
