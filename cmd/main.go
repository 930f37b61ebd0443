package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotsync/internal/repositories"
	"github.com/desertthunder/spotsync/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "~/.spotsync/config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("SPOTSYNC_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	configPath = shared.ExpandHome(configPath)

	config, err := shared.LoadConfigOrDefault(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	credentials, err := shared.LoadCredentials(config.Paths.Credentials)
	if err != nil {
		logger.Debug("no usable credentials", "error", err)
	}

	opts := RunnerOpts{
		Config:      config,
		ConfigPath:  configPath,
		Credentials: credentials,
		Logger:      logger,
	}

	if db, err := shared.OpenHistory(config.Database); err != nil {
		logger.Warn("run history disabled", "error", err)
	} else {
		defer db.Close()
		opts.Runs = repositories.NewRunRepository(db)
	}

	runner := NewRunner(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if credentials != nil {
		svc, err := runner.connectSpotify(ctx, credentials)
		if err != nil {
			logger.Debug("spotify not authenticated", "error", err)
		}
		if svc != nil {
			runner.setSpotify(svc)
		}
	}

	app := &cli.Command{
		Name:     "spotsync",
		Usage:    "Keep local copies of your Spotify playlists in sync",
		Version:  "0.1.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, shared.ParseLogLevel("debug"))
			}
			return ctx, nil
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
