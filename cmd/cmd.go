// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles first-run setup of config, database and credentials.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the default config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the run history database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "credentials",
				Usage: "Save Spotify API client credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "client-id",
						Usage:   "Spotify client ID",
						Sources: cli.EnvVars("SPOTIFY_CLIENT_ID"),
					},
					&cli.StringFlag{
						Name:    "client-secret",
						Usage:   "Spotify client secret",
						Sources: cli.EnvVars("SPOTIFY_CLIENT_SECRET"),
					},
				},
				Action: r.SetupCredentials,
			},
		},
	}
}

// authCommand handles Spotify authorization.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize spotsync with Spotify using OAuth2",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show credential and token state",
				Action: r.AuthStatus,
			},
		},
	}
}

// playlistsCommand lists remote playlists or shows one.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List Spotify playlists",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to return",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Playlists,
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show a playlist and its tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv or json",
						Value:   "text",
					},
				},
				Action: r.PlaylistShow,
			},
		},
	}
}

// syncCommand runs one update pass.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile local playlist folders with Spotify once",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Limit the pass to this playlist ID (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report changes without downloading, deleting or saving state",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the run as JSON",
			},
		},
		Action: r.Sync,
	}
}

// downloadCommand bulk-downloads whole playlists.
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download whole playlists into their folders",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "playlist",
				Aliases: []string{"p"},
				Usage:   "Playlist ID to download (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Download every playlist",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: paths.playlists)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent downloads (default: sync.workers)",
			},
		},
		Action: r.Download,
	}
}

// daemonCommand runs the scheduler and the metrics server.
func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run update passes on an interval and serve metrics",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Time between passes (default: sync.interval)",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Address for /metrics and /healthz (default: server.metrics_addr, empty disables)",
			},
			&cli.BoolFlag{
				Name:  "skip-first",
				Usage: "Wait one interval before the first pass",
			},
		},
		Action: r.Daemon,
	}
}

// statusCommand reports local coverage of the stored snapshot.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Compare stored playlists with the audio files on disk",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Status,
	}
}

// historyCommand lists recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent update and download runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only show runs of this kind (update or download)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "id",
				Usage: "Show a single run with its actions",
			},
			&cli.DurationFlag{
				Name:  "prune",
				Usage: "Delete runs older than this before listing",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive playlist manager",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI is running",
				Value: "~/.spotsync/tui.log",
			},
			&cli.BoolFlag{
				Name:  "no-background",
				Usage: "Do not run update passes on the sync interval while the UI is open",
			},
		},
		Action: r.TUI,
	}
}
