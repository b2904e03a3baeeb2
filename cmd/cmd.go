// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// newApp builds the root command.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lyricsify",
		Usage:   "Show lyrics for whatever Spotify is playing",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override [app] log_level (debug, info, warn, error)",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

// runCommand starts the overlay.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Follow Spotify playback and show lyrics in the overlay",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Print lyrics to stdout instead of drawing the terminal overlay",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "Path to the overlay state file (default: <user config dir>/lyricsify/config.json)",
			},
		},
		Action: r.Run,
	}
}

// authCommand manages the stored Spotify token.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize lyricsify with Spotify in the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored Spotify token",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the stored token and optionally verify it",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Refresh the token if needed and query Spotify",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// lyricsCommand looks up lyrics outside the overlay.
func lyricsCommand(r *Runner) *cli.Command {
	formatFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: txt, markdown or json",
			Value:   "txt",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}

	return &cli.Command{
		Name:  "lyrics",
		Usage: "Look up lyrics",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Look up lyrics by artist and title",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "artist",
						Aliases:  []string{"a"},
						Usage:    "Artist name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Track title",
						Required: true,
					},
				}, formatFlags...),
				Action: r.LyricsGet,
			},
			{
				Name:   "now",
				Usage:  "Look up lyrics for the track playing on Spotify",
				Flags:  formatFlags,
				Action: r.LyricsNow,
			},
		},
	}
}

// cacheCommand inspects the lyrics archive.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear archived lyrics",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show archive and history counts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Delete every archived lyrics entry",
				Action: r.CacheClear,
			},
		},
	}
}

// historyCommand lists recently displayed tracks.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recently played tracks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: txt, markdown, json or csv",
				Value:   "txt",
			},
		},
		Action: r.History,
	}
}

// setupCommand creates the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, then initialize the database",
		Action: r.Setup,
	}
}
