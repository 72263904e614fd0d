// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: txt, csv, json or md",
			Value:   "txt",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file instead of stdout",
		},
	}
}

func tempoFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "genre",
			Aliases:  []string{"g"},
			Usage:    "Genre to search (see `cadence catalog genres`)",
			Required: true,
		},
		&cli.IntFlag{
			Name:     "bpm",
			Aliases:  []string{"b"},
			Usage:    "Target tempo in beats per minute",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "tolerance",
			Aliases: []string{"t"},
			Usage:   "Accepted distance from the target tempo (default from config)",
		},
	}
}

// setupCommand initializes the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
		Commands: []*cli.Command{
			{
				Name:   "rollback",
				Usage:  "Revert the most recent database migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand authorizes playback control and stores the refresh token.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize cadence to control Spotify playback",
		Flags: []cli.Flag{
			configFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: defaultAuthTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.Auth,
	}
}

// sessionCommand runs tempo-matched playback.
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Tempo-matched playback sessions",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Play a track near the target tempo and keep queueing matches until interrupted",
				Flags: append(tempoFlags(),
					&cli.DurationFlag{
						Name:  "for",
						Usage: "End the session after this long (0 runs until interrupted)",
					},
				),
				Action: r.SessionStart,
			},
		},
	}
}

// catalogCommand inspects candidate pools.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Catalog search diagnostics",
		Commands: []*cli.Command{
			{
				Name:  "pool",
				Usage: "Fetch a candidate pool for a genre",
				Flags: append(append(tempoFlags(),
					&cli.BoolFlag{
						Name:  "tempo",
						Usage: "Look up each track's tempo (slow, rate limited)",
					},
					&cli.BoolFlag{
						Name:  "matches",
						Usage: "With --tempo, only list tracks inside the tempo window",
					},
				), formatFlags()...),
				Action: r.CatalogPool,
			},
			{
				Name:   "genres",
				Usage:  "List supported genres",
				Action: r.CatalogGenres,
			},
		},
	}
}

// tempoCommand looks up a single track's tempo.
func tempoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tempo",
		Usage: "Tempo provider diagnostics",
		Commands: []*cli.Command{
			{
				Name:  "lookup",
				Usage: "Look up a track's tempo through the provider chain",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "id",
						Usage: "Catalog track id",
					},
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Primary artist",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TempoLookup,
			},
		},
	}
}

// historyCommand prints past sessions.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sessions and the tracks they played",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of sessions to show",
				Value:   10,
			},
		}, formatFlags()...),
		Action: r.History,
	}
}
