// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// rootCommand removes duplicates from playlists and the library, and hosts the subcommands.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "gmx",
		Usage:  "Remove duplicate songs from Google Play Music playlists and library",
		Writer: r.output,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Verbose output",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Google user email",
				Sources: cli.EnvVars("GMX_USER"),
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Google user email password",
				Sources: cli.EnvVars("GMX_PASSWORD"),
			},
			&cli.BoolFlag{
				Name:    "library",
				Aliases: []string{"l"},
				Usage:   "Remove duplicate songs from library",
			},
			&cli.BoolFlag{
				Name:    "playlist",
				Aliases: []string{"y"},
				Usage:   "Remove duplicate songs from playlists",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Report duplicates without removing anything",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a CSV of every removal to this file",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record runs in the history database",
			},
		},
		Action:   r.Dedupe,
		Commands: r.register(),
	}
}

// initCommand writes the example configuration to the --config path
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Write a starter config.toml",
		Action: r.Init,
	}
}

// historyCommand lists recorded deduplication runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent deduplication runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list (0 for all)",
				Value: 20,
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
		Action: r.History,
	}
}
