package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/segment-ctf/app"
	"github.com/Black-And-White-Club/segment-ctf/app/modules/ingest"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	scoringservice "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/application"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "ctf",
		Usage: "segment capture-the-flag ingestion and scoring",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CTF_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			ingestCommand(),
			flagsCommand(),
			exportCommand(),
			ownershipCommand(),
			teamCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// withApp loads configuration, initializes the application and runs fn.
func withApp(c *cli.Context, opts app.Options, fn func(*app.App) error) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	obs := observability.New(cfg.Observability)

	application := &app.App{}
	defer application.Close()
	if err := application.Initialize(c.Context, cfg, obs, opts); err != nil {
		return fmt.Errorf("failed to initialize app: %w", err)
	}
	return fn(application)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the HTTP API, the ingest schedule and the scoring consumer",
		Action: func(c *cli.Context) error {
			return withApp(c, app.Options{Serve: true}, func(a *app.App) error {
				return a.Run(c.Context)
			})
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "run one ingestion pass",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "after", Usage: "window start: unix seconds, RFC 3339 or a phrase like \"last monday\""},
			&cli.StringFlag{Name: "before", Usage: "window end, same formats as --after"},
			&cli.BoolFlag{Name: "enqueue", Usage: "queue the run for the serving process instead of running it here"},
		},
		Action: func(c *cli.Context) error {
			window, err := newTimeParser().Window(c.String("after"), c.String("before"), time.Now())
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			return withApp(c, app.Options{}, func(a *app.App) error {
				if c.Bool("enqueue") {
					q, err := a.IngestModule.Queue(c.Context)
					if err != nil {
						return err
					}
					id, err := q.Enqueue(c.Context, "cli", window)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "enqueued ingest job %d\n", id)
					return nil
				}

				run := a.IngestModule.Service.Run
				if window.After != 0 {
					run = func(ctx context.Context) (ingestdomain.RunSummary, error) {
						return a.IngestModule.Service.RunWithWindow(ctx, window)
					}
				}
				summary, err := run(c.Context)
				if err != nil {
					return cli.Exit(fmt.Sprintf("ingestion failed: %v", err), 1)
				}
				return printJSON(c, summary)
			})
		},
	}
}

func flagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "flags",
		Usage: "print each team's flag total as JSON",
		Action: func(c *cli.Context) error {
			return withApp(c, app.Options{}, func(a *app.App) error {
				flags, err := a.ScoringModule.Service.ComputeFlags(c.Context)
				if err != nil {
					return err
				}
				return printJSON(c, flags)
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the current standings as a workbook and/or chart",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "xlsx", Usage: "workbook output path"},
			&cli.StringFlag{Name: "png", Usage: "flags chart output path"},
		},
		Action: func(c *cli.Context) error {
			xlsxPath, pngPath := c.String("xlsx"), c.String("png")
			if xlsxPath == "" && pngPath == "" {
				return cli.Exit("at least one of --xlsx or --png is required", 2)
			}

			return withApp(c, app.Options{}, func(a *app.App) error {
				standings, err := a.ScoringModule.Service.Standings(c.Context)
				if err != nil {
					return err
				}
				if xlsxPath != "" {
					if err := writeReport(xlsxPath, func() ([]byte, error) {
						return scoringservice.ExportStandings(standings)
					}); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "wrote %s\n", xlsxPath)
				}
				if pngPath != "" {
					if err := writeReport(pngPath, func() ([]byte, error) {
						return scoringservice.RenderFlagsChart(standings.Teams, standings.Flags)
					}); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "wrote %s\n", pngPath)
				}
				return nil
			})
		},
	}
}

func ownershipCommand() *cli.Command {
	return &cli.Command{
		Name:  "ownership",
		Usage: "segment ownership administration",
		Subcommands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "write the configured roster's initial owners",
				Action: func(c *cli.Context) error {
					return withApp(c, app.Options{}, func(a *app.App) error {
						roster, err := ingest.RosterFromConfig(a.Config.Roster)
						if err != nil {
							return err
						}
						n, err := a.TeamModule.Service.SeedOwnership(c.Context, roster)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "seeded ownership for %d segments\n", n)
						return nil
					})
				},
			},
		},
	}
}

func teamCommand() *cli.Command {
	return &cli.Command{
		Name:  "team",
		Usage: "athlete affiliation administration",
		Subcommands: []*cli.Command{
			{
				Name:      "assign",
				Usage:     "put an athlete on a team",
				ArgsUsage: "<athlete_id> <team>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: ctf team assign <athlete_id> <team>", 2)
					}
					athleteID, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
					if err != nil {
						return cli.Exit(fmt.Sprintf("invalid athlete id %q", c.Args().Get(0)), 2)
					}
					team := c.Args().Get(1)

					return withApp(c, app.Options{}, func(a *app.App) error {
						if err := a.TeamModule.Service.AssignAthlete(c.Context, athleteID, team); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "athlete %d assigned to %s\n", athleteID, team)
						return nil
					})
				},
			},
		},
	}
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReport(path string, render func() ([]byte, error)) error {
	data, err := render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
