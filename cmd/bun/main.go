package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Black-And-White-Club/segment-ctf/app/database"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

func main() {
	var (
		db   *bun.DB
		pool *pgxpool.Pool
	)

	cliApp := &cli.App{
		Name: "bun",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, err = database.Open(c.Context, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			pool, err = pgxpool.New(c.Context, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("failed to create pgx pool: %w", err)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if pool != nil {
				pool.Close()
			}
			if db != nil {
				return db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			newMultiModuleDBCommand(func() []database.ModuleMigrator { return database.Migrators(db) }, func() *pgxpool.Pool { return pool }),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateRiver(ctx context.Context, pool *pgxpool.Pool, direction rivermigrate.Direction, opts *rivermigrate.MigrateOpts) error {
	versions, err := database.MigrateRiver(ctx, pool, direction, opts)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("No river migrations to apply")
		return nil
	}
	for _, v := range versions {
		fmt.Printf("River migration %s: version %d\n", direction, v)
	}
	return nil
}

func newMultiModuleDBCommand(migrators func() []database.ModuleMigrator, pool func() *pgxpool.Pool) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators() {
						fmt.Printf("Initializing migrations for module: %s\n", m.Name)
						if err := m.Migrator.Init(c.Context); err != nil {
							return fmt.Errorf("failed to initialize migrations for module %s: %w", m.Name, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database, including the job queue schema",
				Action: func(c *cli.Context) error {
					if err := migrateRiver(c.Context, pool(), rivermigrate.DirectionUp, nil); err != nil {
						return err
					}
					for _, m := range migrators() {
						if err := m.Migrator.Lock(c.Context); err != nil {
							return err
						}
						group, err := m.Migrator.Migrate(c.Context)
						unlockErr := m.Migrator.Unlock(c.Context)
						if err != nil {
							return fmt.Errorf("failed to migrate module %s: %w", m.Name, err)
						}
						if unlockErr != nil {
							return unlockErr
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.Name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.Name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of every module",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "river", Usage: "also roll back the newest job queue migration"},
				},
				Action: func(c *cli.Context) error {
					ms := migrators()
					for i := len(ms) - 1; i >= 0; i-- {
						m := ms[i]
						group, err := m.Migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("failed to roll back module %s: %w", m.Name, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.Name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.Name, group)
						}
					}
					if c.Bool("river") {
						return migrateRiver(c.Context, pool(), rivermigrate.DirectionDown, &rivermigrate.MigrateOpts{MaxSteps: 1})
					}
					return nil
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					m, err := findMigrator(migrators(), c.Args().First())
					if err != nil {
						return err
					}
					name := strings.Join(c.Args().Tail(), "_")
					mf, err := m.Migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", m.Name, mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators() {
						ms, err := m.Migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.Name)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}

					rm, err := database.NewRiverMigrator(pool())
					if err != nil {
						return err
					}
					res, err := rm.Validate(c.Context)
					if err != nil {
						return err
					}
					if res.OK {
						fmt.Println("River schema: up to date")
					} else {
						fmt.Printf("River schema: %s\n", strings.Join(res.Messages, "; "))
					}
					return nil
				},
			},
		},
	}
}

func findMigrator(ms []database.ModuleMigrator, name string) (database.ModuleMigrator, error) {
	for _, m := range ms {
		if m.Name == name {
			return m, nil
		}
	}
	return database.ModuleMigrator{}, fmt.Errorf("invalid module name: %s", name)
}
