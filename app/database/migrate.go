package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	credentialmigrations "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories/migrations"
	effortmigrations "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories/migrations"
	teammigrations "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories/migrations"
)

// ModuleMigrator pairs a module with its migrator. Each module tracks its
// applied migrations in its own table.
type ModuleMigrator struct {
	Name     string
	Migrator *migrate.Migrator
}

// Migrators returns every module's migrator in dependency order.
func Migrators(db *bun.DB) []ModuleMigrator {
	mk := func(name string, ms *migrate.Migrations) ModuleMigrator {
		return ModuleMigrator{
			Name: name,
			Migrator: migrate.NewMigrator(db, ms,
				migrate.WithTableName(name+"_bun_migrations"),
				migrate.WithLocksTableName(name+"_bun_migration_locks"),
			),
		}
	}
	return []ModuleMigrator{
		mk("credential", credentialmigrations.Migrations),
		mk("effort", effortmigrations.Migrations),
		mk("team", teammigrations.Migrations),
	}
}

// MigrateAll initializes and applies every module's pending migrations.
func MigrateAll(ctx context.Context, db *bun.DB) error {
	for _, m := range Migrators(db) {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize migrations for module %s: %w", m.Name, err)
		}
		if _, err := m.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate module %s: %w", m.Name, err)
		}
	}
	return nil
}

// NewRiverMigrator returns a migrator for the job queue schema.
func NewRiverMigrator(pool *pgxpool.Pool) (*rivermigrate.Migrator[pgx.Tx], error) {
	m, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create river migrator: %w", err)
	}
	return m, nil
}

// MigrateRiver moves the job queue schema in direction and returns the
// versions it applied.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool, direction rivermigrate.Direction, opts *rivermigrate.MigrateOpts) ([]int, error) {
	m, err := NewRiverMigrator(pool)
	if err != nil {
		return nil, err
	}
	res, err := m.Migrate(ctx, direction, opts)
	if err != nil {
		return nil, fmt.Errorf("river migration failed: %w", err)
	}
	versions := make([]int, 0, len(res.Versions))
	for _, v := range res.Versions {
		versions = append(versions, v.Version)
	}
	return versions, nil
}
