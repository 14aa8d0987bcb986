package testutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

var appTables = []string{
	"credentials",
	"segment_efforts",
	"segment_owners",
	"athlete_teams",
}

// CleanupDatabase empties every application table and the job queue.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	if err := TruncateTables(ctx, db, appTables...); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil && !strings.Contains(err.Error(), "does not exist") {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}

// TruncateTables empties the given tables.
func TruncateTables(ctx context.Context, db *bun.DB, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = fmt.Sprintf(`"%s"`, table)
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(quoted, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
