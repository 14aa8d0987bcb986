package effortmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating segment_efforts table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS segment_efforts (
					id BIGSERIAL PRIMARY KEY,
					athlete_id BIGINT NOT NULL,
					athlete_name TEXT NOT NULL DEFAULT '',
					segment_id BIGINT NOT NULL,
					segment_name TEXT NOT NULL DEFAULT '',
					activity_id BIGINT NOT NULL,
					elapsed_time INTEGER NOT NULL,
					start_date_local TIMESTAMP NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT uq_segment_efforts_natural_key UNIQUE (athlete_id, segment_id, activity_id)
				);
				CREATE INDEX IF NOT EXISTS idx_segment_efforts_segment_id ON segment_efforts(segment_id);
			`); err != nil {
				return fmt.Errorf("failed to create segment_efforts table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping segment_efforts table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS segment_efforts;`); err != nil {
				return fmt.Errorf("failed to drop segment_efforts table: %w", err)
			}
			return nil
		})
	})
}
