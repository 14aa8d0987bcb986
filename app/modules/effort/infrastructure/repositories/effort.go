package effortdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// insertChunkSize bounds the number of rows per INSERT statement.
const insertChunkSize = 1000

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new effort repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// InsertIgnore stores efforts, skipping duplicates on the natural key.
func (r *Impl) InsertIgnore(ctx context.Context, db bun.IDB, efforts []SegmentEffort) (int64, error) {
	db = r.resolveDB(db)
	var inserted int64
	for start := 0; start < len(efforts); start += insertChunkSize {
		end := min(start+insertChunkSize, len(efforts))
		chunk := efforts[start:end]

		res, err := db.NewInsert().
			Model(&chunk).
			On("CONFLICT (athlete_id, segment_id, activity_id) DO NOTHING").
			Returning("NULL").
			Exec(ctx)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert segment efforts: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

// ListAll returns every stored effort.
func (r *Impl) ListAll(ctx context.Context, db bun.IDB) ([]SegmentEffort, error) {
	db = r.resolveDB(db)
	var efforts []SegmentEffort
	err := db.NewSelect().
		Model(&efforts).
		Order("segment_id ASC", "elapsed_time ASC", "athlete_id ASC", "activity_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list segment efforts: %w", err)
	}
	return efforts, nil
}

// ListSegments returns the distinct segments that have efforts, ordered by name.
func (r *Impl) ListSegments(ctx context.Context, db bun.IDB) ([]SegmentSummary, error) {
	db = r.resolveDB(db)
	var segments []SegmentSummary
	err := db.NewSelect().
		Model((*SegmentEffort)(nil)).
		ColumnExpr("segment_id").
		ColumnExpr("MAX(segment_name) AS segment_name").
		ColumnExpr("COUNT(*) AS efforts").
		Group("segment_id").
		OrderExpr("segment_name ASC, segment_id ASC").
		Scan(ctx, &segments)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	return segments, nil
}

// BestEfforts returns each athlete's minimum elapsed time on a segment.
func (r *Impl) BestEfforts(ctx context.Context, db bun.IDB, segmentID int64) ([]BestEffort, error) {
	db = r.resolveDB(db)
	var best []BestEffort
	err := db.NewSelect().
		Model((*SegmentEffort)(nil)).
		ColumnExpr("athlete_id").
		ColumnExpr("MAX(athlete_name) AS athlete_name").
		ColumnExpr("MIN(elapsed_time) AS best_time").
		Where("segment_id = ?", segmentID).
		Group("athlete_id").
		OrderExpr("best_time ASC, athlete_id ASC").
		Scan(ctx, &best)
	if err != nil {
		return nil, fmt.Errorf("failed to get best efforts: %w", err)
	}
	return best, nil
}

// Count returns the number of stored efforts.
func (r *Impl) Count(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().Model((*SegmentEffort)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count segment efforts: %w", err)
	}
	return n, nil
}
