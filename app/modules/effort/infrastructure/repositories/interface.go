package effortdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for segment effort persistence.
type Repository interface {
	// InsertIgnore stores efforts, silently skipping any whose
	// (athlete_id, segment_id, activity_id) already exists. It returns the
	// number of rows actually inserted.
	InsertIgnore(ctx context.Context, db bun.IDB, efforts []SegmentEffort) (int64, error)

	// ListAll returns every stored effort.
	ListAll(ctx context.Context, db bun.IDB) ([]SegmentEffort, error)

	// ListSegments returns the distinct segments that have efforts.
	ListSegments(ctx context.Context, db bun.IDB) ([]SegmentSummary, error)

	// BestEfforts returns each athlete's minimum elapsed time on a segment, fastest first.
	BestEfforts(ctx context.Context, db bun.IDB, segmentID int64) ([]BestEffort, error)

	// Count returns the number of stored efforts.
	Count(ctx context.Context, db bun.IDB) (int, error)
}
