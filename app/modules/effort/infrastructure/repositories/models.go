package effortdb

import (
	"time"

	"github.com/uptrace/bun"
)

// SegmentEffort is one athlete's timed pass over a segment within an activity.
type SegmentEffort struct {
	bun.BaseModel `bun:"table:segment_efforts,alias:se"`

	ID             int64     `bun:"id,pk,autoincrement"`
	AthleteID      int64     `bun:"athlete_id,notnull"`
	AthleteName    string    `bun:"athlete_name,notnull"`
	SegmentID      int64     `bun:"segment_id,notnull"`
	SegmentName    string    `bun:"segment_name,notnull"`
	ActivityID     int64     `bun:"activity_id,notnull"`
	ElapsedTime    int       `bun:"elapsed_time,notnull"`
	StartDateLocal time.Time `bun:"start_date_local,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// SegmentSummary is a distinct segment seen in stored efforts.
type SegmentSummary struct {
	SegmentID   int64  `bun:"segment_id" json:"segment_id"`
	SegmentName string `bun:"segment_name" json:"segment_name"`
	Efforts     int    `bun:"efforts" json:"efforts"`
}

// BestEffort is an athlete's fastest elapsed time on one segment.
type BestEffort struct {
	AthleteID   int64  `bun:"athlete_id" json:"athlete_id"`
	AthleteName string `bun:"athlete_name" json:"athlete_name"`
	BestTime    int    `bun:"best_time" json:"best_time"`
}
