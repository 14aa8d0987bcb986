package teamdb

import (
	"time"

	"github.com/uptrace/bun"
)

// SegmentOwner records which team currently holds a segment.
type SegmentOwner struct {
	bun.BaseModel `bun:"table:segment_owners,alias:so"`

	SegmentID int64     `bun:"segment_id,pk"`
	OwnerTeam string    `bun:"owner_team,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// AthleteTeam records an athlete's team affiliation.
type AthleteTeam struct {
	bun.BaseModel `bun:"table:athlete_teams,alias:at"`

	AthleteID int64     `bun:"athlete_id,pk"`
	Team      string    `bun:"team,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
