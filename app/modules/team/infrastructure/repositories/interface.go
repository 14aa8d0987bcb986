package teamdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for team reference data.
type Repository interface {
	// ListOwners returns segment_id -> owner team.
	ListOwners(ctx context.Context, db bun.IDB) (map[int64]string, error)

	// ListAthleteTeams returns athlete_id -> team.
	ListAthleteTeams(ctx context.Context, db bun.IDB) (map[int64]string, error)

	// UpsertOwners sets the owner of each given segment.
	UpsertOwners(ctx context.Context, db bun.IDB, owners []SegmentOwner) error

	// AssignAthlete sets an athlete's team.
	AssignAthlete(ctx context.Context, db bun.IDB, athleteID int64, team string) error
}
