package teamdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new team repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// ListOwners returns segment_id -> owner team.
func (r *Impl) ListOwners(ctx context.Context, db bun.IDB) (map[int64]string, error) {
	db = r.resolveDB(db)
	var rows []SegmentOwner
	if err := db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list segment owners: %w", err)
	}
	owners := make(map[int64]string, len(rows))
	for _, row := range rows {
		owners[row.SegmentID] = row.OwnerTeam
	}
	return owners, nil
}

// ListAthleteTeams returns athlete_id -> team.
func (r *Impl) ListAthleteTeams(ctx context.Context, db bun.IDB) (map[int64]string, error) {
	db = r.resolveDB(db)
	var rows []AthleteTeam
	if err := db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list athlete teams: %w", err)
	}
	teams := make(map[int64]string, len(rows))
	for _, row := range rows {
		teams[row.AthleteID] = row.Team
	}
	return teams, nil
}

// UpsertOwners sets the owner of each given segment.
func (r *Impl) UpsertOwners(ctx context.Context, db bun.IDB, owners []SegmentOwner) error {
	if len(owners) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for i := range owners {
		owners[i].UpdatedAt = now
	}
	_, err := db.NewInsert().
		Model(&owners).
		On("CONFLICT (segment_id) DO UPDATE").
		Set("owner_team = EXCLUDED.owner_team").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert segment owners: %w", err)
	}
	return nil
}

// AssignAthlete sets an athlete's team.
func (r *Impl) AssignAthlete(ctx context.Context, db bun.IDB, athleteID int64, team string) error {
	db = r.resolveDB(db)
	row := &AthleteTeam{AthleteID: athleteID, Team: team, UpdatedAt: time.Now().UTC()}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (athlete_id) DO UPDATE").
		Set("team = EXCLUDED.team").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to assign athlete team: %w", err)
	}
	return nil
}
