package scoringservice

import (
	"context"
	"sync"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/uptrace/bun"
)

type FakeEffortRepository struct {
	ListAllFunc      func(ctx context.Context, db bun.IDB) ([]effortdb.SegmentEffort, error)
	ListSegmentsFunc func(ctx context.Context, db bun.IDB) ([]effortdb.SegmentSummary, error)
	BestEffortsFunc  func(ctx context.Context, db bun.IDB, segmentID int64) ([]effortdb.BestEffort, error)
}

func (f *FakeEffortRepository) InsertIgnore(ctx context.Context, db bun.IDB, efforts []effortdb.SegmentEffort) (int64, error) {
	return 0, nil
}

func (f *FakeEffortRepository) ListAll(ctx context.Context, db bun.IDB) ([]effortdb.SegmentEffort, error) {
	if f.ListAllFunc != nil {
		return f.ListAllFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeEffortRepository) ListSegments(ctx context.Context, db bun.IDB) ([]effortdb.SegmentSummary, error) {
	if f.ListSegmentsFunc != nil {
		return f.ListSegmentsFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeEffortRepository) BestEfforts(ctx context.Context, db bun.IDB, segmentID int64) ([]effortdb.BestEffort, error) {
	if f.BestEffortsFunc != nil {
		return f.BestEffortsFunc(ctx, db, segmentID)
	}
	return nil, nil
}

func (f *FakeEffortRepository) Count(ctx context.Context, db bun.IDB) (int, error) {
	return 0, nil
}

type FakeTeamRepository struct {
	ListOwnersFunc       func(ctx context.Context, db bun.IDB) (map[int64]string, error)
	ListAthleteTeamsFunc func(ctx context.Context, db bun.IDB) (map[int64]string, error)
}

func (f *FakeTeamRepository) ListOwners(ctx context.Context, db bun.IDB) (map[int64]string, error) {
	if f.ListOwnersFunc != nil {
		return f.ListOwnersFunc(ctx, db)
	}
	return map[int64]string{}, nil
}

func (f *FakeTeamRepository) ListAthleteTeams(ctx context.Context, db bun.IDB) (map[int64]string, error) {
	if f.ListAthleteTeamsFunc != nil {
		return f.ListAthleteTeamsFunc(ctx, db)
	}
	return map[int64]string{}, nil
}

func (f *FakeTeamRepository) UpsertOwners(ctx context.Context, db bun.IDB, owners []teamdb.SegmentOwner) error {
	return nil
}

func (f *FakeTeamRepository) AssignAthlete(ctx context.Context, db bun.IDB, athleteID int64, team string) error {
	return nil
}

// FakeMetrics captures gauge updates and ignores everything else.
type FakeMetrics struct {
	observability.NoopMetrics

	mu    sync.Mutex
	flags map[string]int
}

func (f *FakeMetrics) SetTeamFlags(team string, flags int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flags == nil {
		f.flags = make(map[string]int)
	}
	f.flags[team] = flags
}

func (f *FakeMetrics) Flags() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.flags))
	for k, v := range f.flags {
		out[k] = v
	}
	return out
}
