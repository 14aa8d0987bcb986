package scoringhandlers

import (
	"context"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	scoringservice "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/application"
	scoringdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/domain"
)

type FakeService struct {
	ComputeFlagsFunc       func(ctx context.Context) (scoringdomain.FlagsResult, error)
	StandingsFunc          func(ctx context.Context) (*scoringservice.Standings, error)
	SegmentOutcomesFunc    func(ctx context.Context) ([]scoringdomain.SegmentOutcome, error)
	SegmentsFunc           func(ctx context.Context) ([]effortdb.SegmentSummary, error)
	SegmentLeaderboardFunc func(ctx context.Context, segmentID int64) ([]effortdb.BestEffort, error)
	RefreshTeamFlagsFunc   func(ctx context.Context) (scoringdomain.FlagsResult, error)
}

var _ scoringservice.Service = (*FakeService)(nil)

func (f *FakeService) ComputeFlags(ctx context.Context) (scoringdomain.FlagsResult, error) {
	if f.ComputeFlagsFunc != nil {
		return f.ComputeFlagsFunc(ctx)
	}
	return scoringdomain.FlagsResult{}, nil
}

func (f *FakeService) Standings(ctx context.Context) (*scoringservice.Standings, error) {
	if f.StandingsFunc != nil {
		return f.StandingsFunc(ctx)
	}
	return &scoringservice.Standings{}, nil
}

func (f *FakeService) SegmentOutcomes(ctx context.Context) ([]scoringdomain.SegmentOutcome, error) {
	if f.SegmentOutcomesFunc != nil {
		return f.SegmentOutcomesFunc(ctx)
	}
	return nil, nil
}

func (f *FakeService) Segments(ctx context.Context) ([]effortdb.SegmentSummary, error) {
	if f.SegmentsFunc != nil {
		return f.SegmentsFunc(ctx)
	}
	return nil, nil
}

func (f *FakeService) SegmentLeaderboard(ctx context.Context, segmentID int64) ([]effortdb.BestEffort, error) {
	if f.SegmentLeaderboardFunc != nil {
		return f.SegmentLeaderboardFunc(ctx, segmentID)
	}
	return nil, nil
}

func (f *FakeService) RefreshTeamFlags(ctx context.Context) (scoringdomain.FlagsResult, error) {
	if f.RefreshTeamFlagsFunc != nil {
		return f.RefreshTeamFlagsFunc(ctx)
	}
	return scoringdomain.FlagsResult{}, nil
}
