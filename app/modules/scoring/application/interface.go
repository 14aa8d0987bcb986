package scoringservice

import (
	"context"
	"time"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	scoringdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/domain"
)

// Standings is one consistent scoring pass over committed data.
type Standings struct {
	Teams      []string                       `json:"teams"`
	Flags      scoringdomain.FlagsResult      `json:"flags"`
	Segments   []scoringdomain.SegmentOutcome `json:"segments"`
	ComputedAt time.Time                      `json:"computed_at"`
}

// Service computes flags and segment views from stored efforts. It keeps no
// state between calls.
type Service interface {
	// ComputeFlags returns the flag total of every configured team.
	ComputeFlags(ctx context.Context) (scoringdomain.FlagsResult, error)

	// Standings returns flags together with the per-segment breakdown.
	Standings(ctx context.Context) (*Standings, error)

	// SegmentOutcomes explains how each scorable segment was decided.
	SegmentOutcomes(ctx context.Context) ([]scoringdomain.SegmentOutcome, error)

	// Segments lists segments with stored efforts, ordered by name.
	Segments(ctx context.Context) ([]effortdb.SegmentSummary, error)

	// SegmentLeaderboard returns each athlete's best time on a segment, fastest first.
	SegmentLeaderboard(ctx context.Context, segmentID int64) ([]effortdb.BestEffort, error)

	// RefreshTeamFlags recomputes flags and publishes them as gauges.
	RefreshTeamFlags(ctx context.Context) (scoringdomain.FlagsResult, error)
}
