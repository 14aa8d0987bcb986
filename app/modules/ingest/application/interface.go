package ingestservice

import (
	"context"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	stravaclient "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/infrastructure/strava"
	"github.com/uptrace/bun"
)

// StravaAPI is the subset of the activity provider the fetcher calls.
type StravaAPI interface {
	ListActivities(ctx context.Context, token string, q stravaclient.ActivityQuery) ([]stravaclient.Activity, error)
	GetActivity(ctx context.Context, token string, activityID int64) (*stravaclient.Activity, error)
	GetSegment(ctx context.Context, token string, segmentID int64) (*stravaclient.Segment, error)
}

// EffortFetcher pulls one athlete's feed for a window and stores matching efforts in db.
type EffortFetcher interface {
	FetchAndStore(
		ctx context.Context,
		db bun.IDB,
		token string,
		athlete ingestdomain.Athlete,
		window ingestdomain.Window,
		cache *ingestdomain.SegmentCache,
	) (ingestdomain.FetchResult, error)
}

// RunPublisher announces committed runs.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, summary ingestdomain.RunSummary) error
}

// Service runs ingestion over every stored credential.
type Service interface {
	// Run ingests the configured window.
	Run(ctx context.Context) (ingestdomain.RunSummary, error)

	// RunWithWindow ingests an explicit window.
	RunWithWindow(ctx context.Context, window ingestdomain.Window) (ingestdomain.RunSummary, error)
}
