package scoringhandlers

import (
	"context"
	"net/http"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	teamdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/team/domain"
)

// Handlers serves the read API and reacts to committed runs and standings changes.
type Handlers interface {
	HandleFlags(w http.ResponseWriter, r *http.Request)
	HandleSegments(w http.ResponseWriter, r *http.Request)
	HandleSegmentOutcomes(w http.ResponseWriter, r *http.Request)
	HandleSegmentLeaderboard(w http.ResponseWriter, r *http.Request)
	HandleFlagsChart(w http.ResponseWriter, r *http.Request)
	HandleExport(w http.ResponseWriter, r *http.Request)

	HandleRunCompleted(ctx context.Context, summary *ingestdomain.RunSummary) error
	HandleStandingsChanged(ctx context.Context, event *teamdomain.StandingsChanged) error
}
