package scoringhandlers

import (
	"context"
	"log/slog"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	teamdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/team/domain"
)

// HandleRunCompleted refreshes the team flag gauges after a run commits.
// Runs that inserted nothing cannot change the standings and are ignored.
func (h *ScoringHandlers) HandleRunCompleted(ctx context.Context, summary *ingestdomain.RunSummary) error {
	logger := h.logger.With(slog.String("run_id", summary.RunID))

	if summary.Inserted == 0 {
		logger.DebugContext(ctx, "Run inserted no efforts, flags unchanged")
		return nil
	}

	flags, err := h.service.RefreshTeamFlags(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to refresh flags after run", slog.Any("error", err))
		return err
	}

	logger.InfoContext(ctx, "Flags refreshed after run",
		slog.Int64("inserted", summary.Inserted),
		slog.Int("skipped_athletes", summary.Skipped()),
		slog.Any("flags", flags),
	)
	return nil
}

// HandleStandingsChanged refreshes the team flag gauges after ownership or
// affiliation changes, which move flags without new efforts.
func (h *ScoringHandlers) HandleStandingsChanged(ctx context.Context, event *teamdomain.StandingsChanged) error {
	logger := h.logger.With(slog.String("reason", event.Reason))

	flags, err := h.service.RefreshTeamFlags(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to refresh flags after standings change", slog.Any("error", err))
		return err
	}

	logger.InfoContext(ctx, "Flags refreshed after standings change", slog.Any("flags", flags))
	return nil
}
