package scoringservice

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	scoringdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/domain"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "ScoringService"

var _ Service = (*ScoringService)(nil)

// ScoringService implements the Service interface. Reads go through the
// repositories' default connection so each query sees committed data.
type ScoringService struct {
	efforts effortdb.Repository
	teams   teamdb.Repository
	rules   scoringdomain.Rules
	clock   clock.Clock
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	efforts effortdb.Repository,
	teams teamdb.Repository,
	rules scoringdomain.Rules,
	clk clock.Clock,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
) *ScoringService {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &ScoringService{
		efforts: efforts,
		teams:   teams,
		rules:   rules,
		clock:   clk,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// ComputeFlags returns the flag total of every configured team.
func (s *ScoringService) ComputeFlags(ctx context.Context) (scoringdomain.FlagsResult, error) {
	return withTelemetry(s, ctx, "ComputeFlags", "", func(ctx context.Context) (scoringdomain.FlagsResult, error) {
		standings, err := s.standings(ctx)
		if err != nil {
			return nil, err
		}
		return standings.Flags, nil
	})
}

// Standings returns flags together with the per-segment breakdown.
func (s *ScoringService) Standings(ctx context.Context) (*Standings, error) {
	return withTelemetry(s, ctx, "Standings", "", s.standings)
}

// SegmentOutcomes explains how each scorable segment was decided.
func (s *ScoringService) SegmentOutcomes(ctx context.Context) ([]scoringdomain.SegmentOutcome, error) {
	return withTelemetry(s, ctx, "SegmentOutcomes", "", func(ctx context.Context) ([]scoringdomain.SegmentOutcome, error) {
		standings, err := s.standings(ctx)
		if err != nil {
			return nil, err
		}
		return standings.Segments, nil
	})
}

// Segments lists segments with stored efforts, ordered by name.
func (s *ScoringService) Segments(ctx context.Context) ([]effortdb.SegmentSummary, error) {
	return withTelemetry(s, ctx, "Segments", "", func(ctx context.Context) ([]effortdb.SegmentSummary, error) {
		return s.efforts.ListSegments(ctx, nil)
	})
}

// SegmentLeaderboard returns each athlete's best time on a segment.
func (s *ScoringService) SegmentLeaderboard(ctx context.Context, segmentID int64) ([]effortdb.BestEffort, error) {
	id := strconv.FormatInt(segmentID, 10)
	return withTelemetry(s, ctx, "SegmentLeaderboard", id, func(ctx context.Context) ([]effortdb.BestEffort, error) {
		if segmentID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSegment, segmentID)
		}
		return s.efforts.BestEfforts(ctx, nil, segmentID)
	})
}

// RefreshTeamFlags recomputes flags and exports them as the team_flags gauge.
func (s *ScoringService) RefreshTeamFlags(ctx context.Context) (scoringdomain.FlagsResult, error) {
	return withTelemetry(s, ctx, "RefreshTeamFlags", "", func(ctx context.Context) (scoringdomain.FlagsResult, error) {
		standings, err := s.standings(ctx)
		if err != nil {
			return nil, err
		}
		for _, team := range standings.Teams {
			s.metrics.SetTeamFlags(team, standings.Flags[team])
		}
		s.logger.InfoContext(ctx, "Team flags refreshed", slog.Any("flags", standings.Flags))
		return standings.Flags, nil
	})
}

func (s *ScoringService) standings(ctx context.Context) (*Standings, error) {
	efforts, err := s.efforts.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	athleteTeams, err := s.teams.ListAthleteTeams(ctx, nil)
	if err != nil {
		return nil, err
	}
	owners, err := s.teams.ListOwners(ctx, nil)
	if err != nil {
		return nil, err
	}

	scored := make([]scoringdomain.Effort, 0, len(efforts))
	for _, e := range efforts {
		scored = append(scored, scoringdomain.Effort{
			AthleteID:   e.AthleteID,
			Team:        athleteTeams[e.AthleteID],
			SegmentID:   e.SegmentID,
			SegmentName: e.SegmentName,
			ActivityID:  e.ActivityID,
			ElapsedTime: e.ElapsedTime,
		})
	}

	outcomes := scoringdomain.ScoreSegments(s.rules, scored, owners)
	return &Standings{
		Teams:      append([]string(nil), s.rules.Teams...),
		Flags:      scoringdomain.Tally(s.rules, outcomes),
		Segments:   outcomes,
		ComputedAt: s.clock.Now().UTC(),
	}, nil
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *ScoringService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Operation failed",
			slog.String("operation", operationName),
			slog.Any("error", err),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(err)
		return result, fmt.Errorf("%s: %w", operationName, err)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}
