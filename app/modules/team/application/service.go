package teamservice

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	teamdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/team/domain"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "TeamService"

// ErrUnknownTeam is returned for a team that is neither configured nor the neutral owner.
var ErrUnknownTeam = errors.New("unknown team")

// Service administers segment ownership and athlete affiliation.
type Service interface {
	// SeedOwnership writes the roster's initial owners and returns how many segments were set.
	SeedOwnership(ctx context.Context, roster *ingestdomain.Roster) (int, error)

	// AssignAthlete puts an athlete on one of the configured teams.
	AssignAthlete(ctx context.Context, athleteID int64, team string) error
}

// StandingsPublisher announces committed ownership and affiliation changes.
type StandingsPublisher interface {
	PublishStandingsChanged(ctx context.Context, event teamdomain.StandingsChanged) error
}

var _ Service = (*TeamService)(nil)

// TeamService implements Service.
type TeamService struct {
	repo         teamdb.Repository
	teams        []string
	neutralOwner string
	publisher    StandingsPublisher
	logger       *slog.Logger
	metrics      observability.Metrics
	tracer       trace.Tracer
	db           *bun.DB
}

// NewTeamService creates a new TeamService. publisher may be nil.
func NewTeamService(
	repo teamdb.Repository,
	teams []string,
	neutralOwner string,
	publisher StandingsPublisher,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
) *TeamService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &TeamService{
		repo:         repo,
		teams:        slices.Clone(teams),
		neutralOwner: neutralOwner,
		publisher:    publisher,
		logger:       logger,
		metrics:      metrics,
		tracer:       tracer,
		db:           db,
	}
}

// SeedOwnership upserts every roster segment's owner in one transaction.
// Owners outside the configured teams and the neutral owner are rejected
// before anything is written.
func (s *TeamService) SeedOwnership(ctx context.Context, roster *ingestdomain.Roster) (int, error) {
	return withTelemetry(s, ctx, "SeedOwnership", "", func(ctx context.Context) (int, error) {
		owners := roster.Owners()
		rows := make([]teamdb.SegmentOwner, 0, len(owners))
		for segmentID, owner := range owners {
			if !s.isOwner(owner) {
				return 0, fmt.Errorf("%w: %q owns segment %d", ErrUnknownTeam, owner, segmentID)
			}
			rows = append(rows, teamdb.SegmentOwner{SegmentID: segmentID, OwnerTeam: owner})
		}
		slices.SortFunc(rows, func(a, b teamdb.SegmentOwner) int {
			return cmp.Compare(a.SegmentID, b.SegmentID)
		})

		err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
			return s.repo.UpsertOwners(ctx, db, rows)
		})
		if err != nil {
			return 0, err
		}

		s.logger.InfoContext(ctx, "Segment ownership seeded", slog.Int("segments", len(rows)))
		s.announce(ctx, teamdomain.StandingsChanged{Reason: teamdomain.ReasonOwnershipSeeded, Segments: len(rows)})
		return len(rows), nil
	})
}

// AssignAthlete puts an athlete on one of the configured teams.
func (s *TeamService) AssignAthlete(ctx context.Context, athleteID int64, team string) error {
	_, err := withTelemetry(s, ctx, "AssignAthlete", strconv.FormatInt(athleteID, 10), func(ctx context.Context) (struct{}, error) {
		if athleteID <= 0 {
			return struct{}{}, fmt.Errorf("invalid athlete id %d", athleteID)
		}
		if !slices.Contains(s.teams, team) {
			return struct{}{}, fmt.Errorf("%w: %q (want one of %v)", ErrUnknownTeam, team, s.teams)
		}
		if err := s.repo.AssignAthlete(ctx, nil, athleteID, team); err != nil {
			return struct{}{}, err
		}
		s.logger.InfoContext(ctx, "Athlete assigned",
			slog.Int64("athlete_id", athleteID),
			slog.String("team", team),
		)
		s.announce(ctx, teamdomain.StandingsChanged{Reason: teamdomain.ReasonAthleteAssigned, AthleteID: athleteID, Team: team})
		return struct{}{}, nil
	})
	return err
}

// announce publishes a committed change. Failures are logged; the change stays.
func (s *TeamService) announce(ctx context.Context, event teamdomain.StandingsChanged) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStandingsChanged(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish standings change",
			slog.String("reason", event.Reason),
			slog.Any("error", err),
		)
	}
}

func (s *TeamService) isOwner(team string) bool {
	return team == s.neutralOwner || slices.Contains(s.teams, team)
}

func runInTx(s *TeamService, ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

func withTelemetry[T any](
	s *TeamService,
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
