package ingestservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	credentialservice "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/application"
	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "IngestService"

var _ Service = (*IngestService)(nil)

// OrchestratorConfig selects the window, athlete pacing and commit policy.
type OrchestratorConfig struct {
	Window       ingestdomain.Window
	AthleteDelay time.Duration
	CommitMode   string
}

// IngestService walks every stored credential, refreshing tokens and
// fetching efforts athlete by athlete.
type IngestService struct {
	credentials credentialdb.Repository
	refresher   credentialservice.TokenRefresher
	fetcher     EffortFetcher
	publisher   RunPublisher
	cfg         OrchestratorConfig
	clock       clock.Clock
	logger      *slog.Logger
	metrics     observability.Metrics
	tracer      trace.Tracer
	db          *bun.DB
	newRunID    func() string
}

// NewIngestService creates a new IngestService. publisher may be nil.
func NewIngestService(
	credentials credentialdb.Repository,
	refresher credentialservice.TokenRefresher,
	fetcher EffortFetcher,
	publisher RunPublisher,
	cfg OrchestratorConfig,
	clk clock.Clock,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
) *IngestService {
	if cfg.CommitMode == "" {
		cfg.CommitMode = config.CommitModeRun
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &IngestService{
		credentials: credentials,
		refresher:   refresher,
		fetcher:     fetcher,
		publisher:   publisher,
		cfg:         cfg,
		clock:       clk,
		logger:      logger,
		metrics:     metrics,
		tracer:      tracer,
		db:          db,
		newRunID:    uuid.NewString,
	}
}

// Run ingests the configured window.
func (s *IngestService) Run(ctx context.Context) (ingestdomain.RunSummary, error) {
	return s.RunWithWindow(ctx, s.cfg.Window)
}

// RunWithWindow ingests window for every stored credential. In run commit
// mode a fatal error rolls back every athlete; in athlete mode athletes
// committed before the error stay committed.
func (s *IngestService) RunWithWindow(ctx context.Context, window ingestdomain.Window) (ingestdomain.RunSummary, error) {
	runID := s.newRunID()
	return withTelemetry(s, ctx, "RunIngestion", runID, func(ctx context.Context) (ingestdomain.RunSummary, error) {
		if window.After >= window.Before {
			return ingestdomain.RunSummary{}, fmt.Errorf("empty window: after=%d before=%d", window.After, window.Before)
		}

		summary := ingestdomain.RunSummary{
			RunID:     runID,
			Window:    window,
			StartedAt: s.clock.Now().UTC(),
		}
		cache := ingestdomain.NewSegmentCache()

		s.logger.InfoContext(ctx, "Ingestion run started",
			slog.String("run_id", runID),
			slog.String("commit_mode", s.cfg.CommitMode),
			slog.Int64("after", window.After),
			slog.Int64("before", window.Before),
		)

		var err error
		if s.cfg.CommitMode == config.CommitModeAthlete {
			err = s.runPerAthlete(ctx, window, cache, &summary)
		} else {
			err = s.runSingleTx(ctx, window, cache, &summary)
		}
		summary.FinishedAt = s.clock.Now().UTC()
		if err != nil {
			return summary, err
		}

		s.logger.InfoContext(ctx, "Ingestion run committed",
			slog.String("run_id", runID),
			slog.Int("athletes", len(summary.Athletes)),
			slog.Int("skipped", summary.Skipped()),
			slog.Int64("inserted", summary.Inserted),
		)

		if s.publisher != nil {
			if err := s.publisher.PublishRunCompleted(ctx, summary); err != nil {
				s.logger.ErrorContext(ctx, "Failed to publish run completion",
					slog.String("run_id", runID),
					slog.Any("error", err),
				)
			}
		}
		return summary, nil
	})
}

func (s *IngestService) runSingleTx(ctx context.Context, window ingestdomain.Window, cache *ingestdomain.SegmentCache, summary *ingestdomain.RunSummary) error {
	var reports []ingestdomain.AthleteReport
	err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
		reports = nil
		creds, err := s.credentials.ListAll(ctx, db)
		if err != nil {
			return err
		}
		for i, cred := range creds {
			if err := s.pace(ctx, i); err != nil {
				return err
			}
			report, err := s.processAthlete(ctx, db, cred, window, cache)
			if err != nil {
				return err
			}
			reports = append(reports, report)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, report := range reports {
		s.record(ctx, summary, report)
	}
	return nil
}

func (s *IngestService) runPerAthlete(ctx context.Context, window ingestdomain.Window, cache *ingestdomain.SegmentCache, summary *ingestdomain.RunSummary) error {
	creds, err := s.credentials.ListAll(ctx, nil)
	if err != nil {
		return err
	}
	for i, cred := range creds {
		if err := s.pace(ctx, i); err != nil {
			return err
		}
		var report ingestdomain.AthleteReport
		err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) error {
			var err error
			report, err = s.processAthlete(ctx, db, cred, window, cache)
			return err
		})
		if err != nil {
			return err
		}
		s.record(ctx, summary, report)
	}
	return nil
}

// pace checks cancellation before each athlete and waits the athlete delay
// between consecutive athletes.
func (s *IngestService) pace(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if index == 0 {
		return nil
	}
	return clock.Sleep(ctx, s.clock, s.cfg.AthleteDelay)
}

// processAthlete returns a report for handled outcomes and an error only for
// failures that must stop the run.
func (s *IngestService) processAthlete(
	ctx context.Context,
	db bun.IDB,
	cred credentialdb.Credential,
	window ingestdomain.Window,
	cache *ingestdomain.SegmentCache,
) (ingestdomain.AthleteReport, error) {
	report := ingestdomain.AthleteReport{AthleteID: cred.AthleteID}
	logger := s.logger.With(
		slog.Int64("athlete_id", cred.AthleteID),
		slog.String("athlete_name", cred.AthleteName),
	)

	token, err := s.refresher.EnsureFresh(ctx, db, cred)
	if err != nil {
		if errors.Is(err, credentialservice.ErrRefreshFailed) && ctx.Err() == nil {
			logger.WarnContext(ctx, "Skipping athlete: token refresh failed", slog.Any("error", err))
			report.Outcome = ingestdomain.OutcomeRefreshFailed
			report.Error = err.Error()
			return report, nil
		}
		return report, err
	}

	athlete := ingestdomain.Athlete{ID: cred.AthleteID, Name: cred.AthleteName}
	result, err := s.fetcher.FetchAndStore(ctx, db, token, athlete, window, cache)
	if err != nil {
		if errors.Is(err, ErrFetchAborted) {
			logger.WarnContext(ctx, "Skipping athlete: fetch failed", slog.Any("error", err))
			report.Outcome = ingestdomain.OutcomeFetchFailed
			report.Error = err.Error()
			return report, nil
		}
		return report, err
	}

	report.Outcome = ingestdomain.OutcomeIngested
	report.Inserted = result.Inserted
	return report, nil
}

// record adds a committed athlete report to the summary and metrics.
func (s *IngestService) record(ctx context.Context, summary *ingestdomain.RunSummary, report ingestdomain.AthleteReport) {
	summary.Athletes = append(summary.Athletes, report)
	summary.Inserted += report.Inserted
	s.metrics.RecordAthleteOutcome(ctx, report.Outcome)
	if report.Inserted > 0 {
		s.metrics.RecordEffortsInserted(ctx, int(report.Inserted))
	}
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *IngestService,
	ctx context.Context,
	operationName string,
	runID string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("run_id", runID),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)
	startTime := s.clock.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, s.clock.Now().Sub(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.String("run_id", runID),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
		}
	}()

	result, err = op(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Ingestion run failed",
			slog.String("operation", operationName),
			slog.String("run_id", runID),
			slog.Any("error", err),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(err)
		return result, fmt.Errorf("%s: %w", operationName, err)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction. A panic inside fn
// rolls the transaction back before withTelemetry recovers it.
func runInTx(s *IngestService, ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}
