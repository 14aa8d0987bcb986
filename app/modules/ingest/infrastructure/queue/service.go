package ingestqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ingestservice "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/application"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const (
	component       = "river"
	hardStopTimeout = 5 * time.Second
)

// QueueService schedules ingestion runs.
type QueueService interface {
	// Enqueue requests an out-of-schedule run. A zero window uses the configured one.
	Enqueue(ctx context.Context, reason string, window ingestdomain.Window) (int64, error)
	// Start starts the periodic schedule and the worker.
	Start(ctx context.Context) error
	// Stop waits for the running job to finish, bounded by ctx.
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service runs ingestion on a River queue backed by Postgres.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewService connects a pgx pool, registers the ingest worker and the periodic
// schedule, and builds the River client. Call Start to begin working jobs.
func NewService(
	ctx context.Context,
	dsn string,
	cfg config.IngestConfig,
	ingest ingestservice.Service,
	logger *slog.Logger,
	metrics observability.Metrics,
) (*Service, error) {
	logger = logger.With(slog.String("component", "ingest_queue"))
	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", component)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewIngestRunWorker(ingest, cfg.JobTimeout, logger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			QueueIngest: {MaxWorkers: 1},
		},
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.ScheduleInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return IngestRunArgs{Reason: "scheduled"}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: cfg.RunOnStart},
			),
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", component)
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", component)
	metrics.RecordOperationDuration(ctx, "initialize_service", component, time.Since(start))
	logger.Info("Ingest queue initialized",
		slog.Duration("interval", cfg.ScheduleInterval),
		slog.Bool("run_on_start", cfg.RunOnStart),
	)

	return &Service{
		client:  client,
		pool:    pool,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", component)
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", component)
	s.logger.Info("Ingest queue started")
	return nil
}

// Stop waits for the in-flight run until ctx ends, then cancels it so its
// transaction rolls back, and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Warn("Graceful stop timed out, cancelling running jobs", slog.Any("error", err))
		cancelCtx, cancel := context.WithTimeout(context.Background(), hardStopTimeout)
		defer cancel()
		if err := s.client.StopAndCancel(cancelCtx); err != nil {
			s.metrics.RecordOperationFailure(ctx, "stop_service", component)
			return fmt.Errorf("failed to stop River client: %w", err)
		}
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", component)
	s.logger.Info("Ingest queue stopped")
	return nil
}

// Enqueue inserts a manual ingest_run job.
func (s *Service) Enqueue(ctx context.Context, reason string, window ingestdomain.Window) (int64, error) {
	s.metrics.RecordOperationAttempt(ctx, "enqueue_run", component)

	res, err := s.client.Insert(ctx, IngestRunArgs{
		Reason: reason,
		After:  window.After,
		Before: window.Before,
	}, nil)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "enqueue_run", component)
		return 0, fmt.Errorf("failed to enqueue ingest run: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_run", component)
	s.logger.InfoContext(ctx, "Ingest run enqueued",
		slog.Int64("job_id", res.Job.ID),
		slog.String("reason", reason),
	)
	return res.Job.ID, nil
}
