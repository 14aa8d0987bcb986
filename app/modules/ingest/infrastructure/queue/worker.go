package ingestqueue

import (
	"context"
	"log/slog"
	"time"

	ingestservice "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/application"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	"github.com/riverqueue/river"
)

// IngestRunWorker executes IngestRunArgs jobs.
type IngestRunWorker struct {
	river.WorkerDefaults[IngestRunArgs]

	service ingestservice.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewIngestRunWorker creates the worker. timeout bounds a whole run.
func NewIngestRunWorker(service ingestservice.Service, timeout time.Duration, logger *slog.Logger) *IngestRunWorker {
	return &IngestRunWorker{service: service, timeout: timeout, logger: logger}
}

// Timeout overrides River's default job timeout; a run over every athlete
// takes far longer than a minute.
func (w *IngestRunWorker) Timeout(*river.Job[IngestRunArgs]) time.Duration {
	return w.timeout
}

// Work runs ingestion for the job's window.
func (w *IngestRunWorker) Work(ctx context.Context, job *river.Job[IngestRunArgs]) error {
	logger := w.logger.With(
		slog.Int64("job_id", job.ID),
		slog.String("reason", job.Args.Reason),
	)
	logger.InfoContext(ctx, "Ingestion job started")

	var (
		summary ingestdomain.RunSummary
		err     error
	)
	if job.Args.After != 0 || job.Args.Before != 0 {
		summary, err = w.service.RunWithWindow(ctx, ingestdomain.Window{After: job.Args.After, Before: job.Args.Before})
	} else {
		summary, err = w.service.Run(ctx)
	}
	if err != nil {
		logger.ErrorContext(ctx, "Ingestion job failed", slog.Any("error", err))
		return err
	}

	logger.InfoContext(ctx, "Ingestion job finished",
		slog.String("run_id", summary.RunID),
		slog.Int64("inserted", summary.Inserted),
		slog.Int("athletes", len(summary.Athletes)),
		slog.Int("skipped", summary.Skipped()),
	)
	return nil
}
