package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	credentialservice "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/application"
	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	ingestservice "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/application"
	ingestdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/domain"
	ingestqueue "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/infrastructure/queue"
	stravaclient "github.com/Black-And-White-Club/segment-ctf/app/modules/ingest/infrastructure/strava"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/uptrace/bun"
)

// Module wires the effort fetcher and the run orchestrator, and optionally the
// River schedule that triggers runs.
type Module struct {
	Service ingestservice.Service
	Roster  *ingestdomain.Roster

	config     *config.Config
	obs        observability.Provider
	queue      *ingestqueue.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule builds the ingestion pipeline. publisher may be nil.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Provider,
	credentials credentialdb.Repository,
	refresher credentialservice.TokenRefresher,
	publisher ingestservice.RunPublisher,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "ingest"))
	logger.InfoContext(ctx, "Initializing ingest module")

	roster, err := RosterFromConfig(cfg.Roster)
	if err != nil {
		return nil, err
	}

	clk := clock.RealClock{}
	api := stravaclient.NewClient(cfg.Strava.APIBaseURL, cfg.Ingest.HTTPTimeout, obs.Metrics)
	fetcher := ingestservice.NewFetcher(
		api,
		effortdb.NewRepository(db),
		roster,
		ingestservice.FetcherConfig{
			PageSize:            cfg.Ingest.PageSize,
			RequestDelay:        cfg.Ingest.RequestDelay,
			RateLimitCooldown:   cfg.Ingest.RateLimitCooldown,
			MaxRateLimitRetries: cfg.Ingest.RateLimitRetries(),
		},
		clk,
		logger,
	)

	service := ingestservice.NewIngestService(
		credentials,
		refresher,
		fetcher,
		publisher,
		ingestservice.OrchestratorConfig{
			Window:       ingestdomain.Window{After: cfg.Ingest.After, Before: cfg.Ingest.Before},
			AthleteDelay: cfg.Ingest.AthleteDelay,
			CommitMode:   cfg.Ingest.CommitMode,
		},
		clk,
		logger,
		obs.Metrics,
		obs.Tracer,
		db,
	)

	return &Module{
		Service: service,
		Roster:  roster,
		config:  cfg,
		obs:     obs,
		logger:  logger,
	}, nil
}

// Queue lazily creates the River queue service over the configured DSN.
func (m *Module) Queue(ctx context.Context) (*ingestqueue.Service, error) {
	if m.queue != nil {
		return m.queue, nil
	}
	q, err := ingestqueue.NewService(ctx, m.config.Postgres.DSN, m.config.Ingest, m.Service, m.logger, m.obs.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest queue: %w", err)
	}
	m.queue = q
	return q, nil
}

// Run starts the periodic schedule and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting ingest module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	q, err := m.Queue(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "Ingest schedule unavailable", slog.Any("error", err))
		return
	}
	// River hard-stops when its start context ends; shutdown goes through Close instead.
	if err := q.Start(context.WithoutCancel(ctx)); err != nil {
		m.logger.ErrorContext(ctx, "Failed to start ingest schedule", slog.Any("error", err))
		return
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Ingest module goroutine stopped")
}

// Close stops the schedule, waiting for an in-flight run up to ctx's deadline.
func (m *Module) Close(ctx context.Context) error {
	if m.cancelFunc != nil {
		defer m.cancelFunc()
	}
	if m.queue == nil {
		return nil
	}
	return m.queue.Stop(ctx)
}

// RosterFromConfig validates the configured roster.
func RosterFromConfig(cfg config.RosterConfig) (*ingestdomain.Roster, error) {
	groups := make([]ingestdomain.Group, 0, len(cfg.Groups))
	for _, g := range cfg.Groups {
		groups = append(groups, ingestdomain.Group{Team: g.Team, Segments: g.Segments})
	}
	challenges := make([]ingestdomain.Challenge, 0, len(cfg.Challenges))
	for _, c := range cfg.Challenges {
		challenges = append(challenges, ingestdomain.Challenge{
			SegmentID: c.SegmentID,
			Start:     c.Start,
			End:       c.End,
			Owner:     c.Owner,
		})
	}
	return ingestdomain.NewRoster(groups, challenges)
}
