package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	scoringservice "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/application"
	scoringdomain "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/domain"
	scoringhandlers "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/infrastructure/handlers"
	scoringrouter "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/infrastructure/router"
	teamdb "github.com/Black-And-White-Club/segment-ctf/app/modules/team/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/httpmw"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// Module serves flags and segment views, and keeps the team_flags gauges
// current as ingestion runs complete.
type Module struct {
	Service scoringservice.Service

	handlers   scoringhandlers.Handlers
	router     *scoringrouter.ScoringRouter
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule creates the scoring module. httpRouter and subscriber may each be
// nil for callers that only need the service.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Provider,
	efforts effortdb.Repository,
	teams teamdb.Repository,
	subscriber message.Subscriber,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "scoring"))
	logger.InfoContext(ctx, "Initializing scoring module")

	service := scoringservice.NewScoringService(
		efforts,
		teams,
		scoringdomain.Rules{Teams: cfg.Scoring.Teams, NeutralOwner: cfg.Scoring.NeutralOwner},
		clock.RealClock{},
		logger,
		obs.Metrics,
		obs.Tracer,
	)
	handlers := scoringhandlers.NewScoringHandlers(service, logger)

	module := &Module{
		Service:  service,
		handlers: handlers,
		logger:   logger,
	}

	if subscriber != nil {
		wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create scoring event router: %w", err)
		}
		router := scoringrouter.NewScoringRouter(logger, wmRouter, subscriber, obs.Tracer, obs.Registry)
		if err := router.Configure(ctx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure scoring event router: %w", err)
		}
		module.router = router
	}

	if httpRouter != nil {
		limiter := httpmw.NewClientLimiter(rate.Limit(20), 40, nil)
		httpRouter.Route("/api", func(r chi.Router) {
			r.Use(httpmw.CORS(cfg.HTTP.AllowedOrigins))
			r.Use(httpmw.RateLimit(limiter, logger))

			r.Get("/flags", handlers.HandleFlags)
			r.Get("/flags/chart.png", handlers.HandleFlagsChart)
			r.Get("/flags/export.xlsx", handlers.HandleExport)
			r.Get("/segments", handlers.HandleSegments)
			r.Get("/segments/outcomes", handlers.HandleSegmentOutcomes)
			r.Get("/segments/{segmentID}/leaderboard", handlers.HandleSegmentLeaderboard)
		})
	}

	return module, nil
}

// Run seeds the team_flags gauges and consumes run-completed events until ctx ends.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting scoring module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if _, err := m.Service.RefreshTeamFlags(ctx); err != nil {
		m.logger.WarnContext(ctx, "Initial flag refresh failed", slog.Any("error", err))
	}

	if m.router == nil {
		<-ctx.Done()
		return
	}
	if err := m.router.Router.Run(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Scoring event router stopped", slog.Any("error", err))
	}
}

// Close stops the event router.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.router != nil {
		return m.router.Close()
	}
	return nil
}
