package scoringrouter

import (
	"context"
	"log/slog"

	"github.com/Black-And-White-Club/segment-ctf/app/eventbus"
	scoringhandlers "github.com/Black-And-White-Club/segment-ctf/app/modules/scoring/infrastructure/handlers"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ScoringRouter binds scoring handlers to event topics.
type ScoringRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	tracer         trace.Tracer
	metricsBuilder *metrics.PrometheusMetricsBuilder
}

// NewScoringRouter creates the router. A nil registry disables router metrics.
func NewScoringRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	tracer trace.Tracer,
	registry *prometheus.Registry,
) *ScoringRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if registry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(registry, "ctf", "scoring")
		metricsBuilder = &builder
	}

	return &ScoringRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		tracer:         tracer,
		metricsBuilder: metricsBuilder,
	}
}

// Configure installs middleware and registers the scoring subscriptions.
func (r *ScoringRouter) Configure(ctx context.Context, handlers scoringhandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		eventbus.TraceHandler(r.tracer),
	)

	r.logger.InfoContext(ctx, "Registering scoring event handlers")
	r.Router.AddNoPublisherHandler(
		"scoring."+eventbus.TopicRunCompleted,
		eventbus.TopicRunCompleted,
		r.subscriber,
		eventbus.HandleJSON(r.logger, handlers.HandleRunCompleted),
	)
	r.Router.AddNoPublisherHandler(
		"scoring."+eventbus.TopicStandingsChanged,
		eventbus.TopicStandingsChanged,
		r.subscriber,
		eventbus.HandleJSON(r.logger, handlers.HandleStandingsChanged),
	)
	return nil
}

// Close stops the router.
func (r *ScoringRouter) Close() error {
	return r.Router.Close()
}
