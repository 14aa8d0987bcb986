package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the full metrics surface used by the application services.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)

	RecordAthleteOutcome(ctx context.Context, outcome string)
	RecordEffortsInserted(ctx context.Context, count int)
	RecordRateLimited(ctx context.Context, endpoint string)
	RecordExternalRequest(ctx context.Context, endpoint string, status int)

	SetTeamFlags(team string, flags int)
}

var (
	_ Metrics = (*PrometheusMetrics)(nil)
	_ Metrics = NoopMetrics{}
)

// PrometheusMetrics implements Metrics on a prometheus registry.
type PrometheusMetrics struct {
	opAttempts  *prometheus.CounterVec
	opSuccesses *prometheus.CounterVec
	opFailures  *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec

	athletes    *prometheus.CounterVec
	efforts     prometheus.Counter
	rateLimited *prometheus.CounterVec
	requests    *prometheus.CounterVec

	teamFlags *prometheus.GaugeVec
}

// NewPrometheusMetrics registers every collector on reg under namespace.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		opAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "operation_attempts_total",
			Help: "Service operations started.",
		}, []string{"operation", "service"}),
		opSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "operation_success_total",
			Help: "Service operations that completed without error.",
		}, []string{"operation", "service"}),
		opFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "operation_failure_total",
			Help: "Service operations that returned an error or panicked.",
		}, []string{"operation", "service"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "operation_duration_seconds",
			Help:    "Service operation latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
		}, []string{"operation", "service"}),
		athletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_athletes_total",
			Help: "Athletes handled by ingestion runs, by outcome.",
		}, []string{"outcome"}),
		efforts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ingest_efforts_inserted_total",
			Help: "Segment efforts newly persisted.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "strava_rate_limited_total",
			Help: "Upstream 429 responses.",
		}, []string{"endpoint"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "strava_requests_total",
			Help: "Upstream API requests by endpoint and status code.",
		}, []string{"endpoint", "status"}),
		teamFlags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "team_flags",
			Help: "Flags held by each team, refreshed at startup, after runs that insert efforts and after ownership or team changes.",
		}, []string{"team"}),
	}

	reg.MustRegister(
		m.opAttempts, m.opSuccesses, m.opFailures, m.opDuration,
		m.athletes, m.efforts, m.rateLimited, m.requests, m.teamFlags,
	)
	return m
}

func (m *PrometheusMetrics) RecordOperationAttempt(_ context.Context, operation, service string) {
	m.opAttempts.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationSuccess(_ context.Context, operation, service string) {
	m.opSuccesses.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationFailure(_ context.Context, operation, service string) {
	m.opFailures.WithLabelValues(operation, service).Inc()
}

func (m *PrometheusMetrics) RecordOperationDuration(_ context.Context, operation, service string, duration time.Duration) {
	m.opDuration.WithLabelValues(operation, service).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordAthleteOutcome(_ context.Context, outcome string) {
	m.athletes.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordEffortsInserted(_ context.Context, count int) {
	m.efforts.Add(float64(count))
}

func (m *PrometheusMetrics) RecordRateLimited(_ context.Context, endpoint string) {
	m.rateLimited.WithLabelValues(endpoint).Inc()
}

func (m *PrometheusMetrics) RecordExternalRequest(_ context.Context, endpoint string, status int) {
	m.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (m *PrometheusMetrics) SetTeamFlags(team string, flags int) {
	m.teamFlags.WithLabelValues(team).Set(float64(flags))
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

// NewNoop returns a Metrics that records nothing.
func NewNoop() NoopMetrics { return NoopMetrics{} }

func (NoopMetrics) RecordOperationAttempt(context.Context, string, string)                 {}
func (NoopMetrics) RecordOperationSuccess(context.Context, string, string)                 {}
func (NoopMetrics) RecordOperationFailure(context.Context, string, string)                 {}
func (NoopMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
func (NoopMetrics) RecordAthleteOutcome(context.Context, string)                           {}
func (NoopMetrics) RecordEffortsInserted(context.Context, int)                             {}
func (NoopMetrics) RecordRateLimited(context.Context, string)                              {}
func (NoopMetrics) RecordExternalRequest(context.Context, string, int)                     {}
func (NoopMetrics) SetTeamFlags(string, int)                                               {}
