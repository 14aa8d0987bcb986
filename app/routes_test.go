package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func testProvider() observability.Provider {
	registry := prometheus.NewRegistry()
	return observability.Provider{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer("test"),
		Registry: registry,
		Metrics:  observability.NewPrometheusMetrics(registry, "ctf"),
	}
}

func TestHTTPRouter_Healthz(t *testing.T) {
	tests := []struct {
		name     string
		pingErr  error
		wantCode int
		wantBody string
	}{
		{name: "database reachable", wantCode: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "database down", pingErr: errors.New("dial tcp: refused"), wantCode: http.StatusServiceUnavailable, wantBody: `{"status":"database unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newHTTPRouter(testProvider(), func(context.Context) error { return tt.pingErr })

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHTTPRouter_Metrics(t *testing.T) {
	obs := testProvider()
	obs.Metrics.SetTeamFlags("North", 3)
	router := newHTTPRouter(obs, func(context.Context) error { return nil })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ctf_team_flags{team="North"} 3`)
}
