package testutils

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Black-And-White-Club/segment-ctf/app/database"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/Black-And-White-Club/segment-ctf/integration_tests/containers"
	"github.com/prometheus/client_golang/prometheus"
)

// TestEnvironment holds the containers and connections shared by one test package.
type TestEnvironment struct {
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	Pool          *pgxpool.Pool
	DSN           string
	NatsURL       string
}

var (
	sharedEnv *TestEnvironment
	setupErr  error
	setupOnce sync.Once
)

// GetEnvironment returns the package's environment with every application
// table emptied. It skips under -short or when Docker is unavailable.
func GetEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	setupOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		sharedEnv, setupErr = newTestEnvironment(ctx)
	})
	require.NoError(t, setupErr, "failed to set up integration environment")

	require.NoError(t, CleanupDatabase(context.Background(), sharedEnv.DB))
	return sharedEnv
}

// Teardown terminates the shared containers. Call it from TestMain.
func Teardown() {
	if sharedEnv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sharedEnv.Pool != nil {
		sharedEnv.Pool.Close()
	}
	if sharedEnv.DB != nil {
		sharedEnv.DB.Close()
	}
	if sharedEnv.NatsContainer != nil {
		if err := sharedEnv.NatsContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate NATS container: %v", err)
		}
	}
	if sharedEnv.PgContainer != nil {
		if err := sharedEnv.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}
}

func newTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	env := &TestEnvironment{}

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	env.PgContainer = pgContainer
	env.DSN = dsn

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		pgContainer.Terminate(ctx)
		return nil, err
	}
	env.NatsContainer = natsContainer
	env.NatsURL = natsURL

	db, err := database.Open(ctx, dsn)
	if err != nil {
		env.terminate(ctx)
		return nil, err
	}
	env.DB = db

	if err := database.MigrateAll(ctx, db); err != nil {
		env.terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		env.terminate(ctx)
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	env.Pool = pool

	if _, err := database.MigrateRiver(ctx, pool, rivermigrate.DirectionUp, nil); err != nil {
		env.terminate(ctx)
		return nil, err
	}
	return env, nil
}

func (env *TestEnvironment) terminate(ctx context.Context) {
	if env.Pool != nil {
		env.Pool.Close()
	}
	if env.DB != nil {
		env.DB.Close()
	}
	if env.NatsContainer != nil {
		env.NatsContainer.Terminate(ctx)
	}
	if env.PgContainer != nil {
		env.PgContainer.Terminate(ctx)
	}
}

// Config returns a configuration pointing at the environment's containers.
func (env *TestEnvironment) Config() *config.Config {
	cfg := &config.Config{
		Postgres: config.PostgresConfig{DSN: env.DSN},
		NATS:     config.NATSConfig{URL: env.NatsURL},
		Scoring: config.ScoringConfig{
			Teams:        []string{"North", "South", "StPaul"},
			NeutralOwner: "Neutral",
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Observability returns a quiet provider with a fresh metrics registry.
func Observability() observability.Provider {
	registry := prometheus.NewRegistry()
	return observability.Provider{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer("integration"),
		Registry: registry,
		Metrics:  observability.NewPrometheusMetrics(registry, "ctf"),
	}
}
