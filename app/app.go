package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/segment-ctf/app/database"
	"github.com/Black-And-White-Club/segment-ctf/app/eventbus"
	"github.com/Black-And-White-Club/segment-ctf/app/modules/credential"
	effortdb "github.com/Black-And-White-Club/segment-ctf/app/modules/effort/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/modules/ingest"
	"github.com/Black-And-White-Club/segment-ctf/app/modules/scoring"
	"github.com/Black-And-White-Club/segment-ctf/app/modules/team"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

const shutdownTimeout = 30 * time.Second

// Options selects which surfaces Initialize wires.
type Options struct {
	// Serve mounts HTTP routes and event consumers.
	Serve bool
}

// App holds the process-wide dependencies and every module.
type App struct {
	Config   *config.Config
	Obs      observability.Provider
	DB       *bun.DB
	EventBus *eventbus.Bus

	CredentialModule *credential.Module
	IngestModule     *ingest.Module
	ScoringModule    *scoring.Module
	TeamModule       *team.Module

	httpRouter chi.Router
	server     *http.Server
	wg         sync.WaitGroup
}

// Initialize connects storage and the event bus and builds every module.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, obs observability.Provider, opts Options) error {
	app.Config = cfg
	app.Obs = obs
	logger := obs.Logger

	db, err := database.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	app.DB = db

	bus, err := eventbus.New(ctx, cfg.NATS, logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = bus

	var subscriber message.Subscriber
	if opts.Serve {
		app.httpRouter = newHTTPRouter(obs, db.PingContext)
		subscriber = bus.Subscriber
	}

	app.CredentialModule, err = credential.NewModule(ctx, cfg, obs, app.httpRouter, db)
	if err != nil {
		return fmt.Errorf("failed to initialize credential module: %w", err)
	}

	app.IngestModule, err = ingest.NewModule(
		ctx,
		cfg,
		obs,
		app.CredentialModule.Repository,
		app.CredentialModule.Refresher,
		eventbus.NewRunCompletedPublisher(bus.Publisher, logger),
		db,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize ingest module: %w", err)
	}

	app.TeamModule = team.NewModule(cfg, obs, eventbus.NewStandingsChangedPublisher(bus.Publisher, logger), db)

	app.ScoringModule, err = scoring.NewModule(
		ctx,
		cfg,
		obs,
		effortdb.NewRepository(db),
		app.TeamModule.Repository,
		subscriber,
		app.httpRouter,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize scoring module: %w", err)
	}

	logger.InfoContext(ctx, "Application initialized", slog.Bool("serve", opts.Serve))
	return nil
}

// Run serves HTTP, the ingest schedule and the scoring consumer until ctx ends.
func (app *App) Run(ctx context.Context) error {
	if app.httpRouter == nil {
		return errors.New("app was not initialized for serving")
	}
	logger := app.Obs.Logger

	app.wg.Add(2)
	go app.ScoringModule.Run(ctx, &app.wg)
	go app.IngestModule.Run(ctx, &app.wg)

	app.server = &http.Server{
		Addr:              app.Config.HTTP.Addr,
		Handler:           app.httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown requested")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.Any("error", err))
	}
	if err := app.IngestModule.Close(shutdownCtx); err != nil {
		logger.Error("Ingest module shutdown failed", slog.Any("error", err))
	}
	if err := app.ScoringModule.Close(); err != nil {
		logger.Error("Scoring module shutdown failed", slog.Any("error", err))
	}
	app.wg.Wait()

	return runErr
}

// Close releases the event bus and database.
func (app *App) Close() {
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			app.Obs.Logger.Error("Failed to close event bus", slog.Any("error", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Obs.Logger.Error("Failed to close database", slog.Any("error", err))
		}
	}
}
