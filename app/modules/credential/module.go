package credential

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	credentialservice "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/application"
	credentialhandlers "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/handlers"
	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	credentialstate "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/state"
	"github.com/Black-And-White-Club/segment-ctf/app/observability"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/httpmw"
	"github.com/Black-And-White-Club/segment-ctf/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const stateTTL = 10 * time.Minute

// Module owns stored credentials: onboarding over HTTP and token refresh for ingestion.
type Module struct {
	Repository credentialdb.Repository
	Service    credentialservice.Service
	Refresher  credentialservice.TokenRefresher

	handlers credentialhandlers.Handlers
	logger   *slog.Logger
}

// NewModule creates the credential module. When httpRouter is non-nil the
// onboarding routes are mounted under /auth, which requires a state secret.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Provider,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger.With(slog.String("module", "credential"))
	logger.InfoContext(ctx, "Initializing credential module")

	repo := credentialdb.NewRepository(db)
	oauthCfg := OAuthConfig(cfg.Strava)
	httpClient := &http.Client{Timeout: cfg.Ingest.HTTPTimeout}

	module := &Module{
		Repository: repo,
		Refresher:  credentialservice.NewRefresher(repo, oauthCfg, httpClient, clock.RealClock{}, logger),
		logger:     logger,
	}

	if httpRouter == nil {
		return module, nil
	}
	if cfg.HTTP.StateSecret == "" {
		return nil, errors.New("http.state_secret is required to serve the authorization routes")
	}

	service := credentialservice.NewCredentialService(
		repo,
		oauthCfg,
		credentialstate.NewProvider(cfg.HTTP.StateSecret, stateTTL),
		httpClient,
		logger,
		obs.Metrics,
		obs.Tracer,
		db,
	)
	handlers := credentialhandlers.NewCredentialHandlers(service, logger)

	limiter := httpmw.NewClientLimiter(rate.Every(time.Second), 10, nil)
	httpRouter.Route("/auth", func(r chi.Router) {
		r.Use(httpmw.RateLimit(limiter, logger))
		r.Get("/authorize", handlers.HandleAuthorize)
		r.Get("/callback", handlers.HandleCallback)
	})

	module.Service = service
	module.handlers = handlers
	return module, nil
}

// OAuthConfig maps provider settings onto an oauth2 client. Client credentials
// travel in the form body, which is what the provider expects.
func OAuthConfig(cfg config.StravaConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{cfg.Scope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
