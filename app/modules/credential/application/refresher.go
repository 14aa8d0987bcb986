package credentialservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"github.com/uptrace/bun"
	"golang.org/x/oauth2"
)

var _ TokenRefresher = (*Refresher)(nil)

// Refresher renews expired access tokens with the stored refresh token.
type Refresher struct {
	repo       credentialdb.Repository
	oauth      *oauth2.Config
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// NewRefresher creates a Refresher. httpClient bounds the token request.
func NewRefresher(repo credentialdb.Repository, oauthCfg *oauth2.Config, httpClient *http.Client, clk clock.Clock, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		repo:       repo,
		oauth:      oauthCfg,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}
}

// EnsureFresh returns cred's access token, first refreshing and persisting a
// new token triple through db when now >= expires_at. Provider or network
// failures wrap ErrRefreshFailed; a failure to persist is returned as is.
func (r *Refresher) EnsureFresh(ctx context.Context, db bun.IDB, cred credentialdb.Credential) (string, error) {
	if r.clock.Now().Unix() < cred.ExpiresAt {
		return cred.AccessToken, nil
	}

	r.logger.InfoContext(ctx, "Refreshing expired access token",
		slog.Int64("athlete_id", cred.AthleteID),
		slog.Int64("expires_at", cred.ExpiresAt),
	)

	if r.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	}
	// An empty access token forces the source to hit the token endpoint.
	tok, err := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: athlete %d: %w", ErrRefreshFailed, cred.AthleteID, err)
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}
	exp := expiresAt(tok)

	if err := r.repo.UpdateTokens(ctx, db, cred.AthleteID, tok.AccessToken, refreshToken, exp); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens for athlete %d: %w", cred.AthleteID, err)
	}

	r.logger.InfoContext(ctx, "Access token refreshed",
		slog.Int64("athlete_id", cred.AthleteID),
		slog.Int64("expires_at", exp),
	)
	return tok.AccessToken, nil
}
