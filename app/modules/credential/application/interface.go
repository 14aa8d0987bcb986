package credentialservice

import (
	"context"

	credentialdb "github.com/Black-And-White-Club/segment-ctf/app/modules/credential/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// Service handles athlete onboarding through the OAuth authorization code flow.
type Service interface {
	// AuthorizeURL returns the provider URL the athlete is redirected to.
	AuthorizeURL(ctx context.Context) (string, error)

	// CompleteAuthorization verifies state, exchanges code and stores the credential.
	CompleteAuthorization(ctx context.Context, state, code string) (*credentialdb.Credential, error)
}

// TokenRefresher yields a usable access token for a stored credential.
type TokenRefresher interface {
	EnsureFresh(ctx context.Context, db bun.IDB, cred credentialdb.Credential) (string, error)
}
