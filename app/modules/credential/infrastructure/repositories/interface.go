package credentialdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for credential persistence.
type Repository interface {
	// ListAll returns every stored credential ordered by athlete ID.
	ListAll(ctx context.Context, db bun.IDB) ([]Credential, error)

	// GetByAthleteID retrieves one credential.
	GetByAthleteID(ctx context.Context, db bun.IDB, athleteID int64) (*Credential, error)

	// UpdateTokens replaces the token triple of an existing credential.
	UpdateTokens(ctx context.Context, db bun.IDB, athleteID int64, accessToken, refreshToken string, expiresAt int64) error

	// Upsert creates a credential or overwrites the existing one for the athlete.
	Upsert(ctx context.Context, db bun.IDB, cred *Credential) error
}
