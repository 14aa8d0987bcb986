package credentialdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when no credential exists for an athlete.
var ErrNotFound = errors.New("credential not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new credential repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// ListAll returns every stored credential ordered by athlete ID.
func (r *Impl) ListAll(ctx context.Context, db bun.IDB) ([]Credential, error) {
	db = r.resolveDB(db)
	var creds []Credential
	err := db.NewSelect().
		Model(&creds).
		Order("athlete_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// GetByAthleteID retrieves one credential.
func (r *Impl) GetByAthleteID(ctx context.Context, db bun.IDB, athleteID int64) (*Credential, error) {
	db = r.resolveDB(db)
	cred := new(Credential)
	err := db.NewSelect().
		Model(cred).
		Where("athlete_id = ?", athleteID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return cred, nil
}

// UpdateTokens replaces the token triple of an existing credential.
func (r *Impl) UpdateTokens(ctx context.Context, db bun.IDB, athleteID int64, accessToken, refreshToken string, expiresAt int64) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Credential)(nil)).
		Set("access_token = ?", accessToken).
		Set("refresh_token = ?", refreshToken).
		Set("expires_at = ?", expiresAt).
		Set("updated_at = ?", time.Now().UTC()).
		Where("athlete_id = ?", athleteID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update credential tokens: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert creates a credential or overwrites the existing one for the athlete.
func (r *Impl) Upsert(ctx context.Context, db bun.IDB, cred *Credential) error {
	db = r.resolveDB(db)
	cred.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(cred).
		On("CONFLICT (athlete_id) DO UPDATE").
		Set("athlete_name = EXCLUDED.athlete_name").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}
