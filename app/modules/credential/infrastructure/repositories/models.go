package credentialdb

import (
	"time"

	"github.com/uptrace/bun"
)

// Credential is an athlete's stored OAuth grant.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:c"`

	AthleteID    int64     `bun:"athlete_id,pk"`
	AthleteName  string    `bun:"athlete_name,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token,notnull"`
	ExpiresAt    int64     `bun:"expires_at,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
