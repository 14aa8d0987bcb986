package credentialstate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// stateAudience scopes tokens to the OAuth authorize/callback round trip.
const stateAudience = "strava-oauth-state"

// Provider issues and verifies the OAuth "state" parameter as a short-lived
// signed token, so the callback can be checked without server-side sessions.
type Provider interface {
	Issue() (string, error)
	Verify(token string) error
}

type provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewProvider creates a state provider signing with secret.
func NewProvider(secret string, ttl time.Duration) Provider {
	return newProvider(secret, ttl, time.Now)
}

func newProvider(secret string, ttl time.Duration, now func() time.Time) *provider {
	return &provider{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue returns a fresh signed state token.
func (p *provider) Issue() (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, audience and expiry.
func (p *provider) Verify(token string) error {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSignature
		}
		return p.secret, nil
	},
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(p.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return ErrInvalidSignature
		}
		return ErrInvalidToken
	}
	return nil
}
