package credentialstate

import "errors"

var (
	// ErrInvalidToken is returned when the state token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid state token")

	// ErrExpiredToken is returned when the state token has expired.
	ErrExpiredToken = errors.New("state token has expired")

	// ErrInvalidSignature is returned when the state token signature is invalid.
	ErrInvalidSignature = errors.New("invalid state token signature")
)
