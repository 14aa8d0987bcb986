package credentialservice

import "errors"

var (
	// ErrRefreshFailed means the provider rejected or never answered a token refresh.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrInvalidState is returned when the OAuth callback state does not verify.
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrMissingCode is returned when the OAuth callback carries no code.
	ErrMissingCode = errors.New("missing authorization code")

	// ErrExchangeFailed means the authorization code could not be exchanged.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrMissingAthlete is returned when the token response lacks athlete identity.
	ErrMissingAthlete = errors.New("token response has no athlete")
)
