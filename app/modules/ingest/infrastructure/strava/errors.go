package stravaclient

import (
	"errors"
	"fmt"
)

// ErrRateLimited is returned for HTTP 429 responses.
var ErrRateLimited = errors.New("strava rate limit exceeded")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("strava %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
