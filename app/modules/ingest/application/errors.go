package ingestservice

import "errors"

var (
	// ErrFetchAborted marks a transient per-athlete failure. The athlete's
	// buffered efforts are discarded and the run moves on.
	ErrFetchAborted = errors.New("effort fetch aborted")

	// ErrRateLimitExhausted is returned when a request is still rate limited
	// after the configured number of cooldowns.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")
)
