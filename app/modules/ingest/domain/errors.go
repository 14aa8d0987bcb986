package ingestdomain

import "errors"

// ErrInvalidRoster is returned when roster configuration breaks an invariant.
var ErrInvalidRoster = errors.New("invalid segment roster")
