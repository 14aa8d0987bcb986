package scoringservice

import "errors"

// ErrInvalidSegment is returned for a non-positive segment ID.
var ErrInvalidSegment = errors.New("invalid segment id")
