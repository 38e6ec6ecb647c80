package participant

import (
	"errors"
)

// ErrMalformedSnapshot is returned when a snapshot is not a JSON array.
var ErrMalformedSnapshot = errors.New("malformed snapshot")
