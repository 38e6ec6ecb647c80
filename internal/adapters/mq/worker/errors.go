package worker

import "errors"

// ErrUnknownScope is reported for jobs whose scope no trigger handles.
var ErrUnknownScope = errors.New("unknown sync scope")
