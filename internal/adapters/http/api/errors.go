package api

import (
	"errors"
	"net/http"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrTriggerFailed = errors.New("sync trigger failed")
)

// opError tags an error with the handler operation and an optional kind.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.err != nil:
		return e.op + ": " + e.err.Error()
	case e.kind != nil:
		return e.op + ": " + e.kind.Error()
	default:
		return e.op
	}
}

func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// Wrap attaches op to err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}

// WrapKind attaches op and kind to err.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// statusFor maps service and backend errors to an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound), errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrSyncInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusPreconditionRequired, "confirmation_required"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrSnapshotUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ErrTriggerFailed),
		errors.Is(err, backend.ErrTransport),
		errors.Is(err, backend.ErrUnexpectedStatus),
		errors.Is(err, backend.ErrDecode):
		return http.StatusBadGateway, "bad_gateway"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
