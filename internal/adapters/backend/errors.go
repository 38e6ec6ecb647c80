package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for backend errors.
var (
	// ErrTransport wraps network failures: the backend could not be reached.
	ErrTransport = errors.New("backend unreachable")
	// ErrUnexpectedStatus wraps non-2xx replies.
	ErrUnexpectedStatus = errors.New("unexpected backend status")
	// ErrNotFound is returned when the backend does not know the participant.
	ErrNotFound = errors.New("participant unknown to backend")
	// ErrDecode wraps malformed response bodies.
	ErrDecode = errors.New("decode backend response")
)

// StatusError carries the HTTP status and the backend's message.
type StatusError struct {
	Operation string
	Code      int
	Message   string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.Operation, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrUnexpectedStatus
}
