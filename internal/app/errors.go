package service

import "errors"

// Sentinel kinds returned by the service.
var (
	ErrNotStarted           = errors.New("service not started")
	ErrNotFound             = errors.New("participant not found")
	ErrSyncInFlight         = errors.New("sync already pending")
	ErrBackpressure         = errors.New("sync queue full")
	ErrConfirmationRequired = errors.New("bulk sync requires confirmation")
	ErrOutcomePending       = errors.New("trigger outcome not yet known")
	ErrSnapshotUnavailable  = errors.New("no participant snapshot available")
)
