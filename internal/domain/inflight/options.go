package inflight

import "time"

// Option applies a configuration option to the in-memory set.
type Option func(*inMemorySet)

// WithClock overrides the time source used to stamp acquisitions.
func WithClock(now func() time.Time) Option {
	return func(s *inMemorySet) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSizeObserver is called with the new size after every change, while
// the set is locked.
func WithSizeObserver(fn func(size int)) Option {
	return func(s *inMemorySet) {
		s.onSize = fn
	}
}
