package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/queue"
)

// Scope of a sync request.
type Scope = queue.Scope

// Scopes re-exported for callers of the service.
const (
	ScopeSingle = queue.ScopeSingle
	ScopeAll    = queue.ScopeAll
)

// Ticket tracks one accepted sync request. The outcome is the backend's
// answer to the trigger, not the completion of the refresh itself.
type Ticket struct {
	ID            string
	Scope         Scope
	ParticipantID string
	IssuedAt      time.Time
	PendingUntil  time.Time

	once     sync.Once
	done     chan struct{}
	err      error
	observed atomic.Bool
}

func newTicket(scope Scope, id string, now time.Time, dwell time.Duration) *Ticket {
	return &Ticket{
		ID:            uuid.NewString(),
		Scope:         scope,
		ParticipantID: id,
		IssuedAt:      now,
		PendingUntil:  now.Add(dwell),
		done:          make(chan struct{}),
	}
}

func (t *Ticket) resolve(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Done is closed once the trigger outcome is known.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Err returns the trigger error, or nil while the outcome is unknown.
func (t *Ticket) Err() error {
	select {
	case <-t.done:
		t.observed.Store(true)
		return t.err
	default:
		return nil
	}
}

// Wait blocks for the trigger outcome. It returns ErrOutcomePending when ctx
// ends first; the trigger keeps running in that case and a failure it later
// reports goes to the failure log.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		t.observed.Store(true)
		return t.err
	case <-ctx.Done():
		return ErrOutcomePending
	}
}

// outcome returns the trigger error and whether a caller already saw it.
func (t *Ticket) outcome() (error, bool) {
	<-t.done
	return t.err, t.observed.Load()
}
