package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/queue"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/metrics"
)

// SyncStatus lists what is pending right now.
type SyncStatus struct {
	Pending     []string
	BulkPending bool
}

// SyncStatus returns the pending participant ids and the bulk flag.
func (s *Service) SyncStatus() SyncStatus {
	return SyncStatus{
		Pending:     s.pending.IDs(),
		BulkPending: s.bulkPending.Load(),
	}
}

// RequestSync asks the backend to refresh one participant. The id stays
// pending for at least the sync dwell, whatever the trigger does. A second
// request for a pending id is rejected with ErrSyncInFlight.
func (s *Service) RequestSync(ctx context.Context, id string) (*Ticket, error) {
	run, ok := s.running()
	if !ok {
		return nil, ErrNotStarted
	}
	if _, found := s.store.Snapshot(ctx).Lookup(id); !found {
		metrics.RecordSyncRequest(string(ScopeSingle), "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !s.pending.Acquire(ctx, id) {
		metrics.RecordSyncRequest(string(ScopeSingle), "in_flight")
		return nil, fmt.Errorf("%w: %s", ErrSyncInFlight, id)
	}

	t := newTicket(ScopeSingle, id, s.clock.Now(), s.syncDwell)
	if !s.dispatch(ctx, run.queue, t) {
		s.pending.Release(ctx, id)
		return nil, ErrBackpressure
	}

	s.track(run, t, s.syncDwell, func() { s.pending.Release(context.Background(), id) })
	return t, nil
}

// RequestSyncAll asks the backend to refresh every participant. It must be
// confirmed and stays pending for at least the bulk dwell.
func (s *Service) RequestSyncAll(ctx context.Context, confirmed bool) (*Ticket, error) {
	if !confirmed {
		metrics.RecordSyncRequest(string(ScopeAll), "unconfirmed")
		return nil, ErrConfirmationRequired
	}
	run, ok := s.running()
	if !ok {
		return nil, ErrNotStarted
	}
	if !s.bulkPending.CompareAndSwap(false, true) {
		metrics.RecordSyncRequest(string(ScopeAll), "in_flight")
		return nil, ErrSyncInFlight
	}
	s.publishPending()

	t := newTicket(ScopeAll, "", s.clock.Now(), s.bulkSyncDwell)
	if !s.dispatch(ctx, run.queue, t) {
		s.bulkPending.Store(false)
		s.publishPending()
		return nil, ErrBackpressure
	}

	s.track(run, t, s.bulkSyncDwell, func() {
		s.bulkPending.Store(false)
		s.publishPending()
	})
	return t, nil
}

func (s *Service) dispatch(ctx context.Context, q *queue.InMemoryQueue, t *Ticket) bool {
	job := queue.Job{
		TicketID:      t.ID,
		Scope:         t.Scope,
		ParticipantID: t.ParticipantID,
		EnqueuedAt:    t.IssuedAt,
		Report:        t.resolve,
	}
	if !q.Enqueue(ctx, job) {
		metrics.RecordSyncRequest(string(t.Scope), "backpressure")
		s.logger.Warn(ctx, "sync queue full", logger.String("scope", string(t.Scope)))
		return false
	}
	metrics.RecordSyncRequest(string(t.Scope), "accepted")
	s.logger.Info(ctx, "sync requested",
		logger.String("ticket", t.ID),
		logger.String("scope", string(t.Scope)),
		logger.String("participant", t.ParticipantID),
	)
	return true
}

// track holds the pending flag for dwell, then clears it and settles the
// ticket: success schedules the follow-up snapshot read, a failure no caller
// has seen goes to the failure log.
func (s *Service) track(run runState, t *Ticket, dwell time.Duration, unmark func()) {
	release := sync.OnceFunc(unmark)

	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		release()
		return
	}
	s.wg.Add(1)
	s.mu.RUnlock()

	go func() {
		defer s.wg.Done()
		defer release()

		select {
		case <-s.clock.After(dwell):
		case <-run.stop:
			return
		}

		late := true
		select {
		case <-t.Done():
			late = false
		default:
		}
		release()

		select {
		case <-t.Done():
		case <-run.stop:
			return
		}
		s.settle(run.ctx, t, late)
	}()
}

// settle runs once the outcome is known and the dwell has passed. A failure
// is logged when it arrived after the flag cleared or when the caller stopped
// waiting before it arrived.
func (s *Service) settle(ctx context.Context, t *Ticket, late bool) {
	err, observed := t.outcome()
	if err == nil {
		s.refreshInBackground(ctx, "sync")
		return
	}
	if !late && observed {
		return
	}

	metrics.RecordSyncLateFailure()
	s.failures.add(Failure{
		TicketID:      t.ID,
		Scope:         t.Scope,
		ParticipantID: t.ParticipantID,
		Error:         err.Error(),
		At:            s.clock.Now(),
	})
	s.logger.Warn(ctx, "sync trigger failed without a waiting caller",
		logger.String("ticket", t.ID),
		logger.String("scope", string(t.Scope)),
		logger.String("participant", t.ParticipantID),
		logger.Bool("after_pending_cleared", late),
		logger.Error(err),
	)
}

func (s *Service) publishPending() {
	metrics.UpdateSyncPending(int(s.pending.Size()), s.bulkPending.Load())
}
