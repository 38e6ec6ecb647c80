package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/metrics"
)

// SnapshotStore publishes snapshots through an atomic pointer. Writers are
// serialized; readers never block.
type SnapshotStore struct {
	mu       sync.Mutex
	now      func() time.Time
	snapshot atomic.Pointer[Snapshot]
}

// NewSnapshotStore returns a store holding an empty snapshot.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.snapshot.Store(&Snapshot{Source: SourceNone, byID: map[string]int{}})
	return s
}

// Replace implements Store.
func (s *SnapshotStore) Replace(ctx context.Context, records []participant.Record, source Source) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch source {
	case SourceLive, SourceFallback:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}

	kept := make([]participant.Record, 0, len(records))
	byID := make(map[string]int, len(records))
	dups := 0
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, seen := byID[r.ID]; seen {
			dups++
			continue
		}
		byID[r.ID] = len(kept)
		kept = append(kept, r.Normalize())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := &Snapshot{
		Records:    kept,
		Source:     source,
		LoadedAt:   s.now(),
		Duplicates: dups,
		Version:    s.snapshot.Load().Version + 1,
		byID:       byID,
	}
	s.snapshot.Store(next)

	metrics.UpdateSnapshot(len(kept), dups, next.LoadedAt.Unix(), next.Live())
	return next, nil
}

// Snapshot implements Store.
func (s *SnapshotStore) Snapshot(_ context.Context) *Snapshot {
	return s.snapshot.Load()
}

// Get implements Store.
func (s *SnapshotStore) Get(_ context.Context, id string) (participant.Record, error) {
	r, ok := s.snapshot.Load().Lookup(id)
	if !ok {
		return participant.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Count implements Store.
func (s *SnapshotStore) Count(_ context.Context) int {
	return len(s.snapshot.Load().Records)
}
