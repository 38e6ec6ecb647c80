// Package inflight tracks which participants have a refresh pending.
package inflight

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Set admits at most one pending refresh per participant id.
type Set interface {
	// Acquire marks id pending. It returns false when id is already pending.
	Acquire(ctx context.Context, id string) bool

	// Release clears the pending mark. Releasing an idle id is a no-op.
	Release(ctx context.Context, id string)

	Contains(id string) bool

	// IDs returns the pending ids in lexical order.
	IDs() []string

	Size() int64
}

type inMemorySet struct {
	mu      sync.RWMutex
	pending map[string]time.Time
	size    atomic.Int64
	now     func() time.Time
	onSize  func(int)
}

// NewInMemorySet creates an empty set.
func NewInMemorySet(opts ...Option) Set {
	s := &inMemorySet{
		pending: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *inMemorySet) Acquire(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pending[id]; busy {
		return false
	}
	s.pending[id] = s.now()
	s.changed(s.size.Add(1))
	return true
}

func (s *inMemorySet) Release(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.pending[id]; !busy {
		return
	}
	delete(s.pending, id)
	s.changed(s.size.Add(-1))
}

func (s *inMemorySet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, busy := s.pending[id]
	return busy
}

func (s *inMemorySet) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *inMemorySet) Size() int64 {
	return s.size.Load()
}

// Must be called with s.mu held.
func (s *inMemorySet) changed(size int64) {
	if s.onSize != nil {
		s.onSize(int(size))
	}
}
