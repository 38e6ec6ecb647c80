// Package repository holds the in-memory participant snapshot.
package repository

import (
	"context"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// Source tells where a snapshot came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Snapshot is an immutable published set of records. Records keeps the
// order the collaborator delivered; callers must not modify it.
type Snapshot struct {
	Records    []participant.Record
	Source     Source
	LoadedAt   time.Time
	Duplicates int
	Version    uint64

	byID map[string]int
}

// Lookup returns the record for id.
func (s *Snapshot) Lookup(id string) (participant.Record, bool) {
	i, ok := s.byID[id]
	if !ok {
		return participant.Record{}, false
	}
	return s.Records[i], true
}

// Live reports whether the snapshot holds live data.
func (s *Snapshot) Live() bool { return s.Source == SourceLive }

// Store provides read access to the latest snapshot and a wholesale replace.
type Store interface {
	// Replace publishes records as the new snapshot. Duplicate ids keep
	// their first occurrence.
	Replace(ctx context.Context, records []participant.Record, source Source) (*Snapshot, error)

	// Snapshot returns the current snapshot. It is never nil.
	Snapshot(ctx context.Context) *Snapshot

	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (participant.Record, error)

	Count(ctx context.Context) int
}
