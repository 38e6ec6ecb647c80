package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

func TestSnapshotStore_Empty(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	snap := store.Snapshot(ctx)
	if snap == nil {
		t.Fatal("expected an empty snapshot, got nil")
	}
	if snap.Source != SourceNone {
		t.Errorf("expected source none, got %s", snap.Source)
	}
	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if _, err := store.Get(ctx, "R1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshotStore_Replace(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewSnapshotStore(WithClock(func() time.Time { return fixed }))

	snap, err := store.Replace(ctx, []participant.Record{
		{ID: "R1", Score: 10},
		{ID: "R2", Score: -5},
		{ID: "R1", Score: 99},
		{ID: ""},
	}, SourceLive)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snap.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(snap.Records))
	}
	if snap.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", snap.Duplicates)
	}
	if !snap.LoadedAt.Equal(fixed) {
		t.Errorf("expected loaded-at %v, got %v", fixed, snap.LoadedAt)
	}
	if snap.Version != 1 {
		t.Errorf("expected version 1, got %d", snap.Version)
	}

	r1, err := store.Get(ctx, "R1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1.Score != 10 {
		t.Errorf("expected first occurrence to win with score 10, got %d", r1.Score)
	}
	r2, _ := store.Get(ctx, "R2")
	if r2.Score != 0 {
		t.Errorf("expected negative score clamped to 0, got %d", r2.Score)
	}

	// A fallback replace swaps the whole snapshot.
	snap, err = store.Replace(ctx, []participant.Record{{ID: "F1"}}, SourceFallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Live() {
		t.Error("expected fallback snapshot not to be live")
	}
	if snap.Version != 2 {
		t.Errorf("expected version 2, got %d", snap.Version)
	}
	if _, err := store.Get(ctx, "R1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected R1 to be gone after replace, got %v", err)
	}
}

func TestSnapshotStore_RejectsBadInput(t *testing.T) {
	store := NewSnapshotStore()

	if _, err := store.Replace(context.Background(), nil, SourceNone); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("expected ErrInvalidSource, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Replace(ctx, nil, SourceLive); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSnapshotStore_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := store.Snapshot(ctx)
				for _, r := range snap.Records {
					if _, ok := snap.Lookup(r.ID); !ok {
						t.Errorf("record %s missing from its own snapshot", r.ID)
						return
					}
				}
			}
		}()
	}
	for v := 0; v < 50; v++ {
		if _, err := store.Replace(ctx, []participant.Record{{ID: "a"}, {ID: "b"}}, SourceLive); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	wg.Wait()

	if got := store.Snapshot(ctx).Version; got != 50 {
		t.Errorf("expected version 50, got %d", got)
	}
}
