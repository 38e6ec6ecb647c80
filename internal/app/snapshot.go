package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/repository"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/metrics"
)

// Warnings shown alongside degraded data.
const (
	WarningFallback    = "Live data unavailable; showing the published static snapshot."
	WarningKeptLive    = "Live data unavailable; showing the last successful live load."
	WarningUnavailable = "No participant data could be loaded."
)

// LoadReport describes the snapshot that is current after a Refresh.
type LoadReport struct {
	Source   repository.Source
	Count    int
	LoadedAt time.Time
	Warning  string
	// Kept is true when the live load failed and the previous live
	// snapshot stayed in place.
	Kept bool
}

// Refresh loads live data, degrading to the previous live snapshot or the
// static fallback. Concurrent calls share one load. If nothing could be
// loaded the store is left unchanged and the error wraps
// ErrSnapshotUnavailable.
//
// The shared load is detached from ctx and bounded by the load timeout, so a
// caller that goes away is not mistaken for a failing source. Such a caller
// gets ctx.Err() while the load finishes for everyone else.
func (s *Service) Refresh(ctx context.Context) (LoadReport, error) {
	ch := s.loads.DoChan("snapshot", func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.load(loadCtx)
	})
	select {
	case res := <-ch:
		report, _ := res.Val.(LoadReport)
		return report, res.Err
	case <-ctx.Done():
		return s.report(context.WithoutCancel(ctx), false), ctx.Err()
	}
}

func (s *Service) load(ctx context.Context) (LoadReport, error) {
	start := time.Now()
	records, liveErr := s.backend.Students(ctx)
	if liveErr == nil {
		snap, err := s.store.Replace(ctx, records, repository.SourceLive)
		if err != nil {
			return s.report(ctx, false), err
		}
		metrics.RecordSnapshotLoad(string(repository.SourceLive), "ok", msSince(start))
		s.setWarning("")
		s.logger.Debug(ctx, "live snapshot loaded",
			logger.Int("participants", len(snap.Records)),
			logger.Int("duplicates", snap.Duplicates),
		)
		return s.report(ctx, false), nil
	}
	metrics.RecordSnapshotLoad(string(repository.SourceLive), "error", msSince(start))
	metrics.RecordErrorByComponent("service", "live_load_failed")

	if s.store.Snapshot(ctx).Live() {
		s.setWarning(WarningKeptLive)
		metrics.SetFallbackActive(true)
		s.logger.Warn(ctx, "live load failed, keeping previous live snapshot", logger.Error(liveErr))
		return s.report(ctx, true), nil
	}

	if s.fallback == nil {
		s.setWarning(WarningUnavailable)
		return s.report(ctx, false), fmt.Errorf("%w: %w", ErrSnapshotUnavailable, liveErr)
	}

	start = time.Now()
	records, err := s.fallback.Fetch(ctx)
	if err != nil {
		metrics.RecordSnapshotLoad(string(repository.SourceFallback), "error", msSince(start))
		if s.store.Snapshot(ctx).Source == repository.SourceFallback {
			s.setWarning(WarningFallback)
		} else {
			s.setWarning(WarningUnavailable)
		}
		return s.report(ctx, false), fmt.Errorf("%w: %w", ErrSnapshotUnavailable, errors.Join(liveErr, err))
	}
	if _, err := s.store.Replace(ctx, records, repository.SourceFallback); err != nil {
		return s.report(ctx, false), err
	}
	metrics.RecordSnapshotLoad(string(repository.SourceFallback), "ok", msSince(start))
	s.setWarning(WarningFallback)
	s.logger.Warn(ctx, "live load failed, serving static snapshot",
		logger.String("fallback", s.fallback.Name()),
		logger.Error(liveErr),
	)
	return s.report(ctx, false), nil
}

func (s *Service) report(ctx context.Context, kept bool) LoadReport {
	snap := s.store.Snapshot(ctx)
	return LoadReport{
		Source:   snap.Source,
		Count:    len(snap.Records),
		LoadedAt: snap.LoadedAt,
		Warning:  s.Warning(),
		Kept:     kept,
	}
}

// View is a ranked, filtered leaderboard with its context.
type View struct {
	Entries     []ranking.Entry
	Summary     ranking.Summary
	Source      repository.Source
	LoadedAt    time.Time
	Version     uint64
	Warning     string
	BulkPending bool
}

// View ranks the current snapshot under c. Summary always covers the
// whole snapshot.
func (s *Service) View(ctx context.Context, c ranking.Criteria) View {
	snap := s.store.Snapshot(ctx)

	start := time.Now()
	ranked := ranking.ComputeView(snap.Records, c)
	entries := ranking.Entries(ranked, s.pending.Contains)
	metrics.RecordViewCompute(float64(time.Since(start).Microseconds()), len(entries))

	return View{
		Entries:     entries,
		Summary:     ranking.Summarize(snap.Records),
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		Version:     snap.Version,
		Warning:     s.Warning(),
		BulkPending: s.bulkPending.Load(),
	}
}

// Summary counts the current snapshot without ranking it.
func (s *Service) Summary(ctx context.Context) ranking.Summary {
	return ranking.Summarize(s.store.Snapshot(ctx).Records)
}

// Entry returns id's row in the unfiltered ranking.
func (s *Service) Entry(ctx context.Context, id string) (ranking.Entry, error) {
	snap := s.store.Snapshot(ctx)
	if _, ok := snap.Lookup(id); !ok {
		return ranking.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	entries := ranking.Entries(ranking.ComputeView(snap.Records, ranking.Criteria{}), s.pending.Contains)
	e, ok := ranking.Find(entries, id)
	if !ok {
		return ranking.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
