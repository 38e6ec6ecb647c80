package service

import (
	"context"

	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
)

// autoRefresh reloads the snapshot every refreshInterval until stopped.
func (s *Service) autoRefresh(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-s.clock.After(s.refreshInterval):
			s.refreshInBackground(ctx, "auto")
		}
	}
}

// refreshInBackground reloads and notifies the refresh listener.
func (s *Service) refreshInBackground(ctx context.Context, reason string) {
	report, err := s.Refresh(ctx)
	if err != nil {
		s.logger.Warn(ctx, "background refresh failed", logger.String("reason", reason), logger.Error(err))
	}
	if s.onRefresh != nil {
		s.onRefresh(report, err)
	}
}
