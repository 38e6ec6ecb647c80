// Package service orchestrates snapshot loading, ranked views and refresh
// requests for the HTTP API and the CLI.
package service

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/fallback"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/queue"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/mq/worker"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/repository"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/inflight"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/metrics"
)

const (
	defaultSyncDwell      = time.Second
	defaultBulkSyncDwell  = 3 * time.Second
	defaultQueueSize      = 256
	defaultWorkerCount    = 5
	defaultFailureLogSize = 50
	defaultLoadTimeout    = 15 * time.Second
	stopTimeout           = 5 * time.Second
)

// Backend is the collaborator that owns participant data.
type Backend interface {
	worker.Trigger
	Students(ctx context.Context) ([]participant.Record, error)
	Upload(ctx context.Context, filename string, content io.Reader) (backend.UploadResult, error)
	Export(ctx context.Context) (*backend.Export, error)
}

// Service implements the dependencies of the HTTP API and the CLI.
type Service struct {
	mu sync.RWMutex

	// Core components
	backend  Backend
	fallback fallback.Source
	store    repository.Store
	pending  inflight.Set
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	failures *failureLog
	loads    singleflight.Group
	clock    Clock

	// Configuration
	syncDwell       time.Duration
	bulkSyncDwell   time.Duration
	refreshInterval time.Duration
	queueSize       int
	workerCount     int
	jobTimeout      time.Duration
	loadTimeout     time.Duration
	failureLogSize  int
	onRefresh       func(LoadReport, error)

	// State
	bulkPending atomic.Bool
	warnMu      sync.RWMutex
	warning     string
	started     bool
	stopCh      chan struct{}
	runCtx      context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithFallback sets the static snapshot used when live data cannot be read.
func WithFallback(src fallback.Source) Option {
	return func(s *Service) {
		s.fallback = src
	}
}

// WithStore replaces the default in-memory snapshot store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the time source used for dwell floors and polling.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSyncDwell sets the minimum pending time of a single-participant refresh.
func WithSyncDwell(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.syncDwell = d
		}
	}
}

// WithBulkSyncDwell sets the minimum pending time of a bulk refresh.
func WithBulkSyncDwell(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.bulkSyncDwell = d
		}
	}
}

// WithRefreshInterval enables auto-refresh. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithQueueSize bounds the trigger queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets how many triggers may run at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithJobTimeout bounds each trigger call.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// WithLoadTimeout bounds one snapshot load, live and fallback together.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithFailureLogSize sets how many late failures are retained.
func WithFailureLogSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.failureLogSize = size
		}
	}
}

// WithRefreshListener is called after every background snapshot load.
func WithRefreshListener(fn func(LoadReport, error)) Option {
	return func(s *Service) {
		s.onRefresh = fn
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service reading from b.
func New(b Backend, opts ...Option) *Service {
	s := &Service{
		backend:        b,
		clock:          realClock{},
		syncDwell:      defaultSyncDwell,
		bulkSyncDwell:  defaultBulkSyncDwell,
		queueSize:      defaultQueueSize,
		workerCount:    defaultWorkerCount,
		failureLogSize: defaultFailureLogSize,
		loadTimeout:    defaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewSnapshotStore(repository.WithClock(s.clock.Now))
	}
	s.pending = inflight.NewInMemorySet(
		inflight.WithClock(s.clock.Now),
		inflight.WithSizeObserver(func(n int) { metrics.UpdateSyncPending(n, s.bulkPending.Load()) }),
	)
	s.failures = newFailureLog(s.failureLogSize)
	return s
}

// Start loads the first snapshot and starts the trigger pool and the
// refresher. A failed first load is logged, not returned.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	s.runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.stopCh = make(chan struct{})
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.backend, worker.WithJobTimeout(s.jobTimeout))
	s.pool.Start(s.runCtx)
	s.started = true
	s.mu.Unlock()

	report, err := s.Refresh(ctx)
	if err != nil {
		s.logger.Warn(ctx, "initial snapshot load failed", logger.Error(err))
	}

	if s.refreshInterval > 0 {
		s.wg.Add(1)
		go s.autoRefresh(s.runCtx, s.stopCh)
	}

	s.logger.Info(ctx, "leaderboard service started",
		logger.String("source", string(report.Source)),
		logger.Int("participants", report.Count),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// Stop shuts down the refresher and the trigger pool and waits for every
// background goroutine. Pending flags are cleared.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping leaderboard service...")

	close(s.stopCh)
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	cancel()

	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(ctx, "leaderboard service stopped")
}

// runState is what background work of one Start/Stop cycle needs.
type runState struct {
	ctx   context.Context
	queue *queue.InMemoryQueue
	stop  <-chan struct{}
}

// running returns the current cycle, or false before Start.
func (s *Service) running() (runState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return runState{}, false
	}
	return runState{ctx: s.runCtx, queue: s.queue, stop: s.stopCh}, true
}

// Warning returns the current data-quality warning, empty when data is live.
func (s *Service) Warning() string {
	s.warnMu.RLock()
	defer s.warnMu.RUnlock()
	return s.warning
}

func (s *Service) setWarning(w string) {
	s.warnMu.Lock()
	s.warning = w
	s.warnMu.Unlock()
}

// RecentFailures returns trigger failures that arrived after their pending
// flag cleared, newest first.
func (s *Service) RecentFailures() []Failure {
	return s.failures.recent()
}

// ImportRoster uploads a roster file to the backend and re-reads the snapshot.
func (s *Service) ImportRoster(ctx context.Context, filename string, content io.Reader) (backend.UploadResult, error) {
	res, err := s.backend.Upload(ctx, filename, content)
	if err != nil {
		return backend.UploadResult{}, err
	}
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn(ctx, "refresh after roster import failed", logger.Error(err))
	}
	return res, nil
}

// Export streams the backend's spreadsheet export. The caller closes Body.
func (s *Service) Export(ctx context.Context) (*backend.Export, error) {
	return s.backend.Export(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	snap := s.store.Snapshot(ctx)
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"participants":    len(snap.Records),
		"duplicates":      snap.Duplicates,
		"source":          string(snap.Source),
		"snapshotVersion": snap.Version,
		"pending":         s.pending.Size(),
		"bulkPending":     s.bulkPending.Load(),
		"warning":         s.Warning(),
		"lateFailures":    len(s.failures.recent()),
	}
	if !snap.LoadedAt.IsZero() {
		stats["loadedAt"] = snap.LoadedAt.UTC().Format(time.RFC3339)
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	return stats
}
