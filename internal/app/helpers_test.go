package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

var errBackendDown = errors.New("backend down")

// manualClock only moves when Advance is called.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []clockWaiter
}

type clockWaiter struct {
	at time.Time
	ch chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, clockWaiter{at: c.now.Add(d), ch: ch})
	return ch
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.at.After(c.now) {
			kept = append(kept, w)
			continue
		}
		w.ch <- c.now
	}
	c.waiters = kept
}

func (c *manualClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// eventually polls cond for up to two seconds of real time.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// fakeBackend is an in-process stand-in for the scraper backend.
type fakeBackend struct {
	mu            sync.Mutex
	records       []participant.Record
	studentsErr   error
	studentsCalls int
	studentsGate  chan struct{}
	scrapeErr     error
	scrapeGate    chan struct{}
	scrapeCalls   int
	scrapeAll     int
	uploaded      string
}

func newFakeBackend(records ...participant.Record) *fakeBackend {
	return &fakeBackend{records: records}
}

func (f *fakeBackend) Students(ctx context.Context) ([]participant.Record, error) {
	f.mu.Lock()
	f.studentsCalls++
	gate := f.studentsGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.studentsErr != nil {
		return nil, f.studentsErr
	}
	return append([]participant.Record(nil), f.records...), nil
}

func (f *fakeBackend) Scrape(ctx context.Context, id string) error {
	f.mu.Lock()
	f.scrapeCalls++
	gate := f.scrapeGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrapeErr
}

func (f *fakeBackend) ScrapeAll(ctx context.Context) error {
	f.mu.Lock()
	f.scrapeAll++
	gate := f.scrapeGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scrapeErr
}

func (f *fakeBackend) Upload(_ context.Context, filename string, content io.Reader) (backend.UploadResult, error) {
	body, err := io.ReadAll(content)
	if err != nil {
		return backend.UploadResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = filename
	rows := strings.Count(strings.TrimSpace(string(body)), "\n")
	return backend.UploadResult{Message: "imported", Count: rows}, nil
}

func (f *fakeBackend) Export(_ context.Context) (*backend.Export, error) {
	return &backend.Export{
		Body:        io.NopCloser(strings.NewReader("xlsx")),
		ContentType: "application/octet-stream",
		Filename:    "leaderboard.xlsx",
	}, nil
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBackend) calls() (students, scrapes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.studentsCalls, f.scrapeCalls
}

// staticSource serves a fixed fallback snapshot.
type staticSource struct {
	records []participant.Record
	err     error
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Fetch(context.Context) ([]participant.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func record(id string, score int, tiers ...participant.Tier) participant.Record {
	var set participant.TierSet
	for _, t := range tiers {
		set = set.With(t)
	}
	return participant.Record{ID: id, DisplayName: "Student " + id, Score: score, BadgeCount: score / 100, Tiers: set}
}
