// Package fallback provides static participant snapshots used when the
// backend is unreachable, and publishers that write them.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// Sentinel kinds for fallback errors.
var (
	ErrUnavailable = errors.New("static snapshot unavailable")
	ErrNoSource    = errors.New("no static snapshot source configured")
)

// Source yields a static snapshot.
type Source interface {
	Fetch(ctx context.Context) ([]participant.Record, error)
	// Name identifies the source in logs.
	Name() string
}

// FileSource reads a snapshot from a JSON file on disk.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource { return &FileSource{path: path} }

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Fetch(ctx context.Context) ([]participant.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer f.Close()
	return decode(f)
}

// HTTPSource fetches a snapshot published next to the service, such as a
// static-data.json served by the frontend host.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource returns a source fetching url. A nil client gets a 10s timeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Name() string { return "url:" + s.url }

func (s *HTTPSource) Fetch(ctx context.Context) ([]participant.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return decode(resp.Body)
}

func decode(r io.Reader) ([]participant.Record, error) {
	records, _, err := participant.DecodeSnapshot(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return records, nil
}
