package fallback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// Publisher writes a static snapshot for later use as a fallback.
type Publisher interface {
	Publish(ctx context.Context, records []participant.Record) error
	Name() string
}

// FilePublisher writes a snapshot file atomically.
type FilePublisher struct {
	path string
}

// NewFilePublisher returns a publisher writing path.
func NewFilePublisher(path string) *FilePublisher { return &FilePublisher{path: path} }

func (p *FilePublisher) Name() string { return "file:" + p.path }

func (p *FilePublisher) Publish(ctx context.Context, records []participant.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(p.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := participant.EncodeSnapshot(tmp, records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}
