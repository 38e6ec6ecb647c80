package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/fallback"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/repository"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
)

var errNotLive = errors.New("live data unavailable")

// newPublishCmd copies the live snapshot to the configured fallback store.
func newPublishCmd(g *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-snapshot",
		Short: "Write the live snapshot to the static fallback",
		Long: `Loads live data and writes it where the service reads its static
fallback: the redis key when --redis-addr is set, otherwise --out or the
configured fallback file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out != "" {
				g.fallbackFile = out
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			pub := s.components.Publisher
			if pub == nil {
				pub = fallback.NewFilePublisher(s.cfg.FallbackPath)
			}

			v := s.svc.View(cmd.Context(), ranking.Criteria{})
			if v.Source != repository.SourceLive {
				return fmt.Errorf("%w: refusing to publish a %s snapshot", errNotLive, v.Source)
			}
			records := make([]participant.Record, len(v.Entries))
			for i, e := range v.Entries {
				records[i] = e.Record
			}
			if err := pub.Publish(cmd.Context(), records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %d participants to %s\n", len(records), pub.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "snapshot file to write")
	return cmd
}

// newReportCmd downloads the backend's spreadsheet export.
func newReportCmd(g *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Download the backend spreadsheet export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			ex, err := s.svc.Export(cmd.Context())
			if err != nil {
				return err
			}
			defer ex.Body.Close()

			if out == "" {
				out = ex.Filename
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := io.Copy(f, ex.Body)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file, defaults to the backend's filename")
	return cmd
}
