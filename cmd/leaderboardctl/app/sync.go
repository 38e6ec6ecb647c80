package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
)

func newSyncCmd(g *globalFlags) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "sync <roll-number>",
		Short: "Ask the backend to re-scrape one participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.svc.RequestSync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := awaitTicket(cmd.Context(), out, t, wait); err != nil {
				return err
			}

			if _, err := s.svc.Refresh(cmd.Context()); err != nil {
				return err
			}
			entry, err := s.svc.Entry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "#%d %s: %d points, %d badges\n",
				entry.Rank, entry.Record.Name(), entry.Record.Score, entry.Record.BadgeCount)
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the trigger outcome")
	return cmd
}

func newSyncAllCmd(g *globalFlags) *cobra.Command {
	var (
		yes  bool
		wait time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sync-all",
		Short: "Ask the backend to re-scrape every participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("%w: pass --yes to refresh every participant", service.ErrConfirmationRequired)
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.svc.RequestSyncAll(cmd.Context(), true)
			if err != nil {
				return err
			}
			return awaitTicket(cmd.Context(), cmd.OutOrStdout(), t, wait)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the bulk refresh")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "how long to wait for the trigger outcome")
	return cmd
}

// awaitTicket reports the trigger outcome. A trigger still running when wait
// elapses is reported as pending, not as a failure.
func awaitTicket(ctx context.Context, w io.Writer, t *service.Ticket, wait time.Duration) error {
	fmt.Fprintf(w, "ticket %s (%s) issued\n", t.ID, t.Scope)

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	err := t.Wait(waitCtx)
	switch {
	case err == nil:
		fmt.Fprintln(w, "refresh accepted by backend")
		return nil
	case errors.Is(err, service.ErrOutcomePending):
		fmt.Fprintf(w, "refresh still running after %s\n", wait)
		return nil
	default:
		return fmt.Errorf("refresh trigger failed: %w", err)
	}
}
