package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
)

type viewFlags struct {
	name       string
	status     string
	minScore   string
	minBadges  string
	certs      string
	tiers      map[participant.Tier]*string
	diagnostic string
	limit      int
	watch      bool
	interval   time.Duration
}

func (f *viewFlags) criteria() ranking.Criteria {
	c := ranking.Criteria{
		NameQuery:     f.name,
		Completion:    ranking.ParseCompletion(f.status),
		MinScore:      ranking.ParseThreshold(f.minScore),
		MinBadges:     ranking.ParseThreshold(f.minBadges),
		Certification: ranking.ParseTri(f.certs),
		Diagnostic:    ranking.ParseDiagnostic(f.diagnostic),
	}
	for t, v := range f.tiers {
		c = c.WithTier(t, ranking.ParseTri(*v))
	}
	return c
}

func newViewCmd(g *globalFlags) *cobra.Command {
	f := &viewFlags{tiers: map[participant.Tier]*string{}}
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the ranked leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.watch {
				return watchView(cmd, g, f)
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return renderView(cmd.OutOrStdout(), g.format, s.svc.View(cmd.Context(), f.criteria()), f.limit)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "case-insensitive name substring")
	fl.StringVar(&f.status, "status", "", "completion: complete or in-progress")
	fl.StringVar(&f.minScore, "min-score", "", "minimum points")
	fl.StringVar(&f.minBadges, "min-badges", "", "minimum badges")
	fl.StringVar(&f.certs, "certs", "", "certification filter: yes or no")
	for _, t := range participant.Tiers {
		v := new(string)
		f.tiers[t] = v
		fl.StringVar(v, t.String(), "", fmt.Sprintf("%s tier filter: yes or no", t))
	}
	fl.StringVar(&f.diagnostic, "diagnostic", "", "diagnostic class: ok, private, invalid, error or any")
	fl.IntVar(&f.limit, "limit", 0, "print at most this many rows")
	fl.BoolVarP(&f.watch, "watch", "w", false, "re-render after every refresh until interrupted")
	fl.DurationVar(&f.interval, "interval", 10*time.Second, "refresh period with --watch")
	return cmd
}

// watchView re-renders on every background refresh until SIGINT.
func watchView(cmd *cobra.Command, g *globalFlags, f *viewFlags) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var (
		mu  sync.Mutex
		svc *service.Service
	)
	render := func() {
		mu.Lock()
		defer mu.Unlock()
		if svc == nil {
			return
		}
		fmt.Fprintf(out, "\n%s\n", time.Now().Format(time.TimeOnly))
		if err := renderView(out, g.format, svc.View(ctx, f.criteria()), f.limit); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "render: %v\n", err)
		}
	}

	s, err := g.open(ctx,
		service.WithRefreshInterval(f.interval),
		service.WithRefreshListener(func(_ service.LoadReport, _ error) { render() }),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	mu.Lock()
	svc = s.svc
	mu.Unlock()
	render()

	<-ctx.Done()
	return nil
}

func newSummaryCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print tier and completion counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			return renderSummary(cmd.OutOrStdout(), g.format, s.svc.View(cmd.Context(), ranking.Criteria{}))
		},
	}
}

type jsonEntry struct {
	Rank           int      `json:"rank"`
	RollNumber     string   `json:"roll_number"`
	Name           string   `json:"name"`
	Points         int      `json:"points"`
	Badges         int      `json:"badges"`
	Certifications []string `json:"certifications"`
	Status         []string `json:"agentblazer_status"`
	Completion     string   `json:"completion"`
	Diagnostic     string   `json:"diagnostic"`
	Syncing        bool     `json:"refresh_in_flight"`
}

func renderView(w io.Writer, format string, v service.View, limit int) error {
	entries := v.Entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if format == formatJSON {
		rows := make([]jsonEntry, len(entries))
		for i, e := range entries {
			rows[i] = jsonEntry{
				Rank:           e.Rank,
				RollNumber:     e.Record.ID,
				Name:           e.Record.Name(),
				Points:         e.Record.Score,
				Badges:         e.Record.BadgeCount,
				Certifications: e.Record.Certifications,
				Status:         e.Record.Tiers.Labels(),
				Completion:     e.Completion.String(),
				Diagnostic:     e.Diagnostic.String(),
				Syncing:        e.RefreshInFlight,
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"source":  string(v.Source),
			"warning": v.Warning,
			"entries": rows,
		})
	}

	warn(w, v.Warning)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Roll", "Name", "Points", "Badges", "Certs", "Tiers", "Status", "Diagnostic"})
	for _, e := range entries {
		name := e.Record.Name()
		if e.RefreshInFlight {
			name += " (syncing)"
		}
		t.AppendRow(table.Row{
			e.Rank,
			e.Record.ID,
			name,
			e.Record.Score,
			e.Record.BadgeCount,
			e.Record.CertificationCount(),
			strings.Join(e.Record.Tiers.Labels(), ", "),
			e.Completion.String(),
			e.Diagnostic.String(),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d of %d shown", len(entries), len(v.Entries)), "", "", "", "", "", string(v.Source)})
	t.Render()
	return nil
}

func renderSummary(w io.Writer, format string, v service.View) error {
	s := v.Summary
	counts := []struct {
		label string
		n     int
	}{
		{"participants", s.Total},
		{participant.Champion.String(), s.Tier(participant.Champion)},
		{participant.Innovator.String(), s.Tier(participant.Innovator)},
		{participant.Legend.String(), s.Tier(participant.Legend)},
		{"certified", s.Certified},
		{"complete", s.Complete},
		{"in progress", s.Total - s.Complete},
	}

	if format == formatJSON {
		out := make(map[string]int, len(counts))
		for _, c := range counts {
			out[strings.ReplaceAll(c.label, " ", "_")] = c.n
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	warn(w, v.Warning)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Count"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.label, c.n})
	}
	t.Render()
	return nil
}
