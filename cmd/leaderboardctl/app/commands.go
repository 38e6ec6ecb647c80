// Package app holds the leaderboardctl commands.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/config"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

// globalFlags override configuration loaded from TRAILBLAZE_* variables.
type globalFlags struct {
	backendURL   string
	fallbackFile string
	fallbackURL  string
	redisAddr    string
	redisKey     string
	format       string
	verbose      bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "leaderboardctl",
		Short:         "Inspect and refresh the TrailBlaze leaderboard",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			level := "warn"
			if g.verbose {
				level = "debug"
			}
			return logger.SetLevelString(level)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.backendURL, "backend", "", "scraper backend base URL")
	pf.StringVar(&g.fallbackFile, "fallback-file", "", "static snapshot file")
	pf.StringVar(&g.fallbackURL, "fallback-url", "", "static snapshot URL")
	pf.StringVar(&g.redisAddr, "redis-addr", "", "redis address holding the static snapshot")
	pf.StringVar(&g.redisKey, "redis-key", "", "redis key of the static snapshot")
	pf.StringVarP(&g.format, "output", "o", formatTable, "output format: table or json")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newViewCmd(g),
		newSummaryCmd(g),
		newSyncCmd(g),
		newSyncAllCmd(g),
		newPublishCmd(g),
		newReportCmd(g),
	)
	return root
}

// loadConfig layers flags over the environment.
func (g *globalFlags) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if g.backendURL != "" {
		cfg.BackendURL = g.backendURL
	}
	if g.fallbackFile != "" {
		cfg.FallbackPath = g.fallbackFile
	}
	if g.fallbackURL != "" {
		cfg.FallbackURL = g.fallbackURL
	}
	if g.redisAddr != "" {
		cfg.FallbackRedisAddr = g.redisAddr
	}
	if g.redisKey != "" {
		cfg.FallbackRedisKey = g.redisKey
	}
	switch g.format {
	case formatTable, formatJSON:
	default:
		return nil, fmt.Errorf("unknown output format %q", g.format)
	}
	return cfg, nil
}

// session is a started service plus the components it owns.
type session struct {
	cfg        *config.Config
	svc        *service.Service
	components *service.Components
}

// open builds and starts a service. Auto-refresh is off unless extra
// options turn it on.
func (g *globalFlags) open(ctx context.Context, extra ...service.Option) (*session, error) {
	cfg, err := g.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	components, err := service.BuildComponents(cfg)
	if err != nil {
		return nil, err
	}
	opts := append(service.ConfigOptions(cfg, components), service.WithRefreshInterval(0))
	opts = append(opts, extra...)
	svc := service.New(components.Backend, opts...)
	if err := svc.Start(ctx); err != nil {
		_ = components.Close()
		return nil, err
	}
	return &session{cfg: cfg, svc: svc, components: components}, nil
}

func (s *session) Close() {
	s.svc.Stop()
	_ = s.components.Close()
}

func warn(w io.Writer, msg string) {
	if msg != "" {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}
