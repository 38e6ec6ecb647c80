package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/fakebackend"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultParticipants = 120
	shutdownTimeout     = 5 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

func main() {
	var (
		addr         = flag.String("addr", ":8000", "Listen address")
		participants = flag.Int("participants", defaultParticipants, "Number of generated participants")
		scrapeDelay  = flag.Duration("scrape-delay", 0, "Simulated latency of every scrape trigger")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Get().Named("fake-backend")

	cfg := fakebackend.Config{
		Addr:         *addr,
		Participants: *participants,
		ScrapeDelay:  *scrapeDelay,
		Verbose:      *verbose,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := fakebackend.New(cfg.Participants, fakebackend.WithScrapeDelay(cfg.ScrapeDelay))
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "fake backend listening",
		logger.String("addr", cfg.Addr),
		logger.Int("participants", cfg.Participants),
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "server error", logger.Error(err))
		os.Exit(1)
	}
}
