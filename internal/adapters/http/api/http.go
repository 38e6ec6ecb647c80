// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
)

const defaultSyncWait = 2 * time.Second

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	View(ctx context.Context, c ranking.Criteria) service.View
	Summary(ctx context.Context) ranking.Summary
	Entry(ctx context.Context, id string) (ranking.Entry, error)

	RequestSync(ctx context.Context, id string) (*service.Ticket, error)
	RequestSyncAll(ctx context.Context, confirmed bool) (*service.Ticket, error)
	SyncStatus() service.SyncStatus
	RecentFailures() []service.Failure

	ImportRoster(ctx context.Context, filename string, content io.Reader) (backend.UploadResult, error)
	Export(ctx context.Context) (*backend.Export, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	syncHandler        *SyncHandler
	rosterHandler      *RosterHandler
}

// Option configures the Server.
type Option func(*Server)

// WithSyncWait bounds how long POST /sync waits for the trigger outcome
// before answering "pending".
func WithSyncWait(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.syncHandler.wait = d
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		syncHandler:        NewSyncHandler(deps, defaultSyncWait),
		rosterHandler:      NewRosterHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	handle := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	handle("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	handle("GET /stats", "stats", s.statsHandler.HandleStats)
	handle("GET /leaderboard", "leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
	handle("GET /summary", "summary", s.leaderboardHandler.HandleGetSummary)
	handle("GET /rank/{id}", "rank", s.rankHandler.HandleGetRank)
	handle("GET /sync/status", "sync_status", s.syncHandler.HandleStatus)
	handle("GET /sync/failures", "sync_failures", s.syncHandler.HandleFailures)
	handle("POST /sync/{id}", "sync", s.syncHandler.HandleSync)
	handle("POST /sync-all", "sync_all", s.syncHandler.HandleSyncAll)
	handle("POST /roster", "roster", s.rosterHandler.HandleImport)
	handle("GET /export", "export", s.rosterHandler.HandleExport)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure picks the status from the error kind.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
