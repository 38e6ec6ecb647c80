package api

import (
	"context"
	"net/http"
	"net/url"

	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	View(ctx context.Context, c ranking.Criteria) service.View
	Summary(ctx context.Context) ranking.Summary
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard. Every query parameter is
// optional; unrecognised values filter nothing.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	view := h.deps.View(r.Context(), criteriaFromQuery(r.URL.Query()))
	writeJSON(w, http.StatusOK, toLeaderboard(view))
}

// HandleGetSummary handles GET /summary
func (h *LeaderboardHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSummary(h.deps.Summary(r.Context())))
}

// criteriaFromQuery reads name, status, min_score, min_badges, certs,
// champion, innovator, legend and diagnostic.
func criteriaFromQuery(q url.Values) ranking.Criteria {
	c := ranking.Criteria{
		NameQuery:     q.Get("name"),
		Completion:    ranking.ParseCompletion(q.Get("status")),
		MinScore:      ranking.ParseThreshold(q.Get("min_score")),
		MinBadges:     ranking.ParseThreshold(q.Get("min_badges")),
		Certification: ranking.ParseTri(q.Get("certs")),
		Diagnostic:    ranking.ParseDiagnostic(q.Get("diagnostic")),
	}
	for _, t := range participant.Tiers {
		c = c.WithTier(t, ranking.ParseTri(q.Get(t.String())))
	}
	return c
}
