package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Entry(ctx context.Context, id string) (ranking.Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{id} requests. The rank is positional in
// the unfiltered leaderboard.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	entry, err := h.deps.Entry(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toEntry(entry))
}
