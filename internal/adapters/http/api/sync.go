package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
)

// SyncDependencies defines the interface for refresh requests.
type SyncDependencies interface {
	RequestSync(ctx context.Context, id string) (*service.Ticket, error)
	RequestSyncAll(ctx context.Context, confirmed bool) (*service.Ticket, error)
	SyncStatus() service.SyncStatus
	RecentFailures() []service.Failure
}

// SyncHandler handles refresh requests.
type SyncHandler struct {
	deps SyncDependencies
	wait time.Duration
}

// NewSyncHandler creates a sync handler that waits up to wait for a trigger
// outcome.
func NewSyncHandler(deps SyncDependencies, wait time.Duration) *SyncHandler {
	return &SyncHandler{deps: deps, wait: wait}
}

// HandleSync handles POST /sync/{id}.
//
//	202 accepted  trigger answered within the wait
//	202 pending   outcome not yet known; see GET /sync/failures later
//	404           unknown participant
//	409           a refresh is already pending
//	429           dispatch queue full
//	502           the backend rejected or could not be reached
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	const op = "api.sync"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	ticket, err := h.deps.RequestSync(r.Context(), id)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.answer(w, r, op, ticket)
}

// HandleSyncAll handles POST /sync-all?confirm=true.
func (h *SyncHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.sync_all"
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	ticket, err := h.deps.RequestSyncAll(r.Context(), confirmed)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	h.answer(w, r, op, ticket)
}

func (h *SyncHandler) answer(w http.ResponseWriter, r *http.Request, op string, t *service.Ticket) {
	ctx, cancel := context.WithTimeout(r.Context(), h.wait)
	defer cancel()

	resp := syncResponse{
		Status:       "accepted",
		Ticket:       t.ID,
		Scope:        string(t.Scope),
		RollNumber:   t.ParticipantID,
		PendingUntil: t.PendingUntil,
	}
	switch err := t.Wait(ctx); {
	case err == nil:
	case errors.Is(err, service.ErrOutcomePending):
		resp.Status = "pending"
	default:
		writeFailure(w, WrapKind(op, ErrTriggerFailed, err))
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// HandleStatus handles GET /sync/status.
func (h *SyncHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	st := h.deps.SyncStatus()
	pending := st.Pending
	if pending == nil {
		pending = []string{}
	}
	writeJSON(w, http.StatusOK, syncStatusResponse{Pending: pending, BulkPending: st.BulkPending})
}

// HandleFailures handles GET /sync/failures.
func (h *SyncHandler) HandleFailures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toFailures(h.deps.RecentFailures()))
}
