package api

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/adapters/backend"
)

const maxRosterBytes = 16 << 20

// RosterDependencies defines the pass-through operations to the backend.
type RosterDependencies interface {
	ImportRoster(ctx context.Context, filename string, content io.Reader) (backend.UploadResult, error)
	Export(ctx context.Context) (*backend.Export, error)
}

// RosterHandler handles roster import and spreadsheet export.
type RosterHandler struct {
	deps RosterDependencies
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(deps RosterDependencies) *RosterHandler {
	return &RosterHandler{deps: deps}
}

// HandleImport handles POST /roster with a multipart "file" field. The file
// is forwarded to the backend without inspection.
func (h *RosterHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster_import"
	r.Body = http.MaxBytesReader(w, r.Body, maxRosterBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defer file.Close()

	res, err := h.deps.ImportRoster(r.Context(), header.Filename, file)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleExport handles GET /export by streaming the backend's report.
func (h *RosterHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export"
	exp, err := h.deps.Export(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	defer exp.Body.Close()

	contentType := exp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	filename := exp.Filename
	if filename == "" {
		filename = "leaderboard.xlsx"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if exp.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(exp.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, exp.Body)
}
