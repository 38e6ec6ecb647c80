package api

import (
	"time"

	service "github.com/DhanushPadarthi/trailhead-leaderboard/internal/app"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/ranking"
)

// entryResponse is one ranked row. Field names follow the backend's
// snapshot format where they overlap.
type entryResponse struct {
	Rank               int       `json:"rank"`
	RollNumber         string    `json:"roll_number"`
	Name               string    `json:"name"`
	ProfileURL         string    `json:"profile_url,omitempty"`
	Points             int       `json:"points"`
	Badges             int       `json:"badges"`
	Certifications     []string  `json:"certifications"`
	CertificationCount int       `json:"certification_count"`
	Status             []string  `json:"agentblazer_status"`
	Level              int       `json:"level"`
	Completion         string    `json:"completion"`
	Diagnostic         string    `json:"diagnostic"`
	ScrapeError        string    `json:"scrape_error,omitempty"`
	LastUpdated        time.Time `json:"last_updated,omitzero"`
	RefreshInFlight    bool      `json:"refresh_in_flight"`
}

func toEntry(e ranking.Entry) entryResponse {
	certs := e.Record.Certifications
	if certs == nil {
		certs = []string{}
	}
	return entryResponse{
		Rank:               e.Rank,
		RollNumber:         e.Record.ID,
		Name:               e.Record.Name(),
		ProfileURL:         e.Record.ProfileURL,
		Points:             e.Record.Score,
		Badges:             e.Record.BadgeCount,
		Certifications:     certs,
		CertificationCount: e.Record.CertificationCount(),
		Status:             e.Record.Tiers.Labels(),
		Level:              int(e.Level),
		Completion:         e.Completion.String(),
		Diagnostic:         e.Diagnostic.String(),
		ScrapeError:        e.Record.SyncDiagnostic,
		LastUpdated:        e.Record.LastUpdated,
		RefreshInFlight:    e.RefreshInFlight,
	}
}

type summaryResponse struct {
	Total       int            `json:"total"`
	Champion    int            `json:"champion"`
	Innovator   int            `json:"innovator"`
	Legend      int            `json:"legend"`
	NoTier      int            `json:"no_tier"`
	Certified   int            `json:"certified"`
	Complete    int            `json:"complete"`
	InProgress  int            `json:"in_progress"`
	Diagnostics map[string]int `json:"diagnostics"`
}

func toSummary(s ranking.Summary) summaryResponse {
	diags := make(map[string]int, len(s.Diagnostics))
	for class, n := range s.Diagnostics {
		diags[class.String()] = n
	}
	return summaryResponse{
		Total:       s.Total,
		Champion:    s.Tier(participant.Champion),
		Innovator:   s.Tier(participant.Innovator),
		Legend:      s.Tier(participant.Legend),
		NoTier:      s.ByLevel[0],
		Certified:   s.Certified,
		Complete:    s.Complete,
		InProgress:  s.Total - s.Complete,
		Diagnostics: diags,
	}
}

type leaderboardResponse struct {
	Source      string          `json:"source"`
	LoadedAt    time.Time       `json:"loaded_at,omitzero"`
	Version     uint64          `json:"version"`
	Warning     string          `json:"warning,omitempty"`
	BulkPending bool            `json:"bulk_pending"`
	Count       int             `json:"count"`
	Entries     []entryResponse `json:"entries"`
	Summary     summaryResponse `json:"summary"`
}

func toLeaderboard(v service.View) leaderboardResponse {
	entries := make([]entryResponse, len(v.Entries))
	for i, e := range v.Entries {
		entries[i] = toEntry(e)
	}
	return leaderboardResponse{
		Source:      string(v.Source),
		LoadedAt:    v.LoadedAt,
		Version:     v.Version,
		Warning:     v.Warning,
		BulkPending: v.BulkPending,
		Count:       len(entries),
		Entries:     entries,
		Summary:     toSummary(v.Summary),
	}
}

type syncResponse struct {
	Status       string    `json:"status"`
	Ticket       string    `json:"ticket"`
	Scope        string    `json:"scope"`
	RollNumber   string    `json:"roll_number,omitempty"`
	PendingUntil time.Time `json:"pending_until"`
}

type syncStatusResponse struct {
	Pending     []string `json:"pending"`
	BulkPending bool     `json:"bulk_pending"`
}

type failureResponse struct {
	Ticket     string    `json:"ticket"`
	Scope      string    `json:"scope"`
	RollNumber string    `json:"roll_number,omitempty"`
	Error      string    `json:"error"`
	At         time.Time `json:"at"`
}

func toFailures(in []service.Failure) []failureResponse {
	out := make([]failureResponse, len(in))
	for i, f := range in {
		out[i] = failureResponse{
			Ticket:     f.TicketID,
			Scope:      string(f.Scope),
			RollNumber: f.ParticipantID,
			Error:      f.Error,
			At:         f.At,
		}
	}
	return out
}
