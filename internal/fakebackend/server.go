// Package fakebackend serves the scraper backend's HTTP surface from memory.
// It backs local development and integration tests.
package fakebackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	"github.com/DhanushPadarthi/trailhead-leaderboard/pkg/logger"
)

const maxUploadBytes = 8 << 20

// Config holds configuration for the fake backend.
type Config struct {
	Addr         string        // Listen address
	Participants int           // Number of generated participants
	ScrapeDelay  time.Duration // Simulated trigger latency
	Verbose      bool          // Enable debug logging
}

// Server is an in-memory backend. Failures can be injected at runtime.
type Server struct {
	mu          sync.RWMutex
	records     []participant.Record
	index       map[string]int
	scrapeDelay time.Duration

	studentsFailing bool
	scrapeFailing   bool

	now    func() time.Time
	logger logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRecords seeds the server instead of generating participants.
func WithRecords(records []participant.Record) Option {
	return func(s *Server) {
		s.records = append([]participant.Record(nil), records...)
	}
}

// WithScrapeDelay makes every trigger take d.
func WithScrapeDelay(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.scrapeDelay = d
		}
	}
}

// WithClock sets the time source for LastUpdated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a server holding n generated participants unless WithRecords
// is given.
func New(n int, opts ...Option) *Server {
	s := &Server{
		now:    time.Now,
		logger: logger.Get().Named("fake-backend"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.records == nil {
		s.records = Generate(n, s.now())
	}
	s.reindex()
	return s
}

func (s *Server) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.ID] = i
	}
}

// SetStudentsFailing makes GET /students answer 503.
func (s *Server) SetStudentsFailing(failing bool) {
	s.mu.Lock()
	s.studentsFailing = failing
	s.mu.Unlock()
}

// SetScrapeFailing makes every trigger answer 500.
func (s *Server) SetScrapeFailing(failing bool) {
	s.mu.Lock()
	s.scrapeFailing = failing
	s.mu.Unlock()
}

// Records returns a copy of the current records.
func (s *Server) Records() []participant.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]participant.Record(nil), s.records...)
}

// Handler returns the backend routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /students", s.handleStudents)
	mux.HandleFunc("POST /scrape/{id}", s.handleScrape)
	mux.HandleFunc("POST /scrape-all", s.handleScrapeAll)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /export", s.handleExport)
	return mux
}

func (s *Server) handleStudents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	failing := s.studentsFailing
	records := append([]participant.Record(nil), s.records...)
	s.mu.RUnlock()

	if failing {
		writeDetail(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := participant.EncodeSnapshot(w, records); err != nil {
		s.logger.Error(r.Context(), "encode students", logger.Error(err))
	}
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.wait(r.Context()); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrapeFailing {
		writeDetail(w, http.StatusInternalServerError, "scraper crashed")
		return
	}
	i, ok := s.index[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Student not found")
		return
	}
	s.records[i] = s.bump(s.records[i])
	s.logger.Debug(r.Context(), "scraped", logger.String("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scraping started for " + id})
}

func (s *Server) handleScrapeAll(w http.ResponseWriter, r *http.Request) {
	if err := s.wait(r.Context()); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scrapeFailing {
		writeDetail(w, http.StatusInternalServerError, "scraper crashed")
		return
	}
	for i := range s.records {
		s.records[i] = s.bump(s.records[i])
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scraping started for all students"})
}

// handleUpload imports a CSV roster of roll_number,name,profile_url rows.
// Known ids keep their progress; new ids start at zero.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	rows, err := readRoster(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	for _, row := range rows {
		if i, ok := s.index[row.ID]; ok {
			s.records[i].DisplayName = row.DisplayName
			s.records[i].ProfileURL = row.ProfileURL
			continue
		}
		row.SyncDiagnostic = participant.DiagnosticPendingVerification
		s.records = append(s.records, row)
		s.index[row.ID] = len(s.records) - 1
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Imported %d students", len(rows)),
		"count":   len(rows),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	records := s.Records()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"roll_number", "name", "points", "badges", "certifications", "agentblazer_status"})
	for _, rec := range records {
		_ = cw.Write([]string{
			rec.ID,
			rec.Name(),
			strconv.Itoa(rec.Score),
			strconv.Itoa(rec.BadgeCount),
			strings.Join(rec.Certifications, "; "),
			strings.Join(rec.Tiers.Labels(), "; "),
		})
	}
	cw.Flush()
}

// bump simulates a fresh scrape. Must be called with s.mu held.
func (s *Server) bump(r participant.Record) participant.Record {
	r.Score += randomInt(500)
	if randomInt(3) == 0 {
		r.BadgeCount++
	}
	r.SyncDiagnostic = ""
	r.LastUpdated = s.now()
	return r
}

func (s *Server) wait(ctx context.Context) error {
	s.mu.RLock()
	d := s.scrapeDelay
	s.mu.RUnlock()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readRoster(r io.Reader) ([]participant.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []participant.Record
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster line %d: %w", line, err)
		}
		if len(fields) == 0 || fields[0] == "" || strings.EqualFold(fields[0], "roll_number") {
			continue
		}
		rec := participant.Record{ID: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			rec.DisplayName = strings.TrimSpace(fields[1])
		}
		if len(fields) > 2 {
			rec.ProfileURL = strings.TrimSpace(fields[2])
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
