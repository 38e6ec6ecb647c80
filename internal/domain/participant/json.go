package participant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// wireRecord is the JSON shape exchanged with the backend and stored in
// static snapshots.
type wireRecord struct {
	RollNumber     string      `json:"roll_number"`
	Name           string      `json:"name,omitempty"`
	ProfileURL     string      `json:"profile_url,omitempty"`
	Points         flexInt     `json:"points"`
	Badges         flexInt     `json:"badges"`
	Certifications flexStrings `json:"certifications"`
	Status         flexStrings `json:"agentblazer_status"`
	ScrapeError    string      `json:"scrape_error,omitempty"`
	LastUpdated    string      `json:"last_updated,omitempty"`
}

// MarshalJSON encodes the record in the snapshot wire format.
func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		RollNumber:     r.ID,
		Name:           r.DisplayName,
		ProfileURL:     r.ProfileURL,
		Points:         flexInt(r.Score),
		Badges:         flexInt(r.BadgeCount),
		Certifications: flexStrings(nonNil(r.Certifications)),
		Status:         flexStrings(r.Tiers.Labels()),
		ScrapeError:    r.SyncDiagnostic,
	}
	if !r.LastUpdated.IsZero() {
		w.LastUpdated = r.LastUpdated.UTC().Format(time.RFC3339)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a record leniently: malformed optional fields fall
// back to their zero value and counters are clamped at zero.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		ID:             strings.TrimSpace(w.RollNumber),
		DisplayName:    strings.TrimSpace(w.Name),
		ProfileURL:     strings.TrimSpace(w.ProfileURL),
		Score:          int(w.Points),
		BadgeCount:     int(w.Badges),
		Certifications: []string(w.Certifications),
		Tiers:          TiersFromLabels(w.Status),
		SyncDiagnostic: strings.TrimSpace(w.ScrapeError),
		LastUpdated:    parseTime(w.LastUpdated),
	}
	*r = r.Normalize()
	return nil
}

// DecodeSnapshot reads a JSON array of records. Rows without an id are
// dropped; the number dropped is returned alongside the records.
func DecodeSnapshot(rd io.Reader) ([]Record, int, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(rd).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}
	records := make([]Record, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal(item, &rec); err != nil || rec.ID == "" {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// EncodeSnapshot writes records as an indented JSON array.
func EncodeSnapshot(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []Record{}
	}
	return enc.Encode(records)
}

// flexInt accepts JSON numbers, numeric strings and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			*f = 0
			return nil
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// flexStrings accepts a list of strings, a single string, or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil || strings.TrimSpace(s) == "" {
			*f = nil
			return nil
		}
		*f = flexStrings{strings.TrimSpace(s)}
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		*f = nil
		return nil
	}
	out := make(flexStrings, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	*f = out
	return nil
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
