// Package participant contains the participant record and the derived
// attributes (tier level, completion bucket, diagnostic class) that ranking
// and filtering are built on.
package participant

import (
	"time"
)

// CompletionThreshold is the badge count at which a participant counts as complete.
const CompletionThreshold = 10

// Completion is the completion bucket derived from the badge count.
type Completion int

const (
	InProgress Completion = iota
	Complete
)

func (c Completion) String() string {
	if c == Complete {
		return "complete"
	}
	return "in_progress"
}

// Record is one participant row of a snapshot. Records are values; a snapshot
// replaces them wholesale and nothing mutates them in place.
type Record struct {
	ID             string
	DisplayName    string
	Score          int
	BadgeCount     int
	Certifications []string
	Tiers          TierSet
	ProfileURL     string
	SyncDiagnostic string
	LastUpdated    time.Time
}

// Name returns the display name, falling back to the id.
func (r Record) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.ID
}

// CertificationCount returns the number of certifications held.
func (r Record) CertificationCount() int { return len(r.Certifications) }

// HasCertification reports whether at least one certification is held.
func (r Record) HasCertification() bool { return len(r.Certifications) > 0 }

// Level returns the tier ranking level of the record.
func (r Record) Level() Level { return r.Tiers.Level() }

// Completion returns the completion bucket of the record.
func (r Record) Completion() Completion {
	if r.BadgeCount >= CompletionThreshold {
		return Complete
	}
	return InProgress
}

// Diagnostic classifies the record's sync diagnostic.
func (r Record) Diagnostic() DiagnosticClass { return ClassifyDiagnostic(r.SyncDiagnostic) }

// Normalize clamps counters and trims the certification list to non-empty names.
func (r Record) Normalize() Record {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.BadgeCount < 0 {
		r.BadgeCount = 0
	}
	if len(r.Certifications) > 0 {
		certs := make([]string, 0, len(r.Certifications))
		for _, c := range r.Certifications {
			if c != "" {
				certs = append(certs, c)
			}
		}
		r.Certifications = certs
	}
	return r
}
