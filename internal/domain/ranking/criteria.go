// Package ranking turns a participant snapshot into an ordered, filtered view.
// Everything here is pure: inputs are never mutated and the same inputs
// always produce the same output.
package ranking

import (
	"strconv"
	"strings"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// Tri is a three-way filter choice. The zero value matches everything.
type Tri int

const (
	Any Tri = iota
	Yes
	No
)

// Match reports whether v satisfies the choice.
func (t Tri) Match(v bool) bool {
	switch t {
	case Yes:
		return v
	case No:
		return !v
	}
	return true
}

func (t Tri) String() string {
	switch t {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "all"
}

// CompletionFilter selects a completion bucket.
type CompletionFilter int

const (
	CompletionAny CompletionFilter = iota
	CompletionComplete
	CompletionInProgress
)

// Threshold is an optional inclusive lower bound. Unset never filters.
type Threshold struct {
	Value int
	Set   bool
}

// AtLeast returns a set threshold.
func AtLeast(v int) Threshold { return Threshold{Value: v, Set: true} }

// Admits reports whether v passes the threshold.
func (t Threshold) Admits(v int) bool { return !t.Set || v >= t.Value }

// DiagnosticFilter selects a diagnostic class, or any.
type DiagnosticFilter struct {
	Class participant.DiagnosticClass
	Set   bool
}

// Criteria is an immutable filter description. The zero value filters nothing.
type Criteria struct {
	NameQuery     string
	Completion    CompletionFilter
	MinScore      Threshold
	MinBadges     Threshold
	Certification Tri
	Tiers         [participant.TierCount]Tri
	Diagnostic    DiagnosticFilter
}

// WithTier returns a copy of c with the tier choice replaced.
func (c Criteria) WithTier(t participant.Tier, choice Tri) Criteria {
	c.Tiers[t] = choice
	return c
}

// IsZero reports whether c filters nothing.
func (c Criteria) IsZero() bool { return c == Criteria{} }

// ParseThreshold reads a free-text bound. Blank, non-numeric or negative
// input yields an unset threshold rather than zero.
func ParseThreshold(s string) Threshold {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return Threshold{}
	}
	return AtLeast(v)
}

// ParseTri reads yes/no style input; anything else is Any.
func ParseTri(s string) Tri {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y":
		return Yes
	case "no", "false", "0", "n":
		return No
	}
	return Any
}

// ParseCompletion reads "complete" or "in_progress"; anything else is Any.
func ParseCompletion(s string) CompletionFilter {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete", "completed":
		return CompletionComplete
	case "in_progress", "in-progress", "inprogress", "in progress":
		return CompletionInProgress
	}
	return CompletionAny
}

// ParseDiagnostic reads a diagnostic class name; anything else is unset.
func ParseDiagnostic(s string) DiagnosticFilter {
	class, ok := participant.ParseDiagnosticClass(s)
	if !ok {
		return DiagnosticFilter{}
	}
	return DiagnosticFilter{Class: class, Set: true}
}

// Matches reports whether r passes every clause of c.
func (c Criteria) Matches(r participant.Record) bool {
	if q := strings.TrimSpace(c.NameQuery); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(r.DisplayName), q) && !strings.Contains(strings.ToLower(r.ID), q) {
			return false
		}
	}
	switch c.Completion {
	case CompletionComplete:
		if r.Completion() != participant.Complete {
			return false
		}
	case CompletionInProgress:
		if r.Completion() != participant.InProgress {
			return false
		}
	}
	if !c.MinScore.Admits(r.Score) || !c.MinBadges.Admits(r.BadgeCount) {
		return false
	}
	if !c.Certification.Match(r.HasCertification()) {
		return false
	}
	for _, t := range participant.Tiers {
		if !c.Tiers[t].Match(r.Tiers.Has(t)) {
			return false
		}
	}
	if c.Diagnostic.Set && r.Diagnostic() != c.Diagnostic.Class {
		return false
	}
	return true
}
