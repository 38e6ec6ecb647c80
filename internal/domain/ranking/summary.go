package ranking

import (
	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// Summary holds aggregates over a whole snapshot. It ignores filters.
type Summary struct {
	Total       int
	ByLevel     [4]int
	Certified   int
	Complete    int
	Diagnostics map[participant.DiagnosticClass]int
}

// Summarize computes aggregates over the unfiltered records.
func Summarize(records []participant.Record) Summary {
	s := Summary{
		Total:       len(records),
		Diagnostics: make(map[participant.DiagnosticClass]int),
	}
	for _, r := range records {
		s.ByLevel[r.Level()]++
		if r.HasCertification() {
			s.Certified++
		}
		if r.Completion() == participant.Complete {
			s.Complete++
		}
		s.Diagnostics[r.Diagnostic()]++
	}
	return s
}

// Tier returns the number of participants whose highest tier is t.
func (s Summary) Tier(t participant.Tier) int {
	var none participant.TierSet
	return s.ByLevel[none.With(t).Level()]
}
