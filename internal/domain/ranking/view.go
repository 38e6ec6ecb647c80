package ranking

import (
	"cmp"
	"slices"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// ComputeView filters records by c and orders the result by tier level
// descending, then score descending. The sort is stable so ties keep their
// input order. records is not modified.
func ComputeView(records []participant.Record, c Criteria) []participant.Record {
	out := make([]participant.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, compare)
	return out
}

func compare(a, b participant.Record) int {
	if n := cmp.Compare(b.Level(), a.Level()); n != 0 {
		return n
	}
	return cmp.Compare(b.Score, a.Score)
}

// Entry is one ranked row of a view.
type Entry struct {
	Rank            int
	Record          participant.Record
	Level           participant.Level
	Completion      participant.Completion
	Diagnostic      participant.DiagnosticClass
	RefreshInFlight bool
}

// Entries numbers an ordered view 1..n and joins the in-flight flag.
// inFlight may be nil.
func Entries(view []participant.Record, inFlight func(id string) bool) []Entry {
	entries := make([]Entry, len(view))
	for i, r := range view {
		entries[i] = Entry{
			Rank:       i + 1,
			Record:     r,
			Level:      r.Level(),
			Completion: r.Completion(),
			Diagnostic: r.Diagnostic(),
		}
		if inFlight != nil {
			entries[i].RefreshInFlight = inFlight(r.ID)
		}
	}
	return entries
}

// Find returns the entry for id within entries.
func Find(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.Record.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}
