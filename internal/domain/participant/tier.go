package participant

import (
	"strings"
)

// Tier is an achievement tier of the external program.
type Tier int

const (
	Champion Tier = iota
	Innovator
	Legend

	// TierCount is the number of recognised tiers.
	TierCount = 3
)

// Tiers lists the recognised tiers from lowest to highest.
var Tiers = [TierCount]Tier{Champion, Innovator, Legend}

var tierLabels = [TierCount]string{
	Champion:  "Champion 2026",
	Innovator: "Innovator 2026",
	Legend:    "Legend 2026",
}

var tierNames = [TierCount]string{
	Champion:  "champion",
	Innovator: "innovator",
	Legend:    "legend",
}

// Label is the status label the program publishes for the tier.
func (t Tier) Label() string { return tierLabels[t] }

// String returns the lower-case tier name.
func (t Tier) String() string { return tierNames[t] }

// ParseTier maps a lower-case tier name to a Tier.
func ParseTier(name string) (Tier, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Tiers {
		if tierNames[t] == name {
			return t, true
		}
	}
	return 0, false
}

// TierSet is the set of tiers a participant has attained. Flags are
// independent; the program does not guarantee they are cumulative.
type TierSet uint8

// With returns the set with t added.
func (s TierSet) With(t Tier) TierSet { return s | 1<<uint(t) }

// Has reports whether t is attained.
func (s TierSet) Has(t Tier) bool { return s&(1<<uint(t)) != 0 }

// Level is the tier ranking level: 3 legend, 2 innovator, 1 champion, 0 none.
type Level int

// Level returns the level of the highest attained tier.
func (s TierSet) Level() Level {
	switch {
	case s.Has(Legend):
		return 3
	case s.Has(Innovator):
		return 2
	case s.Has(Champion):
		return 1
	}
	return 0
}

// Labels returns the program labels of the attained tiers, lowest first.
func (s TierSet) Labels() []string {
	labels := make([]string, 0, TierCount)
	for _, t := range Tiers {
		if s.Has(t) {
			labels = append(labels, t.Label())
		}
	}
	return labels
}

// TiersFromLabels builds a set from published status labels. A label attains
// a tier when it contains the tier's label.
func TiersFromLabels(labels []string) TierSet {
	var s TierSet
	for _, l := range labels {
		for _, t := range Tiers {
			if strings.Contains(l, t.Label()) {
				s = s.With(t)
			}
		}
	}
	return s
}
