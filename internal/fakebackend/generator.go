package fakebackend

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileCaseDivisor = 6
)

// Participant profiles, from most to least common.
const (
	caseNewcomer = iota
	caseSteady
	caseCertified
	caseChampion
	caseInnovator
	caseLegend
)

var certificationPool = []string{
	"Salesforce Certified AI Associate",
	"Salesforce Certified Administrator",
	"Salesforce Certified Platform Developer I",
	"Salesforce Certified Agentforce Specialist",
}

var diagnosticPool = []string{
	"Profile is private",
	"Invalid profile URL",
	"Timeout while loading profile",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Generate creates n participants with roll numbers R0001..Rn.
func Generate(n int, now time.Time) []participant.Record {
	records := make([]participant.Record, n)
	for i := range records {
		records[i] = generateOne(i, now)
	}
	return records
}

func generateOne(index int, now time.Time) participant.Record {
	id := fmt.Sprintf("R%04d", index+1)
	r := participant.Record{
		ID:          id,
		DisplayName: "Student " + id,
		ProfileURL:  "https://www.salesforce.com/trailblazer/" + uuid.NewString(),
		LastUpdated: now,
	}

	switch randomInt(profileCaseDivisor) {
	case caseNewcomer:
		r.Score = int(getRandomFloat() * 2000)
		r.BadgeCount = randomInt(participant.CompletionThreshold)
	case caseSteady:
		r.Score = 2000 + int(getRandomFloat()*8000)
		r.BadgeCount = participant.CompletionThreshold - 3 + randomInt(6)
	case caseCertified:
		r.Score = 5000 + int(getRandomFloat()*10000)
		r.BadgeCount = participant.CompletionThreshold + randomInt(20)
		r.Certifications = pickCertifications(1 + randomInt(2))
	case caseChampion:
		r.Score = 8000 + int(getRandomFloat()*10000)
		r.BadgeCount = participant.CompletionThreshold + randomInt(30)
		r.Tiers = r.Tiers.With(participant.Champion)
	case caseInnovator:
		r.Score = 12000 + int(getRandomFloat()*15000)
		r.BadgeCount = participant.CompletionThreshold + 10 + randomInt(30)
		r.Tiers = r.Tiers.With(participant.Champion).With(participant.Innovator)
		r.Certifications = pickCertifications(1)
	case caseLegend:
		r.Score = 20000 + int(getRandomFloat()*20000)
		r.BadgeCount = participant.CompletionThreshold + 25 + randomInt(40)
		r.Tiers = r.Tiers.With(participant.Champion).With(participant.Innovator).With(participant.Legend)
		r.Certifications = pickCertifications(2)
	}

	// Roughly one in twenty profiles fails to scrape.
	if randomInt(20) == 0 {
		r.SyncDiagnostic = diagnosticPool[randomInt(len(diagnosticPool))]
	}
	return r
}

func pickCertifications(n int) []string {
	start := randomInt(len(certificationPool))
	out := make([]string, 0, n)
	for i := 0; i < n && i < len(certificationPool); i++ {
		out = append(out, certificationPool[(start+i)%len(certificationPool)])
	}
	return out
}
