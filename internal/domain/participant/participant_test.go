package participant_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/DhanushPadarthi/trailhead-leaderboard/internal/domain/participant"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTierLevel(t *testing.T) {
	Convey("Given tier sets", t, func() {
		var none participant.TierSet

		Convey("Then the highest attained tier decides the level", func() {
			So(none.Level(), ShouldEqual, 0)
			So(none.With(participant.Champion).Level(), ShouldEqual, 1)
			So(none.With(participant.Innovator).Level(), ShouldEqual, 2)
			So(none.With(participant.Legend).Level(), ShouldEqual, 3)
		})

		Convey("Then non-cumulative flags still rank by the highest one", func() {
			legendOnly := none.With(participant.Legend)
			So(legendOnly.Has(participant.Champion), ShouldBeFalse)
			So(legendOnly.Level(), ShouldEqual, 3)

			mixed := none.With(participant.Champion).With(participant.Legend)
			So(mixed.Level(), ShouldEqual, 3)
		})
	})

	Convey("Given published status labels", t, func() {
		set := participant.TiersFromLabels([]string{"Agentblazer Champion 2026", "Innovator 2026", "Explorer"})

		Convey("Then labels are matched by containment", func() {
			So(set.Has(participant.Champion), ShouldBeTrue)
			So(set.Has(participant.Innovator), ShouldBeTrue)
			So(set.Has(participant.Legend), ShouldBeFalse)
			So(set.Labels(), ShouldResemble, []string{"Champion 2026", "Innovator 2026"})
		})
	})

	Convey("Given tier names", t, func() {
		tier, ok := participant.ParseTier(" Legend ")
		So(ok, ShouldBeTrue)
		So(tier, ShouldEqual, participant.Legend)

		_, ok = participant.ParseTier("explorer")
		So(ok, ShouldBeFalse)
	})
}

func TestRecordDerivedValues(t *testing.T) {
	Convey("Given records around the completion boundary", t, func() {
		nine := participant.Record{ID: "a", BadgeCount: 9}
		ten := participant.Record{ID: "b", BadgeCount: 10}

		Convey("Then ten badges complete and nine do not", func() {
			So(nine.Completion(), ShouldEqual, participant.InProgress)
			So(ten.Completion(), ShouldEqual, participant.Complete)
			So(ten.Completion().String(), ShouldEqual, "complete")
		})
	})

	Convey("Given a record without a display name", t, func() {
		rec := participant.Record{ID: "ROLL-7"}

		Convey("Then the id is presented instead", func() {
			So(rec.Name(), ShouldEqual, "ROLL-7")
			So(rec.HasCertification(), ShouldBeFalse)
			So(rec.CertificationCount(), ShouldEqual, 0)
		})
	})

	Convey("Given a record with negative counters", t, func() {
		rec := participant.Record{ID: "x", Score: -4, BadgeCount: -1, Certifications: []string{"", "Admin"}}.Normalize()

		Convey("Then normalization clamps them", func() {
			So(rec.Score, ShouldEqual, 0)
			So(rec.BadgeCount, ShouldEqual, 0)
			So(rec.Certifications, ShouldResemble, []string{"Admin"})
		})
	})
}

func TestClassifyDiagnostic(t *testing.T) {
	Convey("Given diagnostic messages", t, func() {
		cases := []struct {
			msg  string
			want participant.DiagnosticClass
		}{
			{"", participant.DiagnosticOK},
			{"Profile is private", participant.DiagnosticPrivate},
			{"ACCESS DENIED", participant.DiagnosticPrivate},
			{participant.DiagnosticPendingVerification, participant.DiagnosticPrivate},
			{"Page not found", participant.DiagnosticInvalid},
			{"navigation failed: timeout", participant.DiagnosticInvalid},
			{"selector timeout", participant.DiagnosticError},
		}

		Convey("Then each one lands in its class", func() {
			for _, tc := range cases {
				So(participant.ClassifyDiagnostic(tc.msg), ShouldEqual, tc.want)
			}
		})

		Convey("Then class names round-trip", func() {
			class, ok := participant.ParseDiagnosticClass("invalid")
			So(ok, ShouldBeTrue)
			So(class, ShouldEqual, participant.DiagnosticInvalid)
			So(class.String(), ShouldEqual, "invalid")
		})
	})
}

func TestSnapshotDecoding(t *testing.T) {
	Convey("Given a snapshot with loosely typed fields", t, func() {
		payload := `[
			{"roll_number": "R1", "name": "Asha", "points": "12,500", "badges": 11,
			 "certifications": ["Admin", "Developer"], "agentblazer_status": ["Legend 2026"],
			 "profile_url": "https://example.org/r1", "last_updated": "2026-01-02T03:04:05"},
			{"roll_number": "R2", "points": null, "badges": "n/a", "certifications": "Admin",
			 "agentblazer_status": null, "scrape_error": "Profile is private"},
			{"name": "no id"},
			42
		]`

		records, skipped, err := participant.DecodeSnapshot(strings.NewReader(payload))

		Convey("Then valid rows are normalized and the rest skipped", func() {
			So(err, ShouldBeNil)
			So(skipped, ShouldEqual, 2)
			So(len(records), ShouldEqual, 2)

			So(records[0].Score, ShouldEqual, 12500)
			So(records[0].BadgeCount, ShouldEqual, 11)
			So(records[0].Level(), ShouldEqual, 3)
			So(records[0].LastUpdated.Year(), ShouldEqual, 2026)

			So(records[1].Score, ShouldEqual, 0)
			So(records[1].BadgeCount, ShouldEqual, 0)
			So(records[1].Certifications, ShouldResemble, []string{"Admin"})
			So(records[1].Diagnostic(), ShouldEqual, participant.DiagnosticPrivate)
		})
	})

	Convey("Given a payload that is not an array", t, func() {
		_, _, err := participant.DecodeSnapshot(strings.NewReader(`{"detail": "oops"}`))

		Convey("Then decoding fails with a malformed snapshot error", func() {
			So(errors.Is(err, participant.ErrMalformedSnapshot), ShouldBeTrue)
		})
	})

	Convey("Given records encoded back to the wire format", t, func() {
		var none participant.TierSet
		rec := participant.Record{ID: "R9", DisplayName: "Ben", Score: 5, Tiers: none.With(participant.Champion)}

		var buf bytes.Buffer
		So(participant.EncodeSnapshot(&buf, []participant.Record{rec}), ShouldBeNil)

		Convey("Then the original field names are used", func() {
			var raw []map[string]any
			So(json.Unmarshal(buf.Bytes(), &raw), ShouldBeNil)
			So(raw[0]["roll_number"], ShouldEqual, "R9")
			So(raw[0]["points"], ShouldEqual, 5)
			So(raw[0]["agentblazer_status"], ShouldResemble, []any{"Champion 2026"})
			So(raw[0]["certifications"], ShouldResemble, []any{})
		})
	})
}
