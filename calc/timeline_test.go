package calc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/calculators"
	"github.com/warp/release-engine/legislation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newEngine(services calc.Services) *calc.Engine {
	return calc.NewEngine(legislation.Configurations(), legislation.SDS40Tranches(), services, zerolog.Nop())
}

func assertResultDate(t *testing.T, out *calc.CalculationOutput, dt calc.ReleaseDateType, want calc.Date) {
	t.Helper()
	got, ok := out.Result.Dates[dt]
	if !ok {
		t.Errorf("%s: expected %s, date absent", dt, want)
		return
	}
	if !got.Equal(want) {
		t.Errorf("%s: expected %s, got %s", dt, want, got)
	}
}

// =============================================================================
// PLAIN RUNS
// =============================================================================

func TestEngine_SingleSentenceWithRemand(t *testing.T) {
	// GIVEN: A 12-month ORA sentence from 15 Jan 2020 with 10 days remand
	// WHEN: The booking is calculated
	// THEN: Release comes forward 10 days; the group ends on the previous
	//       working day but the recorded dates keep the calendar day

	s := sds(calc.NewDate(2020, time.January, 15), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	s.ORA = true
	b := &calc.Booking{
		Offender:  adultOffender,
		Sentences: []*calc.Sentence{s},
		Adjustments: calc.BookingAdjustments{
			calc.AdjustmentRemand: {{
				Type: calc.AdjustmentRemand, Days: 10,
				AppliesToSentencesFrom: calc.NewDate(2020, time.January, 15),
			}},
		},
	}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertResultDate(t, out, calc.CRD, calc.NewDate(2020, time.July, 5))
	assertResultDate(t, out, calc.SLED, calc.NewDate(2021, time.January, 4))
	assertResultDate(t, out, calc.TUSED, calc.NewDate(2021, time.July, 5))

	if out.Result.AllocatedTranche != "" {
		t.Errorf("expected no tranche, got %s", out.Result.AllocatedTranche)
	}
	if out.Result.AffectedByEarlyRelease {
		t.Error("expected no early-release impact")
	}

	if len(out.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(out.Groups))
	}
	g := out.Groups[0]
	// 5 Jul 2020 is a Sunday; the episode end rolls back to the Friday.
	if !g.End.Equal(calc.NewDate(2020, time.July, 3)) {
		t.Errorf("expected group end 2020-07-03, got %s", g.End)
	}
	if len(g.LicenceSentenceIDs) != 1 || g.LicenceSentenceIDs[0] != "s1" {
		t.Errorf("expected licence open for s1, got %v", g.LicenceSentenceIDs)
	}
}

func TestEngine_AwardedDaysBeforeCustodyBuffered(t *testing.T) {
	// GIVEN: 10 days awarded before any sentence exists
	// WHEN: A sentence lands later
	// THEN: The buffered days apply to it

	s := sds(calc.NewDate(2020, time.March, 1), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	b := &calc.Booking{
		Offender:  adultOffender,
		Sentences: []*calc.Sentence{s},
		Adjustments: calc.BookingAdjustments{
			calc.AdjustmentADA: {{
				Type: calc.AdjustmentADA, Days: 10,
				AppliesToSentencesFrom: calc.NewDate(2020, time.January, 10),
			}},
		},
	}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertResultDate(t, out, calc.CRD, calc.NewDate(2020, time.September, 9))
	if got := out.Result.Breakdowns[calc.CRD].AdjustedDays; got != 10 {
		t.Errorf("expected 10 adjusted days, got %d", got)
	}
}

func TestEngine_UALExtendsCustodialDates(t *testing.T) {
	// GIVEN: 14 days at large during custody
	// WHEN: The booking is calculated
	// THEN: Both release and expiry move 14 days out

	s := sds(calc.NewDate(2020, time.January, 1), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	b := &calc.Booking{
		Offender:  adultOffender,
		Sentences: []*calc.Sentence{s},
		Adjustments: calc.BookingAdjustments{
			calc.AdjustmentUAL: {{
				Type: calc.AdjustmentUAL, Days: 14,
				From:                   calc.NewDate(2020, time.March, 1),
				AppliesToSentencesFrom: calc.NewDate(2020, time.March, 1),
			}},
		},
	}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertResultDate(t, out, calc.CRD, calc.NewDate(2020, time.July, 15))
	assertResultDate(t, out, calc.SLED, calc.NewDate(2021, time.January, 14))
}

// =============================================================================
// TRANCHE COMMENCEMENT
// =============================================================================

func TestEngine_TrancheAllocation(t *testing.T) {
	// GIVEN: A 3-year SDS still in custody when tranche one commences
	// WHEN: The booking is calculated
	// THEN: Release recomputes at the current point; expiry does not move

	s := sds(calc.NewDate(2023, time.June, 1), calc.NewDate(2023, time.January, 1), calc.NewDuration(3, calc.UnitYears))
	b := &calc.Booking{Offender: adultOffender, Sentences: []*calc.Sentence{s}}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertResultDate(t, out, calc.CRD, calc.NewDate(2024, time.August, 12))
	assertResultDate(t, out, calc.SLED, calc.NewDate(2026, time.May, 31))

	if out.Result.AllocatedTranche != "TRANCHE_1" {
		t.Errorf("expected TRANCHE_1, got %q", out.Result.AllocatedTranche)
	}
	if out.Result.Tranche != "TRANCHE_1" {
		t.Errorf("expected governing tranche TRANCHE_1, got %q", out.Result.Tranche)
	}
	if !out.Result.AffectedByEarlyRelease {
		t.Error("expected early-release impact")
	}
	if !out.Result.ShowEarlyReleaseHints {
		t.Error("expected early-release hints")
	}
}

func TestEngine_HdcedBroughtToCommencement(t *testing.T) {
	// GIVEN: A 12-month ORA sentence whose curfew eligibility would predate
	//        tranche one
	// WHEN: The booking is calculated with the full calculator set
	// THEN: The curfew date is brought forward to the commencement date

	s := sds(calc.NewDate(2024, time.May, 1), calc.NewDate(2023, time.December, 1), calc.NewDuration(12, calc.UnitMonths))
	s.ORA = true
	b := &calc.Booking{Offender: adultOffender, Sentences: []*calc.Sentence{s}}

	out, err := newEngine(calculators.NewServices(nil)).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertResultDate(t, out, calc.CRD, calc.NewDate(2024, time.September, 23))
	assertResultDate(t, out, calc.SLED, calc.NewDate(2025, time.April, 30))
	assertResultDate(t, out, calc.TUSED, calc.NewDate(2025, time.September, 23))
	assertResultDate(t, out, calc.HDCED, calc.NewDate(2024, time.September, 10))

	hdced := out.Result.Breakdowns[calc.HDCED]
	if !hdced.HasRule(calc.RuleHDCEDAdjustedToTranche) {
		t.Error("expected HDCED brought to commencement")
	}
	if hdced.AdjustedDays != 105 {
		t.Errorf("expected 105 adjusted days, got %d", hdced.AdjustedDays)
	}
}

// =============================================================================
// CONSECUTIVE CHAINS
// =============================================================================

func TestEngine_ConsecutiveChainAggregates(t *testing.T) {
	// GIVEN: Two 12-month ORA sentences, the second consecutive to the first
	// WHEN: The booking is calculated
	// THEN: The chain folds to one 24-month composite; the supervision top-up
	//       no longer applies at that length

	s1 := sds(calc.NewDate(2020, time.January, 1), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	s1.ORA = true
	s2 := sds(calc.NewDate(2020, time.January, 1), calc.NewDate(2019, time.July, 1), calc.NewDuration(12, calc.UnitMonths))
	s2.ID = "s2"
	s2.ORA = true
	s2.ConsecutiveToID = "s1"
	b := &calc.Booking{Offender: adultOffender, Sentences: []*calc.Sentence{s1, s2}}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Sentences) != 1 {
		t.Fatalf("expected 1 folded sentence, got %d", len(out.Sentences))
	}
	if out.Sentences[0].Kind != calc.SentenceConsecutive {
		t.Errorf("expected composite, got %s", out.Sentences[0].Kind)
	}

	assertResultDate(t, out, calc.CRD, calc.NewDate(2020, time.December, 31))
	assertResultDate(t, out, calc.SLED, calc.NewDate(2021, time.December, 31))
	if _, ok := out.Result.Dates[calc.TUSED]; ok {
		t.Error("expected no top-up supervision on a 24-month aggregate")
	}
}

func TestEngine_UnknownConsecutiveLink(t *testing.T) {
	// GIVEN: A sentence linked to an ID not in the booking
	// WHEN: The booking is calculated
	// THEN: The run fails before the replay starts

	s := sds(calc.NewDate(2020, time.January, 1), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	s.ConsecutiveToID = "ghost"
	b := &calc.Booking{Offender: adultOffender, Sentences: []*calc.Sentence{s}}

	_, err := newEngine(calc.DefaultServices()).Calculate(b)
	if !errors.Is(err, calc.ErrUnknownConsecutiveLink) {
		t.Errorf("expected unknown link error, got %v", err)
	}
}

// =============================================================================
// EXTERNAL MOVEMENTS
// =============================================================================

func TestEngine_RecordedReleaseFreezesGroup(t *testing.T) {
	// GIVEN: A recorded release before the computed release date
	// WHEN: The booking is calculated
	// THEN: The episode ends on the recorded date

	s := sds(calc.NewDate(2020, time.January, 1), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	b := &calc.Booking{
		Offender:  adultOffender,
		Sentences: []*calc.Sentence{s},
		ExternalMovements: []calc.ExternalMovement{
			{Date: calc.NewDate(2020, time.May, 1), Direction: calc.MovementOut, Reason: "RELEASED"},
		},
	}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(out.Groups))
	}
	if !out.Groups[0].End.Equal(calc.NewDate(2020, time.May, 1)) {
		t.Errorf("expected group end 2020-05-01, got %s", out.Groups[0].End)
	}
}

func TestEngine_QualifyingReadmissionCancelsFreeze(t *testing.T) {
	// GIVEN: A release followed by recapture
	// WHEN: The booking is calculated
	// THEN: The computed release date still governs the episode end

	s := sds(calc.NewDate(2020, time.January, 1), calc.NewDate(2019, time.June, 1), calc.NewDuration(12, calc.UnitMonths))
	b := &calc.Booking{
		Offender:  adultOffender,
		Sentences: []*calc.Sentence{s},
		ExternalMovements: []calc.ExternalMovement{
			{Date: calc.NewDate(2020, time.May, 1), Direction: calc.MovementOut, Reason: "ESCAPED"},
			{Date: calc.NewDate(2020, time.May, 20), Direction: calc.MovementIn, Reason: "RECAPTURED"},
		},
	}

	out, err := newEngine(calc.DefaultServices()).Calculate(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 Jul 2020 is a Wednesday; no working-day rollback.
	if !out.Groups[len(out.Groups)-1].End.Equal(calc.NewDate(2020, time.July, 1)) {
		t.Errorf("expected group end 2020-07-01, got %s", out.Groups[len(out.Groups)-1].End)
	}
}

// =============================================================================
// GUARDS AND DETERMINISM
// =============================================================================

func TestEngine_EmptyBooking(t *testing.T) {
	// GIVEN: A booking with no sentences
	// WHEN: Calculated
	// THEN: An invariant violation, not a panic

	_, err := newEngine(calc.DefaultServices()).Calculate(&calc.Booking{Offender: adultOffender})
	if !errors.Is(err, calc.ErrNoSentences) {
		t.Errorf("expected no-sentences error, got %v", err)
	}
	if !calc.IsInvariantViolation(err) {
		t.Errorf("expected invariant violation, got %v", err)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	// GIVEN: The same booking built twice
	// WHEN: Calculated twice
	// THEN: Identical dates both times

	build := func() *calc.Booking {
		s := sds(calc.NewDate(2023, time.June, 1), calc.NewDate(2023, time.January, 1), calc.NewDuration(3, calc.UnitYears))
		return &calc.Booking{Offender: adultOffender, Sentences: []*calc.Sentence{s}}
	}
	e := newEngine(calc.DefaultServices())

	first, err := e.Calculate(build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Calculate(build())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first.Result.Dates) != len(second.Result.Dates) {
		t.Fatalf("expected %d dates, got %d", len(first.Result.Dates), len(second.Result.Dates))
	}
	for dt, d := range first.Result.Dates {
		if !second.Result.Dates[dt].Equal(d) {
			t.Errorf("%s: expected %s, got %s", dt, d, second.Result.Dates[dt])
		}
	}
}
