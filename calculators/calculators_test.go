package calculators_test

import (
	"testing"
	"time"

	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/calculators"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var adult = calc.Offender{Reference: "A1234BC", DateOfBirth: calc.NewDate(1985, time.March, 12)}

func sentenceOf(d calc.Duration) *calc.Sentence {
	return &calc.Sentence{
		ID:          "s1",
		Kind:        calc.SentenceStandardDeterminate,
		Offence:     calc.Offence{CommittedAt: calc.NewDate(2021, time.June, 1)},
		SentencedAt: calc.NewDate(2022, time.January, 1),
		Duration:    d,
	}
}

func calculationFor(s *calc.Sentence, releaseDelta int) *calc.SentenceCalculation {
	length := s.TotalDurationDays()
	unadjusted := s.SentencedAt.AddDays((length+1)/2 - 1)
	return &calc.SentenceCalculation{
		Types:             calc.NewTypeSet(calc.SLED, calc.CRD),
		UnadjustedRelease: unadjusted,
		AdjustedRelease:   unadjusted.AddDays(releaseDelta),
	}
}

// =============================================================================
// HOME DETENTION CURFEW
// =============================================================================

func TestHdced_Applicable(t *testing.T) {
	h := calculators.Hdced{}

	if !h.Applicable(sentenceOf(calc.NewDuration(2, calc.UnitYears)), adult) {
		t.Error("expected a 2-year SDS to qualify")
	}

	short := sentenceOf(calc.NewDuration(11, calc.UnitWeeks))
	if h.Applicable(short, adult) {
		t.Error("expected under 12 weeks to be excluded")
	}

	long := sentenceOf(calc.NewDuration(4, calc.UnitYears))
	if h.Applicable(long, adult) {
		t.Error("expected 4 years and over to be excluded")
	}

	plus := sentenceOf(calc.NewDuration(2, calc.UnitYears))
	plus.SDSPlus = true
	if h.Applicable(plus, adult) {
		t.Error("expected SDS-plus to be excluded")
	}

	recalled := sentenceOf(calc.NewDuration(2, calc.UnitYears))
	recalled.Recall = calc.RecallStandard
	if h.Applicable(recalled, adult) {
		t.Error("expected recalls to be excluded")
	}

	young := calc.Offender{Reference: "Y0001ZZ", DateOfBirth: calc.NewDate(2006, time.March, 12)}
	if h.Applicable(sentenceOf(calc.NewDuration(2, calc.UnitYears)), young) {
		t.Error("expected under-18s to be excluded")
	}
}

func TestHdced_Calculate(t *testing.T) {
	// GIVEN: A 2-year sentence with 30 days remand
	// WHEN: Curfew eligibility is computed
	// THEN: 180 days before release, shifted with the release delta

	h := calculators.Hdced{}
	s := sentenceOf(calc.NewDuration(2, calc.UnitYears))
	c := calculationFor(s, -30)

	b := h.Calculate(s, c)
	if !b.Unadjusted.Equal(calc.NewDate(2022, time.July, 4)) {
		t.Errorf("unadjusted: got %s", b.Unadjusted)
	}
	if !b.Adjusted.Equal(calc.NewDate(2022, time.June, 4)) {
		t.Errorf("adjusted: got %s", b.Adjusted)
	}
	if b.AdjustedDays != -30 {
		t.Errorf("expected -30 adjusted days, got %d", b.AdjustedDays)
	}
}

func TestHdced_Calculate_FloorAt28Days(t *testing.T) {
	// GIVEN: A 12-week sentence, too short to fit the full curfew window
	// WHEN: Curfew eligibility is computed
	// THEN: The date floors at 28 days served

	h := calculators.Hdced{}
	s := sentenceOf(calc.NewDuration(12, calc.UnitWeeks))
	c := calculationFor(s, 0)

	b := h.Calculate(s, c)
	if !b.Unadjusted.Equal(calc.NewDate(2022, time.January, 28)) {
		t.Errorf("expected floor 2022-01-28, got %s", b.Unadjusted)
	}
}

// =============================================================================
// EARLY REMOVAL SCHEME
// =============================================================================

func TestErsed_Calculate(t *testing.T) {
	// GIVEN: A 2-year sentence
	// WHEN: Removal eligibility is computed
	// THEN: The 270-day window floors at a quarter of the sentence served

	e := calculators.Ersed{}
	s := sentenceOf(calc.NewDuration(2, calc.UnitYears))
	c := calculationFor(s, 0)

	b := e.Calculate(s, c)
	if b == nil {
		t.Fatal("expected a breakdown")
	}
	if !b.Unadjusted.Equal(calc.NewDate(2022, time.July, 2)) {
		t.Errorf("expected quarter floor 2022-07-02, got %s", b.Unadjusted)
	}
}

func TestErsed_RequiresConditionalRelease(t *testing.T) {
	e := calculators.Ersed{}
	s := sentenceOf(calc.NewDuration(6, calc.UnitMonths))
	c := calculationFor(s, 0)
	c.Types = calc.NewTypeSet(calc.ARD, calc.SED)

	if b := e.Calculate(s, c); b != nil {
		t.Errorf("expected nil for automatic release, got %+v", b)
	}
}

// =============================================================================
// TOP-UP SUPERVISION
// =============================================================================

func TestTused_Calculate(t *testing.T) {
	u := calculators.Tused{}
	s := sentenceOf(calc.NewDuration(12, calc.UnitMonths))
	c := calculationFor(s, -10)

	b := u.Calculate(s, c)
	want := calc.NewDuration(12, calc.UnitMonths).EndDate(c.AdjustedRelease)
	if !b.Adjusted.Equal(want) {
		t.Errorf("expected %s, got %s", want, b.Adjusted)
	}
	if b.AdjustedDays != -10 {
		t.Errorf("expected -10 adjusted days, got %d", b.AdjustedDays)
	}
}

func TestTused_Applicable(t *testing.T) {
	u := calculators.Tused{}
	ora := sentenceOf(calc.NewDuration(12, calc.UnitMonths))
	ora.ORA = true
	if !u.Applicable(ora, adult) {
		t.Error("expected ORA sentence to qualify")
	}
	if u.Applicable(sentenceOf(calc.NewDuration(12, calc.UnitMonths)), adult) {
		t.Error("expected non-ORA sentence to be excluded")
	}
}

// =============================================================================
// WORKING DAYS
// =============================================================================

func TestWorkingDays_PreviousWorkingDay(t *testing.T) {
	// GIVEN: Christmas and Boxing Day 2024 as bank holidays
	// WHEN: Previous working days are resolved
	// THEN: Weekends and holidays are skipped, working days untouched

	w := calculators.NewWorkingDays([]calc.Date{
		calc.NewDate(2024, time.December, 25),
		calc.NewDate(2024, time.December, 26),
	})

	cases := []struct {
		in       calc.Date
		want     calc.Date
		adjusted bool
	}{
		{calc.NewDate(2024, time.December, 23), calc.NewDate(2024, time.December, 23), false},
		{calc.NewDate(2024, time.December, 25), calc.NewDate(2024, time.December, 24), true},
		{calc.NewDate(2024, time.December, 26), calc.NewDate(2024, time.December, 24), true},
		// Sunday rolls back to the Friday.
		{calc.NewDate(2024, time.December, 29), calc.NewDate(2024, time.December, 27), true},
	}
	for _, c := range cases {
		got, adjusted := w.PreviousWorkingDay(c.in)
		if !got.Equal(c.want) || adjusted != c.adjusted {
			t.Errorf("%s: expected (%s, %t), got (%s, %t)", c.in, c.want, c.adjusted, got, adjusted)
		}
	}
}
