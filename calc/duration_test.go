package calc_test

import (
	"testing"
	"time"

	"github.com/warp/release-engine/calc"
)

// =============================================================================
// DURATION MEASUREMENT - Calendar anchoring
// =============================================================================

func TestDuration_EndDate_YearsBeforeMonths(t *testing.T) {
	// GIVEN: 1 year 1 month measured from a leap day
	// WHEN: The end date is computed
	// THEN: Years are added first (Feb 29 + 1y rolls to Mar 1), then months

	d := calc.Duration{Years: 1, Months: 1}
	end := d.EndDate(calc.NewDate(2020, time.February, 29))

	want := calc.NewDate(2021, time.April, 1)
	if !end.Equal(want) {
		t.Errorf("expected %s, got %s", want, end)
	}
}

func TestDuration_EndDate_MonthEndRollover(t *testing.T) {
	// GIVEN: 1 month measured from Jan 31 in a non-leap year
	// WHEN: The end date is computed
	// THEN: The overflow rolls into March the way time.AddDate resolves it

	d := calc.NewDuration(1, calc.UnitMonths)
	end := d.EndDate(calc.NewDate(2021, time.January, 31))

	want := calc.NewDate(2021, time.March, 3)
	if !end.Equal(want) {
		t.Errorf("expected %s, got %s", want, end)
	}
}

func TestDuration_LengthInDays_LeapYear(t *testing.T) {
	// GIVEN: 12 months anchored at the start of a leap year
	// WHEN: The day-length is measured
	// THEN: The leap day is included

	d := calc.NewDuration(12, calc.UnitMonths)
	got := d.LengthInDays(calc.NewDate(2020, time.January, 1))

	if got != 366 {
		t.Errorf("expected 366 days, got %d", got)
	}
}

// =============================================================================
// AGGREGATION - Sum like units before measuring
// =============================================================================

func TestAggregate_SumsBeforeMeasuring(t *testing.T) {
	// GIVEN: Two 1-month durations anchored at Jan 31
	// WHEN: They are aggregated and measured as one span
	// THEN: The length is the day-length of 2 months from the anchor (60),
	//       not the sum of two separately measured months (62)

	anchor := calc.NewDate(2020, time.January, 31)
	got := calc.Aggregate(
		calc.NewDuration(1, calc.UnitMonths),
		calc.NewDuration(1, calc.UnitMonths),
	).LengthInDays(anchor)

	if got != 60 {
		t.Errorf("expected 60 days, got %d", got)
	}
}

func TestAggregateLengthInDays_DetentionTrainingCap(t *testing.T) {
	// GIVEN: An aggregate of 30 months of detention-and-training time
	// WHEN: Measured with the statutory cap on
	// THEN: The length is capped at the day-length of 24 months

	anchor := calc.NewDate(2022, time.January, 1)
	durations := []calc.Duration{
		calc.NewDuration(18, calc.UnitMonths),
		calc.NewDuration(12, calc.UnitMonths),
	}

	uncapped := calc.AggregateLengthInDays(anchor, false, durations...)
	if uncapped != 912 {
		t.Errorf("expected 912 uncapped days, got %d", uncapped)
	}

	capped := calc.AggregateLengthInDays(anchor, true, durations...)
	if capped != 730 {
		t.Errorf("expected cap at 730 days, got %d", capped)
	}
}

func TestAggregateLengthInDays_CapNotHitUnderTwoYears(t *testing.T) {
	// GIVEN: An aggregate under the 24-month ceiling
	// WHEN: Measured with the cap on
	// THEN: The cap changes nothing

	anchor := calc.NewDate(2022, time.January, 1)
	got := calc.AggregateLengthInDays(anchor, true, calc.NewDuration(20, calc.UnitMonths))

	want := calc.NewDuration(20, calc.UnitMonths).LengthInDays(anchor)
	if got != want {
		t.Errorf("expected %d days, got %d", want, got)
	}
}

// =============================================================================
// DATE UTILITIES
// =============================================================================

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := calc.ParseDate("2024-09-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-09-10" {
		t.Errorf("expected 2024-09-10, got %s", d)
	}

	if _, err := calc.ParseDate("10/09/2024"); err == nil {
		t.Error("expected error for non-ISO input")
	}
}

func TestDaysBetween_Signed(t *testing.T) {
	from := calc.NewDate(2020, time.January, 1)
	to := calc.NewDate(2021, time.January, 1)
	if got := calc.DaysBetween(from, to); got != 366 {
		t.Errorf("expected 366, got %d", got)
	}
	if got := calc.DaysBetween(to, from); got != -366 {
		t.Errorf("expected -366, got %d", got)
	}
}
