/*
duration.go - Multi-unit sentence durations

PURPOSE:
  Represents a nominal sentence length as a combination of years, months,
  weeks and days, anchored to a start date when measured. Calendar
  peculiarities (month-end roll-over, leap years) are resolved exactly the
  way Gregorian date addition resolves them, which is why a duration has no
  day-length until it is given an anchor.

KEY OPERATIONS:
  Append:       fold another quantity into the duration (summing like units)
  LengthInDays: measure the duration from an anchor date
  Aggregate:    concatenate several durations (consecutive chains)

STATUTORY CAP:
  An aggregate made up entirely of detention-and-training-order sentences is
  capped at the day-length of 24 months from the anchor. This is a statutory
  ceiling, not an arithmetic artifact.
*/
package calc

import "fmt"

// =============================================================================
// DURATION - Nominal length in mixed calendar units
// =============================================================================

type DurationUnit string

const (
	UnitDays   DurationUnit = "days"
	UnitWeeks  DurationUnit = "weeks"
	UnitMonths DurationUnit = "months"
	UnitYears  DurationUnit = "years"
)

// Duration is a nominal sentence length. The zero value is a zero-length
// duration. Durations are values: Append returns a new Duration.
type Duration struct {
	Years  int
	Months int
	Weeks  int
	Days   int
}

func NewDuration(amount int, unit DurationUnit) Duration {
	return Duration{}.Append(amount, unit)
}

// Append folds an additional quantity into the duration.
func (d Duration) Append(amount int, unit DurationUnit) Duration {
	switch unit {
	case UnitYears:
		d.Years += amount
	case UnitMonths:
		d.Months += amount
	case UnitWeeks:
		d.Weeks += amount
	case UnitDays:
		d.Days += amount
	}
	return d
}

// EndDate returns the exclusive end of the duration measured from anchor:
// years are added first, then months, then weeks and days. The ordering
// matters for month-end anchors.
func (d Duration) EndDate(anchor Date) Date {
	return anchor.AddYears(d.Years).AddMonths(d.Months).AddDays(d.Weeks*7 + d.Days)
}

// LengthInDays measures the duration from the anchor date.
func (d Duration) LengthInDays(anchor Date) int {
	return DaysBetween(anchor, d.EndDate(anchor))
}

func (d Duration) IsZero() bool {
	return d.Years == 0 && d.Months == 0 && d.Weeks == 0 && d.Days == 0
}

func (d Duration) String() string {
	return fmt.Sprintf("%dy %dm %dw %dd", d.Years, d.Months, d.Weeks, d.Days)
}

// =============================================================================
// AGGREGATION - Consecutive chains
// =============================================================================

// Aggregate concatenates durations by summing like units. Summing before
// measuring is deliberate: 6 months + 6 months from 1 Jan is the day-length
// of 12 months, not the sum of two separately measured 6-month spans.
func Aggregate(durations ...Duration) Duration {
	var total Duration
	for _, d := range durations {
		total.Years += d.Years
		total.Months += d.Months
		total.Weeks += d.Weeks
		total.Days += d.Days
	}
	return total
}

// detentionTrainingCapMonths is the statutory ceiling on an aggregate made
// up entirely of detention-and-training-order sentences.
const detentionTrainingCapMonths = 24

// AggregateLengthInDays measures an aggregate duration from anchor, applying
// the detention-and-training-order cap when requested.
func AggregateLengthInDays(anchor Date, capped bool, durations ...Duration) int {
	length := Aggregate(durations...).LengthInDays(anchor)
	if capped {
		cap := NewDuration(detentionTrainingCapMonths, UnitMonths).LengthInDays(anchor)
		if length > cap {
			return cap
		}
	}
	return length
}
