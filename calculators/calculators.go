/*
Package calculators provides the service implementations of the engine's
collaborator contracts: the home detention curfew, early removal scheme and
top-up supervision date formulas, and a bank-holiday-aware working-day
adjuster.

The engine only ever sees the interfaces in calc; these implementations are
the defaults the hosting service wires in. Every calculator is a pure
function of its arguments, as the engine requires.
*/
package calculators

import (
	"github.com/warp/release-engine/calc"
)

// NewServices bundles the default calculators over the given bank holiday
// dates.
func NewServices(bankHolidays []calc.Date) calc.Services {
	return calc.Services{
		Hdced:      Hdced{},
		Ersed:      Ersed{},
		Tused:      Tused{},
		WorkingDay: NewWorkingDays(bankHolidays),
	}
}

// =============================================================================
// HOME DETENTION CURFEW
// =============================================================================

// Hdced implements calc.HdcedCalculator.
//
// Eligibility: standard determinate sentences of at least twelve weeks and
// under four years, not SDS-plus, not recalled, adult at sentencing.
type Hdced struct{}

const (
	// maxCurfewDays caps how far before release curfew can begin.
	maxCurfewDays = 180
	// minCustodyDays is the minimum served before curfew eligibility.
	minCustodyDays = 28
)

func (Hdced) Applicable(s *calc.Sentence, offender calc.Offender) bool {
	if s.IsRecall() {
		return false
	}
	eligible := s.EveryPart(func(p *calc.Sentence) bool {
		return p.Kind == calc.SentenceStandardDeterminate && !p.SDSPlus
	})
	if !eligible {
		return false
	}
	if !s.DurationAtLeast(12, calc.UnitWeeks) || s.DurationAtLeast(4, calc.UnitYears) {
		return false
	}
	return offender.AgeAt(s.SentencedAt) >= 18
}

func (Hdced) Calculate(s *calc.Sentence, c *calc.SentenceCalculation) *calc.ReleaseDateBreakdown {
	unadjusted := c.UnadjustedRelease.AddDays(-maxCurfewDays)
	floor := s.SentencedAt.AddDays(minCustodyDays - 1)
	if unadjusted.Before(floor) {
		unadjusted = floor
	}
	delta := calc.DaysBetween(c.UnadjustedRelease, c.AdjustedRelease)
	adjusted := unadjusted.AddDays(delta)
	if adjusted.After(c.AdjustedRelease) {
		// Curfew can never start after release itself.
		adjusted = c.AdjustedRelease
	}
	return &calc.ReleaseDateBreakdown{
		Unadjusted:   unadjusted,
		Adjusted:     adjusted,
		AdjustedDays: calc.DaysBetween(unadjusted, adjusted),
	}
}

// =============================================================================
// EARLY REMOVAL SCHEME
// =============================================================================

// Ersed implements calc.ErsedCalculator. Removal can be up to 270 days
// before conditional release, once a quarter of the sentence is served.
type Ersed struct{}

const maxRemovalDays = 270

func (Ersed) Calculate(s *calc.Sentence, c *calc.SentenceCalculation) *calc.ReleaseDateBreakdown {
	if !c.Types.Contains(calc.CRD) {
		return nil
	}
	quarter := s.SentencedAt.AddDays((s.TotalDurationDays()+3)/4 - 1)
	unadjusted := c.UnadjustedRelease.AddDays(-maxRemovalDays)
	if unadjusted.Before(quarter) {
		unadjusted = quarter
	}
	delta := calc.DaysBetween(c.UnadjustedRelease, c.AdjustedRelease)
	return &calc.ReleaseDateBreakdown{
		Unadjusted:   unadjusted,
		Adjusted:     unadjusted.AddDays(delta),
		AdjustedDays: delta,
	}
}

// =============================================================================
// TOP-UP SUPERVISION
// =============================================================================

// Tused implements calc.TusedCalculator: supervision tops the licence up to
// twelve months from release.
type Tused struct{}

func (Tused) Applicable(s *calc.Sentence, offender calc.Offender) bool {
	return s.EveryPart(func(p *calc.Sentence) bool { return p.ORA })
}

func (Tused) Calculate(s *calc.Sentence, c *calc.SentenceCalculation) *calc.ReleaseDateBreakdown {
	unadjusted := calc.NewDuration(12, calc.UnitMonths).EndDate(c.UnadjustedRelease)
	adjusted := calc.NewDuration(12, calc.UnitMonths).EndDate(c.AdjustedRelease)
	return &calc.ReleaseDateBreakdown{
		Unadjusted:   unadjusted,
		Adjusted:     adjusted,
		AdjustedDays: calc.DaysBetween(unadjusted, adjusted),
	}
}

// =============================================================================
// WORKING DAYS
// =============================================================================

// WorkingDays implements calc.WorkingDayService over a bank holiday list.
type WorkingDays struct {
	holidays map[string]bool
}

func NewWorkingDays(bankHolidays []calc.Date) *WorkingDays {
	w := &WorkingDays{holidays: make(map[string]bool, len(bankHolidays))}
	for _, d := range bankHolidays {
		w.holidays[d.String()] = true
	}
	return w
}

func (w *WorkingDays) isWorkingDay(d calc.Date) bool {
	return !d.IsWeekend() && !w.holidays[d.String()]
}

func (w *WorkingDays) PreviousWorkingDay(date calc.Date) (calc.Date, bool) {
	adjusted := false
	for !w.isWorkingDay(date) {
		date = date.AddDays(-1)
		adjusted = true
	}
	return date, adjusted
}
