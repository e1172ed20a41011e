package calc

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================
// The engine delegates the single-purpose eligibility date formulas and the
// working-day adjustment to collaborators supplied as read-only service
// references. Every collaborator must be a synchronous pure function of its
// arguments; the engine calls them repeatedly during a run and relies on
// identical answers for identical inputs.

// HdcedCalculator decides home detention curfew eligibility.
type HdcedCalculator interface {
	// Applicable reports whether the sentence can carry an HDCED at all.
	Applicable(s *Sentence, offender Offender) bool
	// Calculate produces the HDCED breakdown, or nil when none applies.
	Calculate(s *Sentence, c *SentenceCalculation) *ReleaseDateBreakdown
}

// ErsedCalculator produces the early removal scheme eligibility breakdown.
type ErsedCalculator interface {
	Calculate(s *Sentence, c *SentenceCalculation) *ReleaseDateBreakdown
}

// TusedCalculator decides top-up supervision expiry. The engine owns the
// gating predicate (short sentence, adult at release); the collaborator owns
// the date formula.
type TusedCalculator interface {
	Applicable(s *Sentence, offender Offender) bool
	Calculate(s *Sentence, c *SentenceCalculation) *ReleaseDateBreakdown
}

// WorkingDayService resolves the previous working day for a date, reporting
// whether an adjustment was made.
type WorkingDayService interface {
	PreviousWorkingDay(date Date) (Date, bool)
}

// Services bundles the collaborators for a run.
type Services struct {
	Hdced      HdcedCalculator
	Ersed      ErsedCalculator
	Tused      TusedCalculator
	WorkingDay WorkingDayService
}

// =============================================================================
// NO-OP DEFAULTS
// =============================================================================
// Used by tests and by callers that only need the core dates.

type noHdced struct{}

func (noHdced) Applicable(*Sentence, Offender) bool                             { return false }
func (noHdced) Calculate(*Sentence, *SentenceCalculation) *ReleaseDateBreakdown { return nil }

type noErsed struct{}

func (noErsed) Calculate(*Sentence, *SentenceCalculation) *ReleaseDateBreakdown { return nil }

type standardTused struct{}

func (standardTused) Applicable(s *Sentence, offender Offender) bool {
	return s.EveryPart(func(p *Sentence) bool { return p.ORA })
}

// Calculate applies the standard top-up formula: twelve months of
// supervision measured from the adjusted release date.
func (standardTused) Calculate(s *Sentence, c *SentenceCalculation) *ReleaseDateBreakdown {
	unadjusted := NewDuration(12, UnitMonths).EndDate(c.UnadjustedRelease)
	adjusted := NewDuration(12, UnitMonths).EndDate(c.AdjustedRelease)
	return &ReleaseDateBreakdown{
		Unadjusted:   unadjusted,
		Adjusted:     adjusted,
		AdjustedDays: DaysBetween(unadjusted, adjusted),
	}
}

type weekendOnlyWorkingDays struct{}

func (weekendOnlyWorkingDays) PreviousWorkingDay(date Date) (Date, bool) {
	adjusted := false
	for date.IsWeekend() {
		date = date.AddDays(-1)
		adjusted = true
	}
	return date, adjusted
}

// DefaultServices returns the minimal collaborator set: no HDCED or ERSED,
// the standard top-up supervision formula, and weekend-only working days.
func DefaultServices() Services {
	return Services{
		Hdced:      noHdced{},
		Ersed:      noErsed{},
		Tused:      standardTused{},
		WorkingDay: weekendOnlyWorkingDays{},
	}
}
