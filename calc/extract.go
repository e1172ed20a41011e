/*
extract.go - Result extraction and post-tranche correction

PURPOSE:
  Once the timeline has replayed every event, the open sentence group is
  closed and the per-sentence calculations are consolidated into a single
  CalculationResult: one date per release date type (the latest applicable
  across the final group), the breakdown behind each, the effective sentence
  length, and the early-release tranche bookkeeping.

POST-TRANCHE RULES:
  When a tranche was allocated mid-run, eligibility dates that would land
  before its commencement are brought forward to the commencement date, and
  adjustments awarded between commencement and conditional release shift
  those dates once more (clamped so they never precede commencement).
*/
package calc

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// SentenceGroup records the sentences sharing one continuous custodial
// episode. Immutable once created; owned by the final CalculationOutput.
type SentenceGroup struct {
	Sentences []*Sentence
	Start     Date
	End       Date
	// LicenceSentenceIDs lists sentences whose licence period was still
	// open when the episode closed.
	LicenceSentenceIDs []string
}

// CalculationResult is the externally consumed contract of a run.
type CalculationResult struct {
	Dates                   map[ReleaseDateType]Date
	Breakdowns              map[ReleaseDateType]*ReleaseDateBreakdown
	EffectiveSentenceLength Duration

	// AllocatedTranche names the tranche allocated during the run; Tranche
	// names the one whose dates govern the final result. Empty when no
	// early-release scheme touched the run.
	AllocatedTranche string
	Tranche          string

	AffectedByEarlyRelease bool
	ShowEarlyReleaseHints  bool
}

// CalculationOutput is everything a run produces.
type CalculationOutput struct {
	Sentences []*Sentence
	Groups    []SentenceGroup
	Result    CalculationResult
}

// =============================================================================
// EXTRACTION
// =============================================================================

// consolidatedDates maps each release date type to the latest adjusted date
// across the given sentences, with the backing breakdown.
func consolidatedDates(sentences []*Sentence) (map[ReleaseDateType]Date, map[ReleaseDateType]*ReleaseDateBreakdown) {
	dates := make(map[ReleaseDateType]Date)
	breakdowns := make(map[ReleaseDateType]*ReleaseDateBreakdown)
	for _, s := range sentences {
		c := s.Calculation
		if c == nil {
			continue
		}
		for _, t := range c.Types.Sorted() {
			b, ok := c.Breakdown[t]
			if !ok {
				continue
			}
			if existing, seen := dates[t]; !seen || b.Adjusted.After(existing) {
				dates[t] = b.Adjusted
				breakdowns[t] = b
			}
		}
	}
	// ARD/CRD and SED/SLED exclusivity holds per sentence but a booking can
	// mix both; the conditional pair wins at booking level.
	if _, hasCRD := dates[CRD]; hasCRD {
		delete(dates, ARD)
		delete(breakdowns, ARD)
	}
	if _, hasSLED := dates[SLED]; hasSLED {
		delete(dates, SED)
		delete(breakdowns, SED)
	}
	return dates, breakdowns
}

// effectiveSentenceLength is the span from the earliest sentence date to the
// latest expiry, inclusive, expressed in years/months/days.
func effectiveSentenceLength(sentences []*Sentence) Duration {
	var start, end Date
	for _, s := range sentences {
		if start.IsZero() || s.SentencedAt.Before(start) {
			start = s.SentencedAt
		}
		if s.Calculation == nil {
			continue
		}
		if end.IsZero() || s.Calculation.AdjustedExpiry.After(end) {
			end = s.Calculation.AdjustedExpiry
		}
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return Duration{}
	}
	end = end.AddDays(1) // inclusive span

	years := 0
	for start.AddYears(years + 1).BeforeOrEqual(end) {
		years++
	}
	cursor := start.AddYears(years)
	months := 0
	for cursor.AddMonths(months + 1).BeforeOrEqual(end) {
		months++
	}
	cursor = cursor.AddMonths(months)
	days := DaysBetween(cursor, end)
	return Duration{Years: years, Months: months, Days: days}
}

// =============================================================================
// POST-TRANCHE RULES
// =============================================================================

var trancheForwardRules = map[ReleaseDateType]CalculationRule{
	HDCED: RuleHDCEDAdjustedToTranche,
	ERSED: RuleERSEDAdjustedToTranche,
	PED:   RulePEDAdjustedToTranche,
}

// applyTrancheDefaulting brings eligibility dates forward to the tranche
// commencement when they would otherwise predate it.
func applyTrancheDefaulting(sentences []*Sentence, commencement Date) {
	for _, s := range sentences {
		c := s.Calculation
		if c == nil {
			continue
		}
		for t, rule := range trancheForwardRules {
			b, ok := c.Breakdown[t]
			if !ok {
				continue
			}
			if b.Adjusted.Before(commencement) {
				b.Adjusted = commencement
				b.AdjustedDays = DaysBetween(b.Unadjusted, b.Adjusted)
				b.AddRule(rule)
			}
		}
	}
}

// postTrancheAdjustmentPass corrects eligibility dates for adjustments
// awarded between commencement and conditional release, and decides whether
// the early-release hint should be suppressed.
func postTrancheAdjustmentPass(b *Booking, sentences []*Sentence, commencement Date) (hintSuppressed bool) {
	for _, s := range sentences {
		c := s.Calculation
		if c == nil || !c.Types.Contains(CRD) {
			continue
		}
		crd, ok := c.Breakdown[CRD]
		if !ok {
			continue
		}

		shift := 0
		for _, adj := range b.Adjustments.All(AdjustmentUAL, AdjustmentADA) {
			if adj.AppliesToSentencesFrom.AfterOrEqual(commencement) && adj.AppliesToSentencesFrom.Before(crd.Adjusted) {
				shift += adj.Days
			}
		}
		for _, adj := range b.Adjustments.All(AdjustmentRADA) {
			if adj.AppliesToSentencesFrom.AfterOrEqual(commencement) && adj.AppliesToSentencesFrom.Before(crd.Adjusted) {
				shift -= adj.Days
			}
		}
		if shift == 0 {
			continue
		}
		for t, rule := range trancheForwardRules {
			bd, present := c.Breakdown[t]
			if !present || !bd.HasRule(rule) {
				continue
			}
			bd.Adjusted = bd.Adjusted.AddDays(shift)
			if bd.Adjusted.Before(commencement) {
				bd.Adjusted = commencement
			}
			bd.AdjustedDays = DaysBetween(bd.Unadjusted, bd.Adjusted)
		}
	}

	hintTypes := []AdjustmentType{
		AdjustmentUAL, AdjustmentADA, AdjustmentRADA,
		AdjustmentRemand, AdjustmentTaggedBail,
	}
	for _, adj := range b.Adjustments.All(hintTypes...) {
		if adj.AppliesToSentencesFrom.AfterOrEqual(commencement) {
			return true
		}
	}
	return false
}
