/*
apply.go - Adjustment and date calculation

PURPOSE:
  Turns classification output + anchor date + nominal duration + accumulated
  day adjustments into concrete calendar dates, one per applicable release
  date type, each with an audit breakdown. Idempotent for identical inputs
  and accumulator state; the timeline re-runs it after every mutation.

CONVENTIONS:
  A sentence of N days runs from its sentence date to day N inclusive, so
  every unadjusted date is "anchor + days - 1". Release points are
  ceil(duration-days x multiplier). The fixed statutory fractions (three
  quarters for licence expiry, two thirds for non-parole) use exact integer
  arithmetic; configured multipliers use decimal arithmetic.

UNUSED AWARDED DAYS:
  Awarded days can push a release date past sentence expiry; the overflow is
  "unused". Detection and correction is a bounded two-pass loop owned by
  CorrectUnusedAwardedDays - a single ApplyAdjustments call never loops.
*/
package calc

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator runs the per-sentence date arithmetic for one booking.
type Calculator struct {
	Booking  *Booking
	Services Services
	Options  CalculationOptions
}

// ApplyAdjustments recomputes every applicable date for the sentence from
// its current accumulator state. The sentence must already be classified
// (Calculation non-nil with Track/Types populated).
func (k *Calculator) ApplyAdjustments(s *Sentence) error {
	c := s.Calculation
	if c == nil || c.Types == nil {
		return invariant("apply", s.ID, ErrMissingPrerequisiteDate)
	}

	lengthDays := s.TotalDurationDays()
	if lengthDays < 0 {
		return invariant("apply", s.ID, ErrNegativeDuration)
	}
	expiryDays := s.ExpiryDurationDays()

	k.applyExpiry(s, c, expiryDays)
	k.applyRelease(s, c, lengthDays)

	if c.Types.Contains(PED) {
		k.applyParoleEligibility(s, c, lengthDays)
	}
	if c.Types.Contains(PRRD) {
		k.applyPostRecallRelease(s, c)
	}
	if c.Types.Contains(LED) {
		k.applyLicenceExpiry(s, c, expiryDays)
	}
	if c.Types.Contains(NPD) {
		k.applyNonParole(s, c, expiryDays)
	}
	k.applyTopUpSupervision(s, c, expiryDays, lengthDays)
	k.applyTransferDates(s, c)

	if c.Types.Contains(HDCED) {
		if b := k.Services.Hdced.Calculate(s, c); b != nil {
			c.Breakdown[HDCED] = b
		} else {
			delete(c.Breakdown, HDCED)
		}
	}
	if k.Options.CalculateERSED && k.Services.Ersed != nil {
		if b := k.Services.Ersed.Calculate(s, c); b != nil {
			c.BreakdownFor(ERSED)
			c.Breakdown[ERSED] = b
			c.Types.Add(ERSED)
		}
	}

	return nil
}

// =============================================================================
// EXPIRY AND RELEASE
// =============================================================================

func (k *Calculator) applyExpiry(s *Sentence, c *SentenceCalculation, expiryDays int) {
	c.UnadjustedExpiry = s.SentencedAt.AddDays(expiryDays - 1)
	// Expiry moves with served time and at-large time but never with
	// awarded days.
	expiryDelta := c.Adjustments.UALDuringCustody - c.Adjustments.DeductedDays()
	c.AdjustedExpiry = c.UnadjustedExpiry.AddDays(expiryDelta)

	expiryType := SED
	if c.Types.Contains(SLED) {
		expiryType = SLED
	}
	if !c.Types.Contains(SED) && !c.Types.Contains(SLED) {
		return
	}
	b := c.BreakdownFor(expiryType)
	b.Unadjusted = c.UnadjustedExpiry
	b.Adjusted = c.AdjustedExpiry
	b.AdjustedDays = expiryDelta
	if c.Adjustments.UnusedADA > 0 {
		b.AddRule(RuleUnusedADA)
	}
}

func (k *Calculator) applyRelease(s *Sentence, c *SentenceCalculation, lengthDays int) {
	releaseDays := releasePointDays(lengthDays, c.ReleasePoint(c.Track))
	c.UnadjustedRelease = s.SentencedAt.AddDays(releaseDays - 1)

	delta := c.Adjustments.NetDays() - c.Adjustments.UnusedADA
	adjusted := c.UnadjustedRelease.AddDays(delta)

	c.IsImmediateRelease = adjusted.Before(s.SentencedAt)
	if c.IsImmediateRelease {
		adjusted = s.SentencedAt
	}
	c.AdjustedRelease = adjusted

	releaseType := CRD
	if c.Types.Contains(ARD) {
		releaseType = ARD
	}
	if !c.Types.Contains(ARD) && !c.Types.Contains(CRD) {
		return
	}
	b := c.BreakdownFor(releaseType)
	b.Unadjusted = c.UnadjustedRelease
	b.Adjusted = c.AdjustedRelease
	b.AdjustedDays = DaysBetween(c.UnadjustedRelease, c.AdjustedRelease)
	if c.IsImmediateRelease {
		b.AddRule(RuleImmediateRelease)
	}
	if c.Adjustments.UnusedADA > 0 {
		b.AddRule(RuleUnusedADA)
	}
}

// =============================================================================
// PAROLE ELIGIBILITY AND RECALL
// =============================================================================

func (k *Calculator) applyParoleEligibility(s *Sentence, c *SentenceCalculation, lengthDays int) {
	num, den, ok := paroleEligibilityFraction(c.Track)
	if !ok {
		// No discretionary window for this track; nothing to record.
		c.UnadjustedPED = Date{}
		delete(c.Breakdown, PED)
		return
	}
	pedDays := ceilFrac(lengthDays, num, den)
	c.UnadjustedPED = s.SentencedAt.AddDays(pedDays - 1)

	delta := c.Adjustments.NetDays() - c.Adjustments.UnusedADA
	b := c.BreakdownFor(PED)
	b.Unadjusted = c.UnadjustedPED
	b.Adjusted = c.UnadjustedPED.AddDays(delta)
	b.AdjustedDays = delta
}

func (k *Calculator) applyPostRecallRelease(s *Sentence, c *SentenceCalculation) {
	b := c.BreakdownFor(PRRD)
	if s.IsFixedTermRecall() && k.Booking.ReturnToCustodyDate != nil {
		window := 14
		if s.Recall == RecallFixedTerm28 {
			window = 28
		}
		unadjusted := k.Booking.ReturnToCustodyDate.AddDays(window - 1)
		adjusted := unadjusted.AddDays(c.Adjustments.UALAfterRelease + c.Adjustments.AwardedAfterRelease)
		b.Unadjusted = unadjusted
		b.Adjusted = adjusted
		b.AdjustedDays = DaysBetween(unadjusted, adjusted)
		return
	}
	// A standard recall holds to the end of the adjusted sentence.
	b.Unadjusted = c.UnadjustedExpiry
	b.Adjusted = c.AdjustedExpiry
	b.AdjustedDays = DaysBetween(c.UnadjustedExpiry, c.AdjustedExpiry)
}

// =============================================================================
// LICENCE EXPIRY AND NON-PAROLE
// =============================================================================

func (k *Calculator) applyLicenceExpiry(s *Sentence, c *SentenceCalculation, expiryDays int) {
	b := c.BreakdownFor(LED)

	if s.Kind == SentenceConsecutive && s.EveryPart(isAfterCJAOrLASPO) && mixesOraAndShortNonOra(s) {
		// Licence runs from release for half of the ORA-only days.
		oraDays := 0
		for _, p := range s.SentenceParts() {
			if p.ORA {
				oraDays += p.Duration.LengthInDays(p.SentencedAt)
			}
		}
		half := oraDays / 2
		unadjusted := c.UnadjustedRelease.AddDays(half)
		adjusted := c.AdjustedRelease.AddDays(half - c.Adjustments.UnusedLicenceADA)
		b.Unadjusted = unadjusted
		b.Adjusted = adjusted
		b.AdjustedDays = DaysBetween(unadjusted, adjusted)
		b.AddRuleDays(RuleLEDConsecutiveOraNonOra, half)
		return
	}

	ledDays := ceilFrac(expiryDays, 3, 4)
	unadjusted := s.SentencedAt.AddDays(ledDays - 1)
	delta := c.Adjustments.NetDays() - c.Adjustments.UnusedADA
	b.Unadjusted = unadjusted
	b.Adjusted = unadjusted.AddDays(delta)
	b.AdjustedDays = delta
}

func (k *Calculator) applyNonParole(s *Sentence, c *SentenceCalculation, expiryDays int) {
	b := c.BreakdownFor(NPD)
	delta := c.Adjustments.NetDays() - c.Adjustments.UnusedADA

	if s.Kind == SentenceConsecutive && s.AnyPart(isBeforeCJAAndLASPO) && s.AnyPart(isAfterCJAOrLASPO) {
		// Split-era chain: new-style days are halved to a notional
		// conditional release point, old-style days run at two thirds from
		// the day after it.
		newDays, oldDays := 0, 0
		for _, p := range s.SentenceParts() {
			days := p.Duration.LengthInDays(p.SentencedAt)
			if isBeforeCJAAndLASPO(p) {
				oldDays += days
			} else {
				newDays += days
			}
		}
		notionalCRD := s.SentencedAt.AddDays(ceilFrac(newDays, 1, 2) - 1)
		unadjusted := notionalCRD.AddDays(1 + ceilFrac(oldDays, 2, 3) - 1)
		b.Unadjusted = unadjusted
		b.Adjusted = unadjusted.AddDays(delta)
		b.AdjustedDays = delta
		b.AddRule(RuleNPDMixedEraSplit)
		return
	}

	unadjusted := s.SentencedAt.AddDays(ceilFrac(expiryDays, 2, 3) - 1)
	b.Unadjusted = unadjusted
	b.Adjusted = unadjusted.AddDays(delta)
	b.AdjustedDays = delta
}

// =============================================================================
// TOP-UP SUPERVISION
// =============================================================================

func (k *Calculator) applyTopUpSupervision(s *Sentence, c *SentenceCalculation, expiryDays, lengthDays int) {
	if s.Kind == SentenceBreach {
		// A breach sentence carries forward its historic supervision expiry
		// when it still postdates the recomputed release.
		if s.HistoricTUSED != nil && c.Types.Contains(TUSED) && s.HistoricTUSED.After(c.AdjustedRelease) {
			b := c.BreakdownFor(TUSED)
			b.Unadjusted = *s.HistoricTUSED
			b.Adjusted = *s.HistoricTUSED
			b.AdjustedDays = 0
			b.AddRule(RuleTUSEDFromHistoricDate)
		} else {
			delete(c.Breakdown, TUSED)
		}
		return
	}

	releaseDays := releasePointDays(lengthDays, c.ReleasePoint(c.Track))
	applicable := c.Types.Contains(TUSED) &&
		expiryDays-releaseDays < 365 &&
		k.Booking.Offender.AgeAt(c.UnadjustedRelease) >= 18

	if !applicable {
		delete(c.Breakdown, TUSED)
		return
	}
	if b := k.Services.Tused.Calculate(s, c); b != nil {
		c.BreakdownFor(TUSED)
		c.Breakdown[TUSED] = b
	} else {
		delete(c.Breakdown, TUSED)
	}
}

// =============================================================================
// TRANSFER DATES (detention and training orders)
// =============================================================================

func (k *Calculator) applyTransferDates(s *Sentence, c *SentenceCalculation) {
	if !c.Types.Contains(ETD) && !c.Types.Contains(LTD) && !c.Types.Contains(MTD) {
		return
	}

	if c.Types.Contains(MTD) {
		b := c.BreakdownFor(MTD)
		b.Unadjusted = c.UnadjustedRelease
		b.Adjusted = c.AdjustedRelease
		b.AdjustedDays = DaysBetween(c.UnadjustedRelease, c.AdjustedRelease)
	}

	months := 0
	switch {
	case c.IsImmediateRelease:
		months = 0
	case s.DurationAtLeast(8, UnitMonths) && s.DurationUnder(18, UnitMonths):
		months = 1
	case s.DurationAtLeast(18, UnitMonths) && !s.DurationAtLeast(25, UnitMonths):
		months = 2
	}

	if months == 0 {
		delete(c.Breakdown, ETD)
		delete(c.Breakdown, LTD)
		return
	}

	early := c.BreakdownFor(ETD)
	early.Unadjusted = c.UnadjustedRelease.AddMonths(-months)
	early.Adjusted = c.AdjustedRelease.AddMonths(-months)
	early.AdjustedDays = DaysBetween(early.Unadjusted, early.Adjusted)

	late := c.BreakdownFor(LTD)
	late.Unadjusted = c.UnadjustedRelease.AddMonths(months)
	late.Adjusted = c.AdjustedRelease.AddMonths(months)
	late.AdjustedDays = DaysBetween(late.Unadjusted, late.Adjusted)
}

// =============================================================================
// UNUSED AWARDED DAYS CORRECTION
// =============================================================================

// CorrectUnusedAwardedDays runs the bounded two-pass fixed point: apply,
// detect awarded days overrunning expiry, re-apply once with the overflow
// recorded as unused. A third pass would be a no-op for well-formed input.
func (k *Calculator) CorrectUnusedAwardedDays(sentences []*Sentence) error {
	for _, s := range sentences {
		if err := k.ApplyAdjustments(s); err != nil {
			return err
		}
	}
	changed := false
	for _, s := range sentences {
		c := s.Calculation
		if c.Adjustments.AwardedDuringCustody > 0 && c.AdjustedRelease.After(c.AdjustedExpiry) {
			overflow := DaysBetween(c.AdjustedExpiry, c.AdjustedRelease)
			if overflow > c.Adjustments.AwardedDuringCustody {
				overflow = c.Adjustments.AwardedDuringCustody
			}
			if overflow != c.Adjustments.UnusedADA {
				c.Adjustments.UnusedADA = overflow
				changed = true
			}
		}
		if b, ok := c.Breakdown[LED]; ok && c.Adjustments.AwardedAfterRelease > 0 && b.Adjusted.After(c.AdjustedExpiry) {
			overflow := DaysBetween(c.AdjustedExpiry, b.Adjusted)
			if overflow > c.Adjustments.AwardedAfterRelease {
				overflow = c.Adjustments.AwardedAfterRelease
			}
			if overflow != c.Adjustments.UnusedLicenceADA {
				c.Adjustments.UnusedLicenceADA = overflow
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	for _, s := range sentences {
		if err := k.ApplyAdjustments(s); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ARITHMETIC HELPERS
// =============================================================================

// releasePointDays is ceil(days x multiplier) on the configured decimal.
func releasePointDays(days int, multiplier decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(days)).Mul(multiplier).Ceil().IntPart())
}

// ceilFrac is ceil(n*num/den) in exact integer arithmetic.
func ceilFrac(n, num, den int) int {
	return (n*num + den - 1) / den
}

// paroleEligibilityFraction returns the discretionary-release fraction for
// tracks that have one.
func paroleEligibilityFraction(track Track) (num, den int, ok bool) {
	switch track {
	case TrackSOPCPEDHalfway:
		return 1, 2, true
	case TrackSOPCPEDTwoThirds, TrackEDSDiscretionary:
		return 2, 3, true
	default:
		return 0, 0, false
	}
}
