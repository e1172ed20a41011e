/*
classify.go - Sentence classification

PURPOSE:
  Pure decision logic mapping a sentence's shape, dates and recall state to
  the set of release date types that apply to it, plus the identification
  track that later selects its release-point multiplier. Classification
  depends only on the sentence, the offender, and the collaborator
  applicability predicates - never on timeline state.

RULE FAMILIES:
  Sentences imposed before LASPO for offences before the CJA follow the old
  scheme (ARD/LED/NPD territory). Everything later follows the CJA/LASPO
  scheme (CRD/SLED), with carve-outs for short pre-ORA sentences, SDS-plus,
  extended and SOPC sentences, detention and training orders, default terms
  for fines, and top-up supervision breaches.

RECALL OVERLAY:
  A recall always removes curfew eligibility and adds a post-recall release
  date, whatever the variant rule produced.
*/
package calc

// Classify returns the identification track and applicable release date
// types for one sentence. The services argument supplies the HDCED/TUSED
// applicability predicates; both must be pure.
func Classify(s *Sentence, offender Offender, services Services) (Track, TypeSet) {
	var (
		track Track
		types TypeSet
	)

	switch s.Kind {
	case SentenceConsecutive:
		track, types = classifyConsecutive(s, offender, services)
	case SentenceSOPC:
		track, types = classifySOPC(s, offender)
	case SentenceExtendedDeterminate:
		track, types = classifyExtended(s)
	case SentenceStandardDeterminate, SentenceSingleTerm:
		track, types = classifyStandard(s, offender, services)
	case SentenceAFine:
		track, types = classifyFine(s)
	case SentenceDetentionTraining:
		track, types = classifyDetentionTraining(s)
	case SentenceBreach:
		track, types = classifyBreach(s)
	default:
		track, types = TrackSDSStandard, NewTypeSet(SLED, CRD)
	}

	// Recall overrides early-release eligibility regardless of variant.
	if s.IsRecall() {
		types.Remove(HDCED)
		types.Add(PRRD)
	}

	return track, types
}

// =============================================================================
// VARIANT RULES
// =============================================================================

func classifyConsecutive(s *Sentence, offender Offender, services Services) (Track, TypeSet) {
	var (
		track Track
		types TypeSet
	)

	switch {
	case s.AnyPart(isExtendedOrSOPC):
		types = NewTypeSet(SLED, CRD)
		track = TrackEDSAutomatic
		if s.AnyPart(isDiscretionaryRelease) {
			types.Add(PED)
			track = TrackEDSDiscretionary
		}

	case s.EveryPart(func(p *Sentence) bool { return p.SDSPlus }):
		track, types = TrackSDSPlus, NewTypeSet(SLED, CRD)

	case s.EveryPart(isDetentionTraining):
		track = detentionTrainingTrack(s)
		types = NewTypeSet(SED, MTD, ETD, LTD, TUSED)
		return track, types

	case s.AnyPart(isBeforeCJAAndLASPO) && s.AnyPart(isAfterCJAOrLASPO):
		// Mixed sentencing eras collapse to the modern rule; long chains
		// keep a non-parole date computed by the split-era algorithm.
		track, types = TrackSDSStandard, NewTypeSet(SLED, CRD)
		if s.DurationAtLeast(4, UnitYears) {
			types.Add(NPD)
		}

	case s.EveryPart(isAfterCJAOrLASPO):
		if mixesOraAndShortNonOra(s) {
			track, types = TrackSDSStandard, NewTypeSet(LED, SED, CRD)
		} else {
			track, types = TrackSDSStandard, NewTypeSet(SLED, CRD)
		}

	default:
		// Entirely pre-CJA/LASPO.
		track = TrackSDSBeforeCJALASPO
		types = beforeCJAAndLASPOTypes(s)
	}

	appendEligibilityDates(s, offender, services, types)
	return track, types
}

func classifySOPC(s *Sentence, offender Offender) (Track, TypeSet) {
	track := TrackSOPCPEDHalfway
	if offender.AgeAt(s.SentencedAt) < 18 || s.SentencedAt.AfterOrEqual(PCSCCommencement) {
		track = TrackSOPCPEDTwoThirds
	}
	if s.IsRecall() {
		return track, NewTypeSet(SLED, PRRD)
	}
	return track, NewTypeSet(SLED, CRD, PED)
}

func classifyExtended(s *Sentence) (Track, TypeSet) {
	track := TrackEDSDiscretionary
	types := NewTypeSet(SLED, CRD, PED)
	if s.AutomaticRelease {
		track = TrackEDSAutomatic
		types = NewTypeSet(SLED, CRD)
	}
	if s.IsRecall() {
		types.Remove(CRD)
		types.Remove(PED)
		types.Add(PRRD)
	}
	return track, types
}

func classifyStandard(s *Sentence, offender Offender, services Services) (Track, TypeSet) {
	if s.Kind == SentenceSingleTerm && s.EveryPart(isDetentionTraining) {
		return classifyDetentionTraining(s)
	}

	var (
		track Track
		types TypeSet
	)

	if s.SentencedAt.Before(LASPOCommencement) && s.Offence.CommittedOn().Before(CJACommencement) {
		track = TrackSDSBeforeCJALASPO
		types = beforeCJAAndLASPOTypes(s)
	} else {
		shortPreOra := s.DurationUnder(12, UnitMonths) && s.Offence.CommittedOn().Before(ORACommencement)
		if shortPreOra || s.TotalDurationDays() <= 1 {
			types = NewTypeSet(ARD, SED)
		} else {
			types = NewTypeSet(SLED, CRD)
		}
		track = TrackSDSStandard
		if s.SDSPlus {
			track = TrackSDSPlus
		}
	}

	appendEligibilityDates(s, offender, services, types)
	return track, types
}

func classifyFine(s *Sentence) (Track, TypeSet) {
	track := TrackFineHalfway
	threshold := s.FineAmount.IntPart() >= fineFullTermThreshold
	if threshold && s.SentencedAt.AfterOrEqual(PCSCCommencement) {
		track = TrackFineFullTerm
	}
	return track, NewTypeSet(SED, ARD)
}

func classifyDetentionTraining(s *Sentence) (Track, TypeSet) {
	return detentionTrainingTrack(s), NewTypeSet(SED, MTD, ETD, LTD, TUSED)
}

func classifyBreach(s *Sentence) (Track, TypeSet) {
	types := NewTypeSet(ARD, SED)
	if s.HistoricTUSED != nil {
		types.Add(TUSED)
		return TrackBreachHistoric, types
	}
	return TrackBreach, types
}

// =============================================================================
// SHARED RULE PIECES
// =============================================================================

// beforeCJAAndLASPOTypes applies the pre-CJA/LASPO duration bands.
func beforeCJAAndLASPOTypes(s *Sentence) TypeSet {
	switch {
	case s.DurationAtLeast(4, UnitYears):
		return NewTypeSet(CRD, SLED, NPD)
	case s.DurationAtLeast(12, UnitMonths):
		return NewTypeSet(LED, CRD, SED)
	default:
		return NewTypeSet(ARD, SED)
	}
}

// detentionTrainingTrack derives the DTO track: for composites, unanimity of
// the component tracks decides; otherwise the sentencing date does.
func detentionTrainingTrack(s *Sentence) Track {
	allAfter := s.EveryPart(func(p *Sentence) bool {
		return p.SentencedAt.AfterOrEqual(PCSCCommencement)
	})
	if allAfter {
		return TrackDTOAfterPCSC
	}
	return TrackDTOBeforePCSC
}

// appendEligibilityDates adds TUSED/HDCED when the collaborator predicates
// hold. Recall removal of HDCED happens in the caller's overlay.
func appendEligibilityDates(s *Sentence, offender Offender, services Services, types TypeSet) {
	if !types.Contains(TUSED) && services.Tused != nil && services.Tused.Applicable(s, offender) {
		// Only sentences with a licence period can carry top-up supervision.
		if types.Contains(SLED) || types.Contains(LED) {
			types.Add(TUSED)
		}
	}
	if services.Hdced != nil && services.Hdced.Applicable(s, offender) {
		types.Add(HDCED)
	}
}

func isExtendedOrSOPC(p *Sentence) bool {
	return p.Kind == SentenceExtendedDeterminate || p.Kind == SentenceSOPC
}

func isDiscretionaryRelease(p *Sentence) bool {
	if p.Kind == SentenceSOPC {
		return true
	}
	return p.Kind == SentenceExtendedDeterminate && !p.AutomaticRelease
}

func isDetentionTraining(p *Sentence) bool {
	return p.Kind == SentenceDetentionTraining
}

func isBeforeCJAAndLASPO(p *Sentence) bool {
	return p.SentencedAt.Before(LASPOCommencement) && p.Offence.CommittedOn().Before(CJACommencement)
}

func isAfterCJAOrLASPO(p *Sentence) bool { return !isBeforeCJAAndLASPO(p) }

// mixesOraAndShortNonOra reports whether a chain combines an ORA component
// with a non-ORA component shorter than twelve months.
func mixesOraAndShortNonOra(s *Sentence) bool {
	hasOra := s.AnyPart(func(p *Sentence) bool { return p.ORA })
	hasShortNonOra := s.AnyPart(func(p *Sentence) bool {
		return !p.ORA && p.Duration.LengthInDays(p.SentencedAt) < NewDuration(12, UnitMonths).LengthInDays(p.SentencedAt)
	})
	return hasOra && hasShortNonOra
}
