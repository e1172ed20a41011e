/*
Package calc implements the sentence release date calculation engine.

PURPOSE:
  Given a booking (sentences, adjustments, offender, external movements) and
  the early-release configuration in force, the engine computes every
  statutory release date that applies to each sentence: conditional release,
  licence expiry, parole eligibility, home detention curfew eligibility,
  top-up supervision expiry, and the rest of the closed set below.

  The engine is three coupled parts:
    1. Classification - which date types apply to a sentence, and which
       rule family ("identification track") governs its release point.
    2. Adjustment arithmetic - anchor date + nominal duration + accumulated
       day adjustments -> concrete calendar dates with audit breakdowns.
    3. Timeline simulation - chronological replay of every event that can
       change a custodial timeline, recomputing affected sentences as it goes.

DESIGN PRINCIPLES:
  1. Determinism: the same booking and configuration always produce the same
     result; nothing reads the clock or any global state.
  2. Run isolation: all mutable state lives in per-run values; configuration
     is shared read-only.
  3. Auditability: every computed date carries a breakdown (unadjusted date,
     adjusted date, day delta, rule tags).

KEY CONCEPTS IN THIS FILE (types.go):
  - ReleaseDateType: closed enumeration of computable dates
  - Track: the rule family governing a sentence's release point
  - Adjustments: per-sentence accumulator of day adjustments by category
  - ReleaseDateBreakdown: the audit record behind each computed date

SEE ALSO:
  - sentence.go:  sentence variants and the booking input model
  - classify.go:  variant dispatch producing (track, date types)
  - apply.go:     date arithmetic per release date type
  - timeline.go:  event-ordered replay
*/
package calc

import "sort"

// =============================================================================
// RELEASE DATE TYPES
// =============================================================================

type ReleaseDateType string

const (
	ARD   ReleaseDateType = "ARD"   // Automatic Release Date
	CRD   ReleaseDateType = "CRD"   // Conditional Release Date
	SED   ReleaseDateType = "SED"   // Sentence Expiry Date
	SLED  ReleaseDateType = "SLED"  // Sentence and Licence Expiry Date
	NPD   ReleaseDateType = "NPD"   // Non Parole Date
	PRRD  ReleaseDateType = "PRRD"  // Post Recall Release Date
	LED   ReleaseDateType = "LED"   // Licence Expiry Date
	HDCED ReleaseDateType = "HDCED" // Home Detention Curfew Eligibility Date
	PED   ReleaseDateType = "PED"   // Parole Eligibility Date
	TUSED ReleaseDateType = "TUSED" // Top-up Supervision Expiry Date
	ETD   ReleaseDateType = "ETD"   // Early Transfer Date
	LTD   ReleaseDateType = "LTD"   // Late Transfer Date
	MTD   ReleaseDateType = "MTD"   // Mid Term Date
	ERSED ReleaseDateType = "ERSED" // Early Removal Scheme Eligibility Date
)

// TypeSet is a mutable set of release date types.
//
// Invariants maintained by classification:
//   - ARD and CRD are mutually exclusive per sentence
//   - SED and SLED are mutually exclusive (SLED implies a licence period)
type TypeSet map[ReleaseDateType]bool

func NewTypeSet(types ...ReleaseDateType) TypeSet {
	s := make(TypeSet, len(types))
	for _, t := range types {
		s[t] = true
	}
	return s
}

func (s TypeSet) Contains(t ReleaseDateType) bool { return s[t] }
func (s TypeSet) Add(t ReleaseDateType)           { s[t] = true }
func (s TypeSet) Remove(t ReleaseDateType)        { delete(s, t) }

// Sorted returns the members in a stable order for deterministic output.
func (s TypeSet) Sorted() []ReleaseDateType {
	out := make([]ReleaseDateType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// IDENTIFICATION TRACKS
// =============================================================================

// Track selects which release-point multiplier and rule family governs a
// sentence. Tracks are assigned once by classification and consumed by the
// multiplier lookup.
type Track string

const (
	TrackSDSStandard       Track = "SDS_STANDARD"
	TrackSDSPlus           Track = "SDS_PLUS"
	TrackSDSBeforeCJALASPO Track = "SDS_BEFORE_CJA_LASPO"
	TrackEDSAutomatic      Track = "EDS_AUTOMATIC"
	TrackEDSDiscretionary  Track = "EDS_DISCRETIONARY"
	TrackSOPCPEDHalfway    Track = "SOPC_PED_AT_HALFWAY"
	TrackSOPCPEDTwoThirds  Track = "SOPC_PED_AT_TWO_THIRDS"
	TrackFineHalfway       Track = "FINE_ARD_AT_HALFWAY"
	TrackFineFullTerm      Track = "FINE_ARD_AT_FULL_TERM"
	TrackDTOBeforePCSC     Track = "DTO_BEFORE_PCSC"
	TrackDTOAfterPCSC      Track = "DTO_AFTER_PCSC"
	TrackBreach            Track = "BOTUS"
	TrackBreachHistoric    Track = "BOTUS_WITH_HISTORIC_TUSED"
)

// =============================================================================
// ADJUSTMENT ACCUMULATOR
// =============================================================================

// Adjustments accumulates day counts per adjustment category for one
// sentence within one calculation run. All counts are non-negative except
// AwardedDuringCustody / AwardedAfterRelease, which can go negative when
// restored days outweigh awarded days.
type Adjustments struct {
	Remand               int
	TaggedBail           int
	RecallRemand         int
	RecallTaggedBail     int
	UALDuringCustody     int
	UALAfterRelease      int
	AwardedDuringCustody int
	AwardedAfterRelease  int
	ServedADA            int
	UnusedADA            int
	UnusedLicenceADA     int
}

// DeductedDays are days that bring release forward (time already served).
func (a Adjustments) DeductedDays() int {
	return a.Remand + a.TaggedBail + a.RecallRemand + a.RecallTaggedBail
}

// AddedDays are days that push release back (at-large time, awarded days).
func (a Adjustments) AddedDays() int {
	return a.UALDuringCustody + a.AwardedDuringCustody
}

// NetDays is the signed total applied to custodial release dates.
func (a Adjustments) NetDays() int {
	return a.AddedDays() - a.DeductedDays()
}

// LicenceDays apply to the post-release licence window only.
func (a Adjustments) LicenceDays() int {
	return a.UALAfterRelease + a.AwardedAfterRelease
}

// =============================================================================
// RULES AND BREAKDOWNS
// =============================================================================

// CalculationRule tags a breakdown with the special-case rules that fired
// while computing it. Rules exist for audit: a downstream reviewer can see
// why a date landed where it did.
type CalculationRule string

const (
	RuleImmediateRelease        CalculationRule = "IMMEDIATE_RELEASE"
	RuleUnusedADA               CalculationRule = "UNUSED_ADA"
	RuleLEDConsecutiveOraNonOra CalculationRule = "LED_CONSECUTIVE_ORA_AND_NON_ORA"
	RuleNPDMixedEraSplit        CalculationRule = "NPD_MIXED_ERA_SPLIT"
	RuleTUSEDFromHistoricDate   CalculationRule = "TUSED_FROM_HISTORIC_OVERRIDE"
	RuleHDCEDAdjustedToTranche  CalculationRule = "HDCED_ADJUSTED_TO_TRANCHE_COMMENCEMENT"
	RuleERSEDAdjustedToTranche  CalculationRule = "ERSED_ADJUSTED_TO_TRANCHE_COMMENCEMENT"
	RulePEDAdjustedToTranche    CalculationRule = "PED_ADJUSTED_TO_TRANCHE_COMMENCEMENT"
)

// ReleaseDateBreakdown is the audit record behind one computed date.
type ReleaseDateBreakdown struct {
	Unadjusted Date
	Adjusted   Date
	// AdjustedDays is the signed delta from unadjusted to adjusted.
	AdjustedDays int
	Rules        []CalculationRule
	// RuleDays records extra day components per rule (e.g. the ORA-half
	// added to a consecutive licence expiry).
	RuleDays map[CalculationRule]int
}

func (b *ReleaseDateBreakdown) AddRule(rule CalculationRule) {
	for _, r := range b.Rules {
		if r == rule {
			return
		}
	}
	b.Rules = append(b.Rules, rule)
}

func (b *ReleaseDateBreakdown) HasRule(rule CalculationRule) bool {
	for _, r := range b.Rules {
		if r == rule {
			return true
		}
	}
	return false
}

func (b *ReleaseDateBreakdown) AddRuleDays(rule CalculationRule, days int) {
	if b.RuleDays == nil {
		b.RuleDays = make(map[CalculationRule]int)
	}
	b.RuleDays[rule] += days
	b.AddRule(rule)
}

// =============================================================================
// OFFENDER
// =============================================================================

type Offender struct {
	Reference   string
	DateOfBirth Date
}

// AgeAt returns the offender's age in whole years on the given date.
func (o Offender) AgeAt(date Date) int {
	age := date.Year() - o.DateOfBirth.Year()
	anniversary := o.DateOfBirth.AddYears(age)
	if anniversary.After(date) {
		age--
	}
	return age
}

// =============================================================================
// OPTIONS
// =============================================================================

// CalculationOptions toggle optional parts of a run.
type CalculationOptions struct {
	// CalculateERSED asks the run to invoke the early removal scheme
	// collaborator for eligible sentences.
	CalculateERSED bool
}
