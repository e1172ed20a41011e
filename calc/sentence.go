/*
sentence.go - Sentence variants and the booking input model

PURPOSE:
  Defines the closed set of sentence variants the engine understands and the
  Booking aggregate a caller assembles for a calculation run. Variants are a
  tagged union (Kind field) rather than an interface hierarchy so that
  classification and date arithmetic can dispatch with exhaustive switches.

VARIANTS:
  SDS          standard determinate
  EDS          extended determinate (custodial term + licence extension)
  SOPC         sentence for offenders of particular concern
  A_FINE       default term for an unpaid fine
  DTO          detention and training order
  SINGLE_TERM  several older sentences treated as one term
  BOTUS        breach of top-up supervision
  CONSECUTIVE  composite aggregating an ordered chain of other sentences

CONSECUTIVE CHAINS:
  Callers supply flat sentences with ConsecutiveToID links; the engine folds
  chains into one CONSECUTIVE composite whose Parts slice holds the chain in
  service order. A chain must be acyclic and every link must resolve.

MUTABILITY:
  Sentence facts are immutable during a run. The one mutable field is
  Calculation, the per-run working state created when the timeline first
  reaches the sentence.
*/
package calc

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTENCE VARIANTS
// =============================================================================

type SentenceKind string

const (
	SentenceStandardDeterminate SentenceKind = "SDS"
	SentenceExtendedDeterminate SentenceKind = "EDS"
	SentenceSOPC                SentenceKind = "SOPC"
	SentenceAFine               SentenceKind = "A_FINE"
	SentenceDetentionTraining   SentenceKind = "DTO"
	SentenceSingleTerm          SentenceKind = "SINGLE_TERM"
	SentenceBreach              SentenceKind = "BOTUS"
	SentenceConsecutive         SentenceKind = "CONSECUTIVE"
)

type RecallType string

const (
	RecallNone        RecallType = ""
	RecallStandard    RecallType = "STANDARD"
	RecallFixedTerm14 RecallType = "FIXED_TERM_14"
	RecallFixedTerm28 RecallType = "FIXED_TERM_28"
)

// =============================================================================
// OFFENCE
// =============================================================================

// Offence is immutable sentencing data about the offence behind a sentence.
type Offence struct {
	Code        string
	CommittedAt Date
	// EndedAt is set for offences committed over a range (the later date
	// governs era checks).
	EndedAt *Date

	ScheduleFifteenLife bool
	PCSCSection250      bool
}

// CommittedOn is the date used for legislative era checks.
func (o Offence) CommittedOn() Date {
	if o.EndedAt != nil && o.EndedAt.After(o.CommittedAt) {
		return *o.EndedAt
	}
	return o.CommittedAt
}

// =============================================================================
// SENTENCE
// =============================================================================

// Sentence is one sentence within a booking. Which fields are meaningful
// depends on Kind; the zero value of an inapplicable field is ignored.
type Sentence struct {
	ID          string
	Kind        SentenceKind
	Offence     Offence
	SentencedAt Date
	Duration    Duration

	// ExtensionDuration is the licence extension beyond the custodial term
	// (EDS and SOPC only).
	ExtensionDuration Duration

	Recall RecallType

	// ConsecutiveToID links this sentence to run consecutively after
	// another. The engine folds linked sentences into a composite.
	ConsecutiveToID string

	// Parts holds the ordered components of a CONSECUTIVE composite or the
	// member sentences of a SINGLE_TERM. Empty for simple sentences.
	Parts []*Sentence

	SDSPlus bool
	// ORA marks a sentence that carries an Offender Rehabilitation Act
	// licence period.
	ORA bool
	// AutomaticRelease distinguishes automatic-release EDS from
	// discretionary-release EDS.
	AutomaticRelease bool

	FineAmount decimal.Decimal // A_FINE only

	// HistoricTUSED is a previously fixed top-up supervision expiry carried
	// onto a breach sentence.
	HistoricTUSED *Date

	// Calculation is per-run working state, nil until the timeline first
	// reaches the sentence.
	Calculation *SentenceCalculation
}

// SentenceParts returns the component sentences: the parts of a composite,
// or the sentence itself.
func (s *Sentence) SentenceParts() []*Sentence {
	if len(s.Parts) > 0 {
		return s.Parts
	}
	return []*Sentence{s}
}

func (s *Sentence) IsRecall() bool { return s.Recall != RecallNone }

func (s *Sentence) IsFixedTermRecall() bool {
	return s.Recall == RecallFixedTerm14 || s.Recall == RecallFixedTerm28
}

// AggregateDuration concatenates the custodial durations of all parts.
func (s *Sentence) AggregateDuration() Duration {
	parts := s.SentenceParts()
	durations := make([]Duration, len(parts))
	for i, p := range parts {
		durations[i] = p.Duration
	}
	return Aggregate(durations...)
}

// TotalDurationDays measures the aggregate custodial duration from the
// sentence date, applying the detention-and-training cap when every part is
// a detention and training order.
func (s *Sentence) TotalDurationDays() int {
	parts := s.SentenceParts()
	durations := make([]Duration, len(parts))
	allDTO := true
	for i, p := range parts {
		durations[i] = p.Duration
		if p.Kind != SentenceDetentionTraining {
			allDTO = false
		}
	}
	return AggregateLengthInDays(s.SentencedAt, allDTO, durations...)
}

// ExpiryDurationDays is the day-length governing sentence expiry: the
// custodial aggregate plus any licence extension.
func (s *Sentence) ExpiryDurationDays() int {
	days := s.TotalDurationDays()
	parts := s.SentenceParts()
	for _, p := range parts {
		if !p.ExtensionDuration.IsZero() {
			days += p.ExtensionDuration.LengthInDays(s.SentencedAt.AddDays(days))
		}
	}
	return days
}

// DurationAtLeast reports whether the aggregate duration measured from the
// sentence date is at least n of the given unit.
func (s *Sentence) DurationAtLeast(n int, unit DurationUnit) bool {
	return s.TotalDurationDays() >= NewDuration(n, unit).LengthInDays(s.SentencedAt)
}

// DurationUnder reports whether the aggregate duration is strictly shorter
// than n of the given unit.
func (s *Sentence) DurationUnder(n int, unit DurationUnit) bool {
	return !s.DurationAtLeast(n, unit)
}

// EveryPart reports whether the predicate holds for every component.
func (s *Sentence) EveryPart(pred func(*Sentence) bool) bool {
	for _, p := range s.SentenceParts() {
		if !pred(p) {
			return false
		}
	}
	return true
}

// AnyPart reports whether the predicate holds for at least one component.
func (s *Sentence) AnyPart(pred func(*Sentence) bool) bool {
	for _, p := range s.SentenceParts() {
		if pred(p) {
			return true
		}
	}
	return false
}

// =============================================================================
// SENTENCE CALCULATION - Per-run mutable state
// =============================================================================

// ReleasePointFn resolves the release-point multiplier for a track. The
// timeline seeds each sentence with the current or historic lookup depending
// on whether a tranche had commenced when the sentence entered the run.
type ReleasePointFn func(Track) decimal.Decimal

// SentenceCalculation is the working state for one sentence in one run.
// Created when the timeline first reaches the sentence, mutated by each
// recalculation pass, read-only once its group is extracted.
type SentenceCalculation struct {
	Track Track
	Types TypeSet

	Adjustments Adjustments

	UnadjustedExpiry  Date
	AdjustedExpiry    Date
	UnadjustedRelease Date
	AdjustedRelease   Date

	// UnadjustedPED is the extended-determinate / SOPC parole eligibility
	// point. Zero when the sentence has no discretionary release window.
	UnadjustedPED Date

	Breakdown map[ReleaseDateType]*ReleaseDateBreakdown

	ReleasePoint ReleasePointFn

	IsImmediateRelease bool
}

func (c *SentenceCalculation) BreakdownFor(t ReleaseDateType) *ReleaseDateBreakdown {
	if c.Breakdown == nil {
		c.Breakdown = make(map[ReleaseDateType]*ReleaseDateBreakdown)
	}
	b, ok := c.Breakdown[t]
	if !ok {
		b = &ReleaseDateBreakdown{}
		c.Breakdown[t] = b
	}
	return b
}

// =============================================================================
// BOOKING - The input aggregate for one calculation run
// =============================================================================

// AdjustmentType tags an input adjustment record.
type AdjustmentType string

const (
	AdjustmentRemand           AdjustmentType = "REMAND"
	AdjustmentTaggedBail       AdjustmentType = "TAGGED_BAIL"
	AdjustmentRecallRemand     AdjustmentType = "RECALL_REMAND"
	AdjustmentRecallTaggedBail AdjustmentType = "RECALL_TAGGED_BAIL"
	AdjustmentUAL              AdjustmentType = "UNLAWFULLY_AT_LARGE"
	AdjustmentADA              AdjustmentType = "ADDITIONAL_DAYS_AWARDED"
	AdjustmentRADA             AdjustmentType = "RESTORATION_OF_ADDITIONAL_DAYS"
)

// Adjustment is one awarded/recorded adjustment from the booking.
type Adjustment struct {
	Type AdjustmentType
	Days int
	From Date
	To   *Date
	// AppliesToSentencesFrom anchors the adjustment on the timeline.
	AppliesToSentencesFrom Date
}

type BookingAdjustments map[AdjustmentType][]Adjustment

// All returns every adjustment of the given types, in input order.
func (ba BookingAdjustments) All(types ...AdjustmentType) []Adjustment {
	var out []Adjustment
	for _, t := range types {
		out = append(out, ba[t]...)
	}
	return out
}

type MovementDirection string

const (
	MovementIn  MovementDirection = "IN"
	MovementOut MovementDirection = "OUT"
)

// ExternalMovement is an admission or release recorded outside the engine.
type ExternalMovement struct {
	Date      Date
	Direction MovementDirection
	Reason    string
}

// Booking is everything a caller supplies for one calculation run.
type Booking struct {
	Offender            Offender
	Sentences           []*Sentence
	Adjustments         BookingAdjustments
	ReturnToCustodyDate *Date
	ExternalMovements   []ExternalMovement
	Options             CalculationOptions
}
