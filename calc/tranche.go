/*
tranche.go - Early-release configuration and release-point lookup

PURPOSE:
  When an early-release scheme commences, eligible sentences switch from a
  historic release-point multiplier (e.g. half) to a current one (e.g. two
  fifths). Commencement is staged in tranches: each tranche has a date and a
  duration-based filter saying which sentences it brings in.

LOOKUP CONTRACT:
  ReleasePointOn(track, date) returns the current multiplier once the
  relevant commencement date has passed (tranche one by default), otherwise
  the historic multiplier. Tranche allocation within a run is monotonic:
  once a tranche is allocated it is never reverted to an earlier one.
*/
package calc

import "github.com/shopspring/decimal"

// =============================================================================
// TRANCHE DEFINITIONS
// =============================================================================

type TrancheAllocationType string

const (
	// TrancheAllocationStandard tranches allocate by the duration filter.
	TrancheAllocationStandard TrancheAllocationType = "STANDARD"
	// TrancheAllocationThree is the late commencement for sentences the
	// earlier tranches excluded.
	TrancheAllocationThree TrancheAllocationType = "TRANCHE_THREE"
)

// Tranche is one staged commencement of an early-release configuration.
// Owned by configuration, read-only during a run.
type Tranche struct {
	Name             string
	CommencementDate Date
	AllocationType   TrancheAllocationType

	// Duration eligibility filter. A sentence qualifies when its aggregate
	// duration is at least MinimumYears and, if MaximumYears is non-zero,
	// under MaximumYears.
	MinimumYears int
	MaximumYears int
}

// AppliesToDuration reports whether the sentence's aggregate duration falls
// inside this tranche's filter.
func (t Tranche) AppliesToDuration(s *Sentence) bool {
	if t.MinimumYears > 0 && !s.DurationAtLeast(t.MinimumYears, UnitYears) {
		return false
	}
	if t.MaximumYears > 0 && s.DurationAtLeast(t.MaximumYears, UnitYears) {
		return false
	}
	return true
}

// =============================================================================
// EARLY RELEASE CONFIGURATION
// =============================================================================

// TrackMultipliers holds the release-point fraction for a track before and
// after commencement.
type TrackMultipliers struct {
	Historic decimal.Decimal
	Current  decimal.Decimal
}

// EarlyReleaseConfiguration is externally supplied and time-invariant during
// a run. The engine holds a read-only reference and never mutates it.
type EarlyReleaseConfiguration struct {
	Name        string
	Multipliers map[Track]TrackMultipliers

	// AppliesTo is the eligibility predicate over sentence parts: which
	// sentences the scheme can affect at all.
	AppliesTo func(part *Sentence) bool

	// Tranches in commencement order.
	Tranches []Tranche
}

// EligibleSentence reports whether any part of the sentence is within the
// scheme, per the configuration's predicate.
func (c *EarlyReleaseConfiguration) EligibleSentence(s *Sentence) bool {
	if c.AppliesTo == nil {
		return false
	}
	return s.AnyPart(c.AppliesTo)
}

// TrancheFor returns the tranche commencing on the given date, if any.
func (c *EarlyReleaseConfiguration) TrancheFor(date Date) *Tranche {
	for i := range c.Tranches {
		if c.Tranches[i].CommencementDate.Equal(date) {
			return &c.Tranches[i]
		}
	}
	return nil
}

// EarlyReleaseConfigurations is the ordered list of configurations supplied
// to a run. The first configuration with a matching track governs lookup.
type EarlyReleaseConfigurations []*EarlyReleaseConfiguration

// SDS40TrancheConfiguration carries the three explicit commencement dates
// used as defaults when no specific configuration applies.
type SDS40TrancheConfiguration struct {
	TrancheOne   Date
	TrancheTwo   Date
	TrancheThree Date
}

// =============================================================================
// MULTIPLIER LOOKUP
// =============================================================================

// MultiplierLookup resolves release-point fractions per track and date.
type MultiplierLookup struct {
	Configs EarlyReleaseConfigurations
	Sds40   SDS40TrancheConfiguration
}

func (m *MultiplierLookup) multipliersFor(track Track) (TrackMultipliers, bool) {
	for _, c := range m.Configs {
		if tm, ok := c.Multipliers[track]; ok {
			return tm, ok
		}
	}
	return TrackMultipliers{}, false
}

// Historic returns the pre-commencement release point for a track. Tracks
// with no configured multiplier release at the halfway point.
func (m *MultiplierLookup) Historic(track Track) decimal.Decimal {
	if tm, ok := m.multipliersFor(track); ok {
		return tm.Historic
	}
	return decimal.NewFromFloat(0.5)
}

// Current returns the post-commencement release point for a track.
func (m *MultiplierLookup) Current(track Track) decimal.Decimal {
	if tm, ok := m.multipliersFor(track); ok {
		return tm.Current
	}
	return decimal.NewFromFloat(0.5)
}

// ReleasePointOn returns the multiplier in force for a track on a date,
// defaulting to tranche one's commencement when no tranche context is given.
func (m *MultiplierLookup) ReleasePointOn(track Track, date Date) decimal.Decimal {
	if date.AfterOrEqual(m.Sds40.TrancheOne) {
		return m.Current(track)
	}
	return m.Historic(track)
}

// FnFor seeds a sentence's release-point function for the given date.
func (m *MultiplierLookup) FnFor(date Date) ReleasePointFn {
	if date.AfterOrEqual(m.Sds40.TrancheOne) {
		return m.Current
	}
	return m.Historic
}

// ConfigurationFor returns the first configuration whose predicate matches
// the sentence, or nil.
func (m *MultiplierLookup) ConfigurationFor(s *Sentence) *EarlyReleaseConfiguration {
	for _, c := range m.Configs {
		if c.EligibleSentence(s) {
			return c
		}
	}
	return nil
}
