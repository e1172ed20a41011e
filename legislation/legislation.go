/*
Package legislation supplies the concrete legislative parameters the engine
runs with: release-point multiplier tables per identification track, the
staged SDS40 commencement dates, and the standard early-release
configuration.

The engine itself never hard-codes a multiplier; everything here is handed
to it as read-only configuration. Fractions that are not exactly
representable in decimal (two thirds) are truncated at ten places - the
truncation keeps ceil(days x multiplier) exact for every realistic sentence
length, where rounding the fraction up would not.
*/
package legislation

import (
	"github.com/shopspring/decimal"

	"github.com/warp/release-engine/calc"
)

var (
	half      = decimal.New(5, -1)
	twoFifths = decimal.New(4, -1)
	twoThirds = decimal.RequireFromString("0.6666666666")
	fullTerm  = decimal.New(1, 0)
)

// SDS40Tranches are the staged commencement dates of the 40% release point
// for standard determinate sentences.
func SDS40Tranches() calc.SDS40TrancheConfiguration {
	return calc.SDS40TrancheConfiguration{
		TrancheOne:   calc.NewDate(2024, 9, 10),
		TrancheTwo:   calc.NewDate(2024, 10, 22),
		TrancheThree: calc.NewDate(2024, 12, 16),
	}
}

// Multipliers is the release-point table per identification track, historic
// (pre-commencement) and current (post-commencement).
func Multipliers() map[calc.Track]calc.TrackMultipliers {
	return map[calc.Track]calc.TrackMultipliers{
		calc.TrackSDSStandard:       {Historic: half, Current: twoFifths},
		calc.TrackSDSBeforeCJALASPO: {Historic: half, Current: half},
		calc.TrackSDSPlus:           {Historic: twoThirds, Current: twoThirds},
		calc.TrackEDSAutomatic:      {Historic: twoThirds, Current: twoThirds},
		calc.TrackEDSDiscretionary:  {Historic: fullTerm, Current: fullTerm},
		calc.TrackSOPCPEDHalfway:    {Historic: fullTerm, Current: fullTerm},
		calc.TrackSOPCPEDTwoThirds:  {Historic: fullTerm, Current: fullTerm},
		calc.TrackFineHalfway:       {Historic: half, Current: half},
		calc.TrackFineFullTerm:      {Historic: fullTerm, Current: fullTerm},
		calc.TrackDTOBeforePCSC:     {Historic: half, Current: half},
		calc.TrackDTOAfterPCSC:      {Historic: half, Current: half},
		calc.TrackBreach:            {Historic: half, Current: half},
		calc.TrackBreachHistoric:    {Historic: half, Current: half},
	}
}

// StandardEligibility is the early-release predicate: standard determinate
// parts that are neither SDS-plus nor recalled.
func StandardEligibility(part *calc.Sentence) bool {
	return part.Kind == calc.SentenceStandardDeterminate &&
		!part.SDSPlus &&
		!part.IsRecall()
}

// StandardConfiguration is the early-release configuration in force: the
// full multiplier table, the standard eligibility predicate, and the three
// staged tranches (under five years, five years and over, then the rest).
func StandardConfiguration() *calc.EarlyReleaseConfiguration {
	tranches := SDS40Tranches()
	return &calc.EarlyReleaseConfiguration{
		Name:        "SDS40",
		Multipliers: Multipliers(),
		AppliesTo:   StandardEligibility,
		Tranches: []calc.Tranche{
			{
				Name:             "TRANCHE_1",
				CommencementDate: tranches.TrancheOne,
				AllocationType:   calc.TrancheAllocationStandard,
				MaximumYears:     5,
			},
			{
				Name:             "TRANCHE_2",
				CommencementDate: tranches.TrancheTwo,
				AllocationType:   calc.TrancheAllocationStandard,
				MinimumYears:     5,
			},
			{
				Name:             "TRANCHE_3",
				CommencementDate: tranches.TrancheThree,
				AllocationType:   calc.TrancheAllocationThree,
			},
		},
	}
}

// Configurations is the ordered configuration list a default engine runs
// with.
func Configurations() calc.EarlyReleaseConfigurations {
	return calc.EarlyReleaseConfigurations{StandardConfiguration()}
}
