/*
Package factory provides JSON to Go configuration conversion.

PURPOSE:
  Converts JSON early-release configuration definitions into
  calc.EarlyReleaseConfigurations. This lets policy owners stage a new
  commencement (a new tranche, a changed multiplier) without a code change.

JSON SCHEMA:
  {
    "name": "SDS40",
    "multipliers": {
      "SDS_STANDARD": {"historic": "0.5", "current": "0.4"}
    },
    "tranches": [
      {
        "name": "TRANCHE_1",
        "commencement_date": "2024-09-10",
        "allocation_type": "STANDARD",
        "maximum_years": 5
      }
    ]
  }

NOTES:
  Multipliers are decimal strings, never floats: release points must be
  exact. The eligibility predicate is code, not data - parsed
  configurations get the standard predicate from the legislation package.
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/legislation"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type ConfigurationJSON struct {
	Name        string                    `json:"name"`
	Multipliers map[string]MultiplierJSON `json:"multipliers"`
	Tranches    []TrancheJSON             `json:"tranches"`
}

type MultiplierJSON struct {
	Historic string `json:"historic"`
	Current  string `json:"current"`
}

type TrancheJSON struct {
	Name             string `json:"name"`
	CommencementDate string `json:"commencement_date"`
	AllocationType   string `json:"allocation_type"`
	MinimumYears     int    `json:"minimum_years,omitempty"`
	MaximumYears     int    `json:"maximum_years,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseConfigurations converts a JSON array of configurations. Order is
// preserved: the first configuration matching a track governs lookup.
func ParseConfigurations(data []byte) (calc.EarlyReleaseConfigurations, error) {
	var raw []ConfigurationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse configurations: %w", err)
	}

	out := make(calc.EarlyReleaseConfigurations, 0, len(raw))
	for _, cj := range raw {
		cfg, err := parseConfiguration(cj)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func parseConfiguration(cj ConfigurationJSON) (*calc.EarlyReleaseConfiguration, error) {
	if cj.Name == "" {
		return nil, fmt.Errorf("parse configuration: name is required")
	}

	multipliers := make(map[calc.Track]calc.TrackMultipliers, len(cj.Multipliers))
	for track, mj := range cj.Multipliers {
		historic, err := decimal.NewFromString(mj.Historic)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: track %s: historic: %w", cj.Name, track, err)
		}
		current, err := decimal.NewFromString(mj.Current)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: track %s: current: %w", cj.Name, track, err)
		}
		multipliers[calc.Track(track)] = calc.TrackMultipliers{Historic: historic, Current: current}
	}

	tranches := make([]calc.Tranche, 0, len(cj.Tranches))
	for _, tj := range cj.Tranches {
		commencement, err := calc.ParseDate(tj.CommencementDate)
		if err != nil {
			return nil, fmt.Errorf("configuration %s: tranche %s: %w", cj.Name, tj.Name, err)
		}
		allocation := calc.TrancheAllocationType(tj.AllocationType)
		if allocation == "" {
			allocation = calc.TrancheAllocationStandard
		}
		tranches = append(tranches, calc.Tranche{
			Name:             tj.Name,
			CommencementDate: commencement,
			AllocationType:   allocation,
			MinimumYears:     tj.MinimumYears,
			MaximumYears:     tj.MaximumYears,
		})
	}

	return &calc.EarlyReleaseConfiguration{
		Name:        cj.Name,
		Multipliers: multipliers,
		AppliesTo:   legislation.StandardEligibility,
		Tranches:    tranches,
	}, nil
}
