package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ScoringConfig fixes the aggregation and decay curves used by Reduce.
// All values are configuration, not inferred behavior: the same config and
// match set always produce the same RiskScore.
type ScoringConfig struct {
	// BaseScores maps each severity class to the score a parcel fully
	// inside a zone of that class receives.
	BaseScores map[SeverityClass]float64

	// MinOverlapFactor is the share of the base score granted at the
	// smallest nonzero overlap; the remainder scales linearly with the
	// dominant class's total overlap fraction.
	MinOverlapFactor float64

	// ProximityFactor discounts proximity-only scores relative to direct
	// overlap: a parcel touching no zone can never outscore one inside it.
	ProximityFactor float64

	// DecayCutoff is the distance (canonical units, meters) beyond which a
	// zone contributes nothing. Decay is linear from the zone boundary to
	// the cutoff.
	DecayCutoff float64

	// SparseConfidence is reported when no zone contributed: absence of
	// overlap is a normal, meaningful result, with low but defined
	// confidence reflecting sparse evidence.
	SparseConfidence float64
}

// DefaultScoringConfig returns the calibration used in production.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseScores: map[SeverityClass]float64{
			SeverityLow:     35,
			SeverityMedium:  60,
			SeverityHigh:    90,
			SeverityExtreme: 100,
		},
		MinOverlapFactor: 0.5,
		ProximityFactor:  0.45,
		DecayCutoff:      2000,
		SparseConfidence: 0.3,
	}
}

// ErrInvalidScoringConfig marks calibration values that would break scoring
// monotonicity.
var ErrInvalidScoringConfig = errors.New("invalid scoring config")

// Validate rejects configs that would break scoring monotonicity.
func (c ScoringConfig) Validate() error {
	if c.DecayCutoff <= 0 {
		return fmt.Errorf("%w: decay cutoff must be positive", ErrInvalidScoringConfig)
	}
	if c.MinOverlapFactor < 0 || c.MinOverlapFactor > 1 {
		return fmt.Errorf("%w: min overlap factor must be in [0,1]", ErrInvalidScoringConfig)
	}
	if c.ProximityFactor < 0 || c.ProximityFactor > 1 {
		return fmt.Errorf("%w: proximity factor must be in [0,1]", ErrInvalidScoringConfig)
	}
	if len(c.BaseScores) == 0 {
		return fmt.Errorf("%w: base scores must not be empty", ErrInvalidScoringConfig)
	}
	return nil
}

// Reduce aggregates an overlay match set into one calibrated RiskScore.
//
// Precedence: among zones with direct overlap, the highest severity class
// sets the base score; every overlapping zone is still recorded in
// ContributingZoneIDs for explainability. Without direct overlap, the
// nearest zone inside the decay cutoff scores with linear distance decay
// and the proximity discount. No zone in reach yields score 0 — a valid,
// meaningful result, never an error.
func Reduce(matches []Match, hazard HazardType, cfg ScoringConfig) RiskScore {
	overlapping := make([]Match, 0, len(matches))
	for _, m := range matches {
		if m.OverlapFraction > 0 {
			overlapping = append(overlapping, m)
		}
	}

	if len(overlapping) > 0 {
		return reduceOverlap(overlapping, hazard, cfg)
	}
	return reduceProximity(matches, hazard, cfg)
}

func reduceOverlap(overlapping []Match, hazard HazardType, cfg ScoringConfig) RiskScore {
	dominant := SeverityNone
	for _, m := range overlapping {
		if m.Zone.Severity > dominant {
			dominant = m.Zone.Severity
		}
	}

	dominantFraction := 0.0
	totalFraction := 0.0
	ids := make([]string, 0, len(overlapping))
	dated := true
	for _, m := range overlapping {
		ids = append(ids, m.Zone.SourceID)
		totalFraction += m.OverlapFraction
		if m.Zone.Severity == dominant {
			dominantFraction += m.OverlapFraction
		}
		if m.Zone.SourceUpdated.IsZero() {
			dated = false
		}
	}
	dominantFraction = math.Min(dominantFraction, 1)
	sort.Strings(ids)

	score := cfg.BaseScores[dominant] * (cfg.MinOverlapFactor + (1-cfg.MinOverlapFactor)*dominantFraction)

	return RiskScore{
		Hazard:              hazard,
		Score:               clampScore(score),
		SeverityUsed:        dominant,
		Confidence:          overlapConfidence(len(overlapping), totalFraction, dated),
		ContributingZoneIDs: ids,
	}
}

func reduceProximity(matches []Match, hazard HazardType, cfg ScoringConfig) RiskScore {
	nearest, ok := nearestMatch(matches)
	if !ok || nearest.Distance >= cfg.DecayCutoff {
		// Nothing in reach: zero score with sparse-data confidence.
		return RiskScore{
			Hazard:              hazard,
			Score:               0,
			SeverityUsed:        SeverityNone,
			Confidence:          cfg.SparseConfidence,
			ContributingZoneIDs: []string{},
		}
	}

	decay := 1 - nearest.Distance/cfg.DecayCutoff
	score := cfg.BaseScores[nearest.Zone.Severity] * cfg.ProximityFactor * decay

	return RiskScore{
		Hazard:              hazard,
		Score:               clampScore(score),
		SeverityUsed:        nearest.Zone.Severity,
		Confidence:          clamp01(cfg.SparseConfidence + 0.15*decay),
		ContributingZoneIDs: []string{nearest.Zone.SourceID},
	}
}

// nearestMatch picks the closest disjoint match, breaking distance ties in
// favor of the higher severity class, then the lexically smaller source id
// so reduction stays deterministic.
func nearestMatch(matches []Match) (Match, bool) {
	var best Match
	found := false
	for _, m := range matches {
		if !found {
			best, found = m, true
			continue
		}
		if m.Distance < best.Distance ||
			(m.Distance == best.Distance && m.Zone.Severity > best.Zone.Severity) ||
			(m.Distance == best.Distance && m.Zone.Severity == best.Zone.Severity && m.Zone.SourceID < best.Zone.SourceID) {
			best = m
		}
	}
	return best, found
}

// overlapConfidence combines evidence count, total overlap extent, and
// whether every contributing zone carries a source date (the deterministic
// recency proxy: publication dates are facts about the zone, while "age
// right now" would make reduction clock-dependent).
func overlapConfidence(zones int, totalFraction float64, dated bool) float64 {
	conf := 0.4 + 0.1*math.Min(float64(zones), 3) + 0.25*math.Min(totalFraction, 1)
	if dated {
		conf += 0.05
	}
	return clamp01(conf)
}

func clampScore(s float64) float64 {
	return math.Max(0, math.Min(s, 100))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
