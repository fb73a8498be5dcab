package domain

import (
	"log/slog"
	"sort"

	"github.com/paulmach/orb"
)

// OverlapEpsilon is the relative threshold below which an overlap fraction
// is treated as zero. Floating noise from clipping coordinates near a shared
// boundary otherwise produces spurious low-confidence matches.
const OverlapEpsilon = 1e-9

// Evaluate computes the exact spatial relationship between a normalized
// query geometry and each candidate zone from the index's bounding-box
// prefilter. Candidates that truly overlap get an overlap fraction; disjoint
// candidates get a boundary distance for downstream distance-decay scoring.
//
// A degenerate zone geometry is a data-quality problem in the reference
// layer, not in the request: the zone is skipped and logged, never fatal.
// Matches come back sorted by source id so evaluation output is reproducible
// regardless of index iteration order.
func Evaluate(query Geometry, candidates []HazardZone, logger *slog.Logger) []Match {
	matches := make([]Match, 0, len(candidates))
	queryArea := query.Area()

	for _, zone := range candidates {
		if len(asPolygons(zone.Geometry.Geom)) == 0 || zone.Geometry.Area() < degenerateArea {
			logger.Warn("skipping degenerate hazard zone",
				"zone_id", zone.SourceID,
				"hazard_type", zone.Hazard,
			)
			continue
		}

		fraction := overlapFraction(query, zone.Geometry, queryArea)
		match := Match{Zone: zone, OverlapFraction: fraction}
		if fraction == 0 {
			match.Distance = boundaryDistance(query.Geom, zone.Geometry.Geom)
		}
		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Zone.SourceID < matches[j].Zone.SourceID
	})
	return matches
}

// overlapFraction returns intersection area / query area, clamped to [0, 1]
// with near-zero and near-one values snapped to the exact bound.
//
// A point query has no area; containment in the zone counts as full overlap.
func overlapFraction(query Geometry, zone Geometry, queryArea float64) float64 {
	if pt, ok := query.Geom.(orb.Point); ok {
		if containsPoint(zone.Geom, pt) {
			return 1
		}
		return 0
	}
	if queryArea <= 0 {
		return 0
	}

	fraction := intersectionArea(query.Geom, zone.Geom) / queryArea
	switch {
	case fraction < OverlapEpsilon:
		return 0
	case fraction > 1-OverlapEpsilon:
		return 1
	default:
		return fraction
	}
}
