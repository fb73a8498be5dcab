// Package domain implements the hazard-risk evaluation core: geometry
// normalization, spatial overlay, and score reduction.
//
// # Hazard Layers
//
// Reference data arrives as GeoJSON FeatureCollections, one file per hazard
// layer (flood, wildfire, ...). Each feature is a polygon or multi-polygon
// with properties:
//
//	hazard_type     layer name, e.g. "flood"
//	severity        ordered class: low | medium | high | extreme
//	source_id       stable upstream identifier, used in reports
//	source_updated  optional RFC 3339 publication date of the dataset
//
// Layer files are authored in WGS-84 (EPSG:4326) unless the loader is told
// otherwise. All geometry is reprojected to Web Mercator (EPSG:3857) before
// indexing so that every area and distance computation happens in linear
// units; nothing in this package ever measures angular coordinates.
//
// # Normalization Invariants
//
// [Normalize] is the only constructor of [Geometry]. After it succeeds:
//
//   - rings are closed (last point repeats the first)
//   - outer rings wind counter-clockwise, holes clockwise
//   - no ring self-intersects or bounds (near-)zero area
//   - coordinates are finite and in the canonical CRS
//
// The overlay engine assumes these invariants instead of re-checking them.
// Degenerate *reference* geometry that slips past upstream tooling is still
// tolerated at evaluation time: the zone is skipped with a warning, because
// one bad polygon in a national dataset must not fail every report.
//
// # Overlap Computation
//
// Overlap fractions come from exact planar clipping: both rings are
// ear-clipped into triangles and the pairwise convex intersections are
// summed. Holes are handled by inclusion–exclusion over ring pairs (see
// [polygonIntersectionArea]). Fractions within [OverlapEpsilon] of 0 or 1
// snap to the bound, so shared-boundary noise neither fabricates matches
// nor stops full containment from reading as exactly 1.
//
// # Scoring
//
// [Reduce] is deterministic: no clock, no randomness, stable ordering of
// contributing zone ids. The highest overlapping severity class dominates
// the base score; disjoint parcels decay linearly to zero at the configured
// cutoff distance. Curves and class weights live in [ScoringConfig] — they
// are calibration, not behavior inferred from data.
package domain
