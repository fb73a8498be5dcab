package domain

import (
	"fmt"
	"strings"
	"time"
)

// HazardType identifies a natural-hazard layer, e.g. "flood" or "wildfire".
// The set of types is open: the index serves whatever layers were loaded.
type HazardType string

// Hazard types shipped with the default layer fixtures.
const (
	HazardFlood    HazardType = "flood"
	HazardWildfire HazardType = "wildfire"
)

// SeverityClass is the ordered severity category attached to a hazard zone.
// Higher values dominate when multiple zones overlap a parcel.
type SeverityClass int

const (
	SeverityNone SeverityClass = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityExtreme
)

var severityNames = map[SeverityClass]string{
	SeverityNone:    "none",
	SeverityLow:     "low",
	SeverityMedium:  "medium",
	SeverityHigh:    "high",
	SeverityExtreme: "extreme",
}

func (s SeverityClass) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ParseSeverity maps a layer-file severity string to its class.
// Unknown or empty values map to SeverityLow so that a mislabeled zone still
// contributes conservatively instead of being dropped.
func ParseSeverity(s string) SeverityClass {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "extreme", "very_high", "veryhigh":
		return SeverityExtreme
	default:
		return SeverityLow
	}
}

// HazardZone is one mapped hazard area: a normalized geometry in the
// canonical CRS tagged with its hazard type and severity. Zones are immutable
// after loading and owned by the index snapshot that holds them.
type HazardZone struct {
	SourceID string
	Hazard   HazardType
	Severity SeverityClass
	Geometry Geometry

	// SourceUpdated is the publication date of the upstream dataset, when
	// the layer file carries one. Zero means unknown.
	SourceUpdated time.Time
}

// Match records how one hazard zone relates to a query parcel.
// Produced by the overlay engine, consumed and discarded by the reducer.
type Match struct {
	Zone HazardZone

	// OverlapFraction is intersection area / query area, in [0, 1].
	// 1 means the parcel lies fully inside the zone.
	OverlapFraction float64

	// Distance is the shortest boundary-to-boundary distance in canonical
	// CRS units (meters). 0 whenever the geometries intersect or touch.
	Distance float64
}

// RiskScore is the calibrated per-hazard result returned to the caller.
type RiskScore struct {
	Hazard HazardType `json:"hazard_type"`

	// Score is the calibrated risk value in [0, 100].
	Score float64 `json:"score"`

	// SeverityUsed is the severity class that set the base score: the
	// dominant overlapping class, or the nearest zone's class when scoring
	// by proximity. "none" when no zone contributed.
	SeverityUsed SeverityClass `json:"-"`

	// Confidence in [0, 1] expresses how much evidence backs the score.
	Confidence float64 `json:"confidence"`

	// ContributingZoneIDs lists every zone that influenced the score,
	// sorted for reproducible output — not just the dominant one.
	ContributingZoneIDs []string `json:"contributing_zone_ids"`
}
