package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CanonicalCRS is the projected CRS every geometry is normalized into before
// any area or distance computation. Web Mercator keeps units linear (meters),
// which is what the overlay engine's numeric policy requires; angular WGS-84
// coordinates are never measured directly.
const CanonicalCRS = "EPSG:3857"

// degenerateArea is the area (in canonical square units) below which a
// polygon ring is considered to bound nothing.
const degenerateArea = 1e-9

// crsTransforms maps a supported input CRS to the projection that converts
// its coordinates into the canonical CRS. CRS support is explicit: input
// tagged with anything else is rejected, never silently reprojected with a
// guessed default.
var crsTransforms = map[string]orb.Projection{
	"EPSG:4326": project.WGS84.ToMercator,
	CanonicalCRS: func(p orb.Point) orb.Point {
		return p
	},
}

// SupportedCRS reports whether a transform is registered for the identifier.
func SupportedCRS(crs string) bool {
	_, ok := crsTransforms[crs]
	return ok
}

// RawGeometry is unvalidated caller input: a geometry in a caller-declared
// CRS. The CRS field is required; there is no implicit default here (the
// transport layer owns its own request defaulting).
type RawGeometry struct {
	CRS  string
	Geom orb.Geometry
}

// Geometry is a validated geometry in the canonical CRS. Only Normalize
// constructs these; downstream code may assume closed, non-self-intersecting
// rings, non-zero polygon areas, and linear units.
type Geometry struct {
	CRS  string
	Geom orb.Geometry
}

// Bound returns the axis-aligned bounding box in canonical coordinates.
func (g Geometry) Bound() orb.Bound {
	return g.Geom.Bound()
}

// Area returns the geometry's area in canonical square units.
// Points have zero area.
func (g Geometry) Area() float64 {
	switch geom := g.Geom.(type) {
	case orb.Polygon:
		return polygonArea(geom)
	case orb.MultiPolygon:
		total := 0.0
		for _, p := range geom {
			total += polygonArea(p)
		}
		return total
	default:
		return 0
	}
}

// Normalize validates raw input and converts it into the canonical planar
// representation. It is a pure function: failures return ErrInvalidGeometry
// or ErrUnsupportedCRS and never mutate the input.
//
// Accepted kinds are Point, Polygon, and MultiPolygon, handled exhaustively;
// anything else (LineStrings, collections) is rejected as invalid rather than
// coerced.
func Normalize(raw RawGeometry) (Geometry, error) {
	if raw.Geom == nil {
		return Geometry{}, fmt.Errorf("%w: empty geometry", ErrInvalidGeometry)
	}

	transform, ok := crsTransforms[raw.CRS]
	if !ok {
		return Geometry{}, fmt.Errorf("%w: %q has no registered transform", ErrUnsupportedCRS, raw.CRS)
	}

	projected := project.Geometry(orb.Clone(raw.Geom), transform)

	switch geom := projected.(type) {
	case orb.Point:
		if !finitePoint(geom) {
			return Geometry{}, fmt.Errorf("%w: non-finite coordinates", ErrInvalidGeometry)
		}
		return Geometry{CRS: CanonicalCRS, Geom: geom}, nil

	case orb.Polygon:
		normalized, err := normalizePolygon(geom)
		if err != nil {
			return Geometry{}, err
		}
		return Geometry{CRS: CanonicalCRS, Geom: normalized}, nil

	case orb.MultiPolygon:
		if len(geom) == 0 {
			return Geometry{}, fmt.Errorf("%w: empty multi-polygon", ErrInvalidGeometry)
		}
		normalized := make(orb.MultiPolygon, 0, len(geom))
		for i, p := range geom {
			np, err := normalizePolygon(p)
			if err != nil {
				return Geometry{}, fmt.Errorf("polygon %d: %w", i, err)
			}
			normalized = append(normalized, np)
		}
		return Geometry{CRS: CanonicalCRS, Geom: normalized}, nil

	default:
		return Geometry{}, fmt.Errorf("%w: unsupported kind %s", ErrInvalidGeometry, projected.GeoJSONType())
	}
}

// normalizePolygon closes, orients, and validates every ring: the outer ring
// ends up counter-clockwise, holes clockwise, and any empty, degenerate, or
// self-intersecting ring rejects the whole polygon.
func normalizePolygon(p orb.Polygon) (orb.Polygon, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}

	normalized := make(orb.Polygon, 0, len(p))
	for i, ring := range p {
		closed := closeRing(ring)
		if len(closed) < 4 {
			return nil, fmt.Errorf("%w: ring %d has fewer than 3 distinct points", ErrInvalidGeometry, i)
		}
		for _, pt := range closed {
			if !finitePoint(pt) {
				return nil, fmt.Errorf("%w: ring %d has non-finite coordinates", ErrInvalidGeometry, i)
			}
		}
		if math.Abs(ringArea(closed)) < degenerateArea {
			return nil, fmt.Errorf("%w: ring %d bounds zero area", ErrInvalidGeometry, i)
		}
		if ringSelfIntersects(closed) {
			return nil, fmt.Errorf("%w: ring %d self-intersects", ErrInvalidGeometry, i)
		}

		wantCCW := i == 0
		if (closed.Orientation() == orb.CCW) != wantCCW {
			closed.Reverse()
		}
		normalized = append(normalized, closed)
	}
	return normalized, nil
}

// closeRing returns a copy of the ring whose last point repeats the first.
func closeRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// ringSelfIntersects reports whether any two non-adjacent edges of a closed
// ring cross or touch. Adjacent edges legitimately share an endpoint and are
// skipped, as is the closing edge's wrap-around adjacency with the first.
func ringSelfIntersects(r orb.Ring) bool {
	n := len(r) - 1 // closed ring: n edges
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // first and last edge are adjacent
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

func finitePoint(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}
