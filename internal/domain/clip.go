package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Planar primitives behind the overlay engine. Intersection areas are
// computed by ear-clipping both rings into triangles and summing pairwise
// convex clips: triangles partition a simple ring's interior exactly, and
// clipping one convex region by another (Sutherland–Hodgman) is numerically
// well-behaved, so the pairwise areas add up to the exact overlap without
// ever constructing the intersection polygon itself.

// cross returns the z-component of (a-o) x (b-o). Positive means b lies to
// the left of the directed line o→a.
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// ringArea returns the signed shoelace area of a closed ring.
// Positive for counter-clockwise winding.
func ringArea(r orb.Ring) float64 {
	area := 0.0
	for i := 0; i < len(r)-1; i++ {
		area += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return area / 2
}

// polygonArea returns the unsigned area of a polygon: outer ring minus holes.
func polygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	area := math.Abs(ringArea(p[0]))
	for _, hole := range p[1:] {
		area -= math.Abs(ringArea(hole))
	}
	return math.Max(area, 0)
}

// chainArea is the shoelace area of an open vertex chain.
func chainArea(pts []orb.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	area := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return math.Abs(area) / 2
}

// onSegment reports whether p lies on segment a-b, assuming collinearity.
func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentsIntersect reports whether segments p1-p2 and q1-q2 share any
// point, including endpoint touches and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

// triangulate decomposes a closed simple ring into triangles by ear
// clipping. Winding is normalized to counter-clockwise so every emitted
// triangle is CCW, which the convex clipper relies on. On numeric
// degeneracy (no ear found) the flattest vertex is dropped so the loop
// always terminates; the lost sliver area is below the overlay epsilon.
func triangulate(r orb.Ring) [][3]orb.Point {
	n := len(r) - 1
	if n < 3 {
		return nil
	}
	verts := make([]orb.Point, n)
	copy(verts, r[:n])
	if ringArea(r) < 0 {
		for i, j := 0, len(verts)-1; i < j; i, j = i+1, j-1 {
			verts[i], verts[j] = verts[j], verts[i]
		}
	}

	tris := make([][3]orb.Point, 0, n-2)
	for len(verts) > 3 {
		if i, ok := findEar(verts); ok {
			prev := verts[(i+len(verts)-1)%len(verts)]
			next := verts[(i+1)%len(verts)]
			tris = append(tris, [3]orb.Point{prev, verts[i], next})
			verts = append(verts[:i], verts[i+1:]...)
			continue
		}
		flat := flattestVertex(verts)
		verts = append(verts[:flat], verts[flat+1:]...)
	}
	if len(verts) == 3 {
		tris = append(tris, [3]orb.Point{verts[0], verts[1], verts[2]})
	}
	return tris
}

// findEar returns the index of a convex vertex whose ear triangle contains
// no other ring vertex.
func findEar(verts []orb.Point) (int, bool) {
	n := len(verts)
	for i := 0; i < n; i++ {
		prev := verts[(i+n-1)%n]
		cur := verts[i]
		next := verts[(i+1)%n]
		if cross(prev, cur, next) <= 0 {
			continue // reflex or collinear vertex
		}
		if earBlocked(prev, cur, next, verts, i) {
			continue
		}
		return i, true
	}
	return 0, false
}

// earBlocked reports whether any ring vertex other than the ear's corners
// lies inside (or on) the candidate ear triangle.
func earBlocked(a, b, c orb.Point, verts []orb.Point, ear int) bool {
	n := len(verts)
	for j := 0; j < n; j++ {
		if j == ear || j == (ear+n-1)%n || j == (ear+1)%n {
			continue
		}
		p := verts[j]
		if p == a || p == b || p == c {
			continue
		}
		if cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0 {
			return true
		}
	}
	return false
}

// flattestVertex returns the index of the vertex with the smallest turn
// angle, the safest one to discard when ear search stalls.
func flattestVertex(verts []orb.Point) int {
	n := len(verts)
	best, bestTurn := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		turn := math.Abs(cross(verts[(i+n-1)%n], verts[i], verts[(i+1)%n]))
		if turn < bestTurn {
			best, bestTurn = i, turn
		}
	}
	return best
}

// clipByTriangle clips a convex subject chain against a CCW triangle using
// Sutherland–Hodgman, returning the resulting convex chain.
func clipByTriangle(subject []orb.Point, clip [3]orb.Point) []orb.Point {
	out := subject
	for e := 0; e < 3 && len(out) > 0; e++ {
		a, b := clip[e], clip[(e+1)%3]
		in := out
		out = nil
		for i := range in {
			cur := in[i]
			prev := in[(i+len(in)-1)%len(in)]
			curInside := cross(a, b, cur) >= 0
			prevInside := cross(a, b, prev) >= 0
			switch {
			case curInside && prevInside:
				out = append(out, cur)
			case curInside && !prevInside:
				out = append(out, lineCrossing(prev, cur, a, b), cur)
			case !curInside && prevInside:
				out = append(out, lineCrossing(prev, cur, a, b))
			}
		}
	}
	return out
}

// lineCrossing returns the point where segment p1-p2 crosses the infinite
// line through a-b. Callers guarantee p1 and p2 straddle the line.
func lineCrossing(p1, p2, a, b orb.Point) orb.Point {
	d1 := cross(a, b, p1)
	d2 := cross(a, b, p2)
	t := d1 / (d1 - d2)
	return orb.Point{p1[0] + t*(p2[0]-p1[0]), p1[1] + t*(p2[1]-p1[1])}
}

// ringIntersectionArea returns the overlap area of two simple rings.
func ringIntersectionArea(a, b orb.Ring) float64 {
	trisA := triangulate(a)
	if len(trisA) == 0 {
		return 0
	}
	trisB := triangulate(b)
	boundB := b.Bound()

	area := 0.0
	for _, ta := range trisA {
		taBound := triangleBound(ta)
		if !taBound.Intersects(boundB) {
			continue
		}
		for _, tb := range trisB {
			if !taBound.Intersects(triangleBound(tb)) {
				continue
			}
			area += chainArea(clipByTriangle(ta[:], tb))
		}
	}
	return area
}

func triangleBound(t [3]orb.Point) orb.Bound {
	b := orb.Bound{Min: t[0], Max: t[0]}
	for _, p := range t[1:] {
		b = b.Extend(p)
	}
	return b
}

// polygonIntersectionArea returns |P ∩ Q| for two valid polygons with holes.
// With Po/Qo the outer rings and Ph/Qh the holes, validity (holes inside
// their outer ring, holes pairwise disjoint) gives exactly:
//
//	|P∩Q| = |Po∩Qo| − Σ|Po∩Qh| − Σ|Ph∩Qo| + ΣΣ|Ph∩Qh|
func polygonIntersectionArea(p, q orb.Polygon) float64 {
	if len(p) == 0 || len(q) == 0 {
		return 0
	}
	if !p.Bound().Intersects(q.Bound()) {
		return 0
	}

	area := ringIntersectionArea(p[0], q[0])
	for _, qh := range q[1:] {
		area -= ringIntersectionArea(p[0], qh)
	}
	for _, ph := range p[1:] {
		area -= ringIntersectionArea(ph, q[0])
		for _, qh := range q[1:] {
			area += ringIntersectionArea(ph, qh)
		}
	}
	return math.Max(area, 0)
}

// intersectionArea returns the overlap area between two areal geometries.
// Multi-polygon parts are disjoint by construction, so pair sums are exact.
func intersectionArea(a, b orb.Geometry) float64 {
	total := 0.0
	for _, pa := range asPolygons(a) {
		for _, pb := range asPolygons(b) {
			total += polygonIntersectionArea(pa, pb)
		}
	}
	return total
}

// asPolygons flattens an areal geometry to its polygon parts.
// Non-areal geometries yield nothing.
func asPolygons(g orb.Geometry) []orb.Polygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{geom}
	case orb.MultiPolygon:
		return geom
	default:
		return nil
	}
}

// boundarySegments returns every ring edge of an areal geometry.
func boundarySegments(g orb.Geometry) [][2]orb.Point {
	var segs [][2]orb.Point
	for _, p := range asPolygons(g) {
		for _, ring := range p {
			for i := 0; i < len(ring)-1; i++ {
				segs = append(segs, [2]orb.Point{ring[i], ring[i+1]})
			}
		}
	}
	return segs
}

// segmentDistance returns the shortest distance between two segments:
// zero when they intersect, otherwise the minimum endpoint-to-segment
// distance.
func segmentDistance(a1, a2, b1, b2 orb.Point) float64 {
	if segmentsIntersect(a1, a2, b1, b2) {
		return 0
	}
	d := planar.DistanceFromSegment(a1, a2, b1)
	d = math.Min(d, planar.DistanceFromSegment(a1, a2, b2))
	d = math.Min(d, planar.DistanceFromSegment(b1, b2, a1))
	return math.Min(d, planar.DistanceFromSegment(b1, b2, a2))
}

// boundaryDistance returns the shortest distance between the boundaries of
// two normalized geometries. Points are treated as their own boundary.
func boundaryDistance(a, b orb.Geometry) float64 {
	pa, aIsPoint := a.(orb.Point)
	pb, bIsPoint := b.(orb.Point)

	switch {
	case aIsPoint && bIsPoint:
		return planar.Distance(pa, pb)
	case aIsPoint:
		return pointToBoundary(pa, b)
	case bIsPoint:
		return pointToBoundary(pb, a)
	}

	min := math.Inf(1)
	segsB := boundarySegments(b)
	for _, sa := range boundarySegments(a) {
		for _, sb := range segsB {
			if d := segmentDistance(sa[0], sa[1], sb[0], sb[1]); d < min {
				min = d
				if min == 0 {
					return 0
				}
			}
		}
	}
	return min
}

func pointToBoundary(p orb.Point, g orb.Geometry) float64 {
	min := math.Inf(1)
	for _, seg := range boundarySegments(g) {
		if d := planar.DistanceFromSegment(seg[0], seg[1], p); d < min {
			min = d
		}
	}
	return min
}

// containsPoint reports whether an areal geometry contains the point.
func containsPoint(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	default:
		return false
	}
}
