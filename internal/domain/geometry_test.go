package domain

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// square returns a closed CCW ring for an axis-aligned square with the given
// lower-left corner and side length.
func square(x, y, side float64) orb.Ring {
	return orb.Ring{
		{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}, {x, y},
	}
}

// canonical wraps a polygon as an already-normalized canonical geometry,
// bypassing projection so tests can reason in plain planar units.
func canonical(g orb.Geometry) Geometry {
	norm, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: g})
	if err != nil {
		panic(err)
	}
	return norm
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSupportedCRS(t *testing.T) {
	assert.True(t, SupportedCRS("EPSG:4326"))
	assert.True(t, SupportedCRS("EPSG:3857"))
	assert.False(t, SupportedCRS("EPSG:2193"))
	assert.False(t, SupportedCRS(""))
}

func TestNormalize(t *testing.T) {
	t.Run("nil geometry", func(t *testing.T) {
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("unknown CRS is rejected, not guessed", func(t *testing.T) {
		_, err := Normalize(RawGeometry{CRS: "EPSG:27700", Geom: orb.Polygon{square(0, 0, 1)}})
		assert.ErrorIs(t, err, ErrUnsupportedCRS)
	})

	t.Run("canonical point passes through", func(t *testing.T) {
		g, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Point{100, 200}})
		require.NoError(t, err)
		assert.Equal(t, CanonicalCRS, g.CRS)
		assert.Equal(t, orb.Point{100, 200}, g.Geom)
	})

	t.Run("WGS84 point is projected to meters", func(t *testing.T) {
		g, err := Normalize(RawGeometry{CRS: "EPSG:4326", Geom: orb.Point{-106.65, 35.08}})
		require.NoError(t, err)
		pt, ok := g.Geom.(orb.Point)
		require.True(t, ok)
		// Albuquerque in Web Mercator: roughly -11.87M, 4.17M meters.
		assert.InDelta(t, -11872224, pt[0], 100)
		assert.InDelta(t, 4174758, pt[1], 100)
	})

	t.Run("open ring is closed", func(t *testing.T) {
		open := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
		g, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Polygon{open}})
		require.NoError(t, err)
		poly := g.Geom.(orb.Polygon)
		require.Len(t, poly[0], 5)
		assert.Equal(t, poly[0][0], poly[0][len(poly[0])-1])
	})

	t.Run("clockwise outer ring is reversed to CCW", func(t *testing.T) {
		cw := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
		g, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Polygon{cw}})
		require.NoError(t, err)
		poly := g.Geom.(orb.Polygon)
		assert.Equal(t, orb.CCW, poly[0].Orientation())
	})

	t.Run("hole ring is oriented clockwise", func(t *testing.T) {
		outer := square(0, 0, 10)
		hole := square(2, 2, 2) // CCW on input
		g, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Polygon{outer, hole}})
		require.NoError(t, err)
		poly := g.Geom.(orb.Polygon)
		assert.Equal(t, orb.CCW, poly[0].Orientation())
		assert.Equal(t, orb.CW, poly[1].Orientation())
	})

	t.Run("ring with fewer than 3 distinct points", func(t *testing.T) {
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("zero-area ring", func(t *testing.T) {
		collinear := orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Polygon{collinear}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("self-intersecting bowtie", func(t *testing.T) {
		bowtie := orb.Ring{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Polygon{bowtie}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("line strings are rejected", func(t *testing.T) {
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.LineString{{0, 0}, {1, 1}}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("non-finite coordinates", func(t *testing.T) {
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.Point{math.NaN(), 0}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("empty multi-polygon", func(t *testing.T) {
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: orb.MultiPolygon{}})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("multi-polygon with one bad member", func(t *testing.T) {
		mp := orb.MultiPolygon{
			{square(0, 0, 10)},
			{orb.Ring{{0, 0}, {1, 0}, {2, 0}, {0, 0}}},
		}
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: mp})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		cw := orb.Ring{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
		input := orb.Polygon{cw.Clone()}
		_, err := Normalize(RawGeometry{CRS: CanonicalCRS, Geom: input})
		require.NoError(t, err)
		assert.Equal(t, orb.Polygon{cw}, input)
	})
}

func TestGeometryArea(t *testing.T) {
	t.Run("square", func(t *testing.T) {
		g := canonical(orb.Polygon{square(0, 0, 100)})
		assert.InDelta(t, 10000, g.Area(), 1e-6)
	})

	t.Run("polygon with hole subtracts the hole", func(t *testing.T) {
		g := canonical(orb.Polygon{square(0, 0, 10), square(2, 2, 4)})
		assert.InDelta(t, 100-16, g.Area(), 1e-6)
	})

	t.Run("multi-polygon sums members", func(t *testing.T) {
		g := canonical(orb.MultiPolygon{
			{square(0, 0, 10)},
			{square(100, 100, 5)},
		})
		assert.InDelta(t, 125, g.Area(), 1e-6)
	})

	t.Run("point has zero area", func(t *testing.T) {
		g := canonical(orb.Point{5, 5})
		assert.Zero(t, g.Area())
	})
}
