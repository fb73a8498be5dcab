package index

import (
	"sync"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
)

func boxZone(id string, hazard domain.HazardType, x, y, side float64) domain.HazardZone {
	ring := orb.Ring{{x, y}, {x + side, y}, {x + side, y + side}, {x, y + side}, {x, y}}
	g, err := domain.Normalize(domain.RawGeometry{
		CRS:  domain.CanonicalCRS,
		Geom: orb.Polygon{ring},
	})
	if err != nil {
		panic(err)
	}
	return domain.HazardZone{
		SourceID: id,
		Hazard:   hazard,
		Severity: domain.SeverityMedium,
		Geometry: g,
	}
}

func pointQuery(x, y float64) domain.Geometry {
	g, err := domain.Normalize(domain.RawGeometry{CRS: domain.CanonicalCRS, Geom: orb.Point{x, y}})
	if err != nil {
		panic(err)
	}
	return g
}

func TestBuild(t *testing.T) {
	t.Run("empty dataset is fatal", func(t *testing.T) {
		_, err := Build(nil)
		assert.Error(t, err)
	})

	t.Run("partitions by hazard type", func(t *testing.T) {
		ix, err := Build([]domain.HazardZone{
			boxZone("f-1", domain.HazardFlood, 0, 0, 100),
			boxZone("f-2", domain.HazardFlood, 500, 0, 100),
			boxZone("w-1", domain.HazardWildfire, 0, 0, 100),
		})
		require.NoError(t, err)

		assert.Equal(t, []domain.HazardType{domain.HazardFlood, domain.HazardWildfire}, ix.HazardTypes())
		assert.Equal(t, map[domain.HazardType]int{
			domain.HazardFlood:    2,
			domain.HazardWildfire: 1,
		}, ix.ZoneCounts())
		assert.Equal(t, 3, ix.Size())
	})
}

func TestQuery(t *testing.T) {
	ix, err := Build([]domain.HazardZone{
		boxZone("near", domain.HazardFlood, 0, 0, 100),
		boxZone("far", domain.HazardFlood, 10000, 10000, 100),
		boxZone("w-1", domain.HazardWildfire, 0, 0, 100),
	})
	require.NoError(t, err)

	t.Run("returns only bbox candidates of the requested type", func(t *testing.T) {
		zones, err := ix.Query(pointQuery(50, 50), domain.HazardFlood, 0)
		require.NoError(t, err)
		require.Len(t, zones, 1)
		assert.Equal(t, "near", zones[0].SourceID)
	})

	t.Run("radius pad widens the candidate set", func(t *testing.T) {
		// 500m from the near box; without a pad the point box misses it.
		zones, err := ix.Query(pointQuery(600, 50), domain.HazardFlood, 0)
		require.NoError(t, err)
		assert.Empty(t, zones)

		zones, err = ix.Query(pointQuery(600, 50), domain.HazardFlood, 2000)
		require.NoError(t, err)
		require.Len(t, zones, 1)
		assert.Equal(t, "near", zones[0].SourceID)
	})

	t.Run("unknown hazard type", func(t *testing.T) {
		_, err := ix.Query(pointQuery(50, 50), domain.HazardType("earthquake"), 0)
		assert.ErrorIs(t, err, domain.ErrUnknownHazardType)
	})

	t.Run("point zones are queryable despite degenerate bounds", func(t *testing.T) {
		pt, err := domain.Normalize(domain.RawGeometry{CRS: domain.CanonicalCRS, Geom: orb.Point{42, 42}})
		require.NoError(t, err)
		small, err := Build([]domain.HazardZone{{
			SourceID: "pt-1",
			Hazard:   domain.HazardFlood,
			Geometry: pt,
		}})
		require.NoError(t, err)

		zones, err := small.Query(pointQuery(42, 42), domain.HazardFlood, 1)
		require.NoError(t, err)
		assert.Len(t, zones, 1)
	})
}

func TestHolder(t *testing.T) {
	t.Run("empty until first swap", func(t *testing.T) {
		h := NewHolder()
		assert.False(t, h.Loaded())
		_, ok := h.Snapshot()
		assert.False(t, ok)
	})

	t.Run("swap publishes the new snapshot", func(t *testing.T) {
		h := NewHolder()
		ix, err := Build([]domain.HazardZone{boxZone("f-1", domain.HazardFlood, 0, 0, 100)})
		require.NoError(t, err)

		h.Swap(ix)
		assert.True(t, h.Loaded())
		got, ok := h.Snapshot()
		require.True(t, ok)
		assert.Same(t, ix, got)
	})

	t.Run("concurrent swaps and snapshots race cleanly", func(t *testing.T) {
		h := NewHolder()
		first, err := Build([]domain.HazardZone{boxZone("f-1", domain.HazardFlood, 0, 0, 100)})
		require.NoError(t, err)
		second, err := Build([]domain.HazardZone{
			boxZone("f-1", domain.HazardFlood, 0, 0, 100),
			boxZone("f-2", domain.HazardFlood, 500, 0, 100),
		})
		require.NoError(t, err)
		h.Swap(first)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					ix, ok := h.Snapshot()
					if assert.True(t, ok) {
						assert.NotZero(t, ix.Size())
					}
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if j%2 == 0 {
					h.Swap(second)
				} else {
					h.Swap(first)
				}
			}
		}()
		wg.Wait()
	})
}
