// Package index holds hazard zones in per-type R-trees for fast
// bounding-box candidate retrieval. The index returns a conservative
// superset; exact geometric tests belong to the overlay engine, which keeps
// this structure simple and the correctness centralized in one place.
package index

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
)

// minExtent pads degenerate bounding boxes; rtreego rejects zero-length
// rectangle sides.
const minExtent = 1e-6

// zoneEntry adapts a HazardZone to rtreego's Spatial interface.
type zoneEntry struct {
	rect rtreego.Rect
	zone domain.HazardZone
}

func (e *zoneEntry) Bounds() rtreego.Rect { return e.rect }

// Index is an immutable snapshot of every loaded hazard layer. Built once,
// queried concurrently without locking; a data refresh builds a new Index
// and swaps it in through a Holder rather than mutating this one.
type Index struct {
	trees  map[domain.HazardType]*rtreego.Rtree
	counts map[domain.HazardType]int
}

// Build partitions zones by hazard type and constructs one R-tree per type.
// Only a dataset that leaves zero usable zones across all types is fatal;
// per-zone quality problems were already filtered by the loader.
func Build(zones []domain.HazardZone) (*Index, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("no usable hazard zones to index")
	}

	ix := &Index{
		trees:  make(map[domain.HazardType]*rtreego.Rtree),
		counts: make(map[domain.HazardType]int),
	}
	for _, zone := range zones {
		rect, err := boundToRect(zone.Geometry.Bound(), 0)
		if err != nil {
			return nil, fmt.Errorf("zone %s: %w", zone.SourceID, err)
		}
		tree, ok := ix.trees[zone.Hazard]
		if !ok {
			tree = rtreego.NewTree(2, 25, 50)
			ix.trees[zone.Hazard] = tree
		}
		tree.Insert(&zoneEntry{rect: rect, zone: zone})
		ix.counts[zone.Hazard]++
	}
	return ix, nil
}

// Query returns every zone of the given hazard type whose bounding box lies
// within radius of the query geometry's bounding box — a superset of the
// zones that can overlap or sit inside the distance-decay reach. Querying a
// type absent at build time returns ErrUnknownHazardType; callers that
// tolerate missing layers treat it as zero matches.
func (ix *Index) Query(g domain.Geometry, hazard domain.HazardType, radius float64) ([]domain.HazardZone, error) {
	tree, ok := ix.trees[hazard]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownHazardType, hazard)
	}

	rect, err := boundToRect(g.Bound(), radius)
	if err != nil {
		return nil, fmt.Errorf("query bounds: %w", err)
	}

	hits := tree.SearchIntersect(rect)
	zones := make([]domain.HazardZone, 0, len(hits))
	for _, hit := range hits {
		zones = append(zones, hit.(*zoneEntry).zone)
	}
	return zones, nil
}

// HazardTypes lists the indexed layers in stable order.
func (ix *Index) HazardTypes() []domain.HazardType {
	types := make([]domain.HazardType, 0, len(ix.trees))
	for ht := range ix.trees {
		types = append(types, ht)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ZoneCounts reports the number of indexed zones per hazard type.
func (ix *Index) ZoneCounts() map[domain.HazardType]int {
	out := make(map[domain.HazardType]int, len(ix.counts))
	for ht, n := range ix.counts {
		out[ht] = n
	}
	return out
}

// Size returns the total number of indexed zones.
func (ix *Index) Size() int {
	total := 0
	for _, n := range ix.counts {
		total += n
	}
	return total
}

func boundToRect(b orb.Bound, pad float64) (rtreego.Rect, error) {
	width := b.Max[0] - b.Min[0] + 2*pad
	height := b.Max[1] - b.Min[1] + 2*pad
	if width < minExtent {
		width = minExtent
	}
	if height < minExtent {
		height = minExtent
	}
	return rtreego.NewRect(
		rtreego.Point{b.Min[0] - pad, b.Min[1] - pad},
		[]float64{width, height},
	)
}

// Holder publishes the current Index snapshot. Evaluations read whatever
// snapshot is current when they start and keep it for their whole lifetime;
// a rebuild swaps the pointer wholesale, so readers never observe a
// half-built index and there is no partial-update API to corrupt.
type Holder struct {
	current atomic.Pointer[Index]
}

// NewHolder returns an empty holder; Loaded reports false until the first Swap.
func NewHolder() *Holder {
	return &Holder{}
}

// Swap atomically replaces the published snapshot.
func (h *Holder) Swap(ix *Index) {
	h.current.Store(ix)
}

// Snapshot returns the current index, or false when none has been loaded.
func (h *Holder) Snapshot() (*Index, bool) {
	ix := h.current.Load()
	return ix, ix != nil
}

// Loaded is the readiness predicate surfaced by the transport layer.
func (h *Holder) Loaded() bool {
	return h.current.Load() != nil
}
