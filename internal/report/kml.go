package report

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	kml "github.com/twpayne/go-kml/v2"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
	"github.com/riskgrid/parcel-risk-service/internal/risk"
)

// buildOverlay renders every contributing zone as a KML placemark so a
// report reader can inspect the evidence in any map viewer. Zone geometry is
// stored in Web Mercator; KML requires WGS-84, so coordinates are
// unprojected on the way out. Returns nil when no zone contributed.
func buildOverlay(result risk.Result) *kml.CompoundElement {
	var placemarks []kml.Element
	seen := make(map[string]bool)

	for _, pillar := range result.Pillars {
		for _, zone := range pillar.Zones {
			if seen[zone.SourceID] {
				continue
			}
			seen[zone.SourceID] = true
			placemarks = append(placemarks, zonePlacemark(zone))
		}
	}

	if len(placemarks) == 0 {
		return nil
	}
	children := append([]kml.Element{kml.Name("Contributing hazard zones")}, placemarks...)
	return kml.KML(kml.Document(children...))
}

func zonePlacemark(zone domain.HazardZone) kml.Element {
	var geometry kml.Element
	switch geom := zone.Geometry.Geom.(type) {
	case orb.Polygon:
		geometry = polygonElement(geom)
	case orb.MultiPolygon:
		polys := make([]kml.Element, 0, len(geom))
		for _, p := range geom {
			polys = append(polys, polygonElement(p))
		}
		geometry = kml.MultiGeometry(polys...)
	default:
		// Zones are areal by construction; nothing sensible to render.
		geometry = kml.MultiGeometry()
	}

	return kml.Placemark(
		kml.Name(zone.SourceID),
		kml.Description(fmt.Sprintf("%s hazard, severity %s", zone.Hazard, zone.Severity)),
		geometry,
	)
}

func polygonElement(p orb.Polygon) kml.Element {
	boundaries := make([]kml.Element, 0, len(p))
	for i, ring := range p {
		lr := kml.LinearRing(kml.Coordinates(ringCoordinates(ring)...))
		if i == 0 {
			boundaries = append(boundaries, kml.OuterBoundaryIs(lr))
		} else {
			boundaries = append(boundaries, kml.InnerBoundaryIs(lr))
		}
	}
	return kml.Polygon(boundaries...)
}

func ringCoordinates(ring orb.Ring) []kml.Coordinate {
	coords := make([]kml.Coordinate, 0, len(ring))
	for _, pt := range ring {
		ll := project.Mercator.ToWGS84(pt)
		coords = append(coords, kml.Coordinate{Lon: ll[0], Lat: ll[1]})
	}
	return coords
}
