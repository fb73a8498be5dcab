// Command genzones writes the mock New Mexico hazard layer fixtures used by
// the test suites and local development. Zones are plain GeoJSON
// FeatureCollections in WGS-84, one file per hazard layer, with the
// properties the loader expects.
//
// Usage:
//
//	go run ./cmd/genzones -out data/zones
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/zones", "output directory for layer files")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	layers := map[string]*geojson.FeatureCollection{
		"flood.geojson":    floodLayer(),
		"wildfire.geojson": wildfireLayer(),
	}
	for name, fc := range layers {
		path := filepath.Join(*out, name)
		data, err := json.MarshalIndent(fc, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		fmt.Printf("wrote %s (%d zones)\n", path, len(fc.Features))
	}
	return nil
}

// box returns a closed rectangular ring from the southwest and northeast
// corners, in lon/lat order.
func box(west, south, east, north float64) orb.Polygon {
	return orb.Polygon{{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	}}
}

func zone(g orb.Geometry, hazard, severity, sourceID, updated string) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties = geojson.Properties{
		"hazard_type": hazard,
		"severity":    severity,
		"source_id":   sourceID,
	}
	if updated != "" {
		f.Properties["source_updated"] = updated
	}
	return f
}

// floodLayer mirrors the central New Mexico flood-plain demo data: a high
// severity corridor along the Rio Grande inside a broader moderate zone,
// plus a detached low severity basin.
func floodLayer() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(zone(box(-106.8, 34.8, -106.2, 35.4), "flood", "high", "fema-nm-0181", "2024-11-01"))
	fc.Append(zone(box(-106.5, 34.5, -104.5, 36.5), "flood", "medium", "fema-nm-0074", "2024-11-01"))
	fc.Append(zone(box(-104.2, 33.8, -103.6, 34.3), "flood", "low", "fema-nm-0327", "2023-05-15"))
	return fc
}

// wildfireLayer covers the forested high country west and north of the
// flood corridor.
func wildfireLayer() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(zone(box(-107.0, 35.0, -105.0, 37.0), "wildfire", "high", "usfs-nm-112", "2025-03-20"))
	fc.Append(zone(box(-108.2, 33.0, -107.4, 34.1), "wildfire", "medium", "usfs-nm-087", "2025-03-20"))
	return fc
}
