// Command validate performs offline integrity checks on a hazard layer
// directory before it is shipped to the service: file parseability, feature
// normalization, and per-layer coverage. It runs the same normalization the
// service applies at load time, so anything it passes will index cleanly.
//
// Usage:
//
//	go run ./cmd/validate -zones-dir data/zones
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	zonesDir := flag.String("zones-dir", "", "directory containing hazard layer GeoJSON files")
	layerCRS := flag.String("crs", "EPSG:4326", "CRS the layer files are authored in")
	flag.Parse()

	if *zonesDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*zonesDir, *layerCRS))
}

func run(zonesDir, layerCRS string) int {
	phases := []*phase{
		checkFiles(zonesDir),
		checkFeatures(zonesDir, layerCRS),
		checkCoverage(zonesDir, layerCRS),
	}

	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed = true
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      %s\n", e)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func layerFiles(zonesDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(zonesDir, "*.geojson"))
	if err != nil {
		return nil, fmt.Errorf("list layer files: %w", err)
	}
	return files, nil
}

// checkFiles verifies every layer file parses as a FeatureCollection.
func checkFiles(zonesDir string) *phase {
	p := &phase{name: "layer files"}

	files, err := layerFiles(zonesDir)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if len(files) == 0 {
		p.errorf("no *.geojson files in %s", zonesDir)
		return p
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", filepath.Base(path), err)
			continue
		}
		if _, err := geojson.UnmarshalFeatureCollection(data); err != nil {
			p.errorf("%s: not a FeatureCollection: %v", filepath.Base(path), err)
		}
	}
	return p
}

// checkFeatures runs service-grade normalization over every feature.
func checkFeatures(zonesDir, layerCRS string) *phase {
	p := &phase{name: "feature normalization"}

	forEachFeature(zonesDir, p, func(file string, i int, f *geojson.Feature) {
		id := f.Properties.MustString("source_id", fmt.Sprintf("feature %d", i))
		switch f.Geometry.(type) {
		case orb.Polygon, orb.MultiPolygon:
		default:
			p.errorf("%s: %s: not an areal geometry", file, id)
			return
		}
		if _, err := domain.Normalize(domain.RawGeometry{CRS: layerCRS, Geom: f.Geometry}); err != nil {
			p.errorf("%s: %s: %v", file, id, err)
		}
	})
	return p
}

// checkCoverage verifies each layer contributes at least one usable zone.
func checkCoverage(zonesDir, layerCRS string) *phase {
	p := &phase{name: "layer coverage"}

	counts := make(map[string]int)
	forEachFeature(zonesDir, p, func(file string, _ int, f *geojson.Feature) {
		if _, err := domain.Normalize(domain.RawGeometry{CRS: layerCRS, Geom: f.Geometry}); err != nil {
			return
		}
		layer := strings.TrimSuffix(file, ".geojson")
		counts[f.Properties.MustString("hazard_type", layer)]++
	})

	if len(counts) == 0 {
		p.errorf("no usable zones in any layer")
		return p
	}
	for hazard, n := range counts {
		fmt.Printf("      %s: %d zones\n", hazard, n)
	}
	return p
}

func forEachFeature(zonesDir string, p *phase, fn func(file string, i int, f *geojson.Feature)) {
	files, err := layerFiles(zonesDir)
	if err != nil {
		p.errorf("%v", err)
		return
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			continue
		}
		for i, f := range fc.Features {
			fn(filepath.Base(path), i, f)
		}
	}
}
