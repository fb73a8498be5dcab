// Package loader reads hazard-zone layer files and prepares them for
// indexing. The core does not know where zone data lives; this package owns
// the storage format (GeoJSON files, one FeatureCollection per layer).
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
	"github.com/riskgrid/parcel-risk-service/internal/observability"
)

// Loader reads every *.geojson file in a directory into hazard zones.
type Loader struct {
	dir     string
	crs     string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Loader for the given layer directory. crs declares the CRS
// the layer files are authored in; it must have a registered transform.
func New(dir, crs string, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{dir: dir, crs: crs, logger: logger, metrics: metrics}
}

// Load parses and normalizes all layer files. Individual bad features are
// skipped with a warning — one corrupt polygon must not take down a whole
// layer — but a dataset that yields zero usable zones across all files is an
// error, since serving with an empty index would silently score everything 0.
func (l *Loader) Load(ctx context.Context) ([]domain.HazardZone, error) {
	files, err := filepath.Glob(filepath.Join(l.dir, "*.geojson"))
	if err != nil {
		return nil, fmt.Errorf("list layer files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no layer files in %s", l.dir)
	}

	var zones []domain.HazardZone
	for _, path := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		loaded, err := l.loadFile(path)
		if err != nil {
			return nil, err
		}
		zones = append(zones, loaded...)
	}

	if len(zones) == 0 {
		return nil, fmt.Errorf("no usable hazard zones across %d layer files in %s", len(files), l.dir)
	}
	return zones, nil
}

func (l *Loader) loadFile(path string) ([]domain.HazardZone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layer file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse layer file %s: %w", path, err)
	}

	layerName := strings.TrimSuffix(filepath.Base(path), ".geojson")
	zones := make([]domain.HazardZone, 0, len(fc.Features))
	for i, feature := range fc.Features {
		zone, ok := l.featureToZone(feature, layerName, i)
		if !ok {
			continue
		}
		zones = append(zones, zone)
	}

	l.logger.Info("layer loaded",
		"file", filepath.Base(path),
		"features", len(fc.Features),
		"zones", len(zones),
	)
	return zones, nil
}

// featureToZone converts one layer feature, skipping anything unusable.
func (l *Loader) featureToZone(feature *geojson.Feature, layerName string, i int) (domain.HazardZone, bool) {
	sourceID := feature.Properties.MustString("source_id", fmt.Sprintf("%s-%03d", layerName, i))

	switch feature.Geometry.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		l.warnSkip(sourceID, layerName, "hazard zone is not areal")
		return domain.HazardZone{}, false
	}

	geom, err := domain.Normalize(domain.RawGeometry{CRS: l.crs, Geom: feature.Geometry})
	if err != nil {
		l.warnSkip(sourceID, layerName, err.Error())
		return domain.HazardZone{}, false
	}

	zone := domain.HazardZone{
		SourceID: sourceID,
		Hazard:   domain.HazardType(feature.Properties.MustString("hazard_type", layerName)),
		Severity: domain.ParseSeverity(feature.Properties.MustString("severity", "")),
		Geometry: geom,
	}
	if raw := feature.Properties.MustString("source_updated", ""); raw != "" {
		if ts, err := parseDate(raw); err == nil {
			zone.SourceUpdated = ts
		} else {
			l.logger.Warn("unparseable source_updated, ignoring",
				"zone_id", sourceID, "value", raw)
		}
	}
	return zone, true
}

func (l *Loader) warnSkip(sourceID, layer, reason string) {
	l.logger.Warn("skipping unusable layer feature",
		"zone_id", sourceID,
		"layer", layer,
		"reason", reason,
	)
	l.metrics.ZonesSkipped.Inc()
}

func parseDate(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}
