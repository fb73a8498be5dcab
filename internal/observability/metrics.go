package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// risk-evaluation service.
type Metrics struct {
	ReportsGenerated   prometheus.Counter
	EvaluationDuration prometheus.Histogram
	Evaluations        *prometheus.CounterVec // labels: hazard_type, outcome={scored,unscored}
	GeometryRejected   *prometheus.CounterVec // labels: reason={invalid,unsupported_crs}

	// Index lifecycle metrics.
	ZonesIndexed  *prometheus.GaugeVec // labels: hazard_type
	ZonesSkipped  prometheus.Counter
	IndexRebuilds prometheus.Counter
	IndexLoaded   prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parcel_risk",
			Name:      "reports_generated_total",
			Help:      "Total risk reports assembled.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parcel_risk",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a complete parcel evaluation across all requested hazard types.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parcel_risk",
			Name:      "evaluations_total",
			Help:      "Per-hazard-type evaluations by outcome.",
		}, []string{"hazard_type", "outcome"}),
		GeometryRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parcel_risk",
			Name:      "geometry_rejected_total",
			Help:      "Query geometries rejected during normalization, by reason.",
		}, []string{"reason"}),
		ZonesIndexed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "parcel_risk",
			Name:      "zones_indexed",
			Help:      "Hazard zones in the current index snapshot.",
		}, []string{"hazard_type"}),
		ZonesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parcel_risk",
			Name:      "zones_skipped_total",
			Help:      "Layer features dropped for data-quality problems during loading.",
		}),
		IndexRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parcel_risk",
			Name:      "index_rebuilds_total",
			Help:      "Completed index rebuilds, including the initial load.",
		}),
		IndexLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parcel_risk",
			Name:      "index_loaded",
			Help:      "1 when an index snapshot is loaded and serving, 0 before the first load.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsGenerated,
		m.EvaluationDuration,
		m.Evaluations,
		m.GeometryRejected,
		m.ZonesIndexed,
		m.ZonesSkipped,
		m.IndexRebuilds,
		m.IndexLoaded,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsGenerated:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "parcel_risk", Name: "reports_generated_total"}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "parcel_risk", Name: "evaluation_duration_seconds"}),
		Evaluations:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "parcel_risk", Name: "evaluations_total"}, []string{"hazard_type", "outcome"}),
		GeometryRejected:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "parcel_risk", Name: "geometry_rejected_total"}, []string{"reason"}),
		ZonesIndexed:       prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "parcel_risk", Name: "zones_indexed"}, []string{"hazard_type"}),
		ZonesSkipped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "parcel_risk", Name: "zones_skipped_total"}),
		IndexRebuilds:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "parcel_risk", Name: "index_rebuilds_total"}),
		IndexLoaded:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "parcel_risk", Name: "index_loaded"}),
	}
}
