// Package risk orchestrates one parcel evaluation: normalize the query
// geometry, collect candidates from the current index snapshot, run the
// overlay engine, and reduce matches to a score per requested hazard type.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
	"github.com/riskgrid/parcel-risk-service/internal/index"
	"github.com/riskgrid/parcel-risk-service/internal/observability"
)

// ErrNotReady is returned while no index snapshot has been loaded yet.
var ErrNotReady = errors.New("no hazard index loaded")

// Evaluator runs stateless parcel evaluations against index snapshots.
// Every evaluation acquires one snapshot up front and uses it throughout,
// so a concurrent index swap never affects an in-flight request.
type Evaluator struct {
	holder  *index.Holder
	scoring domain.ScoringConfig
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEvaluator wires an evaluator to the shared index holder.
func NewEvaluator(holder *index.Holder, scoring domain.ScoringConfig, logger *slog.Logger, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{
		holder:  holder,
		scoring: scoring,
		logger:  logger,
		metrics: metrics,
	}
}

// Pillar is the scored outcome for one hazard type, with the overlay detail
// the report assembler surfaces for explainability.
type Pillar struct {
	Score domain.RiskScore

	// Zones are the hazard zones behind Score.ContributingZoneIDs, kept so
	// the assembler can render their outlines.
	Zones []domain.HazardZone

	ParcelArea      float64
	OverlapArea     float64
	OverlapFraction float64

	// NearestDistance is the distance to the closest zone when nothing
	// overlaps; 0 whenever there is direct overlap.
	NearestDistance float64
}

// Unscored names a requested hazard type that could not be scored and why.
// Per-type failures are partial results, never request failures.
type Unscored struct {
	Hazard domain.HazardType
	Reason string
}

// Result is a complete parcel evaluation across all requested hazard types.
type Result struct {
	Pillars  []Pillar
	Unscored []Unscored
}

// EvaluateParcel scores one parcel. An empty hazards slice means "every
// loaded layer". Geometry problems reject the whole request; a hazard type
// with no data lands in Result.Unscored while the remaining types still
// score.
func (e *Evaluator) EvaluateParcel(ctx context.Context, raw domain.RawGeometry, hazards []domain.HazardType) (Result, error) {
	snapshot, ok := e.holder.Snapshot()
	if !ok {
		return Result{}, ErrNotReady
	}

	geom, err := domain.Normalize(raw)
	if err != nil {
		e.metrics.GeometryRejected.WithLabelValues(rejectionReason(err)).Inc()
		return Result{}, err
	}

	if len(hazards) == 0 {
		hazards = snapshot.HazardTypes()
	}

	start := time.Now()
	defer func() {
		e.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	var result Result
	for _, hazard := range hazards {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		candidates, err := snapshot.Query(geom, hazard, e.scoring.DecayCutoff)
		if err != nil {
			if !errors.Is(err, domain.ErrUnknownHazardType) {
				return Result{}, fmt.Errorf("query %s candidates: %w", hazard, err)
			}
			e.logger.Info("hazard type not indexed, reporting unscored", "hazard_type", hazard)
			e.metrics.Evaluations.WithLabelValues(string(hazard), "unscored").Inc()
			result.Unscored = append(result.Unscored, Unscored{
				Hazard: hazard,
				Reason: fmt.Errorf("%w: %s", domain.ErrNoData, hazard).Error(),
			})
			continue
		}

		matches := domain.Evaluate(geom, candidates, e.logger)
		score := domain.Reduce(matches, hazard, e.scoring)
		result.Pillars = append(result.Pillars, buildPillar(geom, matches, score))
		e.metrics.Evaluations.WithLabelValues(string(hazard), "scored").Inc()
	}

	return result, nil
}

// CheckReadiness reports whether an index snapshot is loaded — the only
// health signal the core exposes to the transport layer.
func (e *Evaluator) CheckReadiness(_ context.Context) error {
	if !e.holder.Loaded() {
		return ErrNotReady
	}
	return nil
}

// ZoneCounts exposes the current snapshot's per-layer zone counts for the
// health endpoint. Nil while no snapshot is loaded.
func (e *Evaluator) ZoneCounts() map[domain.HazardType]int {
	snapshot, ok := e.holder.Snapshot()
	if !ok {
		return nil
	}
	return snapshot.ZoneCounts()
}

// buildPillar derives the explainability detail from the raw match set.
func buildPillar(geom domain.Geometry, matches []domain.Match, score domain.RiskScore) Pillar {
	contributing := make(map[string]bool, len(score.ContributingZoneIDs))
	for _, id := range score.ContributingZoneIDs {
		contributing[id] = true
	}

	pillar := Pillar{
		Score:      score,
		ParcelArea: geom.Area(),
	}

	totalFraction := 0.0
	nearest := math.Inf(1)
	for _, m := range matches {
		if contributing[m.Zone.SourceID] {
			pillar.Zones = append(pillar.Zones, m.Zone)
		}
		if m.OverlapFraction > 0 {
			totalFraction += m.OverlapFraction
		} else if m.Distance < nearest {
			nearest = m.Distance
		}
	}

	pillar.OverlapFraction = math.Min(totalFraction, 1)
	pillar.OverlapArea = pillar.OverlapFraction * pillar.ParcelArea
	if pillar.OverlapFraction == 0 && !math.IsInf(nearest, 1) {
		pillar.NearestDistance = nearest
	}
	return pillar
}

func rejectionReason(err error) string {
	if errors.Is(err, domain.ErrUnsupportedCRS) {
		return "unsupported_crs"
	}
	return "invalid"
}
