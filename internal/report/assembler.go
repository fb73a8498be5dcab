// Package report packages evaluation results into the response payload.
// The assembler formats and annotates; it never alters scores.
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
	"github.com/riskgrid/parcel-risk-service/internal/risk"
)

// Report is the response payload for one parcel evaluation.
type Report struct {
	ReportID         string           `json:"report_id"`
	ProjectName      string           `json:"project_name,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	OverallRiskScore float64          `json:"overall_risk_score"`
	Pillars          []Pillar         `json:"pillars"`
	Unscored         []UnscoredPillar `json:"unscored,omitempty"`

	// KMLURL points at a rendered overlay of the contributing zones when
	// artifact output is configured.
	KMLURL string `json:"kml_url,omitempty"`
}

// Pillar is one hazard type's score with its supporting detail.
type Pillar struct {
	Name                string        `json:"name"`
	HazardType          string        `json:"hazard_type"`
	Score               float64       `json:"score"`
	SeverityClass       string        `json:"severity_class"`
	Confidence          float64       `json:"confidence"`
	ContributingZoneIDs []string      `json:"contributing_zone_ids"`
	Details             PillarDetails `json:"details"`
}

// PillarDetails carries the overlay evidence behind the score.
type PillarDetails struct {
	ParcelAreaM2     float64 `json:"parcel_area_m2"`
	OverlapAreaM2    float64 `json:"overlap_area_m2"`
	OverlapFraction  float64 `json:"overlap_fraction"`
	NearestDistanceM float64 `json:"nearest_distance_m"`
}

// UnscoredPillar names a hazard type that produced no score.
type UnscoredPillar struct {
	HazardType string `json:"hazard_type"`
	Reason     string `json:"reason"`
}

// Assembler turns evaluation results into reports and optional KML
// artifacts.
type Assembler struct {
	baseURL     string
	artifactDir string
	logger      *slog.Logger
}

// NewAssembler creates an Assembler. An empty artifactDir disables KML
// output.
func NewAssembler(baseURL, artifactDir string, logger *slog.Logger) *Assembler {
	return &Assembler{
		baseURL:     strings.TrimRight(baseURL, "/"),
		artifactDir: artifactDir,
		logger:      logger,
	}
}

// Assemble builds the response for one evaluation. The overall score is the
// mean of the scored pillars; unscored hazard types are listed but excluded
// from the mean. Artifact failures degrade to a report without a KML link —
// formatting problems never invalidate scores.
func (a *Assembler) Assemble(result risk.Result, projectName string) Report {
	rep := Report{
		ReportID:    uuid.NewString(),
		ProjectName: projectName,
		CreatedAt:   clock.Now().UTC(),
		Pillars:     make([]Pillar, 0, len(result.Pillars)),
	}

	total := 0.0
	for _, p := range result.Pillars {
		rep.Pillars = append(rep.Pillars, toPillar(p))
		total += p.Score.Score
	}
	if len(result.Pillars) > 0 {
		rep.OverallRiskScore = total / float64(len(result.Pillars))
	}

	for _, u := range result.Unscored {
		rep.Unscored = append(rep.Unscored, UnscoredPillar{
			HazardType: string(u.Hazard),
			Reason:     u.Reason,
		})
	}

	if a.artifactDir != "" {
		if url, err := a.writeOverlay(rep.ReportID, result); err != nil {
			a.logger.Warn("kml artifact write failed", "report_id", rep.ReportID, "error", err)
		} else if url != "" {
			rep.KMLURL = url
		}
	}

	return rep
}

func toPillar(p risk.Pillar) Pillar {
	ids := p.Score.ContributingZoneIDs
	if ids == nil {
		ids = []string{}
	}
	return Pillar{
		Name:                pillarName(p.Score.Hazard),
		HazardType:          string(p.Score.Hazard),
		Score:               p.Score.Score,
		SeverityClass:       p.Score.SeverityUsed.String(),
		Confidence:          p.Score.Confidence,
		ContributingZoneIDs: ids,
		Details: PillarDetails{
			ParcelAreaM2:     p.ParcelArea,
			OverlapAreaM2:    p.OverlapArea,
			OverlapFraction:  p.OverlapFraction,
			NearestDistanceM: p.NearestDistance,
		},
	}
}

// pillarName renders "flood" as "Flood Risk".
func pillarName(hazard domain.HazardType) string {
	name := string(hazard)
	if name == "" {
		return "Risk"
	}
	return strings.ToUpper(name[:1]) + name[1:] + " Risk"
}

// writeOverlay renders the contributing zones to a KML file and returns its
// public URL. Returns an empty URL when no zones contributed.
func (a *Assembler) writeOverlay(reportID string, result risk.Result) (string, error) {
	doc := buildOverlay(result)
	if doc == nil {
		return "", nil
	}

	filename := reportID + ".kml"
	path := filepath.Join(a.artifactDir, filename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	if err := doc.WriteIndent(f, "", "  "); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return a.baseURL + "/artifacts/" + filename, nil
}
