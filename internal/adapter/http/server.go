package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
	"github.com/riskgrid/parcel-risk-service/internal/observability"
	"github.com/riskgrid/parcel-risk-service/internal/report"
	"github.com/riskgrid/parcel-risk-service/internal/risk"
)

// defaultRequestCRS is assumed when a request omits the crs field; GeoJSON
// is WGS-84 by convention. Anything else must be declared explicitly.
const defaultRequestCRS = "EPSG:4326"

// maxRequestBytes bounds report request bodies.
const maxRequestBytes = 1 << 20

// ParcelEvaluator runs one parcel evaluation against the current index.
type ParcelEvaluator interface {
	EvaluateParcel(ctx context.Context, raw domain.RawGeometry, hazards []domain.HazardType) (risk.Result, error)
	CheckReadiness(ctx context.Context) error
	ZoneCounts() map[domain.HazardType]int
}

// ReportAssembler packages an evaluation result into the response payload.
type ReportAssembler interface {
	Assemble(result risk.Result, projectName string) report.Report
}

// Server exposes the report endpoint plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	evaluator  ParcelEvaluator
	assembler  ReportAssembler
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/reports, /healthz, /readyz, and
// /metrics routes. A non-empty artifactDir additionally serves rendered KML
// overlays under /artifacts/.
func NewServer(addr string, evaluator ParcelEvaluator, assembler ReportAssembler, artifactDir string, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		evaluator: evaluator,
		assembler: assembler,
		metrics:   metrics,
		logger:    logger,
	}

	mux.HandleFunc("POST /v1/reports", s.handleGenerateReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	if artifactDir != "" {
		mux.Handle("GET /artifacts/", http.StripPrefix("/artifacts/", http.FileServer(http.Dir(artifactDir))))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// generateReportRequest is the transport-level report request: a GeoJSON
// geometry with an optional CRS declaration and hazard type filter.
type generateReportRequest struct {
	Geometry    json.RawMessage `json:"geometry"`
	CRS         string          `json:"crs,omitempty"`
	ProjectName string          `json:"project_name,omitempty"`
	HazardTypes []string        `json:"hazard_types,omitempty"`
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Geometry) == 0 {
		writeError(w, http.StatusBadRequest, "geometry is required")
		return
	}

	geom, err := geojson.UnmarshalGeometry(req.Geometry)
	if err != nil {
		writeError(w, http.StatusBadRequest, "geometry is not valid GeoJSON")
		return
	}

	crs := req.CRS
	if crs == "" {
		crs = defaultRequestCRS
	}

	hazards := make([]domain.HazardType, 0, len(req.HazardTypes))
	for _, ht := range req.HazardTypes {
		hazards = append(hazards, domain.HazardType(ht))
	}

	raw := domain.RawGeometry{CRS: crs, Geom: geom.Geometry()}
	result, err := s.evaluator.EvaluateParcel(r.Context(), raw, hazards)
	if err != nil {
		s.writeEvaluationError(w, r, err)
		return
	}

	rep := s.assembler.Assemble(result, req.ProjectName)
	s.metrics.ReportsGenerated.Inc()
	writeJSON(w, http.StatusOK, rep)
}

// writeEvaluationError maps core error kinds onto response statuses:
// geometry problems are the caller's fault, a missing index means the
// service is not ready, anything else is internal.
func (s *Server) writeEvaluationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidGeometry), errors.Is(err, domain.ErrUnsupportedCRS):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, risk.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.logger.Error("evaluation failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	layers := make(map[string]int)
	for ht, n := range s.evaluator.ZoneCounts() {
		layers[string(ht)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"layers": layers,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.evaluator.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
