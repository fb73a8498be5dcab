package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/riskgrid/parcel-risk-service/internal/adapter/http"
	kafkaadapter "github.com/riskgrid/parcel-risk-service/internal/adapter/kafka"
	"github.com/riskgrid/parcel-risk-service/internal/config"
	"github.com/riskgrid/parcel-risk-service/internal/index"
	"github.com/riskgrid/parcel-risk-service/internal/loader"
	"github.com/riskgrid/parcel-risk-service/internal/observability"
	"github.com/riskgrid/parcel-risk-service/internal/report"
	"github.com/riskgrid/parcel-risk-service/internal/risk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if cfg.ArtifactsDir != "" {
		if err := os.MkdirAll(cfg.ArtifactsDir, 0o755); err != nil {
			logger.Error("failed to create artifacts dir", "dir", cfg.ArtifactsDir, "error", err)
			os.Exit(1)
		}
	}

	layerLoader := loader.New(cfg.ZonesDir, cfg.LayerCRS, logger, metrics)
	holder := index.NewHolder()

	reload := func(ctx context.Context) error {
		zones, err := layerLoader.Load(ctx)
		if err != nil {
			return err
		}
		ix, err := index.Build(zones)
		if err != nil {
			return err
		}
		holder.Swap(ix)
		metrics.IndexRebuilds.Inc()
		metrics.IndexLoaded.Set(1)
		for ht, n := range ix.ZoneCounts() {
			metrics.ZonesIndexed.WithLabelValues(string(ht)).Set(float64(n))
		}
		logger.Info("hazard index loaded", "zones", ix.Size(), "layers", len(ix.HazardTypes()))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := reload(ctx); err != nil {
		logger.Error("initial hazard layer load failed", "error", err)
		os.Exit(1)
	}

	evaluator := risk.NewEvaluator(holder, cfg.ScoringConfig(), logger, metrics)
	assembler := report.NewAssembler(cfg.BaseURL, cfg.ArtifactsDir, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, evaluator, assembler, cfg.ArtifactsDir, metrics, logger)

	// Layer refresh consumer (feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED).
	var refresher *kafkaadapter.Refresher
	if cfg.KafkaEnabled {
		refresher = kafkaadapter.NewRefresher(cfg, reload, logger)
		logger.Info("kafka layer refresh enabled",
			"topic", cfg.KafkaRefreshTopic, "group", cfg.KafkaGroupID)
		go func() {
			if err := refresher.Run(ctx); err != nil {
				logger.Error("refresh consumer error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka layer refresh disabled")
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if refresher != nil {
		if err := refresher.Close(); err != nil {
			logger.Error("refresh consumer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
