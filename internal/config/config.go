package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riskgrid/parcel-risk-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Hazard layer loading.
	ZonesDir string
	LayerCRS string

	// Report artifacts (KML overlays). Empty ArtifactsDir disables them.
	ArtifactsDir string
	BaseURL      string

	// Scoring calibration overrides.
	DecayCutoffMeters float64

	// Kafka layer-refresh configuration. Refresh is feature-flagged via
	// KAFKA_BROKERS / KAFKA_ENABLED: unset brokers leave it off and the
	// index is only built at startup.
	KafkaBrokers      []string
	KafkaRefreshTopic string
	KafkaGroupID      string
	KafkaEnabled      bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	decayCutoff, err := parseFloatEnv("DECAY_CUTOFF_METERS", 2000)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ZonesDir: envOrDefault("ZONES_DIR", "data/zones"),
		LayerCRS: envOrDefault("LAYER_CRS", "EPSG:4326"),

		ArtifactsDir: os.Getenv("ARTIFACTS_DIR"),
		BaseURL:      envOrDefault("BASE_URL", "http://localhost:8080"),

		DecayCutoffMeters: decayCutoff,

		KafkaBrokers:      brokers,
		KafkaRefreshTopic: envOrDefault("KAFKA_REFRESH_TOPIC", "hazard-layer-updates"),
		KafkaGroupID:      envOrDefault("KAFKA_GROUP_ID", "parcel-risk-service"),
		KafkaEnabled:      kafkaEnabled,
	}

	if cfg.ZonesDir == "" {
		return nil, errors.New("ZONES_DIR is required")
	}
	if !domain.SupportedCRS(cfg.LayerCRS) {
		return nil, fmt.Errorf("LAYER_CRS %q has no registered transform", cfg.LayerCRS)
	}
	if cfg.DecayCutoffMeters <= 0 {
		return nil, errors.New("DECAY_CUTOFF_METERS must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// ScoringConfig returns the default calibration with env overrides applied.
func (c *Config) ScoringConfig() domain.ScoringConfig {
	sc := domain.DefaultScoringConfig()
	sc.DecayCutoff = c.DecayCutoffMeters
	return sc
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
