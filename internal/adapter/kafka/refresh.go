// Package kafka consumes hazard-layer update notifications. A message on
// the refresh topic means the layer files on disk changed; the payload is
// advisory only — the reload always re-reads the full dataset and swaps in a
// freshly built index.
package kafka

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/riskgrid/parcel-risk-service/internal/config"
)

// ReloadFunc rebuilds the index from the current layer files and swaps it
// in atomically.
type ReloadFunc func(ctx context.Context) error

// Refresher triggers index reloads from a Kafka notification topic.
type Refresher struct {
	reader *kafkago.Reader
	reload ReloadFunc
	logger *slog.Logger
}

// NewRefresher creates a consumer for the configured refresh topic.
func NewRefresher(cfg *config.Config, reload ReloadFunc, logger *slog.Logger) *Refresher {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  cfg.KafkaGroupID,
		Topic:    cfg.KafkaRefreshTopic,
		MaxBytes: 1 << 20,
	})
	return &Refresher{reader: reader, reload: reload, logger: logger}
}

// Run consumes refresh notifications until the context is cancelled.
// A failed reload keeps the current index snapshot serving and the
// notification is still committed: the next upstream publish retries, and a
// stale-but-consistent index beats a tight redelivery loop on bad data.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("layer refresh consumer started", "topic", r.reader.Config().Topic)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info("layer refresh consumer stopping", "reason", ctx.Err())
				return nil
			}
			r.logger.Error("fetch refresh notification failed", "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		r.logger.Info("layer refresh notification received",
			"partition", msg.Partition, "offset", msg.Offset)
		if err := r.reload(ctx); err != nil {
			r.logger.Error("layer reload failed, keeping current index", "error", err)
		}

		if err := r.reader.CommitMessages(ctx, msg); err != nil {
			r.logger.Warn("commit refresh offset failed", "error", err,
				"partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

func (r *Refresher) Close() error {
	return r.reader.Close()
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
