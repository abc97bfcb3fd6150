package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/johnrichard23/connectedin/config"
	"github.com/johnrichard23/connectedin/internal/observability/metrics"
	"github.com/johnrichard23/connectedin/internal/observability/statsd"
)

// BuildMetrics returns the recorder for cfg and a closer for its client.
// When metrics are disabled the recorder is nil and the closer is a no-op.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*metrics.Recorder, func(), error) {
	noop := func() {}
	if !cfg.IsEnabled() {
		return nil, noop, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	var tags map[string]string
	if cfg.Environment != "" {
		tags = map[string]string{"env": cfg.Environment}
	}
	client, err := statsd.New(statsd.Config{
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Tags:    tags,
		Logger:  logger,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("statsd client: %w", err)
	}
	logger.Info("metrics enabled", "statsd_address", cfg.StatsdAddress, "prefix", cfg.Prefix)

	closer := func() {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close statsd client", "error", closeErr)
		}
	}
	return metrics.New(client), closer, nil
}
