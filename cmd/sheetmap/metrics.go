package main

import (
	"fmt"

	"sheetmap/internal/config"
	"sheetmap/internal/metrics"
	"sheetmap/internal/metrics/datadog"
	"sheetmap/internal/metrics/prompush"
)

// newMetricsBackend builds the backend named by cfg, or nil when metrics are
// disabled.
func newMetricsBackend(cfg *config.Config) (metrics.Backend, error) {
	switch cfg.MetricsBackend {
	case "", "none":
		return nil, nil
	case "pushgateway":
		return prompush.NewBackend(cfg.MetricsJob, cfg.PushgatewayURL)
	case "datadog":
		return datadog.NewBackend(datadog.Config{
			Addr:       cfg.StatsdAddr,
			Namespace:  "sheetmap.",
			GlobalTags: []string{"job:" + cfg.MetricsJob},
		})
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.MetricsBackend)
}
