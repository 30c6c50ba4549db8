// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Collectors live in a private registry that is pushed to the gateway on
// Flush, since sheetmap runs as a short-lived batch job with no scrape
// endpoint.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"sheetmap/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // sheetmap_step_total
	stepDuration *prometheus.SummaryVec // sheetmap_step_duration_seconds
	rowCounter   *prometheus.CounterVec // sheetmap_rows_total
	byteCounter  *prometheus.CounterVec // sheetmap_bytes_total
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// grouping job; gatewayURL is the base URL of the gateway.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "sheetmap"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Total number of sheetmap step executions by dataset, step and status.",
		},
		[]string{"dataset", "step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.StepDuration,
			Help:       "Duration of sheetmap steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"dataset", "step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Rows handled per dataset and kind (written, read, skipped, inserted).",
		},
		[]string{"dataset", "kind"},
	)
	byteCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.BytesTotal,
			Help: "Bytes written to sheets per dataset.",
		},
		[]string{"dataset"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter": stepCounter,
		"step summary": stepDuration,
		"row counter":  rowCounter,
		"byte counter": byteCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		byteCounter:  byteCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		b.stepCounter.WithLabelValues(labels["dataset"], labels["step"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rowCounter.WithLabelValues(labels["dataset"], labels["kind"]).Add(delta)
	case metrics.BytesTotal:
		b.byteCounter.WithLabelValues(labels["dataset"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDuration {
		return
	}
	b.stepDuration.WithLabelValues(labels["dataset"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
