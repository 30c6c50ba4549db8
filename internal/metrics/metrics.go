// Package metrics records operational metrics for sheet imports and exports
// through a small, backend-agnostic interface.
//
// A global backend defaults to a no-op implementation, so instrumentation is
// always safe to call. Concrete systems (Prometheus Pushgateway, Datadog) live
// in subpackages and are installed with SetBackend by the binary.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by this package.
const (
	StepTotal    = "sheetmap_step_total"
	StepDuration = "sheetmap_step_duration_seconds"
	RowsTotal    = "sheetmap_rows_total"
	BytesTotal   = "sheetmap_bytes_total"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a step (export, import, describe) for a
// dataset and records its duration, labelled by outcome.
func RecordStep(dataset, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"dataset": dataset,
		"step":    step,
		"status":  status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments the row counter for a dataset. Typical kinds are
// "written", "read", "skipped" and "inserted".
func RecordRows(dataset, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"dataset": dataset,
		"kind":    kind,
	})
}

// RecordBytes increments the byte counter for sheets written for a dataset.
func RecordBytes(dataset string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BytesTotal, float64(delta), Labels{"dataset": dataset})
}
