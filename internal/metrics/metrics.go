// Package metrics records operational metrics of an export run behind a
// small backend interface. The default backend is a no-op, so callers never
// need to check whether metrics are configured. Concrete backends live in
// subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names emitted by this package.
const (
	StepTotal       = "tkexport_step_total"
	StepDuration    = "tkexport_step_duration_seconds"
	RowsTotal       = "tkexport_rows_total"
	FieldErrorTotal = "tkexport_field_errors_total"
)

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. nil keeps the current backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error { return current().Flush() }

// RecordStep counts one step (extract, load, transform, ...) for table and
// observes its duration, labeled success or failure.
func RecordStep(job, step, table string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "step": step, "table": table, "status": status}
	b := current()
	b.IncCounter(StepTotal, 1, lbls)
	b.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds n exported rows of table.
func RecordRows(job, table string, n int64) {
	if n <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(n), Labels{"job": job, "table": table})
}

// RecordFieldErrors adds n source fields that degraded to null.
func RecordFieldErrors(job string, n int64) {
	if n <= 0 {
		return
	}
	current().IncCounter(FieldErrorTotal, float64(n), Labels{"job": job})
}
