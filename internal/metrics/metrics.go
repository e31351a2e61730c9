// Package metrics exposes Prometheus collectors for the sync engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncItemsTotal           *prometheus.CounterVec
	syncObservationsTotal    *prometheus.CounterVec
	lookupRequestsTotal      *prometheus.CounterVec
	syncCycleDurationSeconds prometheus.Histogram
	aggregatePassTotal       prometheus.Counter
	aggregateItemsTotal      prometheus.Counter

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		syncItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradesync_items_total",
				Help: "Items processed per cycle, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		syncObservationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradesync_observations_total",
				Help: "Sale observations handled during ingestion, labeled by disposition.",
			},
			[]string{"disposition"},
		)

		lookupRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gradesync_lookup_requests_total",
				Help: "Requests against the external price-reference source, labeled by kind and status.",
			},
			[]string{"kind", "status"},
		)

		syncCycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gradesync_cycle_duration_seconds",
				Help:    "Wall-clock duration of full sync cycles.",
				Buckets: []float64{1, 5, 30, 60, 300, 900, 3600, 7200},
			},
		)

		aggregatePassTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gradesync_aggregate_passes_total",
				Help: "Completed aggregation passes.",
			},
		)

		aggregateItemsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gradesync_aggregate_items_total",
				Help: "Items whose aggregate prices were recomputed.",
			},
		)
	})
}

// ItemProcessed counts one item finishing a process step with the given
// outcome (succeeded, failed, not_found).
func ItemProcessed(outcome string) {
	if syncItemsTotal != nil {
		syncItemsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObservationsWritten adds newly persisted observation rows.
func ObservationsWritten(n int) {
	if syncObservationsTotal != nil && n > 0 {
		syncObservationsTotal.WithLabelValues("written").Add(float64(n))
	}
}

// ObservationsSkipped adds malformed observations dropped during ingestion.
func ObservationsSkipped(n int) {
	if syncObservationsTotal != nil && n > 0 {
		syncObservationsTotal.WithLabelValues("skipped").Add(float64(n))
	}
}

// LookupRequest counts one external request by kind (search, fetch) and
// status (ok, error).
func LookupRequest(kind, status string) {
	if lookupRequestsTotal != nil {
		lookupRequestsTotal.WithLabelValues(kind, status).Inc()
	}
}

// CycleDuration records a finished sync cycle.
func CycleDuration(d time.Duration) {
	if syncCycleDurationSeconds != nil {
		syncCycleDurationSeconds.Observe(d.Seconds())
	}
}

// AggregatePass records a finished aggregation pass over n items.
func AggregatePass(items int) {
	if aggregatePassTotal != nil {
		aggregatePassTotal.Inc()
		aggregateItemsTotal.Add(float64(items))
	}
}
