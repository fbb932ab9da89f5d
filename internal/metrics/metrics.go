// Package metrics exposes Prometheus counters for the proposal workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StorageWrites counts full-collection snapshot writes.
	StorageWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_storage_writes_total",
			Help: "Full-collection snapshot writes by operation and status",
		},
		[]string{"op", "status"},
	)

	// StorageLoadFailures counts loads that fell back to an empty collection.
	StorageLoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_storage_load_failures_total",
			Help: "Loads that were treated as empty because of read or decode errors",
		},
		[]string{"reason"},
	)

	// Saves counts accepted and rejected proposal saves.
	Saves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_saves_total",
			Help: "Proposal saves by result",
		},
		[]string{"result"},
	)

	// Rewrites counts description rewrite outcomes.
	Rewrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_rewrites_total",
			Help: "Description rewrites by outcome",
		},
		[]string{"outcome"},
	)

	// RewriteDuration observes the latency of backend calls.
	RewriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "proposals_rewrite_duration_seconds",
			Help:    "Time spent waiting for the rewrite backend",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Exports counts PDF exports by outcome.
	Exports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proposals_exports_total",
			Help: "PDF exports by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
