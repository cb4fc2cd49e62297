// Package metrics holds the Prometheus collectors for the commitment store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reload outcomes.
const (
	ReloadApplied   = "applied"
	ReloadUnchanged = "unchanged"
	ReloadStale     = "stale"
	ReloadError     = "error"
)

var (
	// Records is the number of commitments currently indexed, soft-deleted included.
	Records = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifsync_records",
		Help: "Commitments currently held in the index",
	})

	// LoadSkipped counts file elements dropped by the tolerant parser.
	LoadSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifsync_load_skipped_total",
		Help: "Malformed file elements skipped while loading",
	})

	// Reloads counts reconciler passes that found a changed stamp, by outcome.
	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifsync_reloads_total",
		Help: "Reconciler reloads by result",
	}, []string{"result"})

	// FlushDuration tracks how long full-file writes take.
	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notifsync_flush_duration_seconds",
		Help:    "Duration of full-file flushes in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	})

	// FlushErrors counts flushes that failed and were rolled back.
	FlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifsync_flush_errors_total",
		Help: "Failed full-file flushes",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
