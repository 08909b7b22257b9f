// Package metrics provides Prometheus metrics for the virtual SD card.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Print job metrics
	jobTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsdcard_job_transitions_total",
			Help: "Total run state transitions by target state",
		},
		[]string{"card", "state"},
	)

	linesDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsdcard_lines_dispatched_total",
			Help: "Total file lines handed to the executor",
		},
		[]string{"card"},
	)

	bytesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsdcard_bytes_consumed_total",
			Help: "Total file bytes consumed by the print loop",
		},
		[]string{"card"},
	)

	gateRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsdcard_gate_retries_total",
			Help: "Times the print loop found the executor gate busy",
		},
		[]string{"card"},
	)

	printProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "vsdcard_print_progress_ratio",
			Help: "Fraction of the selected file consumed",
		},
		[]string{"card"},
	)

	// Pause metrics
	pauseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vsdcard_pause_duration_seconds",
			Help:    "Time from pause request to the loop acknowledging it",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Cache metrics
	cacheCopiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vsdcard_cache_copies_total",
			Help: "Cache copies by outcome",
		},
		[]string{"outcome"},
	)

	cacheBytesCopied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vsdcard_cache_bytes_copied_total",
			Help: "Total bytes copied from removable media",
		},
	)

	cacheCopyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vsdcard_cache_copy_duration_seconds",
			Help:    "Cache copy duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTransition counts a run state change.
func RecordTransition(card, state string) {
	jobTransitionsTotal.WithLabelValues(card, state).Inc()
}

// RecordLine counts one dispatched line of n bytes.
func RecordLine(card string, n int64) {
	linesDispatchedTotal.WithLabelValues(card).Inc()
	bytesConsumedTotal.WithLabelValues(card).Add(float64(n))
}

// RecordGateRetry counts a busy gate.
func RecordGateRetry(card string) {
	gateRetriesTotal.WithLabelValues(card).Inc()
}

// SetProgress sets the current progress fraction.
func SetProgress(card string, progress float64) {
	printProgress.WithLabelValues(card).Set(progress)
}

// RecordPause records how long a pause took to land.
func RecordPause(d time.Duration) {
	pauseDuration.Observe(d.Seconds())
}

// ObserveCacheCopy records a finished cache copy.
func ObserveCacheCopy(outcome string, bytes int64, d time.Duration) {
	cacheCopiesTotal.WithLabelValues(outcome).Inc()
	cacheBytesCopied.Add(float64(bytes))
	cacheCopyDuration.Observe(d.Seconds())
}
