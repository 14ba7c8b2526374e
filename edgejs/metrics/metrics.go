// Package metrics exposes the Prometheus client-side instrumentation for
// the JS runtime core: per-Runtime heap/table gauges and Op Dispatcher
// counters. The HTTP endpoint that serves these is out of scope (spec.md
// §1) but the instrumentation itself is ambient stack carried regardless,
// grounded on the teacher's pkg/metrics (Registry + CounterVec/
// HistogramVec/GaugeVec idiom, Namespace/Subsystem naming).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds this package's collectors, mirroring the teacher's
// dedicated prometheus.Registry rather than the global default registerer.
var Registry = prometheus.NewRegistry()

var (
	runtimeHeapUsed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgejs",
			Subsystem: "runtime",
			Name:      "heap_used_bytes",
			Help:      "Isolate heap bytes in use, as last read by the Selector's idle monitor.",
		},
		[]string{"app", "version"},
	)

	runtimeHeapTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgejs",
			Subsystem: "runtime",
			Name:      "heap_total_bytes",
			Help:      "Isolate heap bytes reserved, as last read by the Selector's idle monitor.",
		},
		[]string{"app", "version"},
	)

	runtimePendingRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "edgejs",
			Subsystem: "runtime",
			Name:      "pending_rows",
			Help:      "Rows currently pending in a Runtime's request/stream/timer table.",
		},
		[]string{"app", "version", "table"},
	)

	runtimesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edgejs",
			Subsystem: "selector",
			Name:      "runtimes_active",
			Help:      "Number of Runtimes currently Ready in the Selector.",
		},
	)

	runtimesEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "edgejs",
			Subsystem: "selector",
			Name:      "runtimes_evicted_total",
			Help:      "Total number of Runtimes evicted for idleness.",
		},
	)

	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edgejs",
			Subsystem: "dispatch",
			Name:      "ops_total",
			Help:      "Total number of dispatched ops by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "edgejs",
			Subsystem: "dispatch",
			Name:      "op_duration_seconds",
			Help:      "Duration of dispatched op handlers.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		runtimeHeapUsed,
		runtimeHeapTotal,
		runtimePendingRows,
		runtimesActive,
		runtimesEvicted,
		opsTotal,
		opDuration,
	)
}

// ObserveHeap records a Runtime's heap statistics, read by the Selector's
// idle monitor tick.
func ObserveHeap(app, version string, usedBytes, totalBytes uint64) {
	runtimeHeapUsed.WithLabelValues(app, version).Set(float64(usedBytes))
	runtimeHeapTotal.WithLabelValues(app, version).Set(float64(totalBytes))
}

// ObservePendingRows records a table's current depth for telemetry.
func ObservePendingRows(app, version, table string, n int) {
	runtimePendingRows.WithLabelValues(app, version, table).Set(float64(n))
}

// SetRuntimesActive records the Selector's current Ready-runtime count.
func SetRuntimesActive(n int) {
	runtimesActive.Set(float64(n))
}

// IncRuntimesEvicted records one idle eviction.
func IncRuntimesEvicted() {
	runtimesEvicted.Inc()
}

// ObserveOp records one dispatched op's kind, outcome ("ok" | "error"), and
// duration.
func ObserveOp(kind, outcome string, d time.Duration) {
	opsTotal.WithLabelValues(kind, outcome).Inc()
	opDuration.WithLabelValues(kind).Observe(d.Seconds())
}
