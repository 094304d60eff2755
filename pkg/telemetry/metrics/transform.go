package metrics

import (
	"time"

	"mercator-hq/exceller/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// TransformMetrics tracks transformation runs and node resolutions.
//
// Metrics:
//   - exceller_transform_runs_total: runs by schema and status
//   - exceller_transform_duration_seconds: run duration by schema
//   - exceller_transform_errors_total: failed runs by schema and error kind
//   - exceller_node_resolutions_total: node resolutions by node kind
//   - exceller_node_resolution_errors_total: failed resolutions by node kind
//   - exceller_node_resolution_duration_seconds: resolution duration by node kind
type TransformMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	resolutionsTotal *prometheus.CounterVec
	resolutionErrors *prometheus.CounterVec
	resolveDuration  *prometheus.HistogramVec
}

// NewTransformMetrics creates and registers transformation metrics.
func NewTransformMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TransformMetrics {
	tm := &TransformMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "transform",
				Name:      "runs_total",
				Help:      "Total number of transformation runs",
			},
			[]string{"schema", "status"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "transform",
				Name:      "duration_seconds",
				Help:      "Duration of transformation runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 9), // 100µs to ~6.5s
			},
			[]string{"schema"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "transform",
				Name:      "errors_total",
				Help:      "Total number of failed transformation runs by error kind",
			},
			[]string{"schema", "kind"},
		),

		resolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "node",
				Name:      "resolutions_total",
				Help:      "Total number of schema node resolutions",
			},
			[]string{"kind"},
		),

		resolutionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "node",
				Name:      "resolution_errors_total",
				Help:      "Total number of failed schema node resolutions",
			},
			[]string{"kind"},
		),

		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "node",
				Name:      "resolution_duration_seconds",
				Help:      "Duration of schema node resolutions in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 10, 7), // 1µs to 1s
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		tm.runsTotal,
		tm.runDuration,
		tm.errorsTotal,
		tm.resolutionsTotal,
		tm.resolutionErrors,
		tm.resolveDuration,
	)

	return tm
}

// RecordRun records a finished run.
func (tm *TransformMetrics) RecordRun(schema, status string, duration time.Duration) {
	tm.runsTotal.WithLabelValues(schema, status).Inc()
	tm.runDuration.WithLabelValues(schema).Observe(duration.Seconds())
}

// RecordError records the kind of a failed run.
func (tm *TransformMetrics) RecordError(schema, kind string) {
	tm.errorsTotal.WithLabelValues(schema, kind).Inc()
}

// RecordResolution records one node resolution.
func (tm *TransformMetrics) RecordResolution(kind string, duration time.Duration, failed bool) {
	tm.resolutionsTotal.WithLabelValues(kind).Inc()
	tm.resolveDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if failed {
		tm.resolutionErrors.WithLabelValues(kind).Inc()
	}
}
