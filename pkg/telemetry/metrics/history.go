package metrics

import (
	"mercator-hq/exceller/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// HistoryMetrics tracks the run history store.
type HistoryMetrics struct {
	writesTotal *prometheus.CounterVec
	prunedTotal prometheus.Counter
}

// NewHistoryMetrics creates and registers history metrics.
func NewHistoryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HistoryMetrics {
	hm := &HistoryMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "history",
				Name:      "writes_total",
				Help:      "Total number of history record writes",
			},
			[]string{"status"},
		),
		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "history",
				Name:      "pruned_total",
				Help:      "Total number of history records removed by retention",
			},
		),
	}

	registry.MustRegister(hm.writesTotal, hm.prunedTotal)
	return hm
}

// RecordWrite counts a write with the given status.
func (hm *HistoryMetrics) RecordWrite(status string) {
	hm.writesTotal.WithLabelValues(status).Inc()
}

// RecordPruned adds n pruned records.
func (hm *HistoryMetrics) RecordPruned(n int64) {
	if n > 0 {
		hm.prunedTotal.Add(float64(n))
	}
}
