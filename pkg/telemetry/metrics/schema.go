package metrics

import (
	"mercator-hq/exceller/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// SchemaMetrics tracks the schema store.
type SchemaMetrics struct {
	reloadsTotal  *prometheus.CounterVec
	schemasLoaded prometheus.Gauge
}

// NewSchemaMetrics creates and registers schema store metrics.
func NewSchemaMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *SchemaMetrics {
	sm := &SchemaMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of schema store reloads",
			},
			[]string{"status"},
		),
		schemasLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "schemas_loaded",
				Help:      "Number of schemas currently loaded",
			},
		),
	}

	registry.MustRegister(sm.reloadsTotal, sm.schemasLoaded)
	return sm
}

// RecordReload counts a reload with the given status.
func (sm *SchemaMetrics) RecordReload(status string) {
	sm.reloadsTotal.WithLabelValues(status).Inc()
}

// SetLoaded sets the loaded schema gauge.
func (sm *SchemaMetrics) SetLoaded(n int) {
	sm.schemasLoaded.Set(float64(n))
}
