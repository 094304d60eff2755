package metrics

import (
	"fmt"
	"sync"
	"time"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Run statuses used as label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// otherLabel replaces schema names once the cardinality limit is reached.
const otherLabel = "other"

// Collector owns every exceller metric. It implements transform.Observer so
// it can be handed straight to a Transformer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	transformMetrics *TransformMetrics
	schemaMetrics    *SchemaMetrics
	historyMetrics   *HistoryMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering its metrics with registry.
// A nil registry gets a fresh one. An empty namespace defaults to "exceller".
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	t, err := transform.New(node, ctx, nil, transform.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		transformMetrics:   NewTransformMetrics(cfg, registry),
		schemaMetrics:      NewSchemaMetrics(cfg, registry),
		historyMetrics:     NewHistoryMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// RecordRun records a completed transformation of the named schema. A
// non-nil err counts as a failed run and its kind is recorded too.
func (c *Collector) RecordRun(schema string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}

	if !c.cardinalityLimiter.Allow(fmt.Sprintf("schema:%s", schema)) {
		schema = otherLabel
	}

	status := StatusSuccess
	if err != nil {
		status = StatusError
		c.transformMetrics.RecordError(schema, errorKind(err))
	}
	c.transformMetrics.RecordRun(schema, status, duration)
}

// ObserveResolve counts a single node resolution.
func (c *Collector) ObserveResolve(kind ast.Kind, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.transformMetrics.RecordResolution(string(kind), duration, err != nil)
}

// RecordSchemaReload records a schema store reload and the number of schemas
// loaded afterwards. A failed reload leaves the gauge untouched.
func (c *Collector) RecordSchemaReload(loaded int, err error) {
	if !c.config.Enabled {
		return
	}
	if err != nil {
		c.schemaMetrics.RecordReload(StatusError)
		return
	}
	c.schemaMetrics.RecordReload(StatusSuccess)
	c.schemaMetrics.SetLoaded(loaded)
}

// RecordHistoryWrite records the outcome of storing a history record.
func (c *Collector) RecordHistoryWrite(err error) {
	if !c.config.Enabled {
		return
	}
	if err != nil {
		c.historyMetrics.RecordWrite(StatusError)
		return
	}
	c.historyMetrics.RecordWrite(StatusSuccess)
}

// RecordHistoryPruned records records deleted by retention.
func (c *Collector) RecordHistoryPruned(n int64) {
	if !c.config.Enabled {
		return
	}
	c.historyMetrics.RecordPruned(n)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func errorKind(err error) string {
	if kind := schemaerrors.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}

// CardinalityLimiter caps the number of distinct label sets a collector
// creates.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already known or still fits under the
// limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	_, exists := cl.current[labelSet]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
