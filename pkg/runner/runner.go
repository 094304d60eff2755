package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/exceller/pkg/history/recorder"
	"mercator-hq/exceller/pkg/plugins/stdlib"
	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/telemetry/logging"
	"mercator-hq/exceller/pkg/telemetry/tracing"
	"mercator-hq/exceller/pkg/transform"
	"mercator-hq/exceller/pkg/transform/plugin"
	"mercator-hq/exceller/pkg/transform/value"
)

// Metrics observes finished runs and node resolutions.
type Metrics interface {
	transform.Observer
	RecordRun(schema string, duration time.Duration, err error)
}

// Recorder stores finished runs.
type Recorder interface {
	Record(run recorder.Run) (string, error)
}

// Request is one transformation to perform.
type Request struct {
	// Schema names the schema for logs, metrics and history.
	Schema string

	// SchemaVersion is the version of the schema set Node came from.
	SchemaVersion string

	// Node is the parsed schema.
	Node ast.Node

	// Context is the caller context. It must decode to an object or be nil.
	Context any

	// Capabilities are extra plugin bindings for this run.
	Capabilities map[string]any
}

// Result is the outcome of a successful run.
type Result struct {
	RunID    string
	Value    any
	Duration time.Duration
}

// Runner executes schemas with the configured plugins and telemetry.
type Runner struct {
	loader   plugin.Loader
	metrics  Metrics
	recorder Recorder
	tracer   *tracing.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLoader sets the plugin loader. The default serves the built-in
// modules.
func WithLoader(l plugin.Loader) Option {
	return func(r *Runner) { r.loader = l }
}

// WithMetrics records run and node metrics.
func WithMetrics(m Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithRecorder writes every run to history.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithTracer traces every run.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a runner.
func New(opts ...Option) *Runner {
	r := &Runner{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = stdlib.Loader()
	}
	if r.tracer == nil {
		r.tracer = tracing.Noop()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run resolves req.Node against req.Context. The run ID is returned with
// the error too so callers can correlate failures.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.New().String()
	ctx = logging.WithSchema(logging.WithRunID(ctx, runID), req.Schema)
	ctx, span := r.tracer.StartRun(ctx, req.Schema, runID)

	start := r.now()
	out, err := r.resolve(req)
	elapsed := r.now().Sub(start)

	if r.metrics != nil {
		r.metrics.RecordRun(req.Schema, elapsed, err)
	}
	if r.recorder != nil {
		if _, recErr := r.recorder.Record(recorder.Run{
			RunID:         runID,
			Schema:        req.Schema,
			SchemaVersion: req.SchemaVersion,
			StartedAt:     start,
			Duration:      elapsed,
			Input:         req.Context,
			Output:        out,
			Err:           err,
		}); recErr != nil {
			r.logger.WarnContext(ctx, "Failed to record run", "error", recErr)
		}
	}

	tracing.SetPayloadSizes(span, payloadSize(req.Context), payloadSize(out))
	tracing.EndRun(span, err)

	if err != nil {
		r.logger.DebugContext(ctx, "Transformation failed",
			"kind", schemaerrors.KindOf(err),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return &Result{RunID: runID, Duration: elapsed}, err
	}
	r.logger.DebugContext(ctx, "Transformation completed", "duration_ms", elapsed.Milliseconds())
	return &Result{RunID: runID, Value: out, Duration: elapsed}, nil
}

func (r *Runner) resolve(req Request) (any, error) {
	ctxMap, err := contextMap(req.Context)
	if err != nil {
		return nil, err
	}
	reg, err := transform.NewRegistry(req.Capabilities)
	if err != nil {
		return nil, err
	}

	opts := []transform.Option{
		transform.WithLoader(r.loader),
		transform.WithLogger(r.logger),
	}
	if r.metrics != nil {
		opts = append(opts, transform.WithObserver(r.metrics))
	}

	t, err := transform.NewWithRegistry(req.Node, ctxMap, reg, opts...)
	if err != nil {
		return nil, err
	}
	return t.Resolve()
}

func contextMap(v any) (*value.Map, error) {
	switch c := v.(type) {
	case nil:
		return value.NewMap(), nil
	case *value.Map:
		return c, nil
	case map[string]any:
		return transform.NewContext(c)
	}
	norm, err := value.Normalize(v)
	if err == nil {
		if m, ok := norm.(*value.Map); ok {
			return m, nil
		}
	}
	return nil, schemaerrors.New(schemaerrors.KindSchemaDefinition,
		"context must be an object, got %s", value.KindOf(v))
}

// payloadSize is the JSON size of v, 0 when it does not encode.
func payloadSize(v any) int {
	_, n, err := recorder.HashValue(v)
	if err != nil {
		return 0
	}
	return n
}

// DecodeContext decodes a JSON object keeping key order. Empty input is an
// empty context.
func DecodeContext(data []byte) (*value.Map, error) {
	if len(data) == 0 {
		return value.NewMap(), nil
	}
	v, err := stdlib.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON context: %w", err)
	}
	switch m := v.(type) {
	case nil:
		return value.NewMap(), nil
	case *value.Map:
		return m, nil
	}
	return nil, fmt.Errorf("context must be a JSON object, got %s", value.KindOf(v))
}
