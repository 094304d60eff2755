package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history/recorder"
	"mercator-hq/exceller/pkg/schema/ast"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/telemetry/tracing"
	"mercator-hq/exceller/pkg/transform/value"
)

type fakeMetrics struct {
	mu    sync.Mutex
	runs  []string
	nodes int
}

func (m *fakeMetrics) ObserveResolve(ast.Kind, time.Duration, error) {
	m.mu.Lock()
	m.nodes++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordRun(schema string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "ok"
	if err != nil {
		status = string(schemaerrors.KindOf(err))
	}
	m.runs = append(m.runs, schema+":"+status)
}

type fakeRecorder struct {
	runs []recorder.Run
}

func (r *fakeRecorder) Record(run recorder.Run) (string, error) {
	r.runs = append(r.runs, run)
	return "rec", nil
}

var invoice = ast.Object(
	ast.F("id", ast.Expression("$0.id")),
	ast.F("total", ast.Expression("add", "$0.net", "$0.tax")),
)

func TestRunner_Run(t *testing.T) {
	m := &fakeMetrics{}
	rec := &fakeRecorder{}
	r := New(WithMetrics(m), WithRecorder(rec))

	input := value.MapOf("id", "A-1", "net", int64(100), "tax", int64(20))
	res, err := r.Run(context.Background(), Request{Schema: "invoice", SchemaVersion: "v1", Node: invoice, Context: input})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := value.MapOf("id", "A-1", "total", int64(120))
	if !value.Equal(res.Value, want) {
		t.Errorf("Run() = %s, want %s", value.Repr(res.Value), value.Repr(want))
	}
	if res.RunID == "" {
		t.Error("run ID not set")
	}
	if diff := cmp.Diff([]string{"invoice:ok"}, m.runs); diff != "" {
		t.Errorf("metrics runs mismatch (-want +got):\n%s", diff)
	}
	if m.nodes != 3 {
		t.Errorf("observed %d node resolutions, want 3", m.nodes)
	}
	if len(rec.runs) != 1 || rec.runs[0].RunID != res.RunID || rec.runs[0].SchemaVersion != "v1" || rec.runs[0].Err != nil {
		t.Errorf("recorded runs = %+v", rec.runs)
	}
}

func TestRunner_RunError(t *testing.T) {
	m := &fakeMetrics{}
	rec := &fakeRecorder{}
	r := New(WithMetrics(m), WithRecorder(rec))

	res, err := r.Run(context.Background(), Request{Schema: "invoice", Node: invoice, Context: map[string]any{"id": "x"}})
	if !errors.Is(err, schemaerrors.ErrContextKey) {
		t.Fatalf("Run() error = %v, want a context key error", err)
	}
	if res == nil || res.RunID == "" || res.Value != nil {
		t.Errorf("result = %+v, want run ID only", res)
	}
	if diff := cmp.Diff([]string{"invoice:context_key"}, m.runs); diff != "" {
		t.Errorf("metrics runs mismatch (-want +got):\n%s", diff)
	}
	if len(rec.runs) != 1 || rec.runs[0].Err == nil {
		t.Errorf("failed run not recorded: %+v", rec.runs)
	}
}

func TestRunner_Context(t *testing.T) {
	r := New()
	node := ast.Expression("$0.a")

	tests := []struct {
		name    string
		ctx     any
		want    any
		wantErr bool
	}{
		{"ordered map", value.MapOf("a", int64(1)), int64(1), false},
		{"go map", map[string]any{"a": 2}, int64(2), false},
		{"nil context", nil, nil, true},
		{"not an object", []any{int64(1)}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Run(context.Background(), Request{Schema: "s", Node: node, Context: tt.ctx})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !value.Equal(res.Value, tt.want) {
				t.Errorf("Run() = %s, want %s", value.Repr(res.Value), value.Repr(tt.want))
			}
		})
	}
}

func TestRunner_Plugins(t *testing.T) {
	loader, closer, err := NewLoader(context.Background(), &config.PluginsConfig{Disabled: []string{"uuid"}}, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer closer.Close()

	r := New(WithLoader(loader))
	node := ast.WithPlugins(ast.Expression("$1.math:floor", 2.7), ast.ImportPath{Path: "math"})
	res, err := r.Run(context.Background(), Request{Schema: "s", Node: node})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !value.Equal(res.Value, int64(2)) {
		t.Errorf("floor(2.7) = %s", value.Repr(res.Value))
	}

	disabled := ast.WithPlugins(ast.Literal(nil), ast.ImportPath{Path: "uuid"})
	if _, err := r.Run(context.Background(), Request{Schema: "s", Node: disabled}); !errors.Is(err, schemaerrors.ErrPluginDefinition) {
		t.Errorf("disabled module error = %v", err)
	}
}

func TestNewLoader_Lookup(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "codes.db")
	loader, closer, err := NewLoader(context.Background(), &config.PluginsConfig{
		Lookup: config.LookupConfig{Enabled: true, DSN: dsn, QueryTimeout: time.Second},
	}, nil)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	defer closer.Close()
	if _, err := loader.Load("lookup"); err != nil {
		t.Errorf("lookup module not registered: %v", err)
	}

	if _, _, err := NewLoader(context.Background(), &config.PluginsConfig{
		Lookup: config.LookupConfig{Enabled: true},
	}, nil); err == nil {
		t.Error("NewLoader() without a dsn should fail")
	}
}

func TestRunner_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tr, err := tracing.NewWithProcessor(&config.TracingConfig{Enabled: true, Sampler: "always", ServiceName: "test"}, "dev", sr)
	if err != nil {
		t.Fatalf("NewWithProcessor() error = %v", err)
	}

	r := New(WithTracer(tr))
	if _, err := r.Run(context.Background(), Request{Schema: "invoice", Node: ast.Literal(int64(1))}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	spans := sr.Ended()
	if len(spans) != 1 || spans[0].Name() != tracing.SpanRun {
		t.Fatalf("spans = %v", spans)
	}
}

func TestDecodeContext(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		keys    []string
		wantErr bool
	}{
		{"empty", "", []string{}, false},
		{"null", "null", []string{}, false},
		{"keeps key order", `{"b": 1, "a": 2}`, []string{"b", "a"}, false},
		{"array", `[1]`, nil, true},
		{"malformed", `{"a":`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeContext([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeContext() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(tt.keys, append([]string{}, m.Keys()...)); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
