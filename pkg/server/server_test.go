package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
	"mercator-hq/exceller/pkg/history/storage"
	"mercator-hq/exceller/pkg/runner"
	"mercator-hq/exceller/pkg/schema/store"
	"mercator-hq/exceller/pkg/telemetry/health"
	"mercator-hq/exceller/pkg/telemetry/metrics"
)

const invoiceSchema = `type: object
mapping:
  id: {type: expr, mapping: ["$0.id"]}
  total: {type: expr, mapping: ["add", "$0.net", "$0.tax"]}
`

type fixture struct {
	srv     *Server
	history *storage.MemoryStorage
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "invoice.yaml"), []byte(invoiceSchema), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	cfg := config.NewDefaultConfig()
	cfg.Schemas.Path = dir
	cfg.Server.MaxBodyBytes = 1024
	for _, m := range mutate {
		m(cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schemas := store.New(&cfg.Schemas, logger)
	if err := schemas.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	t.Cleanup(func() { schemas.Close() })

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	checker := health.New(time.Second)
	checker.Register("schemas", schemas.Check)

	hist := storage.NewMemoryStorage()
	srv, err := New(cfg, Deps{
		Schemas: schemas,
		Runner:  runner.New(runner.WithMetrics(collector), runner.WithLogger(logger)),
		History: hist,
		Health:  checker,
		Metrics: collector.Handler(),
		Logger:  logger,
		Version: "1.2.3",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &fixture{srv: srv, history: hist}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return body.Error
}

func TestNew_RequiresDependencies(t *testing.T) {
	cfg := config.NewDefaultConfig()
	if _, err := New(cfg, Deps{Runner: runner.New()}); err == nil {
		t.Error("New() without schemas succeeded")
	}
	if _, err := New(cfg, Deps{Schemas: store.New(&cfg.Schemas, nil)}); err == nil {
		t.Error("New() without runner succeeded")
	}
}

func TestServer_Transform(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/transform/invoice",
		`{"context": {"id": "inv-1", "net": 100, "tax": 20}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID  string          `json:"run_id"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(`{"id":"inv-1","total":120}`, string(resp.Result)); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if resp.RunID == "" || rec.Header().Get(RunIDHeader) != resp.RunID {
		t.Errorf("run id = %q, header %q", resp.RunID, rec.Header().Get(RunIDHeader))
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request id")
	}
}

func TestServer_TransformErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantKind   string
	}{
		{
			name:       "missing context key",
			target:     "/v1/transform/invoice",
			body:       `{"context": {"net": 1, "tax": 2}}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "context_key",
		},
		{
			name:       "empty body",
			target:     "/v1/transform/invoice",
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "context_key",
		},
		{
			name:       "unknown schema",
			target:     "/v1/transform/nope",
			body:       `{}`,
			wantStatus: http.StatusNotFound,
			wantKind:   KindNotFound,
		},
		{
			name:       "invalid json",
			target:     "/v1/transform/invoice",
			body:       `{"context": `,
			wantStatus: http.StatusBadRequest,
			wantKind:   KindBadRequest,
		},
		{
			name:       "context not an object",
			target:     "/v1/transform/invoice",
			body:       `{"context": [1, 2]}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   KindBadRequest,
		},
		{
			name:       "body too large",
			target:     "/v1/transform/invoice",
			body:       `{"context": {"id": "` + strings.Repeat("x", 2048) + `"}}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantKind:   KindTooLarge,
		},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec); got.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", got.Kind, tt.wantKind)
			}
		})
	}
}

func TestServer_TransformFailureCarriesRunID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/transform/invoice", `{"context": {}}`)

	detail := decodeError(t, rec)
	if detail.RunID == "" || detail.RunID != rec.Header().Get(RunIDHeader) {
		t.Errorf("run id = %q, header %q", detail.RunID, rec.Header().Get(RunIDHeader))
	}
	if !strings.Contains(detail.Message, "id") {
		t.Errorf("message = %q, want the missing key", detail.Message)
	}
}

func TestServer_Schemas(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/schemas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp SchemasResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Schemas) != 1 || resp.Schemas[0].Name != "invoice" {
		t.Fatalf("schemas = %+v", resp.Schemas)
	}
	if resp.Schemas[0].Size != int64(len(invoiceSchema)) || len(resp.Schemas[0].Hash) != 64 {
		t.Errorf("schema info = %+v", resp.Schemas[0])
	}
	if resp.Version == "" {
		t.Error("version is empty")
	}
}

func TestServer_Runs(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []string{history.StatusSuccess, history.StatusError, history.StatusSuccess} {
		err := f.history.Store(context.Background(), &history.Record{
			ID:        string(rune('a' + i)),
			Schema:    "invoice",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    status,
		})
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}

	tests := []struct {
		name    string
		target  string
		wantIDs []string
	}{
		{"newest first", "/v1/runs", []string{"c", "b", "a"}},
		{"status filter", "/v1/runs?status=error", []string{"b"}},
		{"oldest first with limit", "/v1/runs?order=asc&limit=2", []string{"a", "b"}},
		{"since", "/v1/runs?since=2026-03-01T12:01:00Z", []string{"c", "b"}},
		{"other schema", "/v1/runs?schema=payroll", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var records []history.Record
			if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
				t.Fatalf("decode: %v", err)
			}
			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff(tt.wantIDs, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("csv", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/runs?format=csv", "")
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("content type = %q", ct)
		}
		if lines := strings.Count(strings.TrimSpace(rec.Body.String()), "\n"); lines != 3 {
			t.Errorf("csv has %d data rows, want 3", lines)
		}
	})

	for _, target := range []string{"/v1/runs?limit=abc", "/v1/runs?status=maybe", "/v1/runs?format=xml", "/v1/runs?since=yesterday"} {
		t.Run("bad "+target, func(t *testing.T) {
			if rec := f.do(t, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestServer_Probes(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz", "/version"} {
		t.Run(path, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, path, "")
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, body %s", rec.Code, rec.Body.String())
			}
		})
	}

	var info health.VersionInfo
	rec := f.do(t, http.MethodGet, "/version", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil || info.Version != "1.2.3" {
		t.Errorf("version = %+v, %v", info, err)
	}
}

func TestServer_Metrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/v1/transform/invoice", `{"context": {"id": 1, "net": 1, "tax": 1}}`)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "exceller_transform_runs_total") {
		t.Errorf("metrics output lacks run counter:\n%s", rec.Body.String())
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodGet, "/v1/transform/invoice", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServer_APIKeys(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Server.APIKeys = []string{"k1", "k2"} })
	body := `{"context": {"id": 1, "net": 1, "tax": 1}}`

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"no key", "", "", http.StatusUnauthorized},
		{"wrong key", APIKeyHeader, "k3", http.StatusUnauthorized},
		{"api key header", APIKeyHeader, "k2", http.StatusOK},
		{"bearer", "Authorization", "Bearer k1", http.StatusOK},
		{"bearer lowercase scheme", "Authorization", "bearer k1", http.StatusOK},
		{"basic scheme", "Authorization", "Basic k1", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/transform/invoice", strings.NewReader(body))
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			f.srv.Handler().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusUnauthorized {
				if got := decodeError(t, rec).Kind; got != KindUnauthorized {
					t.Errorf("kind = %q", got)
				}
				if rec.Header().Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate header")
				}
			}
		})
	}

	// Probes stay open.
	if rec := f.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz status = %d", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/v1/schemas", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("/v1/schemas status = %d, want 401", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("request id = %q, want the client's", seen)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 {
		t.Errorf("generated request id = %q, want a uuid", seen)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := recoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := decodeError(t, rec); got.Kind != KindInternal {
		t.Errorf("kind = %q", got.Kind)
	}
}

func TestServer_ServeShutdown(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	if _, err := http.Get(url); err == nil {
		t.Error("server still accepting after shutdown")
	}
	if err := f.srv.Shutdown(context.Background()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
