package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/exceller/pkg/history"
	"mercator-hq/exceller/pkg/history/export"
	"mercator-hq/exceller/pkg/runner"
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/transform/value"
)

// RunIDHeader carries the run ID of a transform response.
const RunIDHeader = "X-Run-ID"

// TransformResponse is the body of a successful transform.
type TransformResponse struct {
	RunID  string `json:"run_id"`
	Result any    `json:"result"`
}

// SchemaInfo describes a loaded schema.
type SchemaInfo struct {
	Name     string    `json:"name"`
	Hash     string    `json:"hash"`
	Size     int64     `json:"size"`
	LoadedAt time.Time `json:"loaded_at"`
}

// SchemasResponse is the body of GET /v1/schemas.
type SchemasResponse struct {
	Version string       `json:"version"`
	Schemas []SchemaInfo `json:"schemas"`
}

// handleTransform runs the named schema against the request context.
//
//	POST /v1/transform/invoice
//	{"context": {"customer": {"name": "Ada"}}}
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("schema")
	entry, err := s.deps.Schemas.Get(name)
	if err != nil {
		status, kind := statusFor(err)
		writeError(w, status, kind, err.Error(), "")
		return
	}

	if limit := s.cfg.Server.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		status, kind := statusFor(err)
		if kind == KindInternal {
			status, kind = http.StatusBadRequest, KindBadRequest
		}
		writeError(w, status, kind, "failed to read request body: "+err.Error(), "")
		return
	}

	ctx, err := requestContext(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindBadRequest, err.Error(), "")
		return
	}

	res, err := s.deps.Runner.Run(r.Context(), runner.Request{
		Schema:        entry.Name,
		SchemaVersion: s.deps.Schemas.Version(),
		Node:          entry.Node,
		Context:       ctx,
	})
	if res != nil {
		w.Header().Set(RunIDHeader, res.RunID)
	}
	if err != nil {
		status, kind := statusFor(err)
		runID := ""
		if res != nil {
			runID = res.RunID
		}
		writeError(w, status, kind, schemaerrors.MessageOf(err), runID)
		return
	}
	writeJSON(w, http.StatusOK, TransformResponse{RunID: res.RunID, Result: res.Value})
}

// requestContext extracts the "context" member of a transform body. An
// empty body or a missing member is an empty context.
func requestContext(data []byte) (*value.Map, error) {
	body, err := runner.DecodeContext(data)
	if err != nil {
		return nil, err
	}
	v, ok := body.Get("context")
	if !ok || v == nil {
		return value.NewMap(), nil
	}
	m, ok := v.(*value.Map)
	if !ok {
		return nil, fmt.Errorf("context must be a JSON object, got %s", value.KindOf(v))
	}
	return m, nil
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	entries := s.deps.Schemas.List()
	resp := SchemasResponse{
		Version: s.deps.Schemas.Version(),
		Schemas: make([]SchemaInfo, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Schemas = append(resp.Schemas, SchemaInfo{
			Name:     e.Name,
			Hash:     e.Hash,
			Size:     e.Size,
			LoadedAt: e.LoadedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRuns lists history records.
//
//	GET /v1/runs?schema=invoice&status=error&limit=20&format=csv
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q, err := parseRunsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindBadRequest, err.Error(), "")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	exporter, err := export.ForFormat(format, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, KindBadRequest, err.Error(), "")
		return
	}

	records, err := s.deps.History.Query(r.Context(), q)
	if err != nil {
		var qe *history.QueryError
		if errors.As(err, &qe) {
			writeError(w, http.StatusBadRequest, KindBadRequest, err.Error(), "")
			return
		}
		s.logger.ErrorContext(r.Context(), "History query failed", "error", err)
		writeError(w, http.StatusInternalServerError, KindInternal, "history query failed", "")
		return
	}

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := exporter.Export(r.Context(), records, w); err != nil {
		s.logger.ErrorContext(r.Context(), "History export failed", "error", err)
	}
}

func parseRunsQuery(r *http.Request) (*history.Query, error) {
	params := r.URL.Query()
	q := &history.Query{
		Schema:    params.Get("schema"),
		Status:    params.Get("status"),
		SortOrder: params.Get("order"),
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		if raw := params.Get(p.name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q", p.name, raw)
			}
			*p.dst = n
		}
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &q.StartTime}, {"until", &q.EndTime}} {
		if raw := params.Get(p.name); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: want RFC 3339", p.name, raw)
			}
			*p.dst = &t
		}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q.ApplyDefaults()
	return q, nil
}
