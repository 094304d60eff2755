// Package server exposes schemas over HTTP.
//
// Routes:
//
//	POST /v1/transform/{schema}   run a schema against {"context": {...}}
//	GET  /v1/schemas              list loaded schemas
//	GET  /v1/runs                 query run history (json or csv)
//	GET  /healthz, /readyz        liveness and readiness probes
//	GET  /version                 build information
//
// Transformation failures answer 422 with {"error": {"kind", "message"}}
// where kind is the schema error kind, e.g. "context_key".
//
// When server.api_keys is set the /v1 routes require a key, sent either as
// "Authorization: Bearer <key>" or in the X-API-Key header. Probes and
// /version stay open.
package server
