// Package telemetry groups the observability packages of exceller.
//
//   - logging: structured slog logging with PII redaction
//   - metrics: Prometheus metrics for runs, node resolutions, schema reloads
//     and history writes
//   - tracing: OpenTelemetry spans for runs and HTTP requests
//   - health: liveness and readiness probes
//
// Transformation records frequently carry personal data, so redaction is
// on by default and applies to every attribute passed to the logger.
package telemetry
