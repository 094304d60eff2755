// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - PII redaction of attribute values (API keys, emails, card numbers)
//   - Context fields (request, run and schema identifiers) added to records
//
// The redaction and context handling live in a slog.Handler, so the
// *slog.Logger returned by Slog can be passed to the transformation engine
// and the schema store unchanged.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithSchema(ctx, "orders")
//	logger.InfoContext(ctx, "transformation finished", "duration_ms", 12)
//
// # PII Redaction
//
// When RedactPII is enabled, string values are scanned in order:
//
//   - Bearer tokens: Bearer abc.def → Bearer ***
//   - API keys: sk-abc123xyz → sk-***
//   - Emails: user@example.com → ***@***
//   - Card numbers: 4111 1111 1111 1111 → ****-****-****-****
//   - SSN: 123-45-6789 → ***-**-****
//
// Attributes whose key looks sensitive ("password", "token", "secret", ...)
// are masked entirely.
package logging
