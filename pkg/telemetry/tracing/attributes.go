package tracing

import (
	schemaerrors "mercator-hq/exceller/pkg/schema/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys in the exceller namespace.
const (
	AttrSchema      = "exceller.schema"
	AttrRunID       = "exceller.run_id"
	AttrErrorKind   = "exceller.error.kind"
	AttrInputBytes  = "exceller.input.bytes"
	AttrOutputBytes = "exceller.output.bytes"
	AttrHTTPMethod  = "http.method"
	AttrHTTPRoute   = "http.route"
	AttrHTTPStatus  = "http.status_code"
)

// SetPayloadSizes records the encoded input and output sizes of a run.
func SetPayloadSizes(span trace.Span, in, out int) {
	span.SetAttributes(
		attribute.Int(AttrInputBytes, in),
		attribute.Int(AttrOutputBytes, out),
	)
}

// SetError records err on span together with its schema error kind. A nil
// err is ignored.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	kind := string(schemaerrors.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	span.SetAttributes(attribute.String(AttrErrorKind, kind))
	span.RecordError(err)
}

// SetStatus sets the span status from err.
func SetStatus(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, schemaerrors.MessageOf(err))
		return
	}
	span.SetStatus(codes.Ok, "")
}
