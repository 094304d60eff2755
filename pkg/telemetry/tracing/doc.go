// Package tracing exports OpenTelemetry spans for exceller.
//
// Each transformation run gets a "transform.run" span carrying the schema
// name and run ID; HTTP requests get a server span that continues any W3C
// traceparent sent by the caller.
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, version)
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.StartRun(ctx, "invoice", runID)
//	out, err := transform.ResolveDocument(node, record, nil)
//	tracing.EndRun(span, err)
//
// Spans are exported over OTLP gRPC. When tracing is disabled every call
// is a no-op.
package tracing
