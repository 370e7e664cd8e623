// Package motel wraps span creation so service-layer code never imports
// go.opentelemetry.io/otel directly, mirroring the teacher's
// pkg/mopentelemetry helpers (HandleSpanError, NewTracerFromContext).
package motel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tanakasan3/lana-bank-sub001"

// Start begins a span named "<layer>.<operation>" under the package tracer.
func Start(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

// HandleSpanError records err on span and marks it as an error status,
// returning err unchanged so callers can `return HandleSpanError(...)`.
func HandleSpanError(span trace.Span, description string, err error) error {
	if err == nil {
		return nil
	}

	span.RecordError(err, trace.WithAttributes(attribute.String("error.message", description)))
	span.SetStatus(codes.Error, description)

	return err
}
