// Package telemetry opens tracing spans around LM calls and tool
// invocations so the retry/fallback/degradation sequence of the LM
// Client's tool-choice enforcement contract is reconstructable as a
// trace, not just a sequence of log lines. The pattern is grounded on
// basegraphhq-basegraph and goadesign-goa-ai, which both wire
// go.opentelemetry.io/otel around their request paths.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "revcore"

// Tracer returns the package-scoped tracer. Callers needn't configure a
// provider; the global no-op provider is used until the host process
// registers a real one via otel.SetTracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span with the given name and key/value attributes.
func StartSpan(ctx context.Context, name string, kv ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(kv...))
}

// RecordAttempt annotates the current span with a retry/fallback attempt
// outcome, used by the LM Client's degradation path so each of the three
// attempts (with tool-choice, without tool-choice, without tools) is
// visible on the span.
func RecordAttempt(span trace.Span, attempt int, description string, err error) {
	span.AddEvent("attempt", trace.WithAttributes(
		attribute.Int("attempt.number", attempt),
		attribute.String("attempt.description", description),
		attribute.Bool("attempt.failed", err != nil),
	))
	if err != nil {
		span.RecordError(err)
	}
}
