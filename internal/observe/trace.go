package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for every span in this module.
const tracerName = "github.com/LiorLearning/social-story"

// Tracer returns the module's [trace.Tracer] from the globally registered
// provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span named name. The caller must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// spanCtx returns the span context in ctx when it carries a usable trace ID.
func spanCtx(ctx context.Context) (trace.SpanContext, bool) {
	sc := trace.SpanContextFromContext(ctx)
	return sc, sc.HasTraceID()
}

// CorrelationID is the trace ID of the active span in ctx, or empty when
// there is none. It is what the X-Correlation-ID response header carries.
func CorrelationID(ctx context.Context) string {
	sc, ok := spanCtx(ctx)
	if !ok {
		return ""
	}
	return sc.TraceID().String()
}

// Logger returns the default [slog.Logger], enriched with trace_id and
// span_id when ctx carries an active span.
func Logger(ctx context.Context) *slog.Logger {
	sc, ok := spanCtx(ctx)
	if !ok {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
