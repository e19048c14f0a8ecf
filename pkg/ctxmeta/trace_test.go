package ctxmeta_test

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Gunvolt24/kafka_transformer/pkg/ctxmeta"
)

func TestTraceAndSpanIDs_FromSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "transformer.transform")
	defer span.End()

	traceID, ok := ctxmeta.TraceIDFromContext(ctx)
	if !ok || traceID != span.SpanContext().TraceID().String() {
		t.Fatalf("traceID=%q ok=%v, want %s", traceID, ok, span.SpanContext().TraceID())
	}
	spanID, ok := ctxmeta.SpanIDFromContext(ctx)
	if !ok || spanID != span.SpanContext().SpanID().String() {
		t.Fatalf("spanID=%q ok=%v, want %s", spanID, ok, span.SpanContext().SpanID())
	}
}

func TestTraceAndSpanIDs_NoSpan(t *testing.T) {
	var nilCtx context.Context
	for _, ctx := range []context.Context{context.Background(), nilCtx} {
		if id, ok := ctxmeta.TraceIDFromContext(ctx); ok || id != "" {
			t.Fatalf("TraceIDFromContext => %q,%v; want \"\", false", id, ok)
		}
		if id, ok := ctxmeta.SpanIDFromContext(ctx); ok || id != "" {
			t.Fatalf("SpanIDFromContext => %q,%v; want \"\", false", id, ok)
		}
	}
}
