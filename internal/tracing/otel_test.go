package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSpan(context.Background(), "test", "tool.execute", AttrToolName.String("echo"))
	if !span.SpanContext().IsValid() {
		t.Fatal("Expected a sampled span")
	}
	_, child := StartSpan(ctx, "test", "child")
	if child.SpanContext().TraceID() != span.SpanContext().TraceID() {
		t.Error("Expected child span to share the trace")
	}
	EndSpan(child, "")
	EndSpan(span, "boom")

	ended := recorder.Ended()
	if len(ended) != 2 {
		t.Fatalf("Expected 2 ended spans, got %d", len(ended))
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("Expected ok status on child, got %v", ended[0].Status().Code)
	}
	if ended[1].Name() != "tool.execute" {
		t.Errorf("Expected span name tool.execute, got %s", ended[1].Name())
	}
	if ended[1].Status().Code != codes.Error {
		t.Errorf("Expected error status, got %v", ended[1].Status().Code)
	}
	if got := ended[1].Attributes(); len(got) != 1 || got[0].Value.AsString() != "echo" {
		t.Errorf("Expected tool.name attribute, got %v", got)
	}
}

func TestStartSpanNilContext(t *testing.T) {
	ctx, span := StartSpan(nil, "test", "noop")
	defer EndSpan(span, "")

	if ctx == nil {
		t.Fatal("Expected a context")
	}
}

func TestInitAndShutdownOpenTelemetry(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	if err := InitOpenTelemetry("toolhub-test"); err != nil {
		t.Fatalf("InitOpenTelemetry failed: %v", err)
	}
	if err := InitOpenTelemetry("toolhub-test"); err != nil {
		t.Fatalf("Second InitOpenTelemetry failed: %v", err)
	}
	if err := ShutdownOpenTelemetry(context.Background()); err != nil {
		t.Fatalf("ShutdownOpenTelemetry failed: %v", err)
	}
	if err := ShutdownOpenTelemetry(context.Background()); err != nil {
		t.Fatalf("Second ShutdownOpenTelemetry failed: %v", err)
	}
}
