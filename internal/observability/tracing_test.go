package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return NewTracerWithProvider(provider, TraceConfig{}), recorder
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewTracerWithoutEndpoint(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test-service"})
	defer func() { _ = shutdown(context.Background()) }()

	if tracer == nil || tracer.tracer == nil {
		t.Fatal("NewTracer() returned no tracer")
	}
	if tracer.provider != nil {
		t.Error("expected no SDK provider without an endpoint")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	span.End()
	if GetTraceID(ctx) != "" {
		t.Error("no-op tracer produced a trace ID")
	}
}

func TestTraceOperation(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	ctx := WithRunID(context.Background(), "run-1")
	ctx, span := tracer.TraceOperation(ctx, "repair")
	if GetTraceID(ctx) == "" {
		t.Error("expected an active trace ID")
	}
	_, step := tracer.TraceRepairStep(ctx, "trailing-commas")
	step.End()
	span.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	stepSpan, opSpan := spans[0], spans[1]
	if opSpan.Name() != "yamldoctor.repair" {
		t.Errorf("operation span name = %q", opSpan.Name())
	}
	if v, ok := attr(opSpan.Attributes(), "run_id"); !ok || v.AsString() != "run-1" {
		t.Errorf("run_id attribute = %v, %v", v, ok)
	}
	if stepSpan.Parent().SpanID() != opSpan.SpanContext().SpanID() {
		t.Error("step span is not a child of the operation span")
	}
	if v, ok := attr(stepSpan.Attributes(), "step"); !ok || v.AsString() != "trailing-commas" {
		t.Errorf("step attribute = %v, %v", v, ok)
	}
}

func TestWithSpanRecordsError(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	wantErr := errors.New("boom")
	err := WithSpan(context.Background(), tracer, "convert", func(_ context.Context, span trace.Span) error {
		tracer.SetAttributes(span, "bytes", 42, "format", "json", 7, "skipped")
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithSpan() error = %v, want %v", err, wantErr)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", s.Status().Code)
	}
	if len(s.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
	if v, ok := attr(s.Attributes(), "bytes"); !ok || v.AsInt64() != 42 {
		t.Errorf("bytes attribute = %v, %v", v, ok)
	}
	if len(s.Attributes()) != 2 {
		t.Errorf("attributes = %v, want 2", s.Attributes())
	}
}

func TestRecordErrorWithNil(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "ok")
	tracer.RecordError(span, nil)
	span.End()

	if got := recorder.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("status = %v, want unset", got)
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{-1, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}
