package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with helpers for the operations and
// repair steps of a run.
//
// Usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "yamldoctor",
//	    Endpoint:    "localhost:4317",
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceOperation(ctx, "repair")
//	defer span.End()
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TraceConfig
}

// TraceConfig configures tracing.
type TraceConfig struct {
	// ServiceName identifies this program in traces
	ServiceName string

	// ServiceVersion identifies the build
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled
	Endpoint string

	// SamplingRate is the fraction of runs traced; 0 means all of them
	SamplingRate float64

	// Insecure disables TLS for the OTLP connection
	Insecure bool
}

// NewTracer creates a tracer and a shutdown function that flushes pending
// spans. Without an endpoint, or when the exporter cannot be built, the
// global no-op tracer is used and shutdown does nothing.
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	if config.ServiceName == "" {
		config.ServiceName = "yamldoctor"
	}
	noop := &Tracer{tracer: otel.Tracer(config.ServiceName), config: config}
	if config.Endpoint == "" {
		return noop, func(context.Context) error { return nil }
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, config)
	if err != nil {
		return noop, func(context.Context) error { return nil }
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
	))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(config.SamplingRate)),
	)
	return NewTracerWithProvider(provider, config), provider.Shutdown
}

func newExporter(ctx context.Context, config TraceConfig) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

// sampler maps a rate to a sampler. Zero means unset and samples everything.
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate == 0 || rate >= 1:
		return sdktrace.AlwaysSample()
	case rate < 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// NewTracerWithProvider builds a tracer on an existing SDK provider, e.g.
// one backed by an in-memory span recorder.
func NewTracerWithProvider(provider *sdktrace.TracerProvider, config TraceConfig) *Tracer {
	if config.ServiceName == "" {
		config.ServiceName = "yamldoctor"
	}
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(config.ServiceName),
		config:   config,
	}
}

// Start creates a new span and returns a context containing it.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if len(attrs) == 0 {
		return t.tracer.Start(ctx, name)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceOperation starts the root span of a validate, format, convert or
// repair call.
func (t *Tracer) TraceOperation(ctx context.Context, operation string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("operation", operation)}
	if id := RunID(ctx); id != "" {
		attrs = append(attrs, attribute.String("run_id", id))
	}
	return t.Start(ctx, "yamldoctor."+operation, attrs...)
}

// TraceRepairStep starts a span for one pipeline attempt.
func (t *Tracer) TraceRepairStep(ctx context.Context, step string) (context.Context, trace.Span) {
	return t.Start(ctx, "repair.step", attribute.String("step", step))
}

// RecordError records an error on the span and sets the span status to error.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetAttributes sets key-value pairs on a span. Non-string keys are skipped.
func (t *Tracer) SetAttributes(span trace.Span, keyvals ...any) {
	attrs := make([]attribute.KeyValue, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals)-1; i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, attributeFromValue(key, keyvals[i+1]))
	}
	span.SetAttributes(attrs...)
}

func attributeFromValue(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// WithSpan runs fn inside a span and records its error, if any.
func WithSpan(ctx context.Context, tracer *Tracer, name string, fn func(context.Context, trace.Span) error) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	err := fn(ctx, span)
	if err != nil {
		tracer.RecordError(span, err)
	}
	return err
}

// GetTraceID returns the trace ID from the context, or "" when no trace is
// active.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
