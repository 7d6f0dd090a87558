// Package doctor exposes the boundary operations of yamldoctor: parse,
// validate, format, convert and repair. Each call is independent and safe
// to run concurrently.
package doctor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/document"
	"github.com/haasonsaas/yamldoctor/internal/frigate"
	"github.com/haasonsaas/yamldoctor/internal/observability"
	"github.com/haasonsaas/yamldoctor/internal/repair"
)

// Doctor runs the operations with shared logging, metrics and tracing.
type Doctor struct {
	pipeline *repair.Pipeline
	rules    bool
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// Option configures a Doctor.
type Option func(*Doctor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *observability.Logger) Option {
	return func(d *Doctor) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink. Without one nothing is recorded.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(d *Doctor) {
		d.metrics = metrics
	}
}

// WithTracer sets the tracer. The default is a no-op tracer.
func WithTracer(tracer *observability.Tracer) Option {
	return func(d *Doctor) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithRules toggles the camera rule validator in Validate.
func WithRules(enabled bool) Option {
	return func(d *Doctor) {
		d.rules = enabled
	}
}

// WithPipeline replaces the default repair pipeline.
func WithPipeline(p *repair.Pipeline) Option {
	return func(d *Doctor) {
		if p != nil {
			d.pipeline = p
		}
	}
}

// New creates a Doctor with domain rules enabled.
func New(opts ...Option) *Doctor {
	d := &Doctor{
		pipeline: repair.NewPipeline(),
		rules:    true,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.tracer == nil {
		d.tracer, _ = observability.NewTracer(observability.TraceConfig{})
	}
	return d
}

// Parse parses text without running any rules.
func (d *Doctor) Parse(text string) document.ParseResult {
	return document.Parse(text)
}

// Validate parses text and, when it parses and rules are enabled, runs the
// camera rule validator on the tree.
func (d *Doctor) Validate(ctx context.Context, text string) diagnostics.Outcome {
	ctx, span, start := d.begin(ctx, "validate")
	defer span.End()

	outcome := d.validate(text, d.rules)
	d.recordIssues(outcome.Issues)
	status := "ok"
	if !outcome.OK {
		status = "invalid"
	}
	d.tracer.SetAttributes(span, "issues", len(outcome.Issues), "ok", outcome.OK)
	d.finish(ctx, "validate", status, start, "issues", len(outcome.Issues))
	return outcome
}

func (d *Doctor) validate(text string, rules bool) diagnostics.Outcome {
	parsed := document.Parse(text)
	if !parsed.OK() {
		return diagnostics.SyntaxOutcome(parsed.Errors)
	}
	var issues []diagnostics.Issue
	if rules {
		issues = frigate.Validate(parsed.Tree)
	}
	return diagnostics.NewOutcome(parsed.Tree, issues)
}

// Format re-prints text with the standard layout. It fails with the first
// parse error when text does not parse.
func (d *Doctor) Format(ctx context.Context, text string) (string, error) {
	ctx, span, start := d.begin(ctx, "format")
	defer span.End()

	parsed := document.Parse(text)
	if !parsed.OK() {
		err := parsed.FirstError()
		d.tracer.RecordError(span, err)
		d.finish(ctx, "format", "invalid", start, "line", err.Line)
		return "", err
	}
	out, err := d.print(ctx, parsed.Tree)
	if err != nil {
		d.tracer.RecordError(span, err)
		d.finish(ctx, "format", "error", start)
		return "", err
	}
	d.finish(ctx, "format", "ok", start)
	return out, nil
}

// ConvertJSON decodes a JSON or JSON5 literal and prints it as YAML.
// Decoding failures are *document.ConversionError.
func (d *Doctor) ConvertJSON(ctx context.Context, text string) (string, error) {
	ctx, span, start := d.begin(ctx, "convert")
	defer span.End()

	tree, err := document.FromJSON(text)
	if err != nil {
		d.tracer.RecordError(span, err)
		d.finish(ctx, "convert", "invalid", start)
		return "", err
	}
	out, err := d.print(ctx, tree)
	if err != nil {
		d.tracer.RecordError(span, err)
		d.finish(ctx, "convert", "error", start)
		return "", err
	}
	d.finish(ctx, "convert", "ok", start)
	return out, nil
}

// print renders tree inside its own span.
func (d *Doctor) print(ctx context.Context, tree *document.Node) (string, error) {
	var out string
	err := observability.WithSpan(ctx, d.tracer, "document.print", func(_ context.Context, span trace.Span) error {
		var err error
		out, err = document.Print(tree)
		d.tracer.SetAttributes(span, "bytes", len(out))
		return err
	})
	return out, err
}

// begin attaches a run ID and operation name to ctx and opens the root span.
func (d *Doctor) begin(ctx context.Context, operation string) (context.Context, trace.Span, time.Time) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observability.RunID(ctx) == "" {
		ctx = observability.WithRunID(ctx, uuid.NewString())
	}
	ctx = observability.WithOperation(ctx, operation)
	ctx, span := d.tracer.TraceOperation(ctx, operation)
	return ctx, span, time.Now()
}

func (d *Doctor) finish(ctx context.Context, operation, status string, start time.Time, args ...any) {
	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.RecordOperation(operation, status, elapsed.Seconds())
	}
	args = append([]any{"status", status, "duration", elapsed}, args...)
	if traceID := observability.GetTraceID(ctx); traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	d.logger.Debug(ctx, operation+" finished", args...)
}

func (d *Doctor) recordIssues(issues []diagnostics.Issue) {
	if d.metrics == nil {
		return
	}
	for _, issue := range issues {
		d.metrics.RecordIssue(string(issue.Category), string(issue.Severity))
	}
}
