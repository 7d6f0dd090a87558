package doctor

import (
	"context"
	"errors"

	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/document"
	"github.com/haasonsaas/yamldoctor/internal/frigate"
	"github.com/haasonsaas/yamldoctor/internal/repair"
)

// RepairOptions controls a Repair call.
type RepairOptions struct {
	// AutoFormat re-prints the result. When false, camera fixes are patched
	// into the repaired text so its layout and comments survive.
	AutoFormat bool
	// DomainRules runs the camera validator and auto-fixer after the
	// document parses.
	DomainRules bool
}

// RepairResult is the outcome of Repair.
type RepairResult struct {
	// Fixed is the repaired text, empty when no transform made it parse.
	Fixed   string
	Outcome diagnostics.Outcome
	// Step names the transform whose output first parsed.
	Step     string
	Attempts []repair.Attempt
	Fixes    []diagnostics.FixEntry
	// Reformatted is set when AutoFormat was off but the fixes could not be
	// patched in place, so the whole tree was re-printed.
	Reformatted bool
}

// Repair runs the transform pipeline and, with domain rules on, the camera
// auto-fixer. The outcome is partial when issues remain after fixing.
func (d *Doctor) Repair(ctx context.Context, text string, opts RepairOptions) RepairResult {
	ctx, span, start := d.begin(ctx, "repair")
	defer span.End()

	res := d.pipeline.RunObserved(text, opts.AutoFormat, d.observeStep(ctx))
	result := RepairResult{Step: res.Step, Attempts: res.Attempts}
	if !res.OK() {
		d.tracer.RecordError(span, res.Err)
		result.Outcome = diagnostics.SyntaxOutcome([]document.ParseError{*res.Err})
		d.recordIssues(result.Outcome.Issues)
		d.logger.Warn(ctx, "repair failed", "error", res.Err.Message, "attempts", len(res.Attempts))
		d.finish(ctx, "repair", "error", start)
		return result
	}
	d.tracer.SetAttributes(span, "step", res.Step)

	result.Fixed = res.Fixed
	if !opts.DomainRules {
		result.Outcome = diagnostics.NewOutcome(res.Tree, nil)
		d.finish(ctx, "repair", "fixed", start, "step", res.Step)
		return result
	}

	issues := frigate.Validate(res.Tree)
	if len(issues) == 0 {
		result.Outcome = diagnostics.NewOutcome(res.Tree, nil)
		d.finish(ctx, "repair", "fixed", start, "step", res.Step)
		return result
	}

	fix := frigate.AutoFix(res.Tree, issues)
	remaining := frigate.Validate(fix.Fixed)
	result.Fixes = fix.Log
	result.Outcome = diagnostics.NewOutcome(fix.Fixed, remaining)
	result.Outcome.Fixes = fix.Log
	result.Outcome.Partial = len(remaining) > 0
	d.recordIssues(remaining)
	if d.metrics != nil {
		for _, entry := range fix.Log {
			d.metrics.RecordFix(string(entry.Reason))
		}
	}

	if len(fix.Log) > 0 {
		result.Fixed, result.Reformatted = d.render(ctx, res, fix, opts.AutoFormat)
	}

	status := "fixed"
	if result.Outcome.Partial {
		status = "partial"
	}
	d.tracer.SetAttributes(span, "fixes", len(fix.Log), "remaining", len(remaining))
	d.logger.Info(ctx, "repair finished",
		"step", res.Step,
		"fixes", len(fix.Log),
		"remaining", len(remaining),
	)
	d.finish(ctx, "repair", status, start, "step", res.Step)
	return result
}

// render produces the text for a fixed tree. Without auto-format the fix log
// edits are applied to the parsed candidate; the result is kept only when it
// parses back to exactly the fixed tree.
func (d *Doctor) render(ctx context.Context, res repair.Result, fix frigate.Result, autoFormat bool) (string, bool) {
	if !autoFormat {
		patched, err := patch(res.Candidate, fix)
		if err == nil {
			return patched, false
		}
		d.logger.Debug(ctx, "falling back to re-print", "reason", err.Error())
	}
	printed, err := document.Print(fix.Fixed)
	if err != nil {
		d.logger.Warn(ctx, "re-print failed", "error", err)
		return res.Fixed, false
	}
	return printed, !autoFormat
}

var errPatchMismatch = errors.New("patched text does not match the fixed tree")

func patch(text string, fix frigate.Result) (string, error) {
	edits := make([]document.Edit, 0, len(fix.Log))
	for _, entry := range fix.Log {
		edits = append(edits, entry.Edit)
	}
	patched, err := document.ApplyEdits(text, edits)
	if err != nil {
		return "", err
	}
	parsed := document.Parse(patched)
	if !parsed.OK() || !document.Equal(parsed.Tree, fix.Fixed) {
		return "", errPatchMismatch
	}
	return patched, nil
}

// observeStep opens a span per pipeline attempt and counts the result.
func (d *Doctor) observeStep(ctx context.Context) repair.StepObserver {
	return func(step string) func(repair.Attempt) {
		_, span := d.tracer.TraceRepairStep(ctx, step)
		return func(a repair.Attempt) {
			defer span.End()
			d.tracer.SetAttributes(span, "parsed", a.OK)
			if a.Err != nil {
				d.tracer.SetAttributes(span, "error.line", a.Err.Line, "error.message", a.Err.Message)
			}
			if d.metrics != nil {
				d.metrics.RecordRepairStep(step, a.OK)
			}
		}
	}
}

