package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/yamldoctor/internal/config"
	"github.com/haasonsaas/yamldoctor/internal/diagnostics"
	"github.com/haasonsaas/yamldoctor/internal/doctor"
	"github.com/haasonsaas/yamldoctor/internal/format"
	"github.com/haasonsaas/yamldoctor/internal/observability"
	"github.com/haasonsaas/yamldoctor/internal/watch"
)

// =============================================================================
// Validate
// =============================================================================

func runValidate(cmd *cobra.Command, args []string, output string, noRules bool) error {
	if err := checkOutput(output); err != nil {
		return err
	}
	text, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := observability.WithFile(cmd.Context(), name)
	defer rt.Close(ctx)

	start := time.Now()
	outcome := rt.doctor(noRules).Validate(ctx, text)
	if output == "json" {
		if err := writeJSON(cmd.OutOrStdout(), outcome); err != nil {
			return err
		}
	} else {
		printOutcome(cmd.OutOrStdout(), name, outcome, time.Since(start))
	}
	if !outcome.OK {
		return errIssuesRemain
	}
	return nil
}

func printOutcome(out io.Writer, name string, outcome diagnostics.Outcome, elapsed time.Duration) {
	errs, warns := outcome.Errors(), outcome.Warnings()
	took := format.Elapsed(elapsed)
	switch {
	case len(errs) > 0:
		fmt.Fprintf(out, "%s: %d error(s), %d warning(s) (%s)\n", name, len(errs), len(warns), took)
	case len(warns) > 0:
		fmt.Fprintf(out, "%s: ok with %d warning(s) (%s)\n", name, len(warns), took)
	default:
		fmt.Fprintf(out, "%s: ok (%s)\n", name, took)
	}
	for _, issue := range outcome.Issues {
		fmt.Fprintf(out, "  %s\n", issue)
	}
}

// =============================================================================
// Format / Convert
// =============================================================================

func runFormat(cmd *cobra.Command, args []string, write bool) error {
	if write && (len(args) == 0 || args[0] == "-") {
		return errors.New("--write needs a file path")
	}
	text, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := observability.WithFile(cmd.Context(), name)
	defer rt.Close(ctx)

	formatted, err := rt.doctor(true).Format(ctx, text)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if write {
		return writeBack(ctx, rt, cmd.ErrOrStderr(), name, formatted)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), formatted)
	return err
}

func runConvert(cmd *cobra.Command, args []string) error {
	text, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := observability.WithFile(cmd.Context(), name)
	defer rt.Close(ctx)

	converted, err := rt.doctor(true).ConvertJSON(ctx, text)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), converted)
	return err
}

// =============================================================================
// Repair
// =============================================================================

type repairReport struct {
	File        string                 `json:"file"`
	Elapsed     string                 `json:"elapsed"`
	Step        string                 `json:"step,omitempty"`
	Attempts    []attemptReport        `json:"attempts"`
	Reformatted bool                   `json:"reformatted,omitempty"`
	Fixed       string                 `json:"fixed,omitempty"`
	Backup      string                 `json:"backup,omitempty"`
	Outcome     diagnostics.Outcome    `json:"outcome"`
	Fixes       []diagnostics.FixEntry `json:"fixes,omitempty"`
}

type attemptReport struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func runRepair(cmd *cobra.Command, args []string, flags repairFlags) error {
	if err := checkOutput(flags.output); err != nil {
		return err
	}
	if flags.write && (len(args) == 0 || args[0] == "-") {
		return errors.New("--write needs a file path")
	}
	text, name, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := observability.WithFile(cmd.Context(), name)
	defer rt.Close(ctx)

	autoFormat := rt.cfg.AutoFormat() && !flags.noFormat
	start := time.Now()
	result := rt.doctor(flags.noRules).Repair(ctx, text, doctor.RepairOptions{
		AutoFormat:  autoFormat,
		DomainRules: rt.cfg.RulesEnabled() && !flags.noRules,
	})

	report := repairReport{
		File:        name,
		Elapsed:     format.Elapsed(time.Since(start)),
		Step:        result.Step,
		Reformatted: result.Reformatted,
		Outcome:     result.Outcome,
		Fixes:       result.Fixes,
	}
	for _, a := range result.Attempts {
		ar := attemptReport{Step: a.Name, OK: a.OK}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		report.Attempts = append(report.Attempts, ar)
	}

	if result.Fixed != "" && flags.write && result.Fixed != text {
		backupPath, err := doctor.WriteFile(name, result.Fixed, rt.cfg.BackupEnabled())
		if err != nil {
			rt.logger.Error(ctx, "failed to write repaired file", "error", err)
			return fmt.Errorf("write %s: %w", name, err)
		}
		report.Backup = backupPath
		rt.logger.Info(ctx, "repaired file written", "backup", backupPath)
	}

	if flags.output == "json" {
		if !flags.write {
			report.Fixed = result.Fixed
		}
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		if result.Fixed != "" && !flags.write {
			if _, err := io.WriteString(cmd.OutOrStdout(), result.Fixed); err != nil {
				return err
			}
		}
		printRepair(cmd.ErrOrStderr(), report)
	}

	if !result.Outcome.OK {
		return errIssuesRemain
	}
	return nil
}

func printRepair(out io.Writer, report repairReport) {
	if report.Step == "" {
		fmt.Fprintf(out, "%s: could not repair (%s)\n", report.File, report.Elapsed)
	} else {
		fmt.Fprintf(out, "%s: parsed after %s (%s)\n", report.File, report.Step, report.Elapsed)
	}
	for _, fix := range report.Fixes {
		fmt.Fprintf(out, "  fixed %s\n", fix)
	}
	if report.Reformatted {
		fmt.Fprintln(out, "  layout could not be kept; document was re-printed")
	}
	if report.Backup != "" {
		fmt.Fprintf(out, "  backup: %s\n", report.Backup)
	}
	if report.Outcome.Partial {
		fmt.Fprintln(out, "  partial fix; remaining issues:")
	}
	for _, issue := range report.Outcome.Issues {
		fmt.Fprintf(out, "  %s\n", issue)
	}
}

// =============================================================================
// Watch
// =============================================================================

func runWatch(cmd *cobra.Command, args []string, debounce time.Duration) error {
	rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer rt.Close(context.Background())

	if debounce <= 0 {
		debounce = rt.cfg.DebounceDuration()
	}
	doc := rt.doctor(false)
	out := cmd.OutOrStdout()
	check := func(ctx context.Context, path string) {
		ctx = observability.WithFile(ctx, path)
		data, err := os.ReadFile(path)
		if err != nil {
			rt.logger.Error(ctx, "failed to read watched file", "error", err)
			return
		}
		start := time.Now()
		outcome := doc.Validate(ctx, string(data))
		printOutcome(out, path, outcome, time.Since(start))
	}

	for _, path := range args {
		check(ctx, path)
	}
	w, err := watch.New(args, check, watch.Options{
		Debounce: debounce,
		Logger:   rt.logger,
		Metrics:  rt.metrics,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// =============================================================================
// Schema / Sample
// =============================================================================

func runSchema(cmd *cobra.Command) error {
	schema, err := config.JSONSchema()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(schema); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}

func runSample(cmd *cobra.Command) error {
	_, err := io.WriteString(cmd.OutOrStdout(), sampleDocument)
	return err
}

// =============================================================================
// Helpers
// =============================================================================

func checkOutput(output string) error {
	switch output {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", output)
	}
}

func writeBack(ctx context.Context, rt *runtime, out io.Writer, path, content string) error {
	backupPath, err := doctor.WriteFile(path, content, rt.cfg.BackupEnabled())
	if err != nil {
		rt.logger.Error(ctx, "failed to write file", "error", err)
		return fmt.Errorf("write %s: %w", path, err)
	}
	rt.logger.Info(ctx, "file written", "backup", backupPath)
	if backupPath != "" {
		fmt.Fprintf(out, "%s: written (backup: %s)\n", path, backupPath)
	} else {
		fmt.Fprintf(out, "%s: written\n", path)
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
