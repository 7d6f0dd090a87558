package main

// config.go wires the tool configuration into the logger, metrics, tracer and
// doctor shared by every command, and reads command input.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/haasonsaas/yamldoctor/internal/config"
	"github.com/haasonsaas/yamldoctor/internal/doctor"
	"github.com/haasonsaas/yamldoctor/internal/observability"
)

const stdinName = "<stdin>"

// runtime holds what a command needs for one invocation.
type runtime struct {
	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	shutdown func(context.Context) error
}

// loadConfig loads --config when given, otherwise the discovered file.
func loadConfig() (*config.Config, string, error) {
	if path := strings.TrimSpace(configPath); path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	return config.LoadDefault()
}

func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.Logging.Format
	if logFormat != "" {
		format = logFormat
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	})
	if path != "" {
		logger.Debug(cmd.Context(), "loaded config", "path", path)
	}

	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "yamldoctor",
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Insecure:       cfg.Tracing.Insecure,
	})

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(nil),
		tracer:   tracer,
		shutdown: shutdown,
	}, nil
}

// doctor builds a Doctor; noRules turns the camera rules off for this call.
func (r *runtime) doctor(noRules bool) *doctor.Doctor {
	return doctor.New(
		doctor.WithLogger(r.logger),
		doctor.WithMetrics(r.metrics),
		doctor.WithTracer(r.tracer),
		doctor.WithRules(r.cfg.RulesEnabled() && !noRules),
	)
}

// Close flushes metrics and traces. Failures are logged, not returned.
func (r *runtime) Close(ctx context.Context) {
	if path := strings.TrimSpace(r.cfg.Metrics.Textfile); path != "" {
		if err := r.metrics.WriteTextfile(path); err != nil {
			r.logger.Warn(ctx, "failed to write metrics textfile", "path", path, "error", err)
		}
	}
	if err := r.shutdown(ctx); err != nil {
		r.logger.Warn(ctx, "failed to flush traces", "error", err)
	}
}

// readInput returns the document text and a display name. Standard input is
// used for "-" or no argument, but never when it is an interactive terminal.
func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return "", "", errors.New("no input: pass a file path or pipe a document on stdin")
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), stdinName, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read input: %w", err)
	}
	return string(data), args[0], nil
}
