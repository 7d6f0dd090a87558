// Package config loads yamldoctor's own configuration file: which checks
// run, how repairs are written back, and where logs, metrics and traces go.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the main configuration structure for yamldoctor.
type Config struct {
	Version int           `yaml:"version" jsonschema:"minimum=0"`
	Rules   RulesConfig   `yaml:"rules"`
	Repair  RepairConfig  `yaml:"repair"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// RulesConfig toggles the camera configuration checks.
type RulesConfig struct {
	// Enabled runs the domain validator after a successful parse. Defaults to true.
	Enabled *bool `yaml:"enabled"`
}

type RepairConfig struct {
	// AutoFormat re-prints repaired documents. When false, fixes are patched
	// into the original text. Defaults to true.
	AutoFormat *bool `yaml:"auto_format"`
	// Backup keeps a timestamped copy before --write overwrites a file.
	// Defaults to true.
	Backup *bool `yaml:"backup"`
}

type WatchConfig struct {
	Debounce string `yaml:"debounce" jsonschema:"pattern=^[0-9]+(ms|s|m)$"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Format string `yaml:"format" jsonschema:"enum=text,enum=json"`
}

type MetricsConfig struct {
	// Textfile is a node_exporter textfile path written after each command.
	Textfile string `yaml:"textfile"`
}

type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" jsonschema:"minimum=0,maximum=1"`
	Insecure     bool    `yaml:"insecure"`
}

const defaultDebounce = 300 * time.Millisecond

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Rules.Enabled == nil {
		cfg.Rules.Enabled = boolPtr(true)
	}
	if cfg.Repair.AutoFormat == nil {
		cfg.Repair.AutoFormat = boolPtr(true)
	}
	if cfg.Repair.Backup == nil {
		cfg.Repair.Backup = boolPtr(true)
	}
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = defaultDebounce.String()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// RulesEnabled reports whether domain rules run.
func (c *Config) RulesEnabled() bool {
	return c.Rules.Enabled == nil || *c.Rules.Enabled
}

// AutoFormat reports whether repairs are re-printed.
func (c *Config) AutoFormat() bool {
	return c.Repair.AutoFormat == nil || *c.Repair.AutoFormat
}

// BackupEnabled reports whether --write keeps a backup.
func (c *Config) BackupEnabled() bool {
	return c.Repair.Backup == nil || *c.Repair.Backup
}

// DebounceDuration returns the watch debounce window.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return defaultDebounce
	}
	return d
}

// ValidationError lists every semantic problem found in a configuration.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return ""
	}
	return "config validation failed:\n  - " + strings.Join(e.Issues, "\n  - ")
}

// validate checks what the schema cannot express.
func validate(cfg *Config) error {
	var issues []string
	if d, err := time.ParseDuration(cfg.Watch.Debounce); err != nil || d <= 0 {
		issues = append(issues, fmt.Sprintf("watch.debounce %q must be a positive duration", cfg.Watch.Debounce))
	}
	if cfg.Tracing.Insecure && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		issues = append(issues, "tracing.insecure requires tracing.endpoint")
	}
	if strings.TrimSpace(cfg.Metrics.Textfile) != "" && !strings.HasSuffix(cfg.Metrics.Textfile, ".prom") {
		issues = append(issues, "metrics.textfile must end in .prom for node_exporter to read it")
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
