package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.RulesEnabled() || !cfg.AutoFormat() || !cfg.BackupEnabled() {
		t.Errorf("expected rules, auto-format and backup on by default: %+v", cfg)
	}
	if got := cfg.DebounceDuration(); got != 300*time.Millisecond {
		t.Errorf("DebounceDuration() = %v", got)
	}
}

func TestLoadExplicitFalse(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
version: 1
rules:
  enabled: false
repair:
  auto_format: false
watch:
  debounce: 2s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RulesEnabled() || cfg.AutoFormat() {
		t.Errorf("explicit false was overridden: %+v", cfg)
	}
	if got := cfg.DebounceDuration(); got != 2*time.Second {
		t.Errorf("DebounceDuration() = %v", got)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
  colour: true
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "config invalid") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestLoadRejectsBadEnum(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  format: xml
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected schema error for logging.format")
	}
}

func TestLoadRejectsSamplingRate(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
tracing:
  endpoint: localhost:4317
  sampling_rate: 2
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected schema error for tracing.sampling_rate")
	}
}

func TestLoadValidationError(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
tracing:
  insecure: true
metrics:
  textfile: /tmp/yamldoctor.txt
`)

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Issues) != 2 {
		t.Errorf("Issues = %v, want 2", verr.Issues)
	}
}

func TestLoadVersionTooNew(t *testing.T) {
	path := writeConfig(t, "config.yaml", "version: 9\n")

	_, err := Load(path)
	var ve *VersionError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *VersionError, got %v", err)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("YD_TEST_ENDPOINT", "collector:4317")
	path := writeConfig(t, "config.yaml", `
tracing:
  endpoint: ${YD_TEST_ENDPOINT}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracing.Endpoint != "collector:4317" {
		t.Errorf("Endpoint = %q", cfg.Tracing.Endpoint)
	}
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.json5"), []byte(`{
  // shared settings
  logging: {level: "warn", format: "json"},
  rules: {enabled: false},
}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	main := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(main, []byte("$include: base.json5\nlogging:\n  level: error\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(main)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Level = %q, want the including file to win", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format = %q, want included value", cfg.Logging.Format)
	}
	if cfg.RulesEnabled() {
		t.Error("included rules.enabled was lost")
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	if err := os.WriteFile(a, []byte("$include: b.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("$include: a.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(a)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestJSONSchema(t *testing.T) {
	schema, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}
	for _, want := range []string{`"auto_format"`, `"sampling_rate"`, `"debounce"`} {
		if !strings.Contains(string(schema), want) {
			t.Errorf("schema missing %s", want)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/yamldoctor.yaml")
	if got := DefaultPath(); got != "/etc/yamldoctor.yaml" {
		t.Errorf("DefaultPath() = %q", got)
	}

	t.Setenv(EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	if got := DefaultPath(); got != "" {
		t.Errorf("DefaultPath() = %q, want none", got)
	}
	cfg, path, err := LoadDefault()
	if err != nil || path != "" || !cfg.RulesEnabled() {
		t.Errorf("LoadDefault() = %+v, %q, %v", cfg, path, err)
	}

	if err := os.WriteFile(LocalConfigName, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := DefaultPath(); got != LocalConfigName {
		t.Errorf("DefaultPath() = %q, want %q", got, LocalConfigName)
	}
}

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
