package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/yamldoctor/internal/config"
)

const zoomConfig = `onvif:
  autotracking:
    zoom_factor: 0.8 # too far
`

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := buildRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"validate", "format", "convert", "repair", "watch", "schema", "sample"} {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, "frigate.yml", "record:\n  expire_interval: 60\n")
		out, _, err := runCLI(t, "", "validate", path)
		if err != nil {
			t.Fatalf("validate error = %v", err)
		}
		if !strings.HasPrefix(out, path+": ok (") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("rule violation exits with issues", func(t *testing.T) {
		out, _, err := runCLI(t, zoomConfig, "validate", "-o", "json")
		if !errors.Is(err, errIssuesRemain) {
			t.Fatalf("validate error = %v, want errIssuesRemain", err)
		}
		var decoded struct {
			OK     bool `json:"ok"`
			Issues []struct {
				Path     string `json:"path"`
				Category string `json:"category"`
			} `json:"issues"`
		}
		if err := json.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if decoded.OK || len(decoded.Issues) == 0 || decoded.Issues[0].Path != "onvif.autotracking.zoom_factor" {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("rules disabled by config", func(t *testing.T) {
		cfg := writeFile(t, "config.yaml", "rules:\n  enabled: false\n")
		if _, _, err := runCLI(t, zoomConfig, "--config", cfg, "validate"); err != nil {
			t.Fatalf("validate error = %v", err)
		}
	})

	t.Run("unknown output", func(t *testing.T) {
		if _, _, err := runCLI(t, zoomConfig, "validate", "-o", "xml"); err == nil {
			t.Fatal("expected error for unknown output format")
		}
	})
}

func TestRepairCommandSample(t *testing.T) {
	out, stderr, err := runCLI(t, sampleDocument, "repair")
	if err != nil {
		t.Fatalf("repair error = %v\n%s", err, stderr)
	}
	if !strings.Contains(out, "name: Frigate NVR") {
		t.Errorf("repaired output:\n%s", out)
	}
	if !strings.Contains(stderr, "<stdin>: parsed after") {
		t.Errorf("report = %q", stderr)
	}
}

func TestRepairCommandWritesWithBackup(t *testing.T) {
	path := writeFile(t, "frigate.yml", zoomConfig)
	out, stderr, err := runCLI(t, "", "repair", "--no-format", "--write", path)
	if err != nil {
		t.Fatalf("repair error = %v\n%s", err, stderr)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing with --write", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "zoom_factor: 0.3 # too far") {
		t.Errorf("file content:\n%s", data)
	}
	if !strings.Contains(stderr, "fixed onvif.autotracking.zoom_factor: 0.8 → 0.3") {
		t.Errorf("report = %q", stderr)
	}
	backups, _ := filepath.Glob(path + ".bak-*")
	if len(backups) != 1 {
		t.Errorf("backups = %v, want one", backups)
	}
}

func TestFormatCommandLogsWriteFailure(t *testing.T) {
	path := writeFile(t, "frigate.yml", "b:   1\n")
	// Occupy the backup names for the next few seconds so the backup fails.
	now := time.Now()
	for i := 0; i < 5; i++ {
		name := path + ".bak-" + now.Add(time.Duration(i)*time.Second).Format("20060102-150405")
		if err := os.Mkdir(name, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	_, stderr, err := runCLI(t, "", "format", "--write", path)
	if err == nil {
		t.Fatal("expected write error")
	}
	if !strings.Contains(stderr, "level=ERROR") || !strings.Contains(stderr, "failed to write file") {
		t.Errorf("stderr = %q, want an error log record", stderr)
	}
}

func TestRepairCommandWriteNeedsPath(t *testing.T) {
	if _, _, err := runCLI(t, zoomConfig, "repair", "--write"); err == nil {
		t.Fatal("expected error for --write on stdin")
	}
}

func TestRepairCommandUnrepairable(t *testing.T) {
	out, _, err := runCLI(t, "a: [1, 2\nb: }\n", "repair", "-o", "json")
	if !errors.Is(err, errIssuesRemain) {
		t.Fatalf("repair error = %v, want errIssuesRemain", err)
	}
	var report repairReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if report.Step != "" || len(report.Attempts) == 0 || report.Attempts[0].Error == "" {
		t.Errorf("report = %+v", report)
	}
}

func TestFormatCommand(t *testing.T) {
	out, _, err := runCLI(t, "b:   1\na:\n    - x\n", "format")
	if err != nil {
		t.Fatalf("format error = %v", err)
	}
	if out != "b: 1\na:\n  - x\n" {
		t.Errorf("output = %q", out)
	}

	if _, _, err := runCLI(t, "a: [1\n", "format"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConvertCommand(t *testing.T) {
	out, _, err := runCLI(t, `{"cameras": {"front": {"enabled": true}}}`, "convert")
	if err != nil {
		t.Fatalf("convert error = %v", err)
	}
	if out != "cameras:\n  front:\n    enabled: true\n" {
		t.Errorf("output = %q", out)
	}

	_, _, err = runCLI(t, `{"a":`, "convert")
	if err == nil || !strings.Contains(err.Error(), "invalid JSON: ") {
		t.Fatalf("convert error = %v", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "schema")
	if err != nil {
		t.Fatalf("schema error = %v", err)
	}
	if !json.Valid([]byte(out)) {
		t.Fatalf("schema output is not JSON:\n%s", out)
	}
}

func TestSampleCommand(t *testing.T) {
	out, _, err := runCLI(t, "", "sample")
	if err != nil {
		t.Fatalf("sample error = %v", err)
	}
	if out != sampleDocument {
		t.Errorf("output = %q", out)
	}
}
