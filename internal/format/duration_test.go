package format

import (
	"testing"
	"time"

	"github.com/haasonsaas/yamldoctor/internal/document"
)

func TestElapsed(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"zero", 0, "0ms"},
		{"negative", -time.Second, "0ms"},
		{"under second", 250 * time.Millisecond, "250ms"},
		{"exactly one second", time.Second, "1s"},
		{"fractional", 1234 * time.Millisecond, "1.23s"},
		{"half", 1500 * time.Millisecond, "1.5s"},
		{"minute", time.Minute, "60s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Elapsed(tt.d); got != tt.expected {
				t.Errorf("Elapsed(%v) = %q, want %q", tt.d, got, tt.expected)
			}
		})
	}
}

func TestTrimTrailingZeros(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1.50", "1.5"},
		{"2.00", "2"},
		{"1.234", "1.234"},
		{"100", "100"},
		{"0.10", "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := trimTrailingZeros(tt.input); got != tt.expected {
				t.Errorf("trimTrailingZeros(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		node     *document.Node
		expected string
	}{
		{"missing", nil, "(missing)"},
		{"null", document.NewScalar(nil), "null"},
		{"string", document.NewScalar("front door!"), `"front door!"`},
		{"numeric string", document.NewScalar("1"), `"1"`},
		{"float", document.NewScalar(0.8), "0.8"},
		{"int", document.NewScalar(30), "30"},
		{"bool", document.NewScalar(true), "true"},
		{"empty list", document.NewSequence(), "[]"},
		{"list", document.StringSequence("a", "b"), "[a, b]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.node); got != tt.expected {
				t.Errorf("Describe() = %q, want %q", got, tt.expected)
			}
		})
	}
}
