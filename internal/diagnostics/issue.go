// Package diagnostics holds the findings shared by syntax checking, the
// domain rule validator and the auto-fixer.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/yamldoctor/internal/document"
)

// Category groups issues by the configuration area they concern.
type Category string

const (
	CategorySyntax   Category = "syntax"
	CategoryCamera   Category = "camera"
	CategoryZone     Category = "zone"
	CategoryPTZ      Category = "ptz"
	CategoryRecord   Category = "record"
	CategorySnapshot Category = "snapshot"
	CategoryGlobal   Category = "global"
)

// Severity separates blocking errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single validation finding. Syntax issues carry a line and
// column but no path; every other category carries a non-empty path.
type Issue struct {
	Message  string        `json:"message"`
	Path     document.Path `json:"-"`
	Category Category      `json:"category"`
	Severity Severity      `json:"severity"`
	Line     int           `json:"line,omitempty"`
	Column   int           `json:"column,omitempty"`
}

// PathString renders the issue path, empty for syntax issues.
func (i Issue) PathString() string {
	return i.Path.String()
}

// MarshalJSON adds the rendered path to the JSON form.
func (i Issue) MarshalJSON() ([]byte, error) {
	type plain Issue
	return json.Marshal(struct {
		plain
		Path string `json:"path,omitempty"`
	}{plain: plain(i), Path: i.PathString()})
}

func (i Issue) String() string {
	var b strings.Builder
	b.WriteString(string(i.Severity))
	b.WriteString(" [")
	b.WriteString(string(i.Category))
	b.WriteString("] ")
	if p := i.PathString(); p != "" {
		b.WriteString(p)
		b.WriteString(": ")
	}
	b.WriteString(i.Message)
	if i.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", i.Line, i.Column)
	}
	return b.String()
}

// SyntaxIssue converts a parse error into an issue.
func SyntaxIssue(err document.ParseError) Issue {
	return Issue{
		Message:  err.Message,
		Category: CategorySyntax,
		Severity: SeverityError,
		Line:     err.Line,
		Column:   err.Column,
	}
}

// Reason tags why the auto-fixer changed a value.
type Reason string

const (
	ReasonMin       Reason = "min"
	ReasonMax       Reason = "max"
	ReasonDefault   Reason = "default"
	ReasonSanitized Reason = "sanitized"
	ReasonConflict  Reason = "conflict"
	ReasonConverted Reason = "converted"
)

// FixEntry records one change made by the auto-fixer.
type FixEntry struct {
	Path   string `json:"path"`
	Old    string `json:"old"`
	New    string `json:"new"`
	Reason Reason `json:"reason"`
	// Detail qualifies the reason, e.g. "max 0.75" when an over-limit value
	// was reset to a default instead of the bound.
	Detail string `json:"detail,omitempty"`

	Edit document.Edit `json:"-"`
}

// String renders the entry as "path: old → new (reason[, detail])".
func (f FixEntry) String() string {
	reason := string(f.Reason)
	if f.Detail != "" {
		reason += ", " + f.Detail
	}
	return fmt.Sprintf("%s: %s → %s (%s)", f.Path, f.Old, f.New, reason)
}
