package diagnostics

import "github.com/haasonsaas/yamldoctor/internal/document"

// Outcome is the result of one validate or repair call.
type Outcome struct {
	OK          bool           `json:"ok"`
	Issues      []Issue        `json:"issues"`
	HasWarnings bool           `json:"hasWarnings"`
	Tree        *document.Node `json:"-"`
	// Partial is set when the auto-fixer ran but issues remain.
	Partial bool       `json:"partial,omitempty"`
	Fixes   []FixEntry `json:"fixes,omitempty"`
}

// NewOutcome derives OK and HasWarnings from issues. OK means no issue of
// error severity; warnings alone never fail an outcome.
func NewOutcome(tree *document.Node, issues []Issue) Outcome {
	out := Outcome{OK: true, Tree: tree, Issues: issues}
	if out.Issues == nil {
		out.Issues = []Issue{}
	}
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			out.OK = false
		case SeverityWarning:
			out.HasWarnings = true
		}
	}
	return out
}

// SyntaxOutcome builds a failed outcome from parse errors.
func SyntaxOutcome(errs []document.ParseError) Outcome {
	issues := make([]Issue, 0, len(errs))
	for _, err := range errs {
		issues = append(issues, SyntaxIssue(err))
	}
	return NewOutcome(nil, issues)
}

// FirstError returns the first error-severity issue, or nil.
func (o Outcome) FirstError() *Issue {
	for i := range o.Issues {
		if o.Issues[i].Severity == SeverityError {
			issue := o.Issues[i]
			return &issue
		}
	}
	return nil
}

// Errors returns only the error-severity issues.
func (o Outcome) Errors() []Issue {
	return filter(o.Issues, SeverityError)
}

// Warnings returns only the warning-severity issues.
func (o Outcome) Warnings() []Issue {
	return filter(o.Issues, SeverityWarning)
}

func filter(issues []Issue, sev Severity) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}
