package repair

import "github.com/haasonsaas/yamldoctor/internal/document"

// MsgCannotFix is reported when no step produced a parse error to show.
const MsgCannotFix = "cannot auto fix, please check manually"

// Attempt records the parse result after one transform.
type Attempt struct {
	Name string
	OK   bool
	Err  *document.ParseError
}

// Result is the outcome of a pipeline run. Err is nil exactly when a step
// produced parseable text.
type Result struct {
	// Fixed is the first parseable text, re-printed when auto-format was
	// requested. Empty on failure.
	Fixed string
	Tree  *document.Node
	// Candidate is the raw text of the successful step before any
	// re-printing; node positions in Tree refer to it.
	Candidate string
	Step      string
	Attempts  []Attempt
	Err       *document.ParseError
}

// OK reports whether any step produced parseable text.
func (r Result) OK() bool {
	return r.Err == nil && r.Tree != nil
}

// Pipeline applies transforms cumulatively, parsing after each one, and
// stops at the first step whose output parses.
type Pipeline struct {
	transforms []Transform
}

// NewPipeline builds a pipeline; with no arguments it uses DefaultTransforms.
func NewPipeline(transforms ...Transform) *Pipeline {
	if len(transforms) == 0 {
		transforms = DefaultTransforms()
	}
	return &Pipeline{transforms: transforms}
}

// Steps returns the transform names in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, 0, len(p.transforms))
	for _, t := range p.transforms {
		names = append(names, t.Name)
	}
	return names
}

// StepObserver is called as each transform starts. The returned func, if
// any, receives the attempt once its parse has finished.
type StepObserver func(step string) func(Attempt)

// Run repairs text. It never runs more than one parse per transform. When
// autoFormat is set the winning tree is re-printed with the standard layout.
func (p *Pipeline) Run(text string, autoFormat bool) Result {
	return p.RunObserved(text, autoFormat, nil)
}

// RunObserved is Run with a per-step observer.
func (p *Pipeline) RunObserved(text string, autoFormat bool, observe StepObserver) Result {
	var res Result
	candidate := text
	var lastErr *document.ParseError

	for _, t := range p.transforms {
		var done func(Attempt)
		if observe != nil {
			done = observe(t.Name)
		}
		candidate = t.Apply(candidate)
		parsed := document.Parse(candidate)
		if parsed.OK() {
			attempt := Attempt{Name: t.Name, OK: true}
			if done != nil {
				done(attempt)
			}
			res.Attempts = append(res.Attempts, attempt)
			res.Tree = parsed.Tree
			res.Candidate = candidate
			res.Step = t.Name
			res.Fixed = candidate
			if autoFormat {
				if printed, err := document.Print(parsed.Tree); err == nil {
					res.Fixed = printed
				}
			}
			return res
		}
		lastErr = parsed.FirstError()
		attempt := Attempt{Name: t.Name, Err: lastErr}
		if done != nil {
			done(attempt)
		}
		res.Attempts = append(res.Attempts, attempt)
	}

	if lastErr == nil {
		lastErr = &document.ParseError{Message: MsgCannotFix, Line: 1, Column: 1}
	}
	res.Err = lastErr
	return res
}
