package document

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseError is a syntax error reported by the parser adapter.
type ParseError struct {
	Message string
	// Offset is the byte offset of the error in the parsed text.
	Offset int
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return e.Message
}

// ParseResult holds either a tree or a non-empty list of errors.
type ParseResult struct {
	Tree   *Node
	Errors []ParseError
}

// OK reports whether the text parsed cleanly.
func (r ParseResult) OK() bool {
	return r.Tree != nil && len(r.Errors) == 0
}

// FirstError returns the first parse error, or nil.
func (r ParseResult) FirstError() *ParseError {
	if len(r.Errors) == 0 {
		return nil
	}
	err := r.Errors[0]
	return &err
}

var yamlLineErr = regexp.MustCompile(`^yaml: line (\d+): (.*)$`)

// Parse runs the YAML parser over text. A document that is empty or only
// holds comments parses to a null scalar.
func Parse(text string) ParseResult {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ParseResult{Tree: NewScalar(nil)}
		}
		return ParseResult{Errors: []ParseError{errorFromYAML(text, err)}}
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return ParseResult{Errors: []ParseError{
			errorAtLine(text, extra.Line, "expected a single document"),
		}}
	} else if !errors.Is(err, io.EOF) {
		return ParseResult{Errors: []ParseError{errorFromYAML(text, err)}}
	}

	c := &converter{text: text, budget: aliasBudget(&doc)}
	tree := c.convert(&doc)
	if len(c.errs) > 0 {
		return ParseResult{Errors: c.errs}
	}
	if tree == nil {
		tree = NewScalar(nil)
	}
	return ParseResult{Tree: tree}
}

func errorFromYAML(text string, err error) ParseError {
	msg := err.Error()
	if m := yamlLineErr.FindStringSubmatch(msg); m != nil {
		line, convErr := strconv.Atoi(m[1])
		if convErr == nil {
			return errorAtLine(text, line, m[2])
		}
	}
	msg = strings.TrimPrefix(msg, "yaml: ")
	return ParseError{Message: msg, Offset: 0, Line: 1, Column: 1}
}

func errorAtLine(text string, line int, msg string) ParseError {
	offset := LineOffset(text, line)
	l, c := LineColumn(text, offset)
	return ParseError{Message: msg, Offset: offset, Line: l, Column: c}
}

// LineOffset returns the byte offset of the first byte of a 1-based line,
// clamped to the text length.
func LineOffset(text string, line int) int {
	if line <= 1 {
		return 0
	}
	seen := 1
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			seen++
			if seen == line {
				return i + 1
			}
		}
	}
	return len(text)
}

// LineColumn converts a byte offset into 1-based line and column numbers.
// Columns count runes.
func LineColumn(text string, offset int) (int, int) {
	line, col := 1, 1
	for i, r := range text {
		if i >= offset {
			break
		}
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

type converter struct {
	text  string
	errs  []ParseError
	depth int

	// nodes counts converted nodes; alias expansion stops once it passes
	// budget.
	nodes    int
	budget   int
	exceeded bool
}

const (
	maxAliasDepth = 64

	// aliasFloor and aliasFactor bound the expanded tree at
	// aliasFloor + aliasFactor*n nodes, where n is the source node count.
	aliasFloor  = 10000
	aliasFactor = 10
)

// aliasBudget returns the node limit for the converted tree of doc.
func aliasBudget(doc *yaml.Node) int {
	return aliasFloor + aliasFactor*countSource(doc)
}

// countSource counts the nodes written in the source, without following
// aliases.
func countSource(y *yaml.Node) int {
	if y == nil {
		return 0
	}
	n := 1
	for _, child := range y.Content {
		n += countSource(child)
	}
	return n
}

func (c *converter) convert(y *yaml.Node) *Node {
	if y == nil {
		return nil
	}
	if c.exceeded {
		return NewScalar(nil)
	}
	if y.Kind != yaml.DocumentNode && y.Kind != yaml.AliasNode {
		c.nodes++
		if c.nodes > c.budget {
			c.exceeded = true
			c.errs = append(c.errs, errorAtLine(c.text, y.Line, "document contains excessive aliasing"))
			return NewScalar(nil)
		}
	}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return nil
		}
		root := c.convert(y.Content[0])
		if root != nil {
			root.HeadComment = joinComments(y.HeadComment, root.HeadComment)
			root.FootComment = joinComments(root.FootComment, y.FootComment)
		}
		return root
	case yaml.AliasNode:
		if c.depth >= maxAliasDepth {
			c.errs = append(c.errs, errorAtLine(c.text, y.Line, "alias nesting too deep"))
			return NewScalar(nil)
		}
		c.depth++
		defer func() { c.depth-- }()
		return c.convert(y.Alias)
	case yaml.SequenceNode:
		n := &Node{Kind: SequenceKind, Line: y.Line, Column: y.Column}
		copyComments(n, y)
		n.Items = make([]*Node, 0, len(y.Content))
		for _, item := range y.Content {
			n.Items = append(n.Items, c.convert(item))
		}
		return n
	case yaml.MappingNode:
		n := &Node{Kind: MappingKind, Line: y.Line, Column: y.Column}
		copyComments(n, y)
		seen := make(map[string]int, len(y.Content)/2)
		for i := 0; i+1 < len(y.Content); i += 2 {
			k, v := y.Content[i], y.Content[i+1]
			key := k.Value
			if k.Kind != yaml.ScalarNode {
				key = strings.TrimSpace(nodeText(k))
			}
			if prev, dup := seen[key]; dup {
				c.errs = append(c.errs, errorAtLine(c.text, k.Line,
					fmt.Sprintf("mapping key %q already defined at line %d", key, prev)))
				continue
			}
			seen[key] = k.Line
			n.Pairs = append(n.Pairs, &Pair{
				Key:         key,
				Value:       c.convert(v),
				KeyLine:     k.Line,
				KeyColumn:   k.Column,
				HeadComment: k.HeadComment,
				LineComment: k.LineComment,
				FootComment: k.FootComment,
			})
		}
		return n
	default:
		n := &Node{Kind: ScalarKind, Value: scalarValue(y), Line: y.Line, Column: y.Column}
		copyComments(n, y)
		return n
	}
}

func scalarValue(y *yaml.Node) any {
	switch y.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		var i int64
		if err := y.Decode(&i); err == nil {
			return i
		}
		var f float64
		if err := y.Decode(&f); err == nil {
			return f
		}
	case "!!float":
		var f float64
		if err := y.Decode(&f); err == nil {
			return f
		}
	}
	return y.Value
}

func nodeText(y *yaml.Node) string {
	out, err := yaml.Marshal(y)
	if err != nil {
		return y.Value
	}
	return string(out)
}

func copyComments(n *Node, y *yaml.Node) {
	n.HeadComment = y.HeadComment
	n.LineComment = y.LineComment
	n.FootComment = y.FootComment
}

func joinComments(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
