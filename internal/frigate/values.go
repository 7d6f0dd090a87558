package frigate

import (
	"math"
	"strconv"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/haasonsaas/yamldoctor/internal/document"
)

// placeholder replaces "${NAME}" scalars in the validator's working copy so
// no range, enum or type rule ever sees them.
type placeholder struct {
	name string
}

// maskPlaceholders rewrites environment-variable placeholders in place.
func maskPlaceholders(n *document.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case document.SequenceKind:
		for _, item := range n.Items {
			maskPlaceholders(item)
		}
	case document.MappingKind:
		for _, p := range n.Pairs {
			maskPlaceholders(p.Value)
		}
	default:
		if s, ok := n.Value.(string); ok && placeholderPattern.MatchString(s) {
			n.Value = placeholder{name: s[2 : len(s)-1]}
		}
	}
}

// opaque reports whether a value must be skipped by every rule: a masked
// placeholder or a raw "${NAME}" string.
func opaque(n *document.Node) bool {
	if !n.IsScalar() {
		return false
	}
	switch v := n.Value.(type) {
	case placeholder:
		return true
	case string:
		return placeholderPattern.MatchString(v)
	}
	return false
}

// resolve walks a dotted key below section and returns the mapping that holds
// the final segment, the segment, and the path of that mapping.
func resolve(section *document.Node, base document.Path, dotted string) (*document.Node, string, document.Path) {
	parts := strings.Split(dotted, ".")
	parent, path := section, base
	for _, part := range parts[:len(parts)-1] {
		parent = parent.Get(part)
		path = path.Key(part)
		if !parent.IsMapping() {
			return nil, "", nil
		}
	}
	return parent, parts[len(parts)-1], path
}

// numberList decodes a list of numbers given natively or as a comma-joined
// string. ok is false when any entry is not a number.
func numberList(n *document.Node) (nums []float64, ok bool) {
	switch {
	case n.IsSequence():
		nums = make([]float64, 0, len(n.Items))
		for _, item := range n.Items {
			f, isNum := item.Float()
			if !isNum {
				return nil, false
			}
			nums = append(nums, f)
		}
		return nums, true
	case n.IsScalar():
		s, isStr := n.String()
		if !isStr {
			if f, isNum := n.Float(); isNum {
				return []float64{f}, true
			}
			return nil, false
		}
		return splitNumbers(s)
	}
	return nil, false
}

func splitNumbers(s string) ([]float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []float64{}, true
	}
	parts := strings.Split(s, ",")
	nums := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		nums = append(nums, f)
	}
	return nums, true
}

func numberSequence(nums []float64) *document.Node {
	seq := document.NewSequence()
	for _, f := range nums {
		seq.Items = append(seq.Items, document.NewScalar(numberValue(f)))
	}
	return seq
}

// decodeCoordinates flattens the three accepted coordinate encodings into a
// single list of numbers: "x1,y1,x2,y2,...", a string holding a JSON list of
// "x,y" strings, or a native list of "x,y" strings.
func decodeCoordinates(n *document.Node) ([]float64, bool) {
	switch {
	case n.IsSequence():
		return flattenPoints(n.Interface().([]any))
	case n.IsScalar():
		s, ok := n.String()
		if !ok {
			return nil, false
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") {
			var items []any
			if err := json5.Unmarshal([]byte(s), &items); err != nil {
				return nil, false
			}
			return flattenPoints(items)
		}
		if s == "" {
			return nil, false
		}
		return splitNumbers(s)
	}
	return nil, false
}

func flattenPoints(items []any) ([]float64, bool) {
	var out []float64
	for _, item := range items {
		switch v := item.(type) {
		case string:
			nums, ok := splitNumbers(v)
			if !ok || len(nums) == 0 {
				return nil, false
			}
			out = append(out, nums...)
		case float64:
			out = append(out, v)
		case int64:
			out = append(out, float64(v))
		default:
			return nil, false
		}
	}
	return out, true
}

// ValidateCoordinateString reports whether a zone's coordinates decode to at
// least three points with every component in [0,1]. It accepts a flat comma
// string, a string-encoded list of "x,y" strings, or a native list of them.
// It never panics and returns false for anything else.
func ValidateCoordinateString(n *document.Node) bool {
	nums, ok := decodeCoordinates(n)
	if !ok || len(nums)%2 != 0 || len(nums)/2 < minZonePoints {
		return false
	}
	for _, f := range nums {
		if f < 0 || f > 1 {
			return false
		}
	}
	return true
}

// roleList returns an input's roles as strings, accepting a single string.
func roleList(n *document.Node) []string {
	switch {
	case n.IsSequence():
		out := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, strings.TrimSpace(item.Text()))
		}
		return out
	case n.IsScalar():
		if s := strings.TrimSpace(n.Text()); s != "" {
			return []string{s}
		}
	}
	return nil
}
