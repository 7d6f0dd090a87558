package document

import (
	"math"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// ConversionError reports a generic data literal that could not be decoded.
type ConversionError struct {
	Message string
	Err     error
}

func (e *ConversionError) Error() string {
	return "invalid JSON: " + e.Message
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// FromJSON decodes a JSON (or JSON5) literal into a tree. Object key order is
// kept whenever the YAML parser reads the literal the same way; otherwise keys
// come out sorted.
func FromJSON(text string) (*Node, error) {
	var decoded any
	if err := json5.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, &ConversionError{Message: err.Error(), Err: err}
	}
	tree := integralNumbers(FromInterface(decoded))
	// JSON is mostly a subset of YAML; when the YAML reading agrees with the
	// JSON5 one, prefer it for its key order.
	if res := Parse(text); res.OK() && Equal(FromInterface(res.Tree.Interface()), tree) {
		return res.Tree, nil
	}
	return tree, nil
}

// integralNumbers turns whole float64 scalars into int64 so "1" prints as 1
// rather than 1.0 after a JSON round trip.
func integralNumbers(n *Node) *Node {
	switch n.Kind {
	case SequenceKind:
		for _, item := range n.Items {
			integralNumbers(item)
		}
	case MappingKind:
		for _, p := range n.Pairs {
			integralNumbers(p.Value)
		}
	default:
		if f, ok := n.Value.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			n.Value = int64(f)
		}
	}
	return n
}
