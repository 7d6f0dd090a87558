// Package document wraps the YAML parser and printer behind a small tagged
// tree model used by the repair pipeline and the domain rules.
package document

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Node.
type Kind int

const (
	ScalarKind Kind = iota
	SequenceKind
	MappingKind
)

func (k Kind) String() string {
	switch k {
	case SequenceKind:
		return "sequence"
	case MappingKind:
		return "mapping"
	default:
		return "scalar"
	}
}

// Node is a parsed configuration value: a scalar, an ordered sequence, or a
// mapping with insertion-ordered keys.
//
// Scalar values are one of nil, bool, int64, float64 or string.
type Node struct {
	Kind  Kind
	Value any
	Items []*Node
	Pairs []*Pair

	// Line and Column are 1-based source positions; zero when the node was
	// synthesized rather than parsed.
	Line   int
	Column int

	HeadComment string
	LineComment string
	FootComment string
}

// Pair is a single mapping entry.
type Pair struct {
	Key       string
	Value     *Node
	KeyLine   int
	KeyColumn int

	HeadComment string
	LineComment string
	FootComment string
}

// NewScalar returns a synthesized scalar node. Integer types are widened to
// int64 and float32 to float64.
func NewScalar(v any) *Node {
	return &Node{Kind: ScalarKind, Value: normalizeScalar(v)}
}

// NewSequence returns a synthesized sequence holding items.
func NewSequence(items ...*Node) *Node {
	return &Node{Kind: SequenceKind, Items: items}
}

// NewMapping returns an empty synthesized mapping.
func NewMapping() *Node {
	return &Node{Kind: MappingKind}
}

// StringSequence builds a sequence of string scalars.
func StringSequence(values ...string) *Node {
	items := make([]*Node, 0, len(values))
	for _, v := range values {
		items = append(items, NewScalar(v))
	}
	return NewSequence(items...)
}

func normalizeScalar(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return float64(t)
		}
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

func (n *Node) IsMapping() bool  { return n != nil && n.Kind == MappingKind }
func (n *Node) IsSequence() bool { return n != nil && n.Kind == SequenceKind }
func (n *Node) IsScalar() bool   { return n != nil && n.Kind == ScalarKind }

// IsNull reports whether n is missing or an explicit null scalar.
func (n *Node) IsNull() bool {
	return n == nil || (n.Kind == ScalarKind && n.Value == nil)
}

// Get returns the value stored under key, or nil when n is not a mapping or
// the key is absent.
func (n *Node) Get(key string) *Node {
	if p := n.pair(key); p != nil {
		return p.Value
	}
	return nil
}

// Has reports whether the mapping contains key.
func (n *Node) Has(key string) bool {
	return n.pair(key) != nil
}

// PairFor returns the mapping entry for key.
func (n *Node) PairFor(key string) *Pair {
	return n.pair(key)
}

func (n *Node) pair(key string) *Pair {
	if !n.IsMapping() {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return p
		}
	}
	return nil
}

// Keys returns the mapping keys in declaration order.
func (n *Node) Keys() []string {
	if !n.IsMapping() {
		return nil
	}
	keys := make([]string, 0, len(n.Pairs))
	for _, p := range n.Pairs {
		keys = append(keys, p.Key)
	}
	return keys
}

// Set replaces the value stored under key, appending a new entry when the key
// is absent. It is a no-op on non-mappings.
func (n *Node) Set(key string, value *Node) {
	if !n.IsMapping() {
		return
	}
	if p := n.pair(key); p != nil {
		p.Value = value
		return
	}
	n.Pairs = append(n.Pairs, &Pair{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (n *Node) Delete(key string) bool {
	if !n.IsMapping() {
		return false
	}
	for i, p := range n.Pairs {
		if p.Key == key {
			n.Pairs = append(n.Pairs[:i], n.Pairs[i+1:]...)
			return true
		}
	}
	return false
}

// Rename changes the key of an existing entry in place, keeping its position.
func (n *Node) Rename(oldKey, newKey string) bool {
	p := n.pair(oldKey)
	if p == nil {
		return false
	}
	p.Key = newKey
	return true
}

// Lookup follows path from n and returns the addressed node or nil.
func (n *Node) Lookup(path Path) *Node {
	cur := n
	for _, seg := range path {
		if cur == nil {
			return nil
		}
		if seg.IsIndex {
			if !cur.IsSequence() || seg.Index < 0 || seg.Index >= len(cur.Items) {
				return nil
			}
			cur = cur.Items[seg.Index]
			continue
		}
		cur = cur.Get(seg.Key)
	}
	return cur
}

// Len returns the number of items or pairs; zero for scalars.
func (n *Node) Len() int {
	switch {
	case n.IsSequence():
		return len(n.Items)
	case n.IsMapping():
		return len(n.Pairs)
	default:
		return 0
	}
}

// String returns the scalar as a string and whether it held one.
func (n *Node) String() (string, bool) {
	if !n.IsScalar() {
		return "", false
	}
	s, ok := n.Value.(string)
	return s, ok
}

// Text renders a scalar as plain text regardless of its Go type.
func (n *Node) Text() string {
	if !n.IsScalar() || n.Value == nil {
		return ""
	}
	switch v := n.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the numeric value of a scalar. Numeric strings count as
// numbers, matching how hand-written configs quote values.
func (n *Node) Float() (float64, bool) {
	if !n.IsScalar() {
		return 0, false
	}
	switch v := n.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Clone returns a deep copy of n, positions and comments included.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	if n.Items != nil {
		out.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			out.Items[i] = item.Clone()
		}
	}
	if n.Pairs != nil {
		out.Pairs = make([]*Pair, len(n.Pairs))
		for i, p := range n.Pairs {
			cp := *p
			cp.Value = p.Value.Clone()
			out.Pairs[i] = &cp
		}
	}
	return &out
}

// Equal compares two trees by value, ignoring positions and comments.
func Equal(a, b *Node) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case SequenceKind:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case MappingKind:
		if len(a.Pairs) != len(b.Pairs) {
			return false
		}
		for i := range a.Pairs {
			if a.Pairs[i].Key != b.Pairs[i].Key || !Equal(a.Pairs[i].Value, b.Pairs[i].Value) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(a.Value, b.Value)
	}
}

func scalarEqual(a, b any) bool {
	af, aNum := numeric(a)
	bf, bNum := numeric(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// Interface converts the tree to plain Go values (map[string]any, []any and
// scalars). Key order is lost.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case SequenceKind:
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, item.Interface())
		}
		return out
	case MappingKind:
		out := make(map[string]any, len(n.Pairs))
		for _, p := range n.Pairs {
			out[p.Key] = p.Value.Interface()
		}
		return out
	default:
		return n.Value
	}
}

// FromInterface builds a synthesized tree from plain Go values. Map keys are
// sorted so the result is deterministic.
func FromInterface(v any) *Node {
	switch t := v.(type) {
	case map[string]any:
		m := NewMapping()
		for _, k := range sortedKeys(t) {
			m.Set(k, FromInterface(t[k]))
		}
		return m
	case map[any]any:
		conv := make(map[string]any, len(t))
		for k, val := range t {
			conv[fmt.Sprint(k)] = val
		}
		return FromInterface(conv)
	case []any:
		seq := NewSequence()
		for _, item := range t {
			seq.Items = append(seq.Items, FromInterface(item))
		}
		return seq
	case []string:
		return StringSequence(t...)
	default:
		return NewScalar(v)
	}
}
