package document

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Segment is one step of a Path: either a mapping key or a sequence index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path addresses a node inside a tree.
type Path []Segment

// ParsePath builds a Path from mixed string keys and int indices.
func ParsePath(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case int:
			p = append(p, Segment{Index: v, IsIndex: true})
		case string:
			p = append(p, Segment{Key: v})
		}
	}
	return p
}

// Key returns a copy of p extended by a mapping key.
func (p Path) Key(key string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Key: key})
}

// Index returns a copy of p extended by a sequence index.
func (p Path) Index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Index: i, IsIndex: true})
}

// Last returns the final segment, or a zero Segment for an empty path.
func (p Path) Last() Segment {
	if len(p) == 0 {
		return Segment{}
	}
	return p[len(p)-1]
}

// Parent returns p without its final segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// String renders p as dotted keys with bracketed indices, e.g.
// cameras[0].ffmpeg.inputs[1].path.
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Key)
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
