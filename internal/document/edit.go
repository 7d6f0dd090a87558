package document

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// EditOp is the kind of text change an Edit performs.
type EditOp int

const (
	// EditUnsupported marks a change that cannot be expressed against the
	// source text, such as moving a section between parents.
	EditUnsupported EditOp = iota
	EditSetValue
	EditRename
	EditDelete
	EditInsert
)

func (op EditOp) String() string {
	switch op {
	case EditSetValue:
		return "set"
	case EditRename:
		return "rename"
	case EditDelete:
		return "delete"
	case EditInsert:
		return "insert"
	default:
		return "unsupported"
	}
}

// Edit is a change located by source position. Line and Column point at a
// mapping key: the key being changed, or for EditInsert the last key of the
// mapping that receives the new entry.
type Edit struct {
	Op     EditOp
	Line   int
	Column int
	Key    string
	Value  *Node
}

// ErrUnsupportedEdit is returned when an edit cannot be applied to text.
var ErrUnsupportedEdit = errors.New("edit cannot be applied to source text")

// SetValueEdit describes replacing the value under key in parent.
func SetValueEdit(parent *Node, key string, value *Node) Edit {
	p := parent.PairFor(key)
	if p == nil || p.KeyLine == 0 {
		return Edit{}
	}
	return Edit{Op: EditSetValue, Line: p.KeyLine, Column: p.KeyColumn, Value: value.Clone()}
}

// RenameEdit describes renaming oldKey to newKey in parent.
func RenameEdit(parent *Node, oldKey, newKey string) Edit {
	p := parent.PairFor(oldKey)
	if p == nil || p.KeyLine == 0 {
		return Edit{}
	}
	return Edit{Op: EditRename, Line: p.KeyLine, Column: p.KeyColumn, Key: newKey}
}

// DeleteEdit describes removing key and its value from parent.
func DeleteEdit(parent *Node, key string) Edit {
	p := parent.PairFor(key)
	if p == nil || p.KeyLine == 0 {
		return Edit{}
	}
	return Edit{Op: EditDelete, Line: p.KeyLine, Column: p.KeyColumn}
}

// InsertEdit describes appending key to parent. It must be built before the
// key is added to the tree.
func InsertEdit(parent *Node, key string, value *Node) Edit {
	if !parent.IsMapping() || len(parent.Pairs) == 0 {
		return Edit{}
	}
	last := parent.Pairs[len(parent.Pairs)-1]
	if last.KeyLine == 0 {
		return Edit{}
	}
	return Edit{Op: EditInsert, Line: last.KeyLine, Column: last.KeyColumn, Key: key, Value: value.Clone()}
}

type plannedEdit struct {
	edit Edit
	seq  int
	// start and end are 1-based line numbers of the affected range. Inserts
	// have end == start-1.
	start, end int
}

func (p plannedEdit) rank() int {
	switch p.edit.Op {
	case EditRename:
		return 1
	case EditInsert:
		return 2
	default:
		return 0
	}
}

// ApplyEdits applies edits to text, bottom-up, leaving every untouched line
// byte-for-byte intact. It fails with ErrUnsupportedEdit when an edit has no
// source position, sits inside flow-style collections, or overlaps another.
// Callers should re-parse the result to confirm it.
func ApplyEdits(text string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	lines := strings.Split(text, "\n")
	edits = lastSetWins(edits)

	plans := make([]plannedEdit, 0, len(edits))
	for i, e := range edits {
		p, err := planEdit(lines, e)
		if err != nil {
			return "", err
		}
		p.seq = i
		plans = append(plans, p)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		a, b := plans[i], plans[j]
		if a.start != b.start {
			return a.start > b.start
		}
		if a.rank() != b.rank() {
			return a.rank() < b.rank()
		}
		// Inserts at the same spot go in reverse so they end up in order.
		return a.seq > b.seq
	})

	for i := 1; i < len(plans); i++ {
		prev, cur := plans[i-1], plans[i]
		if cur.end < prev.start {
			continue
		}
		if cur.edit.Op == EditRename && prev.edit.Op == EditSetValue && cur.start == prev.start {
			continue
		}
		return "", fmt.Errorf("%w: overlapping edits at line %d", ErrUnsupportedEdit, cur.start)
	}

	for _, p := range plans {
		var err error
		lines, err = applyPlanned(lines, p)
		if err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}

// lastSetWins drops earlier EditSetValue edits that target the same key as a
// later one.
func lastSetWins(edits []Edit) []Edit {
	type pos struct{ line, col int }
	last := make(map[pos]int)
	for i, e := range edits {
		if e.Op == EditSetValue {
			last[pos{e.Line, e.Column}] = i
		}
	}
	out := make([]Edit, 0, len(edits))
	for i, e := range edits {
		if e.Op == EditSetValue && last[pos{e.Line, e.Column}] != i {
			continue
		}
		out = append(out, e)
	}
	return out
}

func planEdit(lines []string, e Edit) (plannedEdit, error) {
	if e.Op == EditUnsupported || e.Line < 1 || e.Line > len(lines) || e.Column < 1 {
		return plannedEdit{}, ErrUnsupportedEdit
	}
	line := lines[e.Line-1]
	keyIdx := byteIndex(line, e.Column)
	if keyIdx < 0 {
		return plannedEdit{}, ErrUnsupportedEdit
	}
	prefix := line[:keyIdx]
	if strings.ContainsAny(prefix, "{[,#") {
		return plannedEdit{}, ErrUnsupportedEdit
	}
	_, colon := keyToken(line, keyIdx)
	if colon < 0 {
		return plannedEdit{}, ErrUnsupportedEdit
	}
	inlineEmpty := inlineValue(line[colon+1:]) == ""
	end := blockEnd(lines, e.Line, e.Column-1, inlineEmpty)

	switch e.Op {
	case EditSetValue:
		if e.Value == nil {
			return plannedEdit{}, ErrUnsupportedEdit
		}
		return plannedEdit{edit: e, start: e.Line, end: end}, nil
	case EditRename:
		return plannedEdit{edit: e, start: e.Line, end: e.Line}, nil
	case EditDelete:
		if strings.Contains(prefix, "-") {
			return plannedEdit{}, ErrUnsupportedEdit
		}
		return plannedEdit{edit: e, start: e.Line, end: end}, nil
	case EditInsert:
		if e.Value == nil || e.Key == "" {
			return plannedEdit{}, ErrUnsupportedEdit
		}
		return plannedEdit{edit: e, start: end + 1, end: end}, nil
	default:
		return plannedEdit{}, ErrUnsupportedEdit
	}
}

func applyPlanned(lines []string, p plannedEdit) ([]string, error) {
	e := p.edit
	switch e.Op {
	case EditInsert:
		entry := strings.Repeat(" ", e.Column-1) + KeyText(e.Key) + ": " + FlowText(e.Value)
		return insertLine(lines, p.end, entry), nil
	case EditDelete:
		return append(lines[:p.start-1], lines[p.end:]...), nil
	}

	line := lines[e.Line-1]
	keyIdx := byteIndex(line, e.Column)
	if keyIdx < 0 {
		return nil, ErrUnsupportedEdit
	}
	tokenEnd, colon := keyToken(line, keyIdx)
	if colon < 0 {
		return nil, ErrUnsupportedEdit
	}

	switch e.Op {
	case EditRename:
		lines[e.Line-1] = line[:keyIdx] + KeyText(e.Key) + line[tokenEnd:]
		return lines, nil
	case EditSetValue:
		updated := line[:colon+1] + " " + FlowText(e.Value)
		if c := trailingComment(line[colon+1:]); c != "" {
			updated += " " + c
		}
		lines[e.Line-1] = updated
		return append(lines[:p.start], lines[p.end:]...), nil
	}
	return nil, ErrUnsupportedEdit
}

func insertLine(lines []string, at int, entry string) []string {
	lines = append(lines, "")
	copy(lines[at+1:], lines[at:])
	lines[at] = entry
	return lines
}

// byteIndex converts a 1-based rune column into a byte index in line.
func byteIndex(line string, column int) int {
	if column == 1 {
		return 0
	}
	n := 1
	for i := range line {
		if n == column {
			return i
		}
		n++
	}
	if n == column {
		return len(line)
	}
	return -1
}

// keyToken returns the byte index just past the key starting at i and the
// index of the ':' that ends it, or -1 when no key separator follows.
func keyToken(line string, i int) (int, int) {
	if i >= len(line) {
		return i, -1
	}
	end := -1
	switch line[i] {
	case '"':
		for j := i + 1; j < len(line); j++ {
			if line[j] == '\\' {
				j++
				continue
			}
			if line[j] == '"' {
				end = j + 1
				break
			}
		}
	case '\'':
		for j := i + 1; j < len(line); j++ {
			if line[j] != '\'' {
				continue
			}
			if j+1 < len(line) && line[j+1] == '\'' {
				j++
				continue
			}
			end = j + 1
			break
		}
	default:
		for j := i; j < len(line); j++ {
			if line[j] == ':' && (j+1 == len(line) || line[j+1] == ' ' || line[j+1] == '\t') {
				end = j
				break
			}
		}
		if end >= 0 {
			for end > i && (line[end-1] == ' ' || line[end-1] == '\t') {
				end--
			}
		}
	}
	if end < 0 {
		return i, -1
	}
	j := end
	for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
		j++
	}
	if j >= len(line) || line[j] != ':' {
		return end, -1
	}
	return end, j
}

// commentStart finds the start of a trailing "#" comment outside quotes.
func commentStart(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '"' && c == '\\':
			i++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			if i == 0 || s[i-1] == ' ' || s[i-1] == '\t' || s[i-1] == '[' || s[i-1] == '{' || s[i-1] == ',' {
				quote = c
			}
		case c == '#':
			if i == 0 || s[i-1] == ' ' || s[i-1] == '\t' {
				return i
			}
		}
	}
	return -1
}

func trailingComment(s string) string {
	if i := commentStart(s); i >= 0 {
		return strings.TrimRight(s[i:], " \t\r")
	}
	return ""
}

func inlineValue(s string) string {
	if i := commentStart(s); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// blockEnd returns the last line (1-based) that belongs to the value of the
// key on line keyLine. Blank and comment lines only count when more value
// lines follow them.
func blockEnd(lines []string, keyLine, keyIndent int, inlineEmpty bool) int {
	end := keyLine
	for j := keyLine; j < len(lines); j++ {
		l := lines[j]
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		ind := leadingSpaces(l)
		if ind > keyIndent || (inlineEmpty && ind == keyIndent && (trimmed == "-" || strings.HasPrefix(trimmed, "- "))) {
			end = j + 1
			continue
		}
		break
	}
	return end
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}
