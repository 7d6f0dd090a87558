// Package repair turns syntactically broken YAML text into something the
// parser accepts, using a fixed sequence of text transforms.
package repair

import (
	"regexp"
	"strings"
)

var (
	keyHeader  = regexp.MustCompile(`^[\s-]*[^#\n]+:\s*(#.*)?$`)
	inlineItem = regexp.MustCompile(`^\s*-\s+[^#\n]+:\s*(#.*)?$`)
	ignorable  = regexp.MustCompile(`^\s*(#.*)?$`)
)

// isHeader reports whether line opens a block ("key:" with nothing but an
// optional comment after it). Sequence items with an inline key are not
// headers.
func isHeader(line string) bool {
	return keyHeader.MatchString(line) && !inlineItem.MatchString(line)
}

func lead(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// Realign re-indents block structure detected from whitespace alone. For
// every run of same-indent key headers it aligns the headers and shifts each
// header's child block so its shallowest line sits two spaces deeper than the
// header. Blank and comment lines are left untouched. The result has the same
// line count and differs only in leading spaces; applying it twice changes
// nothing further.
func Realign(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)

	i := 0
	for i < len(out) {
		line := out[i]
		if ignorable.MatchString(line) || !isHeader(line) {
			i++
			continue
		}

		parent := lead(line)
		siblings := []int{i}
		j := i + 1
		for ; j < len(out); j++ {
			l := out[j]
			if ignorable.MatchString(l) {
				continue
			}
			ind := lead(l)
			if ind < parent {
				break
			}
			if ind == parent && isHeader(l) {
				siblings = append(siblings, j)
			}
		}

		minSibling := parent
		for _, idx := range siblings {
			if ind := lead(out[idx]); ind < minSibling {
				minSibling = ind
			}
		}
		for _, idx := range siblings {
			l := out[idx]
			out[idx] = spaces(minSibling) + l[lead(l):]
		}

		for _, idx := range siblings {
			shiftChildren(out, idx, minSibling)
		}
		i = j
	}
	return out
}

// shiftChildren moves the child block under the header at idx so that its
// shallowest line is indented indent+2.
func shiftChildren(lines []string, idx, indent int) {
	minChild := -1
	k := idx + 1
	for ; k < len(lines); k++ {
		l := lines[k]
		if ignorable.MatchString(l) {
			continue
		}
		ind := lead(l)
		if ind <= indent {
			break
		}
		if minChild < 0 || ind < minChild {
			minChild = ind
		}
	}
	if minChild < 0 {
		return
	}

	delta := indent + 2 - minChild
	if delta == 0 {
		return
	}
	for m := idx + 1; m < k; m++ {
		l := lines[m]
		if ignorable.MatchString(l) {
			continue
		}
		ind := lead(l)
		if ind < minChild {
			continue
		}
		if delta > 0 {
			lines[m] = spaces(delta) + l
		} else {
			lines[m] = l[min(-delta, ind):]
		}
	}
}

func spaces(n int) string {
	return strings.Repeat(" ", n)
}
