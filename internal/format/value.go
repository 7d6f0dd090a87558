// Package format renders values and durations for humans.
package format

import (
	"strconv"

	"github.com/haasonsaas/yamldoctor/internal/document"
)

// Missing and Removed describe the absent side of a fix-log entry.
const (
	Missing = "(missing)"
	Removed = "(removed)"
)

// Describe renders a node for the fix log. Strings are quoted so that "1"
// and 1 stay distinguishable; collections use single-line flow style.
func Describe(n *document.Node) string {
	if n == nil {
		return Missing
	}
	if n.IsScalar() {
		switch v := n.Value.(type) {
		case nil:
			return "null"
		case string:
			return strconv.Quote(v)
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(v, 10)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return document.FlowText(n)
}

// Number renders a float without trailing zeros, e.g. 0.75 or 30.
func Number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
