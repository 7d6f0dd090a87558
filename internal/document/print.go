package document

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Indent is the indentation width used by the printer.
const Indent = 2

// Print serializes the tree as block-style YAML with two-space indentation.
// Comments attached to nodes are carried over; the original layout is not.
func Print(n *Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(Indent)
	if err := enc.Encode(toYAML(n)); err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return buf.String(), nil
}

// FlowText renders n on a single line in flow style, suitable for splicing
// after a "key:" in existing text.
func FlowText(n *Node) string {
	y := toYAML(n)
	stripComments(y)
	setFlow(y)
	out, err := yaml.Marshal(y)
	if err != nil {
		return n.Text()
	}
	return strings.TrimRight(string(out), "\n")
}

// KeyText renders a mapping key, quoting it when plain text would change its
// meaning.
func KeyText(key string) string {
	out, err := yaml.Marshal(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key})
	if err != nil {
		return key
	}
	return strings.TrimRight(string(out), "\n")
}

func toYAML(n *Node) *yaml.Node {
	if n == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	var y *yaml.Node
	switch n.Kind {
	case SequenceKind:
		y = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items {
			y.Content = append(y.Content, toYAML(item))
		}
	case MappingKind:
		y = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range n.Pairs {
			k := &yaml.Node{
				Kind:        yaml.ScalarNode,
				Tag:         "!!str",
				Value:       p.Key,
				HeadComment: p.HeadComment,
				LineComment: p.LineComment,
				FootComment: p.FootComment,
			}
			y.Content = append(y.Content, k, toYAML(p.Value))
		}
	default:
		y = scalarYAML(n.Value)
	}
	y.HeadComment = n.HeadComment
	y.LineComment = n.LineComment
	y.FootComment = n.FootComment
	return y
}

func scalarYAML(v any) *yaml.Node {
	if v == nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	var y yaml.Node
	if err := y.Encode(v); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(v)}
	}
	return &y
}

func setFlow(y *yaml.Node) {
	if y.Kind == yaml.SequenceNode || y.Kind == yaml.MappingNode {
		y.Style |= yaml.FlowStyle
	}
	for _, c := range y.Content {
		setFlow(c)
	}
}

func stripComments(y *yaml.Node) {
	y.HeadComment, y.LineComment, y.FootComment = "", "", ""
	for _, c := range y.Content {
		stripComments(c)
	}
}
