/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package localfetch

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is the small subset of CSS this package needs to express the
// reduction rules: a tag name, an #id, a .class, or an [attr=value]
// attribute match. Compound selectors like "a.b#c" are not supported - the
// spec's selector lists never need them.
type selector struct {
	tag   string
	id    string
	class string
	attr  string
	value string
}

func parseSelector(s string) selector {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		return selector{id: s[1:]}
	case strings.HasPrefix(s, "."):
		return selector{class: s[1:]}
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		inner := s[1 : len(s)-1]
		parts := strings.SplitN(inner, "=", 2)
		sel := selector{attr: parts[0]}
		if len(parts) == 2 {
			sel.value = strings.Trim(parts[1], `"'`)
		}
		return sel
	default:
		return selector{tag: strings.ToLower(s)}
	}
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	val, ok := attrValue(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(val) {
		if c == class {
			return true
		}
	}
	return false
}

func matches(n *html.Node, sel selector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch {
	case sel.id != "":
		v, ok := attrValue(n, "id")
		return ok && v == sel.id
	case sel.class != "":
		return hasClass(n, sel.class)
	case sel.attr != "":
		v, ok := attrValue(n, sel.attr)
		if !ok {
			return false
		}
		if sel.value == "" {
			return true
		}
		return v == sel.value
	default:
		return n.Data == sel.tag
	}
}

// findAll walks the tree depth-first and returns every node matching sel.
func findAll(root *html.Node, sel selector) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matches(n, sel) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// findFirst returns the first node matching any of selectors, in order.
func findFirst(root *html.Node, selectors ...string) *html.Node {
	for _, s := range selectors {
		sel := parseSelector(s)
		if found := findAll(root, sel); len(found) > 0 {
			return found[0]
		}
	}
	return nil
}

// removeAll detaches every node matching sel from its parent.
func removeAll(root *html.Node, sel selector) {
	for _, n := range findAll(root, sel) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// innerText returns the node's text content, descending into children,
// collapsed to single spaces and trimmed.
func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpaces(sb.String())
}

func collapseSpaces(s string) string {
	fields := strings.Fields(s)
	return strings.TrimSpace(strings.Join(fields, " "))
}

// innerHTML renders a node's children back to an HTML string.
func innerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&sb, c)
	}
	return sb.String()
}
