// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wikitext parses raw wiki markup into a node tree and renders
// trees back to markup or plain text. Parsing is tolerant: unbalanced
// delimiters decay to literal text plus diagnostics instead of failing
// the page. Per prd002-parsing.
package wikitext

import "strings"

// NodeKind tags a parse tree node.
type NodeKind int

const (
	// KindRoot is the synthetic document root.
	KindRoot NodeKind = iota

	// KindText is a literal text run.
	KindText

	// KindHeading is a ==...== heading; Level holds the marker count.
	KindHeading

	// KindList is a run of list items sharing a marker prefix.
	KindList

	// KindListItem is one list item; Prefix holds the full marker
	// string ("#", "#:", "*", ...).
	KindListItem

	// KindTemplate is an unexpanded {{...}} invocation.
	KindTemplate

	// KindTemplateArg is a {{{...}}} parameter reference inside a
	// template body.
	KindTemplateArg

	// KindLink is a [[target|display]] internal link.
	KindLink

	// KindFormat is a bold or italic span.
	KindFormat

	// KindHTML is a raw HTML-like tag kept as an opaque span.
	KindHTML
)

var kindNames = map[NodeKind]string{
	KindRoot:        "root",
	KindText:        "text",
	KindHeading:     "heading",
	KindList:        "list",
	KindListItem:    "item",
	KindTemplate:    "template",
	KindTemplateArg: "templatearg",
	KindLink:        "link",
	KindFormat:      "format",
	KindHTML:        "html",
}

// String returns the lowercase kind name used in tree dumps.
func (k NodeKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Arg is one template argument. Positional arguments have an empty
// Name; named arguments keep their written name order-independent of
// position. Value children are unexpanded nodes.
type Arg struct {
	Name  string
	Value []*Node
}

// Node is a wikitext parse tree node. Children are owned by the parent;
// trees contain no cross-references, so they are acyclic by
// construction.
type Node struct {
	Kind NodeKind

	// Text is the literal content for KindText and the raw tag text
	// for KindHTML.
	Text string

	// Level is the heading level (number of = markers) for KindHeading.
	Level int

	// Prefix is the list marker string for KindList and KindListItem.
	Prefix string

	// Name is the invocation name for KindTemplate and KindTemplateArg,
	// the link target for KindLink, and the span kind ("bold",
	// "italic") for KindFormat.
	Name string

	// Args are the arguments for KindTemplate, in written order. For
	// KindTemplateArg a single optional Arg holds the default value.
	Args []Arg

	// Offset is the byte offset of the node start in the source.
	Offset int

	Children []*Node
}

// NewText returns a text node.
func NewText(s string) *Node {
	return &Node{Kind: KindText, Text: s}
}

// Ordered reports whether a list node uses ordered (#) markers.
func (n *Node) Ordered() bool {
	return strings.HasPrefix(n.Prefix, "#")
}

// Depth returns the nesting depth of a list or list item, which is the
// marker prefix length.
func (n *Node) Depth() int {
	return len(n.Prefix)
}

// Positional returns the positional arguments of a template node in
// order. MediaWiki numbers them from 1.
func (n *Node) Positional() []*Arg {
	var out []*Arg
	for i := range n.Args {
		if n.Args[i].Name == "" {
			out = append(out, &n.Args[i])
		}
	}
	return out
}

// Named returns the named argument with the given name, or nil.
func (n *Node) Named(name string) *Arg {
	for i := range n.Args {
		if n.Args[i].Name == name {
			return &n.Args[i]
		}
	}
	return nil
}

// Walk visits n and its descendants in document order. The visitor
// returns false to skip a node's children.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
	if n.Kind == KindTemplate || n.Kind == KindTemplateArg {
		for i := range n.Args {
			for _, c := range n.Args[i].Value {
				Walk(c, visit)
			}
		}
	}
}

// CountTemplates returns the number of unexpanded template nodes in the
// tree. Zero means the tree is fully expanded.
func CountTemplates(root *Node) int {
	count := 0
	Walk(root, func(n *Node) bool {
		if n.Kind == KindTemplate {
			count++
		}
		return true
	})
	return count
}

// Clone returns a deep copy of the node. Expansion splices clones so
// definitions in the store are never mutated.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		Kind:   n.Kind,
		Text:   n.Text,
		Level:  n.Level,
		Prefix: n.Prefix,
		Name:   n.Name,
		Offset: n.Offset,
	}
	if len(n.Args) > 0 {
		out.Args = make([]Arg, len(n.Args))
		for i, a := range n.Args {
			out.Args[i].Name = a.Name
			out.Args[i].Value = cloneNodes(a.Value)
		}
	}
	out.Children = cloneNodes(n.Children)
	return out
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, c := range nodes {
		out[i] = c.Clone()
	}
	return out
}
