// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

import (
	"fmt"
	"strings"
)

// Dump renders the tree in an indented one-node-per-line form for the
// parse subcommand and for debugging test failures.
func Dump(n *Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

func dump(b *strings.Builder, n *Node, indent int) {
	pad := strings.Repeat("  ", indent)
	switch n.Kind {
	case KindText:
		fmt.Fprintf(b, "%stext %q\n", pad, n.Text)
	case KindHeading:
		fmt.Fprintf(b, "%sheading level=%d\n", pad, n.Level)
	case KindList, KindListItem:
		fmt.Fprintf(b, "%s%s prefix=%q\n", pad, n.Kind, n.Prefix)
	case KindTemplate, KindTemplateArg:
		fmt.Fprintf(b, "%s%s name=%q args=%d\n", pad, n.Kind, n.Name, len(n.Args))
	case KindLink:
		fmt.Fprintf(b, "%slink target=%q\n", pad, n.Name)
	case KindFormat:
		fmt.Fprintf(b, "%sformat %s\n", pad, n.Name)
	case KindHTML:
		fmt.Fprintf(b, "%shtml %q\n", pad, n.Text)
	default:
		fmt.Fprintf(b, "%s%s\n", pad, n.Kind)
	}
	for _, c := range n.Children {
		dump(b, c, indent+1)
	}
	for i := range n.Args {
		a := n.Args[i]
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		fmt.Fprintf(b, "%s  arg %s:\n", pad, name)
		for _, c := range a.Value {
			dump(b, c, indent+2)
		}
	}
}
