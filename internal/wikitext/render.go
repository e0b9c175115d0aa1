// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

import "strings"

// RenderWikitext renders nodes back to wiki markup. Unexpanded template
// nodes render as their literal {{...}} form, which is how resolution
// misses are retained in output.
func RenderWikitext(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		renderWikitext(&b, n)
	}
	return b.String()
}

func renderWikitext(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindRoot:
		for _, c := range n.Children {
			renderWikitext(b, c)
		}
	case KindText:
		b.WriteString(n.Text)
	case KindHTML:
		b.WriteString(n.Text)
	case KindHeading:
		marker := strings.Repeat("=", n.Level)
		b.WriteString(marker)
		b.WriteByte(' ')
		b.WriteString(RenderWikitext(n.Children))
		b.WriteByte(' ')
		b.WriteString(marker)
		b.WriteByte('\n')
	case KindList:
		for _, item := range n.Children {
			renderWikitext(b, item)
		}
	case KindListItem:
		b.WriteString(n.Prefix)
		b.WriteString(RenderWikitext(n.Children))
		b.WriteByte('\n')
	case KindTemplate:
		b.WriteString("{{")
		b.WriteString(n.Name)
		for _, a := range n.Args {
			b.WriteByte('|')
			if a.Name != "" {
				b.WriteString(a.Name)
				b.WriteByte('=')
			}
			b.WriteString(RenderWikitext(a.Value))
		}
		b.WriteString("}}")
	case KindTemplateArg:
		b.WriteString("{{{")
		b.WriteString(n.Name)
		if len(n.Args) > 0 {
			b.WriteByte('|')
			b.WriteString(RenderWikitext(n.Args[0].Value))
		}
		b.WriteString("}}}")
	case KindLink:
		b.WriteString("[[")
		b.WriteString(n.Name)
		if len(n.Children) > 0 {
			b.WriteByte('|')
			b.WriteString(RenderWikitext(n.Children))
		}
		b.WriteString("]]")
	case KindFormat:
		marker := "''"
		if n.Name == "bold" {
			marker = "'''"
		}
		b.WriteString(marker)
		b.WriteString(RenderWikitext(n.Children))
		b.WriteString(marker)
	}
}

// RenderText renders nodes to cleaned plain text for extracted fields:
// links become their display text, formatting is dropped, HTML spans
// are removed, and whitespace is collapsed. Leftover template nodes
// render as literal markup so resolution misses stay visible in
// extracted glosses.
func RenderText(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		renderText(&b, n)
	}
	return collapseSpace(b.String())
}

func renderText(b *strings.Builder, n *Node) {
	switch n.Kind {
	case KindRoot, KindList, KindFormat:
		for _, c := range n.Children {
			renderText(b, c)
		}
	case KindText:
		b.WriteString(n.Text)
	case KindHeading:
		for _, c := range n.Children {
			renderText(b, c)
		}
		b.WriteByte('\n')
	case KindListItem:
		for _, c := range n.Children {
			renderText(b, c)
		}
		b.WriteByte('\n')
	case KindLink:
		if len(n.Children) > 0 {
			for _, c := range n.Children {
				renderText(b, c)
			}
		} else {
			b.WriteString(n.Name)
		}
	case KindTemplate, KindTemplateArg:
		b.WriteString(RenderWikitext([]*Node{n}))
	case KindHTML:
		// Opaque spans carry no extractable text.
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
