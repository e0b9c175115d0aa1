// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wikitext

import (
	"fmt"
	"strings"

	"github.com/pdiddy/wiktengine/pkg/types"
)

// ErrStrictParse wraps the first diagnostic when ParserConfig.Strict is
// set.
type ErrStrictParse struct {
	Diag types.Diagnostic
}

func (e *ErrStrictParse) Error() string {
	return fmt.Sprintf("strict parse: %s", e.Diag.Message)
}

// Parse converts raw wiki markup into a node tree. Malformed input
// produces a best-effort tree plus diagnostics; only Strict mode turns
// the first diagnostic into an error (R1.4). The Page field of returned
// diagnostics is left empty for the caller to fill.
func Parse(src string, cfg types.ParserConfig) (*Node, []types.Diagnostic, error) {
	maxNesting := cfg.MaxNesting
	if maxNesting <= 0 {
		maxNesting = 40
	}

	p := &parser{
		src:        strings.ReplaceAll(src, "\r\n", "\n"),
		maxNesting: maxNesting,
	}

	root := &Node{Kind: KindRoot}
	root.Children = p.parseBlocks()

	if cfg.Strict && len(p.diags) > 0 {
		return root, p.diags, &ErrStrictParse{Diag: p.diags[0]}
	}
	return root, p.diags, nil
}

type parser struct {
	src        string
	pos        int
	base       int // offset of src[0] in the original page text
	depth      int
	maxNesting int
	diags      []types.Diagnostic
}

func (p *parser) diag(offset int, format string, args ...any) {
	p.diags = append(p.diags, types.Diagnostic{
		Kind:    types.DiagParse,
		Path:    fmt.Sprintf("offset %d", p.base+offset),
		Message: fmt.Sprintf(format, args...),
	})
}

func (p *parser) rest() string {
	return p.src[p.pos:]
}

func (p *parser) atLineStart() bool {
	return p.pos == 0 || p.src[p.pos-1] == '\n'
}

func isListMarker(c byte) bool {
	return c == '*' || c == '#' || c == ':' || c == ';'
}

// blockStart reports whether the current line begins a heading or list.
func (p *parser) blockStart() bool {
	if p.pos >= len(p.src) {
		return false
	}
	c := p.src[p.pos]
	if isListMarker(c) {
		return true
	}
	if c != '=' {
		return false
	}
	line := p.currentLine()
	return isHeadingLine(line)
}

func (p *parser) currentLine() string {
	end := strings.IndexByte(p.src[p.pos:], '\n')
	if end < 0 {
		return p.src[p.pos:]
	}
	return p.src[p.pos : p.pos+end]
}

func isHeadingLine(line string) bool {
	trimmed := strings.TrimRight(line, " \t")
	return strings.HasPrefix(trimmed, "=") && strings.HasSuffix(trimmed, "=") && len(trimmed) >= 3
}

// parseBlocks parses top-level content: headings, lists, and paragraph
// runs of inline content.
func (p *parser) parseBlocks() []*Node {
	var nodes []*Node
	for p.pos < len(p.src) {
		if p.atLineStart() {
			c := p.src[p.pos]
			if c == '=' && isHeadingLine(p.currentLine()) {
				nodes = append(nodes, p.parseHeadingLine())
				continue
			}
			if isListMarker(c) {
				nodes = append(nodes, p.parseListRun())
				continue
			}
		}
		inline := p.parseInline(nil, true)
		nodes = append(nodes, inline...)
		// parseInline returns either at a block start or at EOF; if it
		// consumed nothing we are at a block boundary handled above.
		if len(inline) == 0 && p.pos < len(p.src) && !p.blockStart() {
			// Defensive: never loop without progress on pathological input.
			nodes = append(nodes, NewText(string(p.src[p.pos])))
			p.pos++
		}
	}
	return nodes
}

// parseHeadingLine parses one ==...== line. The heading level is the
// matched marker count, capped at 6 as the renderer does.
func (p *parser) parseHeadingLine() *Node {
	start := p.pos
	line := strings.TrimRight(p.currentLine(), " \t")
	p.pos += len(p.currentLine())
	if p.pos < len(p.src) {
		p.pos++ // consume newline
	}

	level := 0
	for level < len(line) && line[level] == '=' {
		level++
	}
	trailing := 0
	for trailing < len(line) && line[len(line)-1-trailing] == '=' {
		trailing++
	}
	if trailing < level {
		level = trailing
	}
	// A line of mostly = markers ("===") keeps at least one content byte,
	// matching renderer behavior.
	if level*2 >= len(line) {
		level = (len(line) - 1) / 2
	}
	if level > 6 {
		p.diag(start, "heading marker run of %d capped at 6", level)
		level = 6
	}

	inner := strings.TrimSpace(line[level : len(line)-level])

	sub := &parser{src: inner, base: p.base + start + level, maxNesting: p.maxNesting}
	children := sub.parseInline(nil, false)
	p.diags = append(p.diags, sub.diags...)

	return &Node{
		Kind:     KindHeading,
		Level:    level,
		Offset:   p.base + start,
		Children: children,
	}
}

// parseListRun groups consecutive marker-prefixed lines into one list.
// Item nesting depth is the marker prefix length (R1.3).
func (p *parser) parseListRun() *Node {
	start := p.pos
	list := &Node{Kind: KindList, Offset: p.base + start}

	for p.pos < len(p.src) && p.atLineStart() && isListMarker(p.src[p.pos]) {
		itemStart := p.pos
		prefixEnd := p.pos
		for prefixEnd < len(p.src) && isListMarker(p.src[prefixEnd]) {
			prefixEnd++
		}
		prefix := p.src[p.pos:prefixEnd]
		p.pos = prefixEnd

		item := &Node{Kind: KindListItem, Prefix: prefix, Offset: p.base + itemStart}
		item.Children = p.parseInline([]string{"\n"}, false)
		if p.pos < len(p.src) && p.src[p.pos] == '\n' {
			p.pos++
		}
		list.Children = append(list.Children, item)
	}

	if len(list.Children) > 0 {
		list.Prefix = list.Children[0].Prefix
	}
	return list
}

// matchStop reports which stop token, if any, begins at the current
// position.
func matchStop(rest string, stops []string) string {
	for _, s := range stops {
		if strings.HasPrefix(rest, s) {
			return s
		}
	}
	return ""
}

// parseInline scans inline content until one of the stop tokens is
// found at this nesting level (the token is not consumed), or, when
// blockAware is set, until a line start that begins a heading or list.
func (p *parser) parseInline(stops []string, blockAware bool) []*Node {
	var nodes []*Node
	textStart := p.pos

	flush := func(end int) {
		if end > textStart {
			nodes = append(nodes, &Node{
				Kind:   KindText,
				Text:   p.src[textStart:end],
				Offset: p.base + textStart,
			})
		}
	}

	for p.pos < len(p.src) {
		rest := p.rest()

		if matchStop(rest, stops) != "" {
			flush(p.pos)
			return nodes
		}
		if blockAware && p.atLineStart() && p.blockStart() {
			flush(p.pos)
			return nodes
		}

		var parsed *Node
		switch {
		case strings.HasPrefix(rest, "<!--"):
			flush(p.pos)
			p.skipComment()
			textStart = p.pos
			continue
		case strings.HasPrefix(rest, "<nowiki>"):
			flush(p.pos)
			nodes = append(nodes, p.parseNowiki())
			textStart = p.pos
			continue
		case strings.HasPrefix(rest, "{{{"):
			flush(p.pos)
			parsed = p.parseTemplateArg()
		case strings.HasPrefix(rest, "{{"):
			flush(p.pos)
			parsed = p.parseTemplate()
		case strings.HasPrefix(rest, "[["):
			flush(p.pos)
			parsed = p.parseLink()
		case strings.HasPrefix(rest, "'''") || strings.HasPrefix(rest, "''"):
			flush(p.pos)
			parsed = p.parseFormat()
		case rest[0] == '<' && len(rest) > 1 && (isTagByte(rest[1]) || rest[1] == '/'):
			flush(p.pos)
			parsed = p.parseHTMLTag()
		default:
			p.pos++
			continue
		}

		// Failed constructs decay to a literal text node holding the
		// opening marker; scanning resumes after it.
		if parsed != nil {
			nodes = append(nodes, parsed)
		}
		textStart = p.pos
	}

	flush(p.pos)
	return nodes
}

func isTagByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func (p *parser) skipComment() {
	end := strings.Index(p.rest(), "-->")
	if end < 0 {
		p.diag(p.pos, "unterminated comment")
		p.pos = len(p.src)
		return
	}
	p.pos += end + len("-->")
}

func (p *parser) parseNowiki() *Node {
	start := p.pos
	p.pos += len("<nowiki>")
	end := strings.Index(p.rest(), "</nowiki>")
	if end < 0 {
		p.diag(start, "unterminated nowiki")
		text := p.rest()
		p.pos = len(p.src)
		return &Node{Kind: KindText, Text: text, Offset: p.base + start}
	}
	text := p.src[p.pos : p.pos+end]
	p.pos += end + len("</nowiki>")
	return &Node{Kind: KindText, Text: text, Offset: p.base + start}
}

// literalAt emits the decayed opening marker as a literal text node.
func (p *parser) literalAt(start int) *Node {
	return &Node{Kind: KindText, Text: p.src[start:p.pos], Offset: p.base + start}
}

// parseTemplate parses a {{name|arg|name=value}} invocation. On any
// failure the opening braces decay to literal text with a diagnostic.
func (p *parser) parseTemplate() *Node {
	start := p.pos
	p.pos += 2
	if p.depth >= p.maxNesting {
		p.diag(start, "nesting depth limit %d reached", p.maxNesting)
		return p.literalAt(start)
	}
	p.depth++
	defer func() { p.depth-- }()

	nameNodes := p.parseInline([]string{"|", "}}"}, false)
	node := &Node{
		Kind:   KindTemplate,
		Name:   strings.TrimSpace(RenderWikitext(nameNodes)),
		Offset: p.base + start,
	}

	for p.pos < len(p.src) && p.src[p.pos] == '|' {
		p.pos++
		node.Args = append(node.Args, p.parseArg())
	}

	if !strings.HasPrefix(p.rest(), "}}") {
		p.diag(start, "unclosed template %q", node.Name)
		p.pos = start + 2
		return p.literalAt(start)
	}
	p.pos += 2

	if node.Name == "" {
		p.diag(start, "template with empty name")
	}
	return node
}

// parseArg parses one template argument. A top-level "=" before the
// first "|" or "}}" makes the argument named; everything else is
// positional in written order.
func (p *parser) parseArg() Arg {
	first := p.parseInline([]string{"|", "}}", "="}, false)
	if strings.HasPrefix(p.rest(), "=") {
		p.pos++
		value := p.parseInline([]string{"|", "}}"}, false)
		return Arg{
			Name:  strings.TrimSpace(RenderWikitext(first)),
			Value: trimNodes(value),
		}
	}
	return Arg{Value: trimNodes(first)}
}

// trimNodes strips leading/trailing whitespace from the boundary text
// nodes of an argument value. Both positional and named arguments are
// trimmed so expansion output does not depend on source formatting.
func trimNodes(nodes []*Node) []*Node {
	if len(nodes) == 0 {
		return nil
	}
	if nodes[0].Kind == KindText {
		nodes[0].Text = strings.TrimLeft(nodes[0].Text, " \t\n")
	}
	last := nodes[len(nodes)-1]
	if last.Kind == KindText {
		last.Text = strings.TrimRight(last.Text, " \t\n")
	}
	var out []*Node
	for _, n := range nodes {
		if n.Kind == KindText && n.Text == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// parseTemplateArg parses a {{{name|default}}} parameter reference.
func (p *parser) parseTemplateArg() *Node {
	start := p.pos
	p.pos += 3
	if p.depth >= p.maxNesting {
		p.diag(start, "nesting depth limit %d reached", p.maxNesting)
		return p.literalAt(start)
	}
	p.depth++
	defer func() { p.depth-- }()

	nameNodes := p.parseInline([]string{"|", "}}}"}, false)
	node := &Node{
		Kind:   KindTemplateArg,
		Name:   strings.TrimSpace(RenderWikitext(nameNodes)),
		Offset: p.base + start,
	}

	if strings.HasPrefix(p.rest(), "|") {
		p.pos++
		def := p.parseInline([]string{"}}}"}, false)
		node.Args = append(node.Args, Arg{Value: def})
	}

	if !strings.HasPrefix(p.rest(), "}}}") {
		p.diag(start, "unclosed parameter %q", node.Name)
		p.pos = start + 3
		return p.literalAt(start)
	}
	p.pos += 3
	return node
}

// parseLink parses a [[target|display]] link. Links do not span line
// breaks; an unclosed link decays to literal text.
func (p *parser) parseLink() *Node {
	start := p.pos
	p.pos += 2
	if p.depth >= p.maxNesting {
		p.diag(start, "nesting depth limit %d reached", p.maxNesting)
		return p.literalAt(start)
	}
	p.depth++
	defer func() { p.depth-- }()

	target := p.parseInline([]string{"|", "]]", "\n"}, false)
	node := &Node{
		Kind:   KindLink,
		Name:   strings.TrimSpace(RenderWikitext(target)),
		Offset: p.base + start,
	}

	if strings.HasPrefix(p.rest(), "|") {
		p.pos++
		node.Children = p.parseInline([]string{"]]", "\n"}, false)
	}

	if !strings.HasPrefix(p.rest(), "]]") {
		p.diag(start, "unclosed link %q", node.Name)
		p.pos = start + 2
		return p.literalAt(start)
	}
	p.pos += 2
	return node
}

// parseFormat parses a bold ''' or italic '' span. The span closes at
// the matching marker on the same line; an unclosed span decays to
// literal quotes without a diagnostic, the way the renderer auto-closes
// at end of line.
func (p *parser) parseFormat() *Node {
	start := p.pos
	marker := "''"
	kind := "italic"
	if strings.HasPrefix(p.rest(), "'''") {
		marker = "'''"
		kind = "bold"
	}
	p.pos += len(marker)

	line := p.src[p.pos:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	end := strings.Index(line, marker)
	if end < 0 {
		return p.literalAt(start)
	}

	inner := line[:end]
	sub := &parser{src: inner, base: p.base + p.pos, maxNesting: p.maxNesting}
	children := sub.parseInline(nil, false)
	p.diags = append(p.diags, sub.diags...)

	p.pos += end + len(marker)
	return &Node{
		Kind:     KindFormat,
		Name:     kind,
		Offset:   p.base + start,
		Children: children,
	}
}

// parseHTMLTag consumes one raw HTML-like tag as an opaque span. Tag
// contents are not interpreted (R1.5).
func (p *parser) parseHTMLTag() *Node {
	start := p.pos
	end := strings.IndexByte(p.rest(), '>')
	if end < 0 {
		p.pos++
		return p.literalAt(start)
	}
	tag := p.src[p.pos : p.pos+end+1]
	p.pos += end + 1
	return &Node{Kind: KindHTML, Text: tag, Offset: p.base + start}
}
