// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"strings"

	"github.com/pdiddy/wiktengine/internal/wikitext"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// senses collects "#" list items as Sense records. "#:" and "#*"
// sub-items attach to the preceding gloss as examples; deeper "#"
// runs ("##") are treated as further glosses of the same entry.
func (x *Extractor) senses(ctx context.Context, title string, entry *types.LexicalEntry, list *wikitext.Node, diags *[]types.Diagnostic) error {
	for _, item := range list.Children {
		if !strings.HasPrefix(item.Prefix, "#") {
			continue
		}
		text, err := x.expandClean(ctx, title, wikitext.RenderWikitext(item.Children), diags)
		if err != nil {
			return err
		}
		if text == "" {
			continue
		}

		if isExamplePrefix(item.Prefix) {
			if len(entry.Senses) == 0 {
				continue
			}
			last := &entry.Senses[len(entry.Senses)-1]
			last.Examples = append(last.Examples, text)
			continue
		}

		gloss, tags := splitSenseTags(text)
		if gloss == "" && len(tags) == 0 {
			continue
		}
		entry.Senses = append(entry.Senses, types.Sense{Gloss: gloss, Tags: tags})
	}
	return nil
}

// isExamplePrefix reports whether a list prefix marks an example or
// quotation sub-item rather than a gloss.
func isExamplePrefix(prefix string) bool {
	trimmed := strings.TrimLeft(prefix, "#")
	return strings.HasPrefix(trimmed, ":") || strings.HasPrefix(trimmed, "*")
}

// splitSenseTags splits leading parenthesized qualifiers off a gloss:
// "(transitive, informal) to oppress" becomes the gloss "to oppress"
// with tags ["transitive", "informal"].
func splitSenseTags(text string) (gloss string, tags []string) {
	if !strings.HasPrefix(text, "(") {
		return text, nil
	}
	end := strings.Index(text, ")")
	if end < 0 {
		return text, nil
	}
	for _, tag := range strings.Split(text[1:end], ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return strings.TrimSpace(text[end+1:]), tags
}
