// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract walks parsed pages and produces structured lexical
// entries: one entry per (language section, part-of-speech section)
// pair, with senses, inflected forms, and cross-references. Language
// and heading conventions are data-driven configuration, not code.
// Per prd004-extraction.
package extract

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/wiktengine/internal/expand"
	"github.com/pdiddy/wiktengine/internal/pagestore"
	"github.com/pdiddy/wiktengine/internal/wikitext"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// Extractor turns pages into lexical entries. Like the engine it wraps
// it is owned by a single worker.
type Extractor struct {
	engine    *expand.Engine
	cfg       types.ExtractionConfig
	parserCfg types.ParserConfig
	log       zerolog.Logger

	languages map[string]string
	pos       map[string]bool
	linkage   map[string]bool
	pron      map[string]bool
	trans     map[string]bool
	panels    map[string]bool

	// tableRules is cfg.TableRules rekeyed by normalized template
	// title so that lookup matches however a page writes the call.
	tableRules map[string]types.TableRule
}

// New returns an extractor with built-in vocabularies filling any
// fields the config leaves empty.
func New(engine *expand.Engine, cfg types.ExtractionConfig, parserCfg types.ParserConfig, log zerolog.Logger) *Extractor {
	languages := cfg.Languages
	if len(languages) == 0 {
		languages = defaultLanguages
	}
	posHeadings := cfg.POSHeadings
	if len(posHeadings) == 0 {
		posHeadings = defaultPOSHeadings
	}
	linkageHeadings := cfg.LinkageHeadings
	if len(linkageHeadings) == 0 {
		linkageHeadings = defaultLinkageHeadings
	}
	pronHeadings := cfg.PronunciationHeadings
	if len(pronHeadings) == 0 {
		pronHeadings = defaultPronunciationHeadings
	}
	transHeadings := cfg.TranslationHeadings
	if len(transHeadings) == 0 {
		transHeadings = defaultTranslationHeadings
	}

	x := &Extractor{
		engine:    engine,
		cfg:       cfg,
		parserCfg: parserCfg,
		log:       log,
		languages: languages,
		pos:       make(map[string]bool, len(posHeadings)),
		linkage:   make(map[string]bool, len(linkageHeadings)),
		pron:      make(map[string]bool, len(pronHeadings)),
		trans:     make(map[string]bool, len(transHeadings)),
		panels:    make(map[string]bool, len(cfg.PanelTemplates)),

		tableRules: make(map[string]types.TableRule, len(cfg.TableRules)),
	}
	for _, h := range posHeadings {
		x.pos[h] = true
	}
	for _, h := range linkageHeadings {
		x.linkage[h] = true
	}
	for _, h := range pronHeadings {
		x.pron[h] = true
	}
	for _, h := range transHeadings {
		x.trans[h] = true
	}
	for _, name := range cfg.PanelTemplates {
		x.panels[pagestore.EnsurePrefix(name, types.NsTemplate)] = true
	}
	for name, rule := range cfg.TableRules {
		x.tableRules[pagestore.EnsurePrefix(name, types.NsTemplate)] = rule
	}
	return x
}

// walkState tracks position within the page's section structure while
// iterating top-level nodes in document order.
type walkState struct {
	language string // current language section heading, "" outside one
	langCode string
	entry    *types.LexicalEntry // current POS section's entry
	relation string              // current linkage section's relation
	inPron   bool                // inside a pronunciation section
	inTrans  bool                // inside a translations section
	extraKey string              // current unknown section's heading
	pending  map[string]string   // extra sections seen before any POS heading

	// pendingSounds holds pronunciations from a section above the
	// first POS heading; they seed every entry of the language.
	pendingSounds []types.Sound
}

// ExtractPage parses a page and produces its lexical entries. Senses,
// forms, and linkages are expanded fragment by fragment so template
// provenance is known at the point of use. Only a cancelled context
// yields an error; everything page-local becomes a diagnostic.
func (x *Extractor) ExtractPage(ctx context.Context, page *types.Page) (*types.ExtractionResult, []types.Diagnostic, error) {
	root, diags, err := wikitext.Parse(page.Body, x.parserCfg)
	if err != nil {
		return nil, diags, err
	}
	for i := range diags {
		diags[i].Page = page.Title
	}

	result := &types.ExtractionResult{PageTitle: page.Title}
	st := &walkState{pending: make(map[string]string)}

	for _, n := range root.Children {
		if err := ctx.Err(); err != nil {
			return nil, diags, err
		}
		switch n.Kind {
		case wikitext.KindHeading:
			x.enterSection(st, result, n)
		default:
			if err := x.content(ctx, page.Title, st, n, &diags); err != nil {
				return nil, diags, err
			}
		}
	}
	x.closeEntry(st, result)

	for i := range result.Entries {
		result.Entries[i].Forms = dedupeForms(result.Entries[i].Forms)
	}
	x.log.Debug().Str("page", page.Title).Int("entries", len(result.Entries)).
		Msg("page extracted")
	return result, diags, nil
}

// enterSection updates the walk state for a heading. Level-2 headings
// delimit languages; deeper headings open POS, linkage, or unknown
// sections within the current language.
func (x *Extractor) enterSection(st *walkState, result *types.ExtractionResult, h *wikitext.Node) {
	text := strings.TrimSpace(wikitext.RenderText(h.Children))

	if h.Level <= 2 {
		x.closeEntry(st, result)
		st.language = ""
		st.langCode = ""
		st.pending = make(map[string]string)
		st.pendingSounds = nil
		if code, ok := x.languages[text]; ok {
			st.language = text
			st.langCode = code
		}
		return
	}

	st.relation = ""
	st.inPron = false
	st.inTrans = false
	st.extraKey = ""
	if st.language == "" {
		return
	}

	switch {
	case x.pos[text]:
		x.closeEntry(st, result)
		st.entry = &types.LexicalEntry{
			Word:     result.PageTitle,
			Language: st.language,
			LangCode: st.langCode,
			POS:      text,
			Extra:    map[string]string{},
		}
		st.entry.Sounds = append(st.entry.Sounds, st.pendingSounds...)
		for k, v := range st.pending {
			st.entry.Extra[k] = v
		}
		st.pending = make(map[string]string)
	case x.linkage[text]:
		st.relation = text
	case x.pron[text]:
		st.inPron = true
	case x.trans[text]:
		st.inTrans = true
	default:
		// Unknown heading: section content is preserved rather than
		// dropped.
		st.extraKey = text
	}
}

func (x *Extractor) closeEntry(st *walkState, result *types.ExtractionResult) {
	if st.entry != nil {
		result.Entries = append(result.Entries, *st.entry)
	}
	st.entry = nil
	st.relation = ""
	st.inPron = false
	st.inTrans = false
	st.extraKey = ""
}

// content routes one non-heading top-level node to the open section.
func (x *Extractor) content(ctx context.Context, title string, st *walkState, n *wikitext.Node, diags *[]types.Diagnostic) error {
	if st.language == "" {
		return nil
	}

	if st.extraKey != "" {
		text, err := x.expandClean(ctx, title, wikitext.RenderWikitext([]*wikitext.Node{n}), diags)
		if err != nil {
			return err
		}
		if text != "" {
			x.appendExtra(st, st.extraKey, text)
		}
		return nil
	}

	switch n.Kind {
	case wikitext.KindList:
		return x.listContent(ctx, title, st, n, diags)
	case wikitext.KindTemplate:
		return x.templateContent(ctx, title, st, n, diags)
	default:
		return nil
	}
}

func (x *Extractor) listContent(ctx context.Context, title string, st *walkState, list *wikitext.Node, diags *[]types.Diagnostic) error {
	switch {
	case st.inPron:
		for _, item := range list.Children {
			text, err := x.expandClean(ctx, title, wikitext.RenderWikitext(item.Children), diags)
			if err != nil {
				return err
			}
			sounds := soundsIn(text)
			if st.entry != nil {
				st.entry.Sounds = append(st.entry.Sounds, sounds...)
			} else {
				st.pendingSounds = append(st.pendingSounds, sounds...)
			}
		}
		return nil
	case st.inTrans:
		if st.entry == nil {
			return nil
		}
		for _, item := range list.Children {
			text, err := x.expandClean(ctx, title, wikitext.RenderWikitext(item.Children), diags)
			if err != nil {
				return err
			}
			st.entry.Translations = append(st.entry.Translations, x.translationsIn(text)...)
		}
		return nil
	case st.relation != "":
		if st.entry == nil {
			return nil
		}
		for _, item := range list.Children {
			word, err := x.expandClean(ctx, title, wikitext.RenderWikitext(item.Children), diags)
			if err != nil {
				return err
			}
			if word != "" {
				st.entry.Linkages = append(st.entry.Linkages, types.Linkage{
					Relation: strings.ToLower(st.relation),
					Word:     word,
				})
			}
		}
		return nil
	case st.entry != nil:
		return x.senses(ctx, title, st.entry, list, diags)
	default:
		return nil
	}
}

// templateContent handles a template invocation sitting directly in a
// section body: panel templates are skipped, inflection-table
// templates are expanded and decomposed into forms.
func (x *Extractor) templateContent(ctx context.Context, title string, st *walkState, n *wikitext.Node, diags *[]types.Diagnostic) error {
	if st.entry == nil {
		return nil
	}
	name := strings.TrimSpace(n.Name)
	normalized := pagestore.EnsurePrefix(name, types.NsTemplate)
	if x.panels[normalized] {
		return nil
	}

	rule, ok := x.tableRules[normalized]
	if !ok {
		return nil
	}

	rendered, ds, err := x.engine.ExpandFragment(ctx, title, wikitext.RenderWikitext([]*wikitext.Node{n}))
	if err != nil {
		return err
	}
	*diags = append(*diags, ds...)

	st.entry.Forms = append(st.entry.Forms, decomposeForms(rendered, rule, name)...)
	return nil
}

// expandClean expands a wikitext fragment and renders it to cleaned
// plain text. Resolution misses inside the fragment stay visible as
// literal markup.
func (x *Extractor) expandClean(ctx context.Context, title, src string, diags *[]types.Diagnostic) (string, error) {
	expanded, ds, err := x.engine.ExpandFragment(ctx, title, src)
	if err != nil {
		return "", err
	}
	*diags = append(*diags, ds...)

	root, _, err := wikitext.Parse(expanded, types.ParserConfig{})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(wikitext.RenderText(root.Children)), nil
}

// soundsIn pulls IPA transcriptions, slash or bracket delimited, out
// of a cleaned pronunciation line. A line without delimiters is kept
// whole so no pronunciation is silently dropped.
func soundsIn(text string) []types.Sound {
	var out []types.Sound
	for i := 0; i < len(text); i++ {
		open := text[i]
		if open != '/' && open != '[' {
			continue
		}
		closing := byte('/')
		if open == '[' {
			closing = ']'
		}
		end := strings.IndexByte(text[i+1:], closing)
		if end < 0 {
			continue
		}
		span := text[i : i+end+2]
		if strings.TrimSpace(span[1:len(span)-1]) != "" {
			out = append(out, types.Sound{IPA: span})
		}
		i += end + 1
	}
	if len(out) == 0 {
		if t := strings.TrimSpace(text); t != "" {
			out = append(out, types.Sound{IPA: t})
		}
	}
	return out
}

// translationsIn parses one translations list item of the form
// "Language: word, word". Target languages outside the configured
// vocabulary keep an empty code.
func (x *Extractor) translationsIn(text string) []types.Translation {
	lang, rest, ok := strings.Cut(text, ":")
	if !ok {
		return nil
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return nil
	}
	var out []types.Translation
	for _, w := range strings.Split(rest, ",") {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, types.Translation{
			Language: lang,
			Code:     x.languages[lang],
			Word:     w,
		})
	}
	return out
}

func (x *Extractor) appendExtra(st *walkState, key, text string) {
	target := st.pending
	if st.entry != nil {
		target = st.entry.Extra
	}
	if prev, ok := target[key]; ok && prev != "" {
		target[key] = prev + "\n" + text
		return
	}
	target[key] = text
}
