// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/wiktengine/internal/expand"
	"github.com/pdiddy/wiktengine/internal/pagestore"
	"github.com/pdiddy/wiktengine/pkg/types"
)

type mapResolver struct {
	templates map[string]string
}

func (m *mapResolver) GetTemplate(_ context.Context, name string) (*types.TemplateDefinition, error) {
	body, ok := m.templates[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, pagestore.ErrNotFound)
	}
	return &types.TemplateDefinition{Name: name, Body: body}, nil
}

func (m *mapResolver) GetModule(_ context.Context, name string) (*types.ModuleDefinition, error) {
	return nil, fmt.Errorf("%s: %w", name, pagestore.ErrNotFound)
}

func testExtractor(templates map[string]string, cfg types.ExtractionConfig) *Extractor {
	engine := expand.New(&mapResolver{templates: templates}, nil,
		types.ExpansionConfig{}, types.ParserConfig{}, zerolog.Nop())
	return New(engine, cfg, types.ParserConfig{}, zerolog.Nop())
}

func extractOne(t *testing.T, x *Extractor, title, body string) (*types.ExtractionResult, []types.Diagnostic) {
	t.Helper()
	page := &types.Page{Title: title, Body: body, Model: types.ModelWikitext}
	result, diags, err := x.ExtractPage(context.Background(), page)
	require.NoError(t, err)
	return result, diags
}

func TestSimpleVerbEntry(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	result, diags := extractOne(t, x, "sortaa", "== Finnish ==\n=== Verb ===\n# to oppress\n")

	require.Len(t, result.Entries, 1)
	entry := result.Entries[0]
	assert.Equal(t, "sortaa", entry.Word)
	assert.Equal(t, "Finnish", entry.Language)
	assert.Equal(t, "fi", entry.LangCode)
	assert.Equal(t, "Verb", entry.POS)
	require.Len(t, entry.Senses, 1)
	assert.Equal(t, "to oppress", entry.Senses[0].Gloss)
	assert.Empty(t, diags)
}

func TestInflectionTemplateProducesForm(t *testing.T) {
	x := testExtractor(
		map[string]string{"Template:Conj-table": "form: -it"},
		types.ExtractionConfig{TableRules: map[string]types.TableRule{
			"conj-table": {Template: "conj-table"},
		}},
	)
	result, _ := extractOne(t, x, "sortaa",
		"== Finnish ==\n=== Verb ===\n# to oppress\n{{conj-table|type=A}}\n")

	require.Len(t, result.Entries, 1)
	require.Len(t, result.Entries[0].Forms, 1)
	form := result.Entries[0].Forms[0]
	assert.Equal(t, "-it", form.Form)
	assert.Equal(t, "conj-table", form.Source)
	assert.Equal(t, "form", form.Categories["label"])
}

func TestInflectionRuleMatchesRegardlessOfWrittenCase(t *testing.T) {
	x := testExtractor(
		map[string]string{"Template:Conj-table": "form: -it"},
		types.ExtractionConfig{TableRules: map[string]types.TableRule{
			"conj-table": {Template: "conj-table"},
		}},
	)
	result, _ := extractOne(t, x, "sortaa",
		"== Finnish ==\n=== Verb ===\n# to oppress\n{{Conj-table|type=A}}\n")

	require.Len(t, result.Entries, 1)
	require.Len(t, result.Entries[0].Forms, 1)
	assert.Equal(t, "-it", result.Entries[0].Forms[0].Form)
}

func TestMissingTemplateStaysInGloss(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	result, diags := extractOne(t, x, "sortaa",
		"== Finnish ==\n=== Verb ===\n# to {{undefined-template}} oppress\n")

	require.Len(t, result.Entries, 1)
	require.Len(t, result.Entries[0].Senses, 1)
	assert.Equal(t, "to {{undefined-template}} oppress", result.Entries[0].Senses[0].Gloss)

	var kinds []types.DiagnosticKind
	for _, d := range diags {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, types.DiagResolutionMiss)
}

func TestSenseTagsAndExamples(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Verb ===\n" +
		"# (transitive, informal) to oppress\n" +
		"#: he oppressed the peasants\n" +
		"#* quoted usage\n" +
		"# to tyrannize\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 1)
	senses := result.Entries[0].Senses
	require.Len(t, senses, 2)

	assert.Equal(t, "to oppress", senses[0].Gloss)
	assert.Equal(t, []string{"transitive", "informal"}, senses[0].Tags)
	assert.Equal(t, []string{"he oppressed the peasants", "quoted usage"}, senses[0].Examples)

	assert.Equal(t, "to tyrannize", senses[1].Gloss)
	assert.Empty(t, senses[1].Tags)
	assert.Empty(t, senses[1].Examples)
}

func TestPronunciationAppliesToEveryEntry(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Pronunciation ===\n" +
		"* IPA: /ˈsortɑː/, [ˈs̠o̞rtɑː]\n" +
		"=== Verb ===\n" +
		"# to oppress\n" +
		"=== Noun ===\n" +
		"# oppression\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 2)
	for _, entry := range result.Entries {
		require.Len(t, entry.Sounds, 2)
		assert.Equal(t, "/ˈsortɑː/", entry.Sounds[0].IPA)
		assert.Equal(t, "[ˈs̠o̞rtɑː]", entry.Sounds[1].IPA)
	}
}

func TestPronunciationWithoutDelimitersKeptWhole(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Verb ===\n" +
		"# to oppress\n" +
		"==== Pronunciation ====\n" +
		"* rhymes with ortaa\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 1)
	require.Len(t, result.Entries[0].Sounds, 1)
	assert.Equal(t, "rhymes with ortaa", result.Entries[0].Sounds[0].IPA)
}

func TestTranslationsSection(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Verb ===\n" +
		"# to oppress\n" +
		"==== Translations ====\n" +
		"* English: oppress, repress\n" +
		"* Klingon: qan\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 1)
	trans := result.Entries[0].Translations
	require.Len(t, trans, 3)
	assert.Equal(t, types.Translation{Language: "English", Code: "en", Word: "oppress"}, trans[0])
	assert.Equal(t, types.Translation{Language: "English", Code: "en", Word: "repress"}, trans[1])
	assert.Equal(t, types.Translation{Language: "Klingon", Word: "qan"}, trans[2])
}

func TestLinkageSections(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Verb ===\n" +
		"# to oppress\n" +
		"==== Synonyms ====\n" +
		"* [[alistaa]]\n" +
		"* [[riistää]]\n" +
		"==== Antonyms ====\n" +
		"* [[vapauttaa]]\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, []types.Linkage{
		{Relation: "synonyms", Word: "alistaa"},
		{Relation: "synonyms", Word: "riistää"},
		{Relation: "antonyms", Word: "vapauttaa"},
	}, result.Entries[0].Linkages)
}

func TestUnknownHeadingPreservedAsExtra(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Etymology ===\n" +
		"From Proto-Finnic.\n" +
		"=== Verb ===\n" +
		"# to oppress\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 1)
	assert.Equal(t, "From Proto-Finnic.", result.Entries[0].Extra["Etymology"])
}

func TestMultipleLanguageSections(t *testing.T) {
	x := testExtractor(nil, types.ExtractionConfig{})
	body := "== Finnish ==\n" +
		"=== Verb ===\n" +
		"# to oppress\n" +
		"== Estonian ==\n" +
		"=== Verb ===\n" +
		"# to arrange\n" +
		"== Klingon ==\n" +
		"=== Verb ===\n" +
		"# unrecognized language, skipped\n"
	result, _ := extractOne(t, x, "sortaa", body)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "fi", result.Entries[0].LangCode)
	assert.Equal(t, "et", result.Entries[1].LangCode)
}

func TestPanelTemplateSkipped(t *testing.T) {
	x := testExtractor(
		map[string]string{"Template:Nav-box": "form: junk"},
		types.ExtractionConfig{
			PanelTemplates: []string{"nav-box"},
			TableRules: map[string]types.TableRule{
				"nav-box": {Template: "nav-box"},
			},
		},
	)
	result, _ := extractOne(t, x, "sortaa",
		"== Finnish ==\n=== Verb ===\n# to oppress\n{{nav-box}}\n")

	require.Len(t, result.Entries, 1)
	assert.Empty(t, result.Entries[0].Forms)
}

func TestTableDecomposition(t *testing.T) {
	rendered := "{|\n" +
		"|-\n" +
		"! present !! past\n" +
		"|-\n" +
		"| sorran || sorsin\n" +
		"|-\n" +
		"| sorrat || —\n" +
		"|}"
	rule := types.TableRule{
		Template: "fi-conj",
		Rows:     map[int]string{1: "person=1", 2: "person=2"},
		Columns:  map[int]string{0: "tense=present", 1: "tense=past"},
	}

	forms := decomposeForms(rendered, rule, "fi-conj")
	require.Len(t, forms, 3)

	assert.Equal(t, "sorran", forms[0].Form)
	assert.Equal(t, map[string]string{"person": "1", "tense": "present"}, forms[0].Categories)
	assert.Equal(t, "sorsin", forms[1].Form)
	assert.Equal(t, map[string]string{"person": "1", "tense": "past"}, forms[1].Categories)
	assert.Equal(t, "sorrat", forms[2].Form)
	assert.Equal(t, map[string]string{"person": "2", "tense": "present"}, forms[2].Categories)

	for _, f := range forms {
		assert.Equal(t, "fi-conj", f.Source)
	}
}

func TestLabelDecompositionWithMapping(t *testing.T) {
	rendered := "infinitive: sortaa\npast: sorsi\nignored: junk"
	rule := types.TableRule{
		Template: "fi-verb",
		Labels: map[string]string{
			"infinitive": "mood=infinitive",
			"past":       "tense=past,person=3",
		},
	}

	forms := decomposeForms(rendered, rule, "fi-verb")
	require.Len(t, forms, 2)
	assert.Equal(t, "sortaa", forms[0].Form)
	assert.Equal(t, map[string]string{"mood": "infinitive"}, forms[0].Categories)
	assert.Equal(t, "sorsi", forms[1].Form)
	assert.Equal(t, map[string]string{"tense": "past", "person": "3"}, forms[1].Categories)
}

func TestFormDeduplication(t *testing.T) {
	forms := []types.Form{
		{Form: "sorran", Categories: map[string]string{"person": "1"}, Source: "a"},
		{Form: "sorran", Categories: map[string]string{"person": "1"}, Source: "b"},
		{Form: "sorran", Categories: map[string]string{"person": "2"}, Source: "b"},
	}

	out := dedupeForms(forms)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Source, "first occurrence wins for identical mappings")
	assert.Equal(t, map[string]string{"person": "2"}, out[1].Categories,
		"conflicting mapping for the same surface is retained")
}
