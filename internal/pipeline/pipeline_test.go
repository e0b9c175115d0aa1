// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/wiktengine/internal/pagestore"
	"github.com/pdiddy/wiktengine/pkg/types"
)

func testStore(t *testing.T, pages ...*types.Page) *pagestore.Store {
	t.Helper()
	store, err := pagestore.Open(types.StoreConfig{
		DBPath: filepath.Join(t.TempDir(), "pages.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, p := range pages {
		require.NoError(t, store.PutPage(context.Background(), p))
	}
	return store
}

func mainPage(title, body string) *types.Page {
	return &types.Page{Title: title, Namespace: types.NsMain, Model: types.ModelWikitext, Body: body}
}

func templatePage(title, body string) *types.Page {
	return &types.Page{Title: title, Namespace: types.NsTemplate, Model: types.ModelWikitext, Body: body}
}

func modulePage(title, src string) *types.Page {
	return &types.Page{Title: title, Namespace: types.NsModule, Model: types.ModelScribunto, Body: src}
}

func decodeRecords(t *testing.T, out *bytes.Buffer) []Record {
	t.Helper()
	var records []Record
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())
	return records
}

func TestRunEndToEnd(t *testing.T) {
	store := testStore(t,
		mainPage("sortaa", "== Finnish ==\n=== Verb ===\n# to oppress\n{{conj-table|type=A}}\n"),
		templatePage("Template:Conj-table", "form: -{{#invoke:conj|suffix|type={{{type}}}}}"),
		modulePage("Module:Conj", `
			local p = {}
			function p.suffix(frame)
				if frame.args.type == "A" then
					return "it"
				end
				return "?"
			end
			return p
		`),
	)

	cfg := types.DefaultPipelineConfig()
	cfg.Extraction.TableRules = map[string]types.TableRule{
		"conj-table": {Template: "conj-table"},
	}

	p, err := New(store, cfg, zerolog.Nop())
	require.NoError(t, err)

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), []string{"sortaa"}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 1, summary.Entries)
	assert.Equal(t, 0, summary.Rejected)
	assert.Empty(t, summary.Diagnostics)

	records := decodeRecords(t, &out)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "1", rec.SchemaVersion)
	assert.Equal(t, "sortaa", rec.Word)
	assert.Equal(t, "fi", rec.LangCode)
	assert.Equal(t, "Verb", rec.POS)
	require.Len(t, rec.Senses, 1)
	assert.Equal(t, "to oppress", rec.Senses[0].Gloss)
	require.Len(t, rec.Forms, 1)
	assert.Equal(t, "-it", rec.Forms[0].Form)
	assert.Equal(t, "conj-table", rec.Forms[0].Source)
}

func TestRunRejectsEntriesFailingSchema(t *testing.T) {
	// A POS section with no sense list and no forms fails the schema
	// gate: the entry is dropped and its omission recorded.
	store := testStore(t,
		mainPage("tyhjä", "== Finnish ==\n=== Noun ===\nprose without any senses\n"),
	)

	p, err := New(store, types.DefaultPipelineConfig(), zerolog.Nop())
	require.NoError(t, err)

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), []string{"tyhjä"}, &out)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Entries)
	assert.Equal(t, 1, summary.Rejected)
	assert.Empty(t, decodeRecords(t, &out))
	assert.Contains(t, summary.DiagnosticCounts(), types.DiagValidation)
}

func TestRunMissingPageIsDiagnosticNotError(t *testing.T) {
	store := testStore(t)

	p, err := New(store, types.DefaultPipelineConfig(), zerolog.Nop())
	require.NoError(t, err)

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), []string{"no-such-page"}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Pages)
	assert.Equal(t, 0, summary.Entries)
	assert.Equal(t, 1, summary.DiagnosticCounts()[types.DiagResolutionMiss])
}

func TestRunProcessesPagesConcurrently(t *testing.T) {
	const n = 24
	pages := make([]*types.Page, 0, n)
	titles := make([]string, 0, n)
	for i := 0; i < n; i++ {
		title := fmt.Sprintf("word%02d", i)
		pages = append(pages, mainPage(title,
			fmt.Sprintf("== Finnish ==\n=== Noun ===\n# meaning %d\n", i)))
		titles = append(titles, title)
	}
	store := testStore(t, pages...)

	cfg := types.DefaultPipelineConfig()
	cfg.Workers = 4

	p, err := New(store, cfg, zerolog.Nop())
	require.NoError(t, err)

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), titles, &out)
	require.NoError(t, err)

	assert.Equal(t, n, summary.Pages)
	assert.Equal(t, n, summary.Entries)

	words := make(map[string]bool)
	for _, rec := range decodeRecords(t, &out) {
		words[rec.Word] = true
	}
	assert.Len(t, words, n, "every page yields exactly one entry, in any order")
}

func TestRunHonorsCancellation(t *testing.T) {
	store := testStore(t,
		mainPage("sortaa", "== Finnish ==\n=== Verb ===\n# to oppress\n"),
	)

	p, err := New(store, types.DefaultPipelineConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err = p.Run(ctx, []string{"sortaa"}, &out)
	assert.ErrorIs(t, err, context.Canceled)
}
