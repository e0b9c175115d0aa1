// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pagestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/wiktengine/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{DBPath: filepath.Join(t.TempDir(), "pages.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func put(t *testing.T, s *Store, p types.Page) {
	t.Helper()
	if p.Model == "" {
		p.Model = types.ModelWikitext
	}
	require.NoError(t, s.PutPage(context.Background(), &p))
}

func TestGetPageRoundTrip(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{Title: "sortaa", Body: "== Finnish ==", Revision: 7})

	p, err := s.GetPage(context.Background(), "sortaa")
	require.NoError(t, err)
	assert.Equal(t, "sortaa", p.Title)
	assert.Equal(t, "== Finnish ==", p.Body)
	assert.Equal(t, int64(7), p.Revision)
}

func TestGetPageNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetPage(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMainNamespaceIsCaseSensitive(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{Title: "sortaa", Body: "lower"})
	put(t, s, types.Page{Title: "Sortaa", Body: "upper"})

	lower, err := s.GetPage(context.Background(), "sortaa")
	require.NoError(t, err)
	assert.Equal(t, "lower", lower.Body)

	upper, err := s.GetPage(context.Background(), "Sortaa")
	require.NoError(t, err)
	assert.Equal(t, "upper", upper.Body)
}

func TestGetTemplateNormalization(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{
		Title:     "Template:Conj-table",
		Namespace: types.NsTemplate,
		Body:      "form: -it",
	})

	tests := []string{
		"conj-table",
		"Conj-table",
		"Template:conj-table",
		"template:conj_table",
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			def, err := s.GetTemplate(context.Background(), name)
			require.NoError(t, err)
			assert.Equal(t, "form: -it", def.Body)
			assert.Equal(t, "Conj-table", def.Name)
		})
	}
}

func TestGetTemplateStripsNoInclude(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{
		Title:     "Template:Doc",
		Namespace: types.NsTemplate,
		Body:      "<noinclude>documentation</noinclude>body<includeonly> extra</includeonly>",
	})

	def, err := s.GetTemplate(context.Background(), "Doc")
	require.NoError(t, err)
	assert.Equal(t, "body extra", def.Body)
}

func TestRedirectFollowed(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{
		Title:      "Template:Alias",
		Namespace:  types.NsTemplate,
		RedirectTo: "Template:Real",
	})
	put(t, s, types.Page{
		Title:     "Template:Real",
		Namespace: types.NsTemplate,
		Body:      "real body",
	})

	def, err := s.GetTemplate(context.Background(), "Alias")
	require.NoError(t, err)
	assert.Equal(t, "real body", def.Body)
	assert.Equal(t, "Real", def.Name)
}

func TestRedirectCycleBounded(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{Title: "a", RedirectTo: "b"})
	put(t, s, types.Page{Title: "b", RedirectTo: "a"})

	_, err := s.GetPage(context.Background(), "a")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetModuleRequiresScribunto(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{
		Title:     "Module:Conj",
		Namespace: types.NsModule,
		Model:     types.ModelScribunto,
		Body:      "return {}",
	})
	put(t, s, types.Page{
		Title:     "Module:Notlua",
		Namespace: types.NsModule,
		Model:     types.ModelWikitext,
		Body:      "text",
	})

	def, err := s.GetModule(context.Background(), "conj")
	require.NoError(t, err)
	assert.Equal(t, "Conj", def.Name)
	assert.Equal(t, "return {}", def.Source)

	_, err = s.GetModule(context.Background(), "notlua")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStatsAndMainTitles(t *testing.T) {
	s := testStore(t)
	put(t, s, types.Page{Title: "beta", Body: "b"})
	put(t, s, types.Page{Title: "alpha", Body: "a"})
	put(t, s, types.Page{Title: "redir", RedirectTo: "alpha"})
	put(t, s, types.Page{Title: "Template:T", Namespace: types.NsTemplate, Body: "t"})
	put(t, s, types.Page{
		Title: "Module:M", Namespace: types.NsModule,
		Model: types.ModelScribunto, Body: "return {}",
	})

	st, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Main)
	assert.Equal(t, 1, st.Templates)
	assert.Equal(t, 1, st.Modules)
	assert.Equal(t, 5, st.Total())

	titles, err := s.MainTitles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, titles)
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sortaa", "sortaa"},
		{"foo_bar", "foo bar"},
		{"  spaced   out ", "spaced out"},
		{"template:conj", "Template:Conj"},
		{"Module:string utils", "Module:String utils"},
		{"Template: padded ", "Template:Padded"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}
