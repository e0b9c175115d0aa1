// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pagestore persists raw wiki pages in SQLite and resolves
// template and module definitions by normalized name. Reads are pure
// and safe for concurrent use by all pipeline workers; the store is
// populated once by the dump loader and read-only during extraction.
// Per prd001-pagestore.
package pagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/wiktengine/pkg/types"
)

// ErrNotFound is returned when no page exists for a title. Callers
// treat it as a resolution miss, not a failure.
var ErrNotFound = errors.New("page not found")

// Store manages the page database.
type Store struct {
	db           *sql.DB
	maxRedirects int
}

// Open opens or creates the page database at cfg.DBPath and ensures
// the schema exists.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("page store: empty database path")
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening page database: %w", err)
	}

	s := &Store{db: db, maxRedirects: 3}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// SetMaxRedirects overrides the redirect hop bound (default 3).
func (s *Store) SetMaxRedirects(n int) {
	if n > 0 {
		s.maxRedirects = n
	}
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			title TEXT PRIMARY KEY,
			namespace INTEGER NOT NULL,
			model TEXT NOT NULL,
			body TEXT NOT NULL,
			redirect_to TEXT,
			revision INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_namespace ON pages(namespace)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// PutPage inserts or replaces a page. Used by the dump loader and by
// tests; extraction never writes.
func (s *Store) PutPage(ctx context.Context, p *types.Page) error {
	title := NormalizeTitle(p.Title)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pages (title, namespace, model, body, redirect_to, revision)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		title, int(p.Namespace), string(p.Model), p.Body, p.RedirectTo, p.Revision,
	)
	if err != nil {
		return fmt.Errorf("storing page %s: %w", title, err)
	}
	return nil
}

// GetPage returns the page with the given title, following redirects
// up to the configured hop bound. Returns ErrNotFound for unknown
// titles.
func (s *Store) GetPage(ctx context.Context, title string) (*types.Page, error) {
	title = NormalizeTitle(title)
	for hop := 0; hop <= s.maxRedirects; hop++ {
		p, err := s.getPageExact(ctx, title)
		if err != nil {
			return nil, err
		}
		if !p.IsRedirect() {
			return p, nil
		}
		title = NormalizeTitle(p.RedirectTo)
	}
	return nil, fmt.Errorf("resolving %s: redirect chain longer than %d hops: %w",
		title, s.maxRedirects, ErrNotFound)
}

func (s *Store) getPageExact(ctx context.Context, title string) (*types.Page, error) {
	var p types.Page
	var ns int
	var model, redirect sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT title, namespace, model, body, redirect_to, revision FROM pages WHERE title = ?`,
		title,
	).Scan(&p.Title, &ns, &model, &p.Body, &redirect, &p.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", title, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading page %s: %w", title, err)
	}
	p.Namespace = types.Namespace(ns)
	p.Model = types.ContentModel(model.String)
	p.RedirectTo = redirect.String
	return &p, nil
}

// GetTemplate resolves a template by name. The namespace prefix is
// added if missing, noinclude sections are stripped, and includeonly
// wrappers are unwrapped, matching transclusion semantics.
func (s *Store) GetTemplate(ctx context.Context, name string) (*types.TemplateDefinition, error) {
	title := EnsurePrefix(name, types.NsTemplate)
	p, err := s.GetPage(ctx, title)
	if err != nil {
		return nil, err
	}
	return &types.TemplateDefinition{
		Name:     StripPrefix(p.Title, types.NsTemplate),
		Body:     stripNoInclude(p.Body),
		Revision: p.Revision,
	}, nil
}

// GetModule resolves a Scribunto module by name.
func (s *Store) GetModule(ctx context.Context, name string) (*types.ModuleDefinition, error) {
	title := EnsurePrefix(name, types.NsModule)
	p, err := s.GetPage(ctx, title)
	if err != nil {
		return nil, err
	}
	if p.Model != types.ModelScribunto {
		return nil, fmt.Errorf("%s: content model %q is not Scribunto: %w", title, p.Model, ErrNotFound)
	}
	return &types.ModuleDefinition{
		Name:     StripPrefix(p.Title, types.NsModule),
		Source:   p.Body,
		Revision: p.Revision,
	}, nil
}

// Stats holds per-namespace page counts for the pages subcommand.
type Stats struct {
	Main      int
	Templates int
	Modules   int
	Other     int
}

// Total returns the number of stored pages.
func (st Stats) Total() int {
	return st.Main + st.Templates + st.Modules + st.Other
}

// GetStats counts stored pages by namespace.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, count(*) FROM pages GROUP BY namespace`)
	if err != nil {
		return Stats{}, fmt.Errorf("counting pages: %w", err)
	}
	defer rows.Close()

	var st Stats
	for rows.Next() {
		var ns, count int
		if err := rows.Scan(&ns, &count); err != nil {
			return Stats{}, fmt.Errorf("scanning counts: %w", err)
		}
		switch types.Namespace(ns) {
		case types.NsMain:
			st.Main = count
		case types.NsTemplate:
			st.Templates = count
		case types.NsModule:
			st.Modules = count
		default:
			st.Other += count
		}
	}
	return st, rows.Err()
}

// MainTitles returns all main-namespace, non-redirect page titles in
// lexical order, for --all extraction runs.
func (s *Store) MainTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title FROM pages
		 WHERE namespace = 0 AND (redirect_to IS NULL OR redirect_to = '')
		 ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

// stripNoInclude removes <noinclude> sections and unwraps
// <includeonly> wrappers from a template body.
func stripNoInclude(body string) string {
	body = removeSpan(body, "<noinclude>", "</noinclude>")
	body = strings.ReplaceAll(body, "<includeonly>", "")
	body = strings.ReplaceAll(body, "</includeonly>", "")
	return body
}

func removeSpan(s, open, close string) string {
	for {
		start := strings.Index(s, open)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], close)
		if end < 0 {
			// Unterminated noinclude hides the remainder, as the
			// renderer does.
			return s[:start]
		}
		s = s[:start] + s[start+end+len(close):]
	}
}
