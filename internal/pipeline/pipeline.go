// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the full extraction flow over many pages:
// parse, expand, extract, validate, emit. Pages are independent and
// processed by a worker pool; each worker owns a private engine,
// sandbox, and extractor, so no mutable state crosses page boundaries.
// Per prd006-pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/wiktengine/internal/expand"
	"github.com/pdiddy/wiktengine/internal/extract"
	"github.com/pdiddy/wiktengine/internal/luasandbox"
	"github.com/pdiddy/wiktengine/internal/pagestore"
	"github.com/pdiddy/wiktengine/internal/schema"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// Record is one emitted JSONL line: the validated entry plus the
// schema version it was validated against.
type Record struct {
	SchemaVersion string `json:"schema_version"`
	types.LexicalEntry
}

// Summary aggregates one run's outcome.
type Summary struct {
	Pages       int
	Entries     int
	Rejected    int
	Diagnostics []types.Diagnostic
}

// DiagnosticCounts tallies collected diagnostics by kind.
func (s *Summary) DiagnosticCounts() map[types.DiagnosticKind]int {
	counts := make(map[types.DiagnosticKind]int)
	for _, d := range s.Diagnostics {
		counts[d.Kind]++
	}
	return counts
}

// Pipeline processes pages against one shared read-only store.
type Pipeline struct {
	store     *pagestore.Store
	cfg       types.PipelineConfig
	log       zerolog.Logger
	validator *schema.Validator
}

// New builds a pipeline, compiling the entry schema up front so a
// broken schema fails the run before any page is touched.
func New(store *pagestore.Store, cfg types.PipelineConfig, log zerolog.Logger) (*Pipeline, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = types.DefaultPipelineConfig().Workers
	}
	validator, err := schema.New(cfg.Validation)
	if err != nil {
		return nil, err
	}
	if cfg.Expansion.MaxRedirects > 0 {
		store.SetMaxRedirects(cfg.Expansion.MaxRedirects)
	}
	return &Pipeline{store: store, cfg: cfg, log: log, validator: validator}, nil
}

// pageOutcome carries one worker's result to the aggregator.
type pageOutcome struct {
	entries  []types.LexicalEntry
	diags    []types.Diagnostic
	pages    int
	rejected int
}

// Run extracts the given titles, writing accepted entries as JSONL to
// out. Page-local failures become diagnostics in the summary; only
// context cancellation and store-level failures abort the run.
func (p *Pipeline) Run(ctx context.Context, titles []string, out io.Writer) (*Summary, error) {
	g, ctx := errgroup.WithContext(ctx)

	work := make(chan string)
	g.Go(func() error {
		defer close(work)
		for _, title := range titles {
			select {
			case work <- title:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	outcomes := make(chan pageOutcome, p.cfg.Workers)
	var workers errgroup.Group
	for i := 0; i < p.cfg.Workers; i++ {
		workers.Go(func() error {
			return p.worker(ctx, work, outcomes)
		})
	}
	g.Go(func() error {
		defer close(outcomes)
		return workers.Wait()
	})

	summary := &Summary{}
	enc := json.NewEncoder(out)
	var emitErr error
	for outcome := range outcomes {
		summary.Pages += outcome.pages
		summary.Diagnostics = append(summary.Diagnostics, outcome.diags...)
		for _, d := range outcome.diags {
			p.logDiagnostic(d)
		}
		if emitErr != nil {
			continue
		}
		for i := range outcome.entries {
			rec := Record{SchemaVersion: p.validator.Version(), LexicalEntry: outcome.entries[i]}
			if err := enc.Encode(rec); err != nil {
				emitErr = fmt.Errorf("writing entry: %w", err)
				break
			}
			summary.Entries++
		}
		summary.Rejected += outcome.rejected
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, emitErr
}

// worker drains the title channel with its own engine, sandbox, and
// extractor instances.
func (p *Pipeline) worker(ctx context.Context, work <-chan string, outcomes chan<- pageOutcome) error {
	sandbox := luasandbox.New(p.cfg.Sandbox, p.log)
	engine := expand.New(p.store, sandbox, p.cfg.Expansion, p.cfg.Parser, p.log)
	sandbox.SetPreprocessor(func(ctx context.Context, title, src string) (string, error) {
		expanded, _, err := engine.ExpandFragment(ctx, title, src)
		return expanded, err
	})
	extractor := extract.New(engine, p.cfg.Extraction, p.cfg.Parser, p.log)

	for title := range work {
		outcome, err := p.processPage(ctx, extractor, title)
		if err != nil {
			return err
		}
		select {
		case outcomes <- outcome:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// processPage runs one page through extraction and validation.
func (p *Pipeline) processPage(ctx context.Context, extractor *extract.Extractor, title string) (pageOutcome, error) {
	outcome := pageOutcome{pages: 1}

	page, err := p.store.GetPage(ctx, title)
	if err != nil {
		if errors.Is(err, pagestore.ErrNotFound) {
			outcome.diags = append(outcome.diags, types.Diagnostic{
				Kind:    types.DiagResolutionMiss,
				Page:    title,
				Message: "page not found in store",
			})
			return outcome, nil
		}
		// Store-level failure: no extraction is possible without the
		// store, so this aborts the whole run.
		return outcome, fmt.Errorf("loading page %q: %w", title, err)
	}

	result, diags, err := extractor.ExtractPage(ctx, page)
	if err != nil {
		return outcome, err
	}
	outcome.diags = diags

	for i := range result.Entries {
		entry := &result.Entries[i]
		verrs := p.validator.Validate(entry)
		if len(verrs) == 0 {
			outcome.entries = append(outcome.entries, *entry)
			continue
		}
		outcome.rejected++
		for _, ve := range verrs {
			outcome.diags = append(outcome.diags, types.Diagnostic{
				Kind:    types.DiagValidation,
				Page:    title,
				Path:    ve.Field,
				Message: ve.Reason,
			})
		}
	}
	return outcome, nil
}

func (p *Pipeline) logDiagnostic(d types.Diagnostic) {
	p.log.Warn().
		Str("kind", string(d.Kind)).
		Str("page", d.Page).
		Str("path", d.Path).
		Strs("stack", d.Stack).
		Msg(d.Message)
}
