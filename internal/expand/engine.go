// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand recursively expands template and module invocations
// in a parsed wikitext tree. Expansion is deterministic, page-local,
// and bounded: depth and total-expansion ceilings plus stack-based
// cycle detection guarantee termination on any input.
// Per prd003-expansion.
package expand

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/wiktengine/internal/pagestore"
	"github.com/pdiddy/wiktengine/internal/wikitext"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// ErrTimeout marks a sandbox invocation that exceeded its execution
// budget. The sandbox wraps it; the engine maps it to a
// sandbox-timeout diagnostic.
var ErrTimeout = errors.New("execution budget exceeded")

// scriptError is substituted for a failed module invocation, the way
// the source wiki renders script failures inline.
const scriptError = "Script error"

// Resolver locates template and module definitions. The page store
// implements it; lookups are pure reads.
type Resolver interface {
	GetTemplate(ctx context.Context, name string) (*types.TemplateDefinition, error)
	GetModule(ctx context.Context, name string) (*types.ModuleDefinition, error)
}

// Frame carries one invocation's argument bindings into the sandbox,
// mirroring the frame object module code receives.
type Frame struct {
	// Title is the page being expanded.
	Title string

	// Args maps parameter name (positional parameters use "1", "2",
	// ...) to its fully expanded value.
	Args map[string]string

	// Parent is the enclosing template's frame, nil at top level.
	Parent *Frame
}

// Invoker executes one exported function of a Scribunto module.
// Implementations must be side-effect free and bounded; a budget
// violation is reported by wrapping ErrTimeout.
type Invoker interface {
	Invoke(ctx context.Context, mod *types.ModuleDefinition, fn string, frame *Frame) (string, error)
}

// Engine expands pages against one resolver and one invoker. An Engine
// is owned by a single worker and must not be shared across concurrent
// pages.
type Engine struct {
	resolver  Resolver
	invoker   Invoker
	cfg       types.ExpansionConfig
	parserCfg types.ParserConfig
	log       zerolog.Logger

	// bodyCache holds parsed template bodies keyed by normalized name.
	// Safe without locking: one engine per worker.
	bodyCache map[string]cachedBody
}

// cachedBody keeps a template body's parse diagnostics next to the
// tree so every page that expands the template reports them, not just
// the first page a worker happens to see.
type cachedBody struct {
	root  *wikitext.Node
	diags []types.Diagnostic
}

// New returns an engine with defaults applied for unset limits.
func New(resolver Resolver, invoker Invoker, cfg types.ExpansionConfig, parserCfg types.ParserConfig, log zerolog.Logger) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 40
	}
	if cfg.MaxExpansions <= 0 {
		cfg.MaxExpansions = 10000
	}
	return &Engine{
		resolver:  resolver,
		invoker:   invoker,
		cfg:       cfg,
		parserCfg: parserCfg,
		log:       log,
		bodyCache: make(map[string]cachedBody),
	}
}

// run is the per-page expansion state: the active invocation stack for
// cycle detection, the expansion counter, and collected diagnostics.
// All of it is owned by one page, so abandoning a page mid-expansion
// cannot corrupt shared state.
type run struct {
	ctx        context.Context
	page       string
	stack      []stackEntry
	frame      *Frame
	expansions int
	budgetHit  bool
	diags      []types.Diagnostic
}

type stackEntry struct {
	name string
	sig  string
}

func (r *run) onStack(name, sig string) bool {
	for _, e := range r.stack {
		if e.name == name && e.sig == sig {
			return true
		}
	}
	return false
}

func (r *run) stackNames() []string {
	names := make([]string, len(r.stack))
	for i, e := range r.stack {
		names[i] = e.name
	}
	return names
}

func (r *run) diag(kind types.DiagnosticKind, path, format string, args ...any) {
	r.diags = append(r.diags, types.Diagnostic{
		Kind:    kind,
		Page:    r.page,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
		Stack:   r.stackNames(),
	})
}

// ExpandPage parses and fully expands a page body. The returned
// diagnostics cover both parsing and expansion; only a cancelled
// context yields an error.
func (e *Engine) ExpandPage(ctx context.Context, page *types.Page) (*wikitext.Node, []types.Diagnostic, error) {
	root, parseDiags, err := wikitext.Parse(page.Body, e.parserCfg)
	if err != nil {
		return nil, parseDiags, err
	}
	for i := range parseDiags {
		parseDiags[i].Page = page.Title
	}

	expanded, diags, err := e.ExpandTree(ctx, page.Title, root)
	if err != nil {
		return nil, parseDiags, err
	}
	return expanded, append(parseDiags, diags...), nil
}

// ExpandTree expands an already parsed tree. Passing a tree with no
// template nodes returns it unchanged: expansion is idempotent.
func (e *Engine) ExpandTree(ctx context.Context, title string, root *wikitext.Node) (*wikitext.Node, []types.Diagnostic, error) {
	r := &run{ctx: ctx, page: title}

	children, err := e.expandNodes(root.Children, r)
	if err != nil {
		return nil, r.diags, err
	}

	out := &wikitext.Node{Kind: wikitext.KindRoot, Children: children}
	return out, r.diags, nil
}

// ExpandFragment expands a wikitext fragment in the context of a page
// and returns the rendered wikitext. The field extractor uses it to
// expand individual inflection-table invocations.
func (e *Engine) ExpandFragment(ctx context.Context, title, src string) (string, []types.Diagnostic, error) {
	root, parseDiags, err := wikitext.Parse(src, e.parserCfg)
	if err != nil {
		return "", parseDiags, err
	}
	expanded, diags, err := e.ExpandTree(ctx, title, root)
	if err != nil {
		return "", append(parseDiags, diags...), err
	}
	return wikitext.RenderWikitext(expanded.Children), append(parseDiags, diags...), nil
}

// expandNodes expands a node list in document order, splicing each
// template's expansion in place of the call node.
func (e *Engine) expandNodes(nodes []*wikitext.Node, r *run) ([]*wikitext.Node, error) {
	var out []*wikitext.Node
	for _, n := range nodes {
		expanded, err := e.expandNode(n, r)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (e *Engine) expandNode(n *wikitext.Node, r *run) ([]*wikitext.Node, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}

	switch n.Kind {
	case wikitext.KindTemplate:
		return e.expandTemplate(n, r)
	case wikitext.KindTemplateArg:
		// A parameter reference surviving outside any template body has
		// no binding; it stays literal.
		return []*wikitext.Node{n}, nil
	default:
		children, err := e.expandNodes(n.Children, r)
		if err != nil {
			return nil, err
		}
		clone := *n
		clone.Children = children
		return []*wikitext.Node{&clone}, nil
	}
}

// expandTemplate expands one {{...}} invocation: parser functions and
// magic words are evaluated inline, #invoke dispatches to the sandbox,
// and ordinary names resolve to template bodies which are substituted
// and recursively expanded.
func (e *Engine) expandTemplate(n *wikitext.Node, r *run) ([]*wikitext.Node, error) {
	literal := func() []*wikitext.Node { return []*wikitext.Node{n} }
	path := fmt.Sprintf("offset %d", n.Offset)

	if r.budgetHit {
		return literal(), nil
	}
	r.expansions++
	if r.expansions > e.cfg.MaxExpansions {
		r.budgetHit = true
		r.diag(types.DiagBudgetExceeded, path,
			"expansion budget of %d calls exhausted; remaining calls left literal", e.cfg.MaxExpansions)
		return literal(), nil
	}
	if len(r.stack) >= e.cfg.MaxDepth {
		r.diag(types.DiagDepthExceeded, path,
			"expansion depth ceiling %d reached at %q", e.cfg.MaxDepth, n.Name)
		return literal(), nil
	}

	// Expand argument values first; bindings and cycle signatures are
	// computed over fully expanded arguments.
	args, err := e.expandArgs(n, r)
	if err != nil {
		return nil, err
	}

	// The call name itself may contain template calls; expand them
	// before dispatch.
	callName := n.Name
	if strings.Contains(callName, "{{") {
		callName, err = e.expandName(callName, r)
		if err != nil {
			return nil, err
		}
	}

	// Parser functions and magic words evaluate without touching the
	// store.
	if result, handled, err := e.evalMagic(callName, args, r); err != nil {
		return nil, err
	} else if handled {
		return e.spliceWikitext(result, r)
	}

	if isInvoke(callName) {
		return e.expandInvoke(callName, n, args, path, r)
	}

	name := pagestore.EnsurePrefix(callName, types.NsTemplate)
	sig := signature(name, args)
	if r.onStack(name, sig) {
		r.diag(types.DiagExpansionCycle, path,
			"template %q invokes itself; call left literal", name)
		return literal(), nil
	}

	def, err := e.resolver.GetTemplate(r.ctx, name)
	if err != nil {
		if errors.Is(err, pagestore.ErrNotFound) {
			r.diag(types.DiagResolutionMiss, path, "template %q not found", name)
			return literal(), nil
		}
		return nil, fmt.Errorf("resolving template %q: %w", name, err)
	}

	body, err := e.parsedBody(name, def.Body, r)
	if err != nil {
		return nil, err
	}

	bound := e.substitute(body.Clone().Children, args.byName)

	r.stack = append(r.stack, stackEntry{name: name, sig: sig})
	prevFrame := r.frame
	r.frame = &Frame{Title: r.page, Args: args.byName, Parent: prevFrame}

	expanded, err := e.expandNodes(bound, r)

	r.frame = prevFrame
	r.stack = r.stack[:len(r.stack)-1]
	if err != nil {
		return nil, err
	}
	return expanded, nil
}

// parsedBody returns the parsed tree for a template body, cached by
// name. Parse diagnostics inside template bodies are cached with the
// tree and replayed against every page that expands the template.
func (e *Engine) parsedBody(name, body string, r *run) (*wikitext.Node, error) {
	cached, ok := e.bodyCache[name]
	if !ok {
		root, diags, err := wikitext.Parse(body, e.parserCfg)
		if err != nil {
			return nil, err
		}
		for i := range diags {
			diags[i].Path = fmt.Sprintf("template %s: %s", name, diags[i].Path)
		}
		cached = cachedBody{root: root, diags: diags}
		e.bodyCache[name] = cached
	}
	for _, d := range cached.diags {
		d.Page = r.page
		r.diags = append(r.diags, d)
	}
	return cached.root, nil
}

// spliceWikitext parses generated wikitext and expands it in place,
// so parser-function and module output can itself contain template
// calls and block structure.
func (e *Engine) spliceWikitext(src string, r *run) ([]*wikitext.Node, error) {
	if src == "" {
		return nil, nil
	}
	root, diags, err := wikitext.Parse(src, e.parserCfg)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		d.Page = r.page
		r.diags = append(r.diags, d)
	}
	return e.expandNodes(root.Children, r)
}

// expandName expands template calls embedded in an invocation name.
func (e *Engine) expandName(name string, r *run) (string, error) {
	nodes, err := e.spliceWikitext(name, r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(wikitext.RenderWikitext(nodes)), nil
}

// expandInvoke dispatches a {{#invoke:module|fn|...}} call to the Lua
// sandbox. Sandbox failures are page-local: the call is replaced with
// a script-error marker and recorded.
func (e *Engine) expandInvoke(callName string, n *wikitext.Node, args boundArgs, path string, r *run) ([]*wikitext.Node, error) {
	modName := splitInvoke(callName)

	// Function name is the first positional argument; the rest shift
	// down by one.
	fn := args.byName["1"]
	frameArgs := shiftPositional(args.byName)

	if modName == "" || fn == "" {
		r.diag(types.DiagSandboxFault, path, "malformed #invoke %q", callName)
		return e.spliceWikitext(scriptError, r)
	}
	if e.invoker == nil {
		r.diag(types.DiagSandboxFault, path, "no sandbox configured for #invoke:%s", modName)
		return e.spliceWikitext(scriptError, r)
	}

	name := pagestore.EnsurePrefix(modName, types.NsModule)
	sig := signature("#invoke:"+name+"."+fn, args)
	if r.onStack(name, sig) {
		r.diag(types.DiagExpansionCycle, path,
			"module %q invokes itself; call left literal", name)
		return []*wikitext.Node{n}, nil
	}

	mod, err := e.resolver.GetModule(r.ctx, name)
	if err != nil {
		if errors.Is(err, pagestore.ErrNotFound) {
			r.diag(types.DiagResolutionMiss, path, "module %q not found", name)
			return []*wikitext.Node{n}, nil
		}
		return nil, fmt.Errorf("resolving module %q: %w", name, err)
	}

	frame := &Frame{Title: r.page, Args: frameArgs, Parent: r.frame}

	r.stack = append(r.stack, stackEntry{name: name, sig: sig})
	rendered, invokeErr := e.invoker.Invoke(r.ctx, mod, fn, frame)
	r.stack = r.stack[:len(r.stack)-1]

	if invokeErr != nil {
		if errors.Is(invokeErr, ErrTimeout) {
			r.diag(types.DiagSandboxTimeout, path,
				"module %s.%s exceeded execution budget", name, fn)
		} else {
			r.diag(types.DiagSandboxFault, path,
				"module %s.%s failed: %v", name, fn, invokeErr)
		}
		e.log.Debug().Str("module", name).Str("fn", fn).Err(invokeErr).
			Msg("sandbox invocation failed")
		return e.spliceWikitext(scriptError, r)
	}

	return e.spliceWikitext(rendered, r)
}

func isInvoke(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), "#invoke:")
}

// splitInvoke extracts the module name from an "#invoke:Module" call
// name. The function name arrives as the first argument.
func splitInvoke(name string) string {
	return strings.TrimSpace(name[len("#invoke:"):])
}

// signature canonicalizes an invocation for the cycle check: the same
// (name, argument-signature) pair must not appear twice on the active
// stack.
func signature(name string, args boundArgs) string {
	keys := make([]string, 0, len(args.byName))
	for k := range args.byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(args.byName[k])
	}
	return b.String()
}
