// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package expand

import (
	"strconv"
	"strings"

	"github.com/pdiddy/wiktengine/internal/wikitext"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// boundArg is one expanded argument in written order. Positional
// arguments carry named=false; their name is empty because numbering
// lives in the byName map.
type boundArg struct {
	name  string
	value string
	named bool
}

// boundArgs holds one invocation's fully expanded arguments.
// Positional arguments are keyed "1", "2", ... per template parameter
// numbering; unrecognized named arguments are kept and passed through
// to modules that accept variadic arguments. The ordered slice keeps
// the written argument order, which #switch case matching needs.
type boundArgs struct {
	byName  map[string]string
	ordered []boundArg
}

// expandArgs expands every argument value of a call node and renders
// the results to wikitext strings. Later duplicates of a name win in
// byName, as the renderer resolves duplicate parameters; ordered keeps
// every occurrence.
func (e *Engine) expandArgs(n *wikitext.Node, r *run) (boundArgs, error) {
	byName := make(map[string]string, len(n.Args))
	ordered := make([]boundArg, 0, len(n.Args))
	position := 0

	for i := range n.Args {
		a := n.Args[i]
		expanded, err := e.expandNodes(a.Value, r)
		if err != nil {
			return boundArgs{}, err
		}
		value := wikitext.RenderWikitext(expanded)

		key := a.Name
		if key == "" {
			position++
			key = strconv.Itoa(position)
			ordered = append(ordered, boundArg{value: value})
		} else {
			ordered = append(ordered, boundArg{name: key, value: value, named: true})
		}
		byName[key] = value
	}
	return boundArgs{byName: byName, ordered: ordered}, nil
}

// shiftPositional drops positional argument 1 and renumbers the rest,
// used when #invoke consumes the function name from position 1.
func shiftPositional(args map[string]string) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		n, err := strconv.Atoi(k)
		if err != nil {
			out[k] = v
			continue
		}
		if n == 1 {
			continue
		}
		out[strconv.Itoa(n-1)] = v
	}
	return out
}

// substitute replaces {{{param|default}}} references in a template
// body with bound argument values. Unbound parameters without a
// default stay literal. The input nodes must be a private clone; the
// replacement rewrites argument values of nested calls in place.
func (e *Engine) substitute(nodes []*wikitext.Node, binding map[string]string) []*wikitext.Node {
	var out []*wikitext.Node
	for _, n := range nodes {
		out = append(out, e.substituteNode(n, binding)...)
	}
	return out
}

func (e *Engine) substituteNode(n *wikitext.Node, binding map[string]string) []*wikitext.Node {
	if n.Kind == wikitext.KindTemplateArg {
		if value, ok := binding[n.Name]; ok {
			return e.parseValue(value)
		}
		if len(n.Args) > 0 {
			return e.substitute(n.Args[0].Value, binding)
		}
		return []*wikitext.Node{n}
	}

	// Parameter references inside invocation and link names were
	// flattened into the Name string at parse time
	// ({{#if:{{{1|}}}|...}}); substitute through them here.
	if strings.Contains(n.Name, "{{{") {
		nodes := e.substitute(e.parseValue(n.Name), binding)
		n.Name = strings.TrimSpace(wikitext.RenderWikitext(nodes))
	}

	n.Children = e.substitute(n.Children, binding)
	for i := range n.Args {
		n.Args[i].Value = e.substitute(n.Args[i].Value, binding)
	}
	return []*wikitext.Node{n}
}

// parseValue re-parses a rendered argument value for splicing into a
// template body. Values were rendered from a parsed tree, so this
// cannot fail; strictness never applies here.
func (e *Engine) parseValue(value string) []*wikitext.Node {
	cfg := types.ParserConfig{MaxNesting: e.parserCfg.MaxNesting}
	root, _, _ := wikitext.Parse(value, cfg)
	return root.Children
}
