// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Namespace identifies the wiki namespace a stored page belongs to.
// Per prd001-pagestore R1.2.
type Namespace int

const (
	NsMain     Namespace = 0
	NsTemplate Namespace = 10
	NsModule   Namespace = 828
)

// String returns the canonical namespace prefix, without the trailing colon.
func (ns Namespace) String() string {
	switch ns {
	case NsTemplate:
		return "Template"
	case NsModule:
		return "Module"
	default:
		return ""
	}
}

// ContentModel identifies how a page body is interpreted.
type ContentModel string

const (
	ModelWikitext  ContentModel = "wikitext"
	ModelScribunto ContentModel = "Scribunto"
)

// Page is a raw page loaded from the dump. Immutable once stored; the
// page store owns all copies handed to workers.
// Per prd001-pagestore R2.1.
type Page struct {
	// Title is the full page title including any namespace prefix
	// (e.g. "Template:conj-table").
	Title string `json:"title" yaml:"title"`

	// Namespace is the numeric namespace of the page.
	Namespace Namespace `json:"namespace" yaml:"namespace"`

	// Model selects the body interpretation: wikitext or Scribunto.
	Model ContentModel `json:"model" yaml:"model"`

	// Body is the raw page source text.
	Body string `json:"body" yaml:"body"`

	// RedirectTo is the redirect target title, empty for ordinary pages.
	RedirectTo string `json:"redirect_to,omitempty" yaml:"redirect_to,omitempty"`

	// Revision is the dump revision id the body was taken from.
	Revision int64 `json:"revision" yaml:"revision"`
}

// IsRedirect reports whether the page is a redirect stub.
func (p *Page) IsRedirect() bool {
	return p.RedirectTo != ""
}

// TemplateDefinition is a resolved template body keyed by normalized name.
type TemplateDefinition struct {
	// Name is the normalized template name without the namespace prefix.
	Name string `json:"name" yaml:"name"`

	// Body is the template wikitext, with noinclude sections removed.
	Body string `json:"body" yaml:"body"`

	// Revision is the revision id of the backing page.
	Revision int64 `json:"revision" yaml:"revision"`
}

// ModuleDefinition is a resolved Scribunto module keyed by normalized name.
type ModuleDefinition struct {
	// Name is the normalized module name without the "Module:" prefix.
	Name string `json:"name" yaml:"name"`

	// Source is the Lua source text of the module.
	Source string `json:"source" yaml:"source"`

	// Revision is the revision id of the backing page.
	Revision int64 `json:"revision" yaml:"revision"`
}
