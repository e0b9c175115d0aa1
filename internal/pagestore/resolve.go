// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pagestore

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/wiktengine/pkg/types"
)

// NormalizeTitle applies the wiki's title rules: underscores become
// spaces, runs of whitespace collapse, and a recognized namespace
// prefix is canonicalized with the name's first letter uppercased.
// Main-namespace titles keep their case: the source wiki's entry
// titles are case-sensitive ("sortaa" and "Sortaa" are different
// words). Lookups on both the read and write paths go through this,
// so stored titles are always in normal form.
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.Join(strings.Fields(title), " ")

	if prefix, rest, ok := splitNamespace(title); ok {
		return prefix + ":" + ucfirst(rest)
	}
	return title
}

// EnsurePrefix returns the full title for a name that may or may not
// carry its namespace prefix already.
func EnsurePrefix(name string, ns types.Namespace) string {
	name = NormalizeTitle(name)
	if ns == types.NsMain {
		return name
	}
	prefix := ns.String() + ":"
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return NormalizeTitle(prefix + name)
}

// StripPrefix removes the namespace prefix from a full title, giving
// the bare template or module name.
func StripPrefix(title string, ns types.Namespace) string {
	if ns == types.NsMain {
		return title
	}
	return strings.TrimPrefix(title, ns.String()+":")
}

// splitNamespace recognizes a leading namespace prefix regardless of
// its written case and spacing.
func splitNamespace(title string) (canonical, rest string, ok bool) {
	idx := strings.IndexByte(title, ':')
	if idx <= 0 {
		return "", "", false
	}
	prefix := strings.TrimSpace(title[:idx])
	rest = strings.TrimSpace(title[idx+1:])
	switch strings.ToLower(prefix) {
	case "template":
		return "Template", rest, true
	case "module":
		return "Module", rest, true
	}
	return "", "", false
}

// ucfirst uppercases the first rune, the case rule for template and
// module names on the source wiki.
func ucfirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	upper := unicode.ToUpper(r)
	if upper == r {
		return s
	}
	return string(upper) + s[size:]
}
