// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package expand

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// evalMagic evaluates the parser-function and magic-word subset the
// source wiki's template ecosystem leans on. The name carries the
// first argument after a colon ({{#if: cond | then | else}} parses
// with name "#if: cond"); remaining arguments arrive positionally.
// Returns handled=false for ordinary template names.
func (e *Engine) evalMagic(name string, args boundArgs, r *run) (result string, handled bool, err error) {
	fn, inline := splitColon(name)

	switch strings.ToLower(fn) {
	case "#if":
		return magicIf(inline, args), true, nil
	case "#ifeq":
		return magicIfEq(inline, args), true, nil
	case "#switch":
		return magicSwitch(inline, args), true, nil
	case "lc":
		return strings.ToLower(inline), true, nil
	case "uc":
		return strings.ToUpper(inline), true, nil
	case "lcfirst":
		return mapFirst(inline, unicode.ToLower), true, nil
	case "ucfirst":
		return mapFirst(inline, unicode.ToUpper), true, nil
	case "pagename":
		if inline == "" && len(args.byName) == 0 {
			return pageName(r.page), true, nil
		}
	case "namespace":
		if inline == "" && len(args.byName) == 0 {
			return namespaceOf(r.page), true, nil
		}
	}
	return "", false, nil
}

// splitColon separates a parser-function name from its inline first
// argument. Ordinary template names containing colons (subpage
// templates) fall through via the unknown-function path.
func splitColon(name string) (fn, inline string) {
	idx := strings.IndexByte(name, ':')
	if idx < 0 {
		return name, ""
	}
	return strings.TrimSpace(name[:idx]), strings.TrimSpace(name[idx+1:])
}

// magicIf returns the then-branch for a non-blank condition, else the
// else-branch. Branches are positional arguments 1 and 2.
func magicIf(cond string, args boundArgs) string {
	if strings.TrimSpace(cond) != "" {
		return strings.TrimSpace(args.byName["1"])
	}
	return strings.TrimSpace(args.byName["2"])
}

// magicIfEq compares the inline argument with positional 1 after
// trimming, selecting positional 2 or 3.
func magicIfEq(left string, args boundArgs) string {
	if strings.TrimSpace(left) == strings.TrimSpace(args.byName["1"]) {
		return strings.TrimSpace(args.byName["2"])
	}
	return strings.TrimSpace(args.byName["3"])
}

// magicSwitch matches the inline value against the case labels in
// written order. A named case whose label equals the value yields its
// result; a bare positional label equal to the value falls through to
// the result of the next named case. "#default" and a bare trailing
// positional argument both serve as defaults.
func magicSwitch(value string, args boundArgs) string {
	value = strings.TrimSpace(value)
	matched := false
	def, haveDef := "", false
	trailing, haveTrailing := "", false

	for _, a := range args.ordered {
		if a.named {
			haveTrailing = false
			label := strings.TrimSpace(a.name)
			if matched || label == value {
				return strings.TrimSpace(a.value)
			}
			if label == "#default" {
				def, haveDef = a.value, true
			}
			continue
		}
		if strings.TrimSpace(a.value) == value {
			matched = true
		}
		trailing, haveTrailing = a.value, true
	}
	if haveDef {
		return strings.TrimSpace(def)
	}
	if haveTrailing {
		return strings.TrimSpace(trailing)
	}
	return ""
}

func mapFirst(s string, f func(rune) rune) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(f(r)) + s[size:]
}

// pageName strips the namespace prefix from a full title.
func pageName(title string) string {
	if idx := strings.IndexByte(title, ':'); idx > 0 {
		return title[idx+1:]
	}
	return title
}

// namespaceOf returns the namespace prefix of a title, empty for the
// main namespace.
func namespaceOf(title string) string {
	if idx := strings.IndexByte(title, ':'); idx > 0 {
		return title[:idx]
	}
	return ""
}
