// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"sort"
	"strings"

	"github.com/pdiddy/wiktengine/pkg/types"
)

// decomposeForms turns an inflection template's rendered output into
// Form records using its TableRule. Output containing wiki table
// markup is decomposed cell by cell against the rule's row and column
// maps; otherwise each "label: value" line is matched against the
// rule's label map. Provenance records which template produced the
// form. Per prd004-extraction R3.2.
func decomposeForms(rendered string, rule types.TableRule, provenance string) []types.Form {
	if strings.Contains(rendered, "{|") {
		return tableForms(rendered, rule, provenance)
	}
	return labelForms(rendered, rule, provenance)
}

// labelForms handles templates that render one form per line, in
// "label: value" shape.
func labelForms(rendered string, rule types.TableRule, provenance string) []types.Form {
	var forms []types.Form
	for _, line := range strings.Split(rendered, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			continue
		}

		var categories map[string]string
		if len(rule.Labels) > 0 {
			pairs, ok := rule.Labels[label]
			if !ok {
				continue
			}
			categories = parsePairs(pairs)
		} else {
			categories = map[string]string{"label": label}
		}
		forms = append(forms, types.Form{
			Form:       value,
			Categories: categories,
			Source:     provenance,
		})
	}
	return forms
}

// tableForms walks rendered wiki table markup. Data rows and columns
// are counted 0-based; header cells ("!") do not consume a row index.
func tableForms(rendered string, rule types.TableRule, provenance string) []types.Form {
	var forms []types.Form
	row := -1
	col := 0

	for _, line := range strings.Split(rendered, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || strings.HasPrefix(line, "{|") || strings.HasPrefix(line, "|}"):
			continue
		case strings.HasPrefix(line, "|-"):
			row++
			col = 0
			continue
		case strings.HasPrefix(line, "!"):
			continue
		case strings.HasPrefix(line, "|"):
			if row < 0 {
				row = 0
			}
			for _, cell := range strings.Split(line[1:], "||") {
				value := strings.TrimSpace(cell)
				if value != "" && value != "-" && value != "—" {
					categories := mergePairs(rule.Rows[row], rule.Columns[col])
					forms = append(forms, types.Form{
						Form:       value,
						Categories: categories,
						Source:     provenance,
					})
				}
				col++
			}
		}
	}
	return forms
}

// parsePairs parses a "case=genitive,number=singular" mapping string.
func parsePairs(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func mergePairs(a, b string) map[string]string {
	out := parsePairs(a)
	for k, v := range parsePairs(b) {
		out[k] = v
	}
	return out
}

// dedupeForms removes forms whose surface and category mapping are
// both identical, keeping the first occurrence. The same surface with
// a conflicting mapping is retained with its own provenance.
func dedupeForms(forms []types.Form) []types.Form {
	if len(forms) < 2 {
		return forms
	}
	seen := make(map[string]bool, len(forms))
	out := forms[:0]
	for _, f := range forms {
		key := f.Form + "\x00" + canonicalPairs(f.Categories)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func canonicalPairs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
		b.WriteByte(';')
	}
	return b.String()
}
