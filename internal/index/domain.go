// Package index derives filter value domains from the loaded items and keeps
// a posting list per value for candidate selection.
package index

import (
	"slices"
	"strings"
	"unicode"

	"github.com/oakwood-commons/listx/pkg/item"
)

// Domain returns the display values of field across items, one per distinct
// normalized value, title cased and sorted by byte order. Empty and missing
// values are skipped.
func Domain(items []item.Item, field string) []string {
	opts := domainOptions(items, field)
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Display
	}
	return out
}

// domainOptions keys the options by the same normalized value the posting
// lists use. The first raw spelling seen for a value supplies its display.
func domainOptions(items []item.Item, field string) []Option {
	seen := make(map[string]bool)
	var out []Option
	for _, it := range items {
		for _, raw := range item.Text(it, field) {
			if raw == "" {
				continue
			}
			v := item.Normalize(raw)
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, Option{Display: TitleCase(raw), Value: v})
		}
	}
	slices.SortFunc(out, func(a, b Option) int {
		if c := strings.Compare(a.Display, b.Display); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	return out
}

// TitleCase lower-cases s and upper-cases every word rune that follows a
// non-word rune. Word runes are letters, digits and '_'.
func TitleCase(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	prevWord := false
	for _, r := range strings.ToLower(s) {
		word := isWordRune(r)
		if word && !prevWord {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevWord = word
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
