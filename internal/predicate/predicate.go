// Package predicate decides which items pass the active filters and search.
package predicate

import (
	"strings"
	"unicode/utf8"

	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/pkg/item"
)

// Func is an additional per-item predicate ANDed after filters and search.
type Func func(it item.Item) bool

// Options configures matching.
type Options struct {
	// SearchFields are searched for each query term, in order.
	SearchFields []string
	// MinSearchChars is the shortest trimmed query that constrains results.
	MinSearchChars int
	// ExcludeEmpty makes an empty selected set match nothing instead of
	// imposing no constraint.
	ExcludeEmpty bool
	// Keys maps a filter field name to the item key holding its values.
	// Fields without an entry read the key of the same name.
	Keys map[string]string
}

func (o Options) key(field string) string {
	if k, ok := o.Keys[field]; ok && k != "" {
		return k
	}
	return field
}

// ParseQuery splits a query into lower-cased terms. Queries shorter than the
// minimum (after trimming) yield no terms.
func ParseQuery(query string, minChars int) []string {
	trimmed := strings.ToLower(strings.TrimSpace(query))
	if trimmed == "" || utf8.RuneCountInString(trimmed) < minChars {
		return nil
	}
	return strings.Fields(trimmed)
}

// MatchesFilters reports whether it satisfies every constrained field. Within
// a field any one of the item's values suffices.
func (o Options) MatchesFilters(it item.Item, filters map[string]*selection.Set) bool {
	for field, selected := range filters {
		if selected.Len() == 0 {
			if o.ExcludeEmpty && selected != nil {
				return false
			}
			continue
		}
		values := item.Values(it, o.key(field))
		if len(values) == 0 {
			return false
		}
		matched := false
		for _, v := range values {
			if selected.Has(v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// MatchesSearch reports whether every term occurs in at least one search
// field. No terms always matches.
func (o Options) MatchesSearch(it item.Item, terms []string) bool {
	for _, term := range terms {
		if !o.anyFieldContains(it, term) {
			return false
		}
	}
	return true
}

func (o Options) anyFieldContains(it item.Item, term string) bool {
	for _, field := range o.SearchFields {
		for _, text := range item.Text(it, field) {
			if strings.Contains(strings.ToLower(text), term) {
				return true
			}
		}
	}
	return false
}

// Filter returns the items passing filters, search (when enabled) and every
// extra predicate, in their original order.
func (o Options) Filter(items []item.Item, snap selection.Snapshot, searchEnabled bool, extra ...Func) []item.Item {
	var terms []string
	if searchEnabled {
		terms = ParseQuery(snap.Search, o.MinSearchChars)
	}
	out := make([]item.Item, 0, len(items))
	for _, it := range items {
		if o.Match(it, snap.Filters, terms, extra...) {
			out = append(out, it)
		}
	}
	return out
}

// Match applies every predicate to a single item.
func (o Options) Match(it item.Item, filters map[string]*selection.Set, terms []string, extra ...Func) bool {
	if !o.MatchesFilters(it, filters) || !o.MatchesSearch(it, terms) {
		return false
	}
	for _, fn := range extra {
		if fn != nil && !fn(it) {
			return false
		}
	}
	return true
}
