// Package urlstate maps a selection to and from a URL query string.
//
// Both directions are pure: the codec never touches history. Malformed input
// is ignored rather than reported so a bad shared link still opens.
package urlstate

import (
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/oakwood-commons/listx/internal/selection"
	"github.com/oakwood-commons/listx/pkg/item"
)

// DefaultSearchParam is the reserved query parameter holding the search text.
const DefaultSearchParam = "q"

// Codec encodes and decodes selection snapshots.
type Codec struct {
	// SearchParam is the reserved parameter name for the search text.
	SearchParam string
	// MinSearchChars is the shortest trimmed query that is written to the URL.
	MinSearchChars int
	// Fields lists the filter fields in the order they are encoded.
	Fields []string
	// Defaults, when set, holds the implicit selection of each field. A field
	// whose set equals its default is omitted, and an empty set with a
	// non-empty default is written as "field=".
	Defaults map[string][]string
}

func (c Codec) searchParam() string {
	if c.SearchParam == "" {
		return DefaultSearchParam
	}
	return c.SearchParam
}

// Decode parses raw (a full URL, "?query" or a bare query) into a snapshot.
// Only parameters named in known are read; the search parameter is always read.
// The returned snapshot contains an entry only for fields present in raw.
func Decode(c Codec, raw string, known []string) selection.Snapshot {
	snap := selection.Snapshot{Filters: make(map[string]*selection.Set)}

	knownSet := make(map[string]bool, len(known))
	for _, f := range known {
		knownSet[f] = true
	}

	// Errors are partial: ParseQuery keeps every well-formed pair.
	values, _ := url.ParseQuery(rawQuery(raw))

	sp := c.searchParam()
	if vs, ok := values[sp]; ok && len(vs) > 0 {
		snap.Search = vs[0]
	}

	for name, vs := range values {
		if name == sp || !knownSet[name] {
			continue
		}
		set := selection.NewSet()
		snap.Filters[name] = set
		for _, v := range vs {
			for _, tok := range strings.Split(v, ",") {
				if tok = item.Normalize(strings.TrimSpace(tok)); tok != "" {
					set.Add(tok)
				}
			}
		}
	}
	return snap
}

// Encode renders snap as path plus query string. It returns the bare path
// when nothing is selected and the search is too short to count.
func Encode(c Codec, path string, snap selection.Snapshot) string {
	q := Query(c, snap)
	if q == "" {
		return path
	}
	return path + "?" + q
}

// Query renders snap as a query string without a leading "?".
func Query(c Codec, snap selection.Snapshot) string {
	var parts []string

	if search := strings.TrimSpace(snap.Search); search != "" && utf8.RuneCountInString(search) >= c.MinSearchChars {
		parts = append(parts, escape(c.searchParam())+"="+escape(search))
	}

	for _, name := range c.fieldOrder(snap) {
		set := snap.Filters[name]
		if def, ok := c.Defaults[name]; ok && len(def) > 0 {
			if set.Equal(selection.NewSet(def...)) {
				continue
			}
			if set.Len() == 0 {
				parts = append(parts, escape(name)+"=")
				continue
			}
		}
		if set.Len() == 0 {
			continue
		}
		parts = append(parts, escape(name)+"="+escape(strings.Join(set.Values(), ",")))
	}
	return strings.Join(parts, "&")
}

// fieldOrder yields declared fields first, then any extra snapshot keys in
// sorted order so output stays deterministic.
func (c Codec) fieldOrder(snap selection.Snapshot) []string {
	order := make([]string, 0, len(snap.Filters))
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		seen[f] = true
		if _, ok := snap.Filters[f]; ok {
			order = append(order, f)
		}
	}
	var extra []string
	for k := range snap.Filters {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	return append(order, extra...)
}

// escape matches URLSearchParams serialization: spaces become '+', commas
// and other reserved bytes are percent-encoded.
func escape(s string) string {
	return url.QueryEscape(s)
}

// rawQuery extracts the query part of raw. Input without '?' counts as a bare
// query only when it looks like one.
func rawQuery(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[i+1:]
	}
	if strings.ContainsAny(raw, "=&") && !strings.Contains(raw, "/") {
		return raw
	}
	return ""
}
