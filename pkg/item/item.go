// Package item holds the loaded item records and the field accessors used by
// indexing, filtering and search.
package item

import (
	"iter"
	"strconv"
	"strings"
)

// Item is a single record from the data source. Values are strings, nil, or
// lists of strings; other scalars are read as their string form.
type Item map[string]any

// Store holds the loaded items. It is never mutated after NewStore.
type Store struct {
	items []Item
}

// NewStore wraps items in a Store. The slice is copied so later changes by the
// caller do not leak into the store.
func NewStore(items []Item) *Store {
	cp := make([]Item, len(items))
	copy(cp, items)
	return &Store{items: cp}
}

// Len returns the number of items.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the item at position i.
func (s *Store) At(i int) Item {
	return s.items[i]
}

// Items returns a copy of the item slice in load order.
func (s *Store) Items() []Item {
	if s == nil {
		return nil
	}
	cp := make([]Item, len(s.items))
	copy(cp, s.items)
	return cp
}

// HasKey reports whether any item carries key.
func (s *Store) HasKey(key string) bool {
	if s == nil {
		return false
	}
	for _, it := range s.items {
		if _, ok := it[key]; ok {
			return true
		}
	}
	return false
}

// All iterates items with their positions.
func (s *Store) All() iter.Seq2[int, Item] {
	return func(yield func(int, Item) bool) {
		if s == nil {
			return
		}
		for i, it := range s.items {
			if !yield(i, it) {
				return
			}
		}
	}
}

// Normalize is the single normalization applied to filter values and search
// text before comparison.
func Normalize(s string) string {
	return strings.ToLower(s)
}

// Text returns the raw text values of field. Lists yield one entry per
// element; missing, nil and non-scalar values yield nothing.
func Text(it Item, field string) []string {
	if it == nil {
		return nil
	}
	raw, ok := it[field]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			if s, ok := scalarString(elem); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		if s, ok := scalarString(v); ok {
			return []string{s}
		}
		return nil
	}
}

// Values returns the normalized, non-empty values of field.
func Values(it Item, field string) []string {
	raw := Text(it, field)
	out := raw[:0]
	for _, s := range raw {
		if s == "" {
			continue
		}
		out = append(out, Normalize(s))
	}
	return out
}

// String returns the first text value of field, or "".
func String(it Item, field string) string {
	vals := Text(it, field)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}
