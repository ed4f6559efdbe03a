// Package selection owns the mutable filter/search selection. Every change
// goes through State so values stay normalized and keys stay within the
// declared fields.
package selection

import (
	"strings"

	"github.com/oakwood-commons/listx/pkg/item"
)

// Snapshot is a detached copy of the selection.
type Snapshot struct {
	Search  string
	Filters map[string]*Set
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Search: s.Search, Filters: make(map[string]*Set, len(s.Filters))}
	for k, v := range s.Filters {
		out.Filters[k] = v.Clone()
	}
	return out
}

// Selected returns the set for field, or nil.
func (s Snapshot) Selected(field string) *Set {
	return s.Filters[field]
}

// Equal reports whether both snapshots hold the same search text and the same
// value sets. A missing field and an empty set are equivalent.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.Search != other.Search {
		return false
	}
	for k, v := range s.Filters {
		if !v.Equal(other.Filters[k]) {
			return false
		}
	}
	for k, v := range other.Filters {
		if !v.Equal(s.Filters[k]) {
			return false
		}
	}
	return true
}

// State is the live selection owned by the engine.
type State struct {
	fields   []string
	known    map[string]bool
	defaults map[string][]string
	search   string
	filters  map[string]*Set
}

// New creates an empty state for the declared fields. defaults gives the set a
// field falls back to when Replace receives no value for it; nil means empty.
func New(fields []string, defaults map[string][]string) *State {
	st := &State{
		fields:   append([]string(nil), fields...),
		known:    make(map[string]bool, len(fields)),
		defaults: defaults,
		filters:  make(map[string]*Set, len(fields)),
	}
	for _, f := range fields {
		st.known[f] = true
		st.filters[f] = st.defaultSet(f)
	}
	return st
}

// Fields returns the declared field names in order.
func (s *State) Fields() []string {
	return append([]string(nil), s.fields...)
}

// Known reports whether field is declared.
func (s *State) Known(field string) bool {
	return s.known[field]
}

// Toggle selects or deselects value for field. It reports whether the state
// changed; unknown fields and empty values are ignored.
func (s *State) Toggle(field, value string, on bool) bool {
	if !s.known[field] {
		return false
	}
	v := normalizeToken(value)
	if v == "" {
		return false
	}
	if on {
		return s.filters[field].Add(v)
	}
	return s.filters[field].Remove(v)
}

// ClearField empties the selection of field.
func (s *State) ClearField(field string) bool {
	if !s.known[field] || s.filters[field].Len() == 0 {
		return false
	}
	s.filters[field] = NewSet()
	return true
}

// SetSearch stores the raw search text.
func (s *State) SetSearch(q string) bool {
	if s.search == q {
		return false
	}
	s.search = q
	return true
}

// Search returns the raw search text.
func (s *State) Search() string {
	return s.search
}

// Replace overwrites the whole selection from snap. Fields missing from snap
// fall back to their default set; unknown keys are dropped.
func (s *State) Replace(snap Snapshot) {
	s.search = snap.Search
	for _, f := range s.fields {
		src, ok := snap.Filters[f]
		if !ok {
			s.filters[f] = s.defaultSet(f)
			continue
		}
		next := NewSet()
		for _, v := range src.Values() {
			if t := normalizeToken(v); t != "" {
				next.Add(t)
			}
		}
		s.filters[f] = next
	}
}

// Reset restores every field to its default and clears the search.
func (s *State) Reset() {
	s.Replace(Snapshot{})
}

// Count returns the number of selected values for field.
func (s *State) Count(field string) int {
	return s.filters[field].Len()
}

// Has reports whether value is selected for field.
func (s *State) Has(field, value string) bool {
	return s.filters[field].Has(normalizeToken(value))
}

// Snapshot returns a deep copy of the current selection.
func (s *State) Snapshot() Snapshot {
	out := Snapshot{Search: s.search, Filters: make(map[string]*Set, len(s.fields))}
	for _, f := range s.fields {
		out.Filters[f] = s.filters[f].Clone()
	}
	return out
}

func (s *State) defaultSet(field string) *Set {
	set := NewSet()
	for _, v := range s.defaults[field] {
		if t := normalizeToken(v); t != "" {
			set.Add(t)
		}
	}
	return set
}

func normalizeToken(v string) string {
	return item.Normalize(strings.TrimSpace(v))
}
