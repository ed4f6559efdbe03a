package selection

// Set is an insertion-ordered set of normalized values. Encoding joins values
// in iteration order, so order is kept stable across edits.
type Set struct {
	order []string
	index map[string]int
}

// NewSet returns a set holding values in the given order, skipping duplicates.
func NewSet(values ...string) *Set {
	s := &Set{}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts v. It reports whether v was new.
func (s *Set) Add(v string) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.order)
	s.order = append(s.order, v)
	return true
}

// Remove deletes v. It reports whether v was present.
func (s *Set) Remove(v string) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	delete(s.index, v)
	s.order = append(s.order[:i], s.order[i+1:]...)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
	return true
}

// Has reports whether v is in the set.
func (s *Set) Has(v string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[v]
	return ok
}

// Len returns the number of values.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Values returns the values in insertion order.
func (s *Set) Values() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	if s == nil {
		return NewSet()
	}
	return NewSet(s.order...)
}

// Equal reports whether both sets hold the same values, ignoring order.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, v := range s.Values() {
		if !other.Has(v) {
			return false
		}
	}
	return true
}
