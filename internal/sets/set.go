package sets

import "sort"

// Set is a collection of distinct repository identifiers. Membership is
// unordered; Items reports members in the order they were added.
type Set struct {
	order []string
	index map[string]struct{}
}

// New returns a set holding ids.
func New(ids ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add adds id to the set, reporting whether it was not yet a member.
func (s *Set) Add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Contains reports whether id is a member.
func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	return len(s.order)
}

// Items returns the members in insertion order.
func (s *Set) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Sorted returns the members in lexical order.
func (s *Set) Sorted() []string {
	out := s.Items()
	sort.Strings(out)
	return out
}

// Equal reports whether both sets have the same members.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, id := range s.order {
		if !o.Contains(id) {
			return false
		}
	}
	return true
}

// Union returns the members of s or o.
func (s *Set) Union(o *Set) *Set {
	out := New(s.order...)
	for _, id := range o.order {
		out.Add(id)
	}
	return out
}

// Difference returns the members of s that are not in o.
func (s *Set) Difference(o *Set) *Set {
	return s.filter(func(id string) bool { return !o.Contains(id) })
}

// Intersection returns the members of both s and o.
func (s *Set) Intersection(o *Set) *Set {
	return s.filter(o.Contains)
}

// SymmetricDifference returns the members of exactly one of s and o.
func (s *Set) SymmetricDifference(o *Set) *Set {
	out := s.Difference(o)
	for _, id := range o.order {
		if !s.Contains(id) {
			out.Add(id)
		}
	}
	return out
}

func (s *Set) filter(keep func(string) bool) *Set {
	out := New()
	for _, id := range s.order {
		if keep(id) {
			out.Add(id)
		}
	}
	return out
}
