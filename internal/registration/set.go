package registration

import (
	"slices"
)

// Set is an immutable set of registered event ids. The zero value is the
// empty set. Operations that change membership return a new Set.
type Set struct {
	ids map[int]struct{}
}

// NewSet builds a Set from ids; duplicates collapse.
func NewSet(ids ...int) Set {
	m := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{ids: m}
}

func (s Set) Has(id int) bool {
	_, ok := s.ids[id]
	return ok
}

func (s Set) Len() int {
	return len(s.ids)
}

// IDs returns the members in ascending order.
func (s Set) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether s and o have the same members.
func (s Set) Equal(o Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// Toggle returns set with id removed when it is a member, and with id
// added otherwise. set itself is not modified, so
// Toggle(Toggle(s, id), id) equals s.
func Toggle(set Set, id int) Set {
	next := make(map[int]struct{}, len(set.ids)+1)
	for k := range set.ids {
		next[k] = struct{}{}
	}
	if _, ok := next[id]; ok {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return Set{ids: next}
}
