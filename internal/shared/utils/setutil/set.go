// Package setutil provides a small generic set for id collections.
package setutil

// Set is a set of comparable values.
type Set[T comparable] struct {
	items map[T]struct{}
}

func New[T comparable](capacity int) *Set[T] {
	return &Set[T]{items: make(map[T]struct{}, capacity)}
}

// Add inserts v and reports whether it was absent.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	s.items[v] = struct{}{}
	return true
}

func (s *Set[T]) Has(v T) bool {
	_, ok := s.items[v]
	return ok
}

func (s *Set[T]) Len() int {
	return len(s.items)
}
