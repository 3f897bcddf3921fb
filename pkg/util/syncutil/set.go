// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package syncutil

import "sync"

// Set is like a Go map[V]struct{} but is safe for concurrent use by multiple
// goroutines without additional locking or coordination.
//
// The zero Set is empty and ready for use. A Set must not be copied after
// first use.
type Set[V comparable] struct {
	m sync.Map
}

// Contains returns whether the set contains the given value.
func (s *Set[V]) Contains(v V) bool {
	_, ok := s.m.Load(v)
	return ok
}

// Add adds the value to the set. Returns true if the value was not already in
// the set.
func (s *Set[V]) Add(v V) bool {
	_, loaded := s.m.LoadOrStore(v, struct{}{})
	return !loaded
}

// Remove removes the value from the set. Returns true if the value was in the
// set.
func (s *Set[V]) Remove(v V) bool {
	_, loaded := s.m.LoadAndDelete(v)
	return loaded
}

// Range calls f sequentially for each value present in the set. If f returns
// false, range stops the iteration.
func (s *Set[V]) Range(f func(value V) bool) {
	s.m.Range(func(key, _ any) bool {
		return f(key.(V))
	})
}
