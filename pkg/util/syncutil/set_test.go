// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package syncutil

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSet(t *testing.T) {
	type task struct{ id int }
	a, b := &task{id: 1}, &task{id: 2}

	var s Set[*task]
	require.False(t, s.Contains(a))
	require.True(t, s.Add(a))
	require.False(t, s.Add(a))
	require.True(t, s.Add(b))
	// Distinct pointers to equal values are distinct members.
	require.False(t, s.Contains(&task{id: 1}))

	require.True(t, s.Remove(a))
	require.False(t, s.Remove(a))
	require.False(t, s.Contains(a))
	require.True(t, s.Contains(b))
}

func TestSetRangeStops(t *testing.T) {
	var s Set[int]
	for i := 0; i < 10; i++ {
		s.Add(i)
	}
	visited := 0
	s.Range(func(int) bool {
		visited++
		return visited < 3
	})
	require.Equal(t, 3, visited)
}

func TestSetConcurrentAddRemove(t *testing.T) {
	var s Set[int]
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		i := i
		g.Go(func() error {
			s.Add(i)
			if i%2 == 1 {
				s.Remove(i)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var res []int
	s.Range(func(v int) bool {
		res = append(res, v)
		return true
	})
	slices.Sort(res)
	require.Equal(t, []int{0, 2, 4, 6, 8, 10, 12, 14}, res)
}
