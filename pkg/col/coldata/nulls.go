// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package coldata

// Nulls represents a list of potentially nullable values using a bitmap. It is
// intended to be used alongside a slice (e.g. in the Vec interface) -- if the
// ith bit is on, then the ith element in the slice is null.
type Nulls struct {
	nulls []uint64
	// maybeHasNulls is a speed-optimization flag. It is false when there are
	// definitely no nulls.
	maybeHasNulls bool
}

// NewNulls returns a new nulls vector, initialized with a length.
func NewNulls(len int) Nulls {
	return Nulls{nulls: make([]uint64, (len-1)/64+1)}
}

// MaybeHasNulls returns true if the column possibly has any null values, and
// returns false if the column definitely has no null values.
func (n *Nulls) MaybeHasNulls() bool {
	return n.maybeHasNulls
}

// NullAt returns true if the ith value of the column is null.
func (n *Nulls) NullAt(i int) bool {
	if !n.maybeHasNulls {
		return false
	}
	word := i >> 6
	if word >= len(n.nulls) {
		return false
	}
	return n.nulls[word]&(1<<uint(i&63)) != 0
}

// SetNull sets the ith value of the column to null, growing the bitmap when
// needed.
func (n *Nulls) SetNull(i int) {
	n.ensure(i)
	n.maybeHasNulls = true
	n.nulls[i>>6] |= 1 << uint(i&63)
}

// UnsetNull unsets the ith value of the column.
func (n *Nulls) UnsetNull(i int) {
	if i>>6 >= len(n.nulls) {
		return
	}
	n.nulls[i>>6] &^= 1 << uint(i&63)
}

func (n *Nulls) ensure(i int) {
	word := i >> 6
	if word < len(n.nulls) {
		return
	}
	grown := make([]uint64, word+1, 2*(word+1))
	copy(grown, n.nulls)
	n.nulls = grown
}

// Size returns the total size, in bytes, of the Nulls.
func (n *Nulls) Size() int64 {
	return int64(cap(n.nulls)) * 8
}
