// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexechash

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
)

// nullHash is the hash of a NULL value. Rows with NULL keys never match, so
// its value only matters for the hash projection's output.
const nullHash = 0

// hashMultiplier is applied to the running hash before adding the hash of
// the next key column.
const hashMultiplier = 31

// CombineHash folds the hash of one more key column into a running hash.
func CombineHash(h, colHash uint64) uint64 {
	return h*hashMultiplier + colHash
}

// HashRow computes the hash of the key columns of one row of b. It is the
// single hashing routine used by the hash projection, the hash builder and
// the lookup join, which is what makes a precomputed hash column
// interchangeable with an inline computation.
func HashRow(b coldata.Batch, row int, keyCols []uint32) uint64 {
	var h uint64
	for _, c := range keyCols {
		h = CombineHash(h, HashValue(b.ColVec(int(c)), row))
	}
	return h
}

// HashValue hashes the value at position row of vec. Values that compare
// equal hash equally: -0 and +0, every NaN, and decimals that differ only in
// trailing zeros.
func HashValue(vec coldata.Vec, row int) uint64 {
	if vec.Nulls().NullAt(row) {
		return nullHash
	}
	var scratch [8]byte
	switch vec.Type() {
	case coltypes.Bool:
		if vec.Bool()[row] {
			scratch[0] = 1
		}
		return xxhash.Sum64(scratch[:1])
	case coltypes.Int64:
		binary.LittleEndian.PutUint64(scratch[:], uint64(vec.Int64()[row]))
		return xxhash.Sum64(scratch[:])
	case coltypes.Float64:
		f := vec.Float64()[row]
		switch {
		case f == 0:
			f = 0
		case math.IsNaN(f):
			f = math.NaN()
		}
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(f))
		return xxhash.Sum64(scratch[:])
	case coltypes.Bytes:
		return xxhash.Sum64(vec.Bytes()[row])
	case coltypes.Decimal:
		d := &vec.Decimal()[row]
		if d.IsZero() {
			return xxhash.Sum64String("0")
		}
		var reduced apd.Decimal
		reduced.Reduce(d)
		return xxhash.Sum64String(reduced.String())
	default:
		panic(errors.AssertionFailedf("unhandled type %s", vec.Type()))
	}
}

// ValuesEqual returns whether the non-NULL values at a[aRow] and b[bRow] are
// equal. Both vectors must have the same type.
func ValuesEqual(a coldata.Vec, aRow int, b coldata.Vec, bRow int) bool {
	switch a.Type() {
	case coltypes.Bool:
		return a.Bool()[aRow] == b.Bool()[bRow]
	case coltypes.Int64:
		return a.Int64()[aRow] == b.Int64()[bRow]
	case coltypes.Float64:
		x, y := a.Float64()[aRow], b.Float64()[bRow]
		return x == y || (math.IsNaN(x) && math.IsNaN(y))
	case coltypes.Bytes:
		return bytes.Equal(a.Bytes()[aRow], b.Bytes()[bRow])
	case coltypes.Decimal:
		return a.Decimal()[aRow].Cmp(&b.Decimal()[bRow]) == 0
	default:
		panic(errors.AssertionFailedf("unhandled type %s", a.Type()))
	}
}

// HasNullKey returns whether any key column of the row is NULL.
func HasNullKey(b coldata.Batch, row int, keyCols []uint32) bool {
	for _, c := range keyCols {
		if b.ColVec(int(c)).Nulls().NullAt(row) {
			return true
		}
	}
	return false
}

// HashChannel is the optional position of a column carrying precomputed row
// hashes. The column must be of type Int64.
type HashChannel struct {
	Idx   uint32
	Valid bool
}

// NoHashChannel is the HashChannel of an input without precomputed hashes.
var NoHashChannel = HashChannel{}

// MakeHashChannel returns a valid HashChannel at position idx.
func MakeHashChannel(idx uint32) HashChannel {
	return HashChannel{Idx: idx, Valid: true}
}

// RowHash returns the hash of row, read from the hash channel if there is
// one and computed otherwise.
func RowHash(b coldata.Batch, row int, keyCols []uint32, hashChannel HashChannel) uint64 {
	if hashChannel.Valid {
		return uint64(b.ColVec(int(hashChannel.Idx)).Int64()[row])
	}
	return HashRow(b, row, keyCols)
}
