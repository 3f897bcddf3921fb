// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package coldata

import (
	"fmt"
	"unsafe"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
)

// Vec is an interface that represents a column vector that's accessible by
// Go native types.
type Vec interface {
	// Type returns the type of data stored in this Vec.
	Type() coltypes.T

	// Bool returns a bool list.
	Bool() []bool
	// Int64 returns an int64 slice.
	Int64() []int64
	// Float64 returns a float64 slice.
	Float64() []float64
	// Bytes returns a flat Bytes representation.
	Bytes() [][]byte
	// Decimal returns an apd.Decimal slice.
	Decimal() []apd.Decimal

	// Col returns the raw, typeless backing storage for this Vec.
	Col() interface{}

	// Len returns the number of values the Vec can hold.
	Len() int

	// MaybeHasNulls returns true if the column possibly has any null values, and
	// returns false if the column definitely has no null values.
	MaybeHasNulls() bool
	// Nulls returns the nulls vector for the column.
	Nulls() *Nulls

	// Get returns the value at index i as a Go value, or nil if it is null.
	Get(i int) interface{}
	// Copy sets the value at destIdx to the value of src at srcIdx, including
	// its null-ness. src must have the same type.
	Copy(destIdx int, src Vec, srcIdx int)

	// Size returns the total size of the backing storage in bytes.
	Size() int64
}

var _ Vec = &memColumn{}

// memColumn is a simple pass-through implementation of Vec that just casts
// a generic interface{} to the proper type when requested.
type memColumn struct {
	t     coltypes.T
	col   interface{}
	nulls Nulls
}

// NewMemColumn returns a new memColumn, initialized with a length.
func NewMemColumn(t coltypes.T, n int) Vec {
	nulls := NewNulls(n)
	switch t {
	case coltypes.Bool:
		return &memColumn{t: t, col: make([]bool, n), nulls: nulls}
	case coltypes.Int64:
		return &memColumn{t: t, col: make([]int64, n), nulls: nulls}
	case coltypes.Float64:
		return &memColumn{t: t, col: make([]float64, n), nulls: nulls}
	case coltypes.Bytes:
		return &memColumn{t: t, col: make([][]byte, n), nulls: nulls}
	case coltypes.Decimal:
		return &memColumn{t: t, col: make([]apd.Decimal, n), nulls: nulls}
	default:
		panic(fmt.Sprintf("unhandled type %s", t))
	}
}

// NewVecFromSlice wraps an already populated Go slice in a Vec. The slice must
// match the given type; it is retained, not copied.
func NewVecFromSlice(t coltypes.T, col interface{}, nulls Nulls) Vec {
	m := &memColumn{t: t, col: col, nulls: nulls}
	// Validate the type eagerly.
	_ = m.Len()
	return m
}

func (m *memColumn) Type() coltypes.T { return m.t }

func (m *memColumn) Bool() []bool { return m.col.([]bool) }

func (m *memColumn) Int64() []int64 { return m.col.([]int64) }

func (m *memColumn) Float64() []float64 { return m.col.([]float64) }

func (m *memColumn) Bytes() [][]byte { return m.col.([][]byte) }

func (m *memColumn) Decimal() []apd.Decimal { return m.col.([]apd.Decimal) }

func (m *memColumn) Col() interface{} { return m.col }

func (m *memColumn) MaybeHasNulls() bool { return m.nulls.MaybeHasNulls() }

func (m *memColumn) Nulls() *Nulls { return &m.nulls }

func (m *memColumn) Len() int {
	switch m.t {
	case coltypes.Bool:
		return len(m.Bool())
	case coltypes.Int64:
		return len(m.Int64())
	case coltypes.Float64:
		return len(m.Float64())
	case coltypes.Bytes:
		return len(m.Bytes())
	case coltypes.Decimal:
		return len(m.Decimal())
	default:
		panic(fmt.Sprintf("unhandled type %s", m.t))
	}
}

func (m *memColumn) Get(i int) interface{} {
	if m.nulls.NullAt(i) {
		return nil
	}
	switch m.t {
	case coltypes.Bool:
		return m.Bool()[i]
	case coltypes.Int64:
		return m.Int64()[i]
	case coltypes.Float64:
		return m.Float64()[i]
	case coltypes.Bytes:
		return m.Bytes()[i]
	case coltypes.Decimal:
		d := &m.Decimal()[i]
		return d
	default:
		panic(fmt.Sprintf("unhandled type %s", m.t))
	}
}

func (m *memColumn) Copy(destIdx int, src Vec, srcIdx int) {
	if src.Type() != m.t {
		panic(fmt.Sprintf("cannot copy %s into %s", src.Type(), m.t))
	}
	if src.Nulls().NullAt(srcIdx) {
		m.nulls.SetNull(destIdx)
		return
	}
	m.nulls.UnsetNull(destIdx)
	switch m.t {
	case coltypes.Bool:
		m.Bool()[destIdx] = src.Bool()[srcIdx]
	case coltypes.Int64:
		m.Int64()[destIdx] = src.Int64()[srcIdx]
	case coltypes.Float64:
		m.Float64()[destIdx] = src.Float64()[srcIdx]
	case coltypes.Bytes:
		// Batches are immutable once produced, so sharing the underlying
		// bytes is safe.
		m.Bytes()[destIdx] = src.Bytes()[srcIdx]
	case coltypes.Decimal:
		m.Decimal()[destIdx].Set(&src.Decimal()[srcIdx])
	default:
		panic(fmt.Sprintf("unhandled type %s", m.t))
	}
}

const (
	sizeOfBytesHeader = int64(unsafe.Sizeof([]byte(nil)))
	sizeOfDecimal     = int64(unsafe.Sizeof(apd.Decimal{}))
)

func (m *memColumn) Size() int64 {
	size := m.nulls.Size()
	switch m.t {
	case coltypes.Bool:
		size += int64(cap(m.Bool()))
	case coltypes.Int64:
		size += int64(cap(m.Int64())) * 8
	case coltypes.Float64:
		size += int64(cap(m.Float64())) * 8
	case coltypes.Bytes:
		col := m.Bytes()
		size += int64(cap(col)) * sizeOfBytesHeader
		for i := range col {
			size += int64(cap(col[i]))
		}
	case coltypes.Decimal:
		// Small coefficients are stored inline in apd.Decimal.
		size += int64(cap(m.Decimal())) * sizeOfDecimal
	}
	return size
}
