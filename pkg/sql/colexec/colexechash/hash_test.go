// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexechash

import (
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/stretchr/testify/require"
)

func mustMakeBatch(t *testing.T, typs []coltypes.T, tuples ...coldata.Tuple) *coldata.MemBatch {
	t.Helper()
	b, err := coldata.MakeBatch(typs, tuples)
	require.NoError(t, err)
	return b
}

func TestHashValueEquivalences(t *testing.T) {
	testCases := []struct {
		name string
		typ  coltypes.T
		a, b interface{}
	}{
		{name: "int", typ: coltypes.Int64, a: 7, b: int64(7)},
		{name: "signed zero", typ: coltypes.Float64, a: 0.0, b: math.Copysign(0, -1)},
		{name: "nan", typ: coltypes.Float64, a: math.NaN(), b: -math.NaN()},
		{name: "bytes", typ: coltypes.Bytes, a: "abc", b: []byte("abc")},
		{name: "decimal trailing zeros", typ: coltypes.Decimal, a: "1.0", b: "1.000"},
		{name: "decimal zero", typ: coltypes.Decimal, a: "0", b: "-0.00"},
		{name: "bool", typ: coltypes.Bool, a: true, b: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			typs := []coltypes.T{tc.typ}
			b := mustMakeBatch(t, typs, coldata.Tuple{tc.a}, coldata.Tuple{tc.b})
			vec := b.ColVec(0)
			require.True(t, ValuesEqual(vec, 0, vec, 1))
			require.Equal(t, HashValue(vec, 0), HashValue(vec, 1))
		})
	}
}

func TestHashValueDistinguishes(t *testing.T) {
	typs := []coltypes.T{coltypes.Int64, coltypes.Bytes}
	b := mustMakeBatch(t, typs,
		coldata.Tuple{1, "a"},
		coldata.Tuple{2, "a"},
		coldata.Tuple{1, "b"},
	)
	keyCols := []uint32{0, 1}
	h0, h1, h2 := HashRow(b, 0, keyCols), HashRow(b, 1, keyCols), HashRow(b, 2, keyCols)
	require.NotEqual(t, h0, h1)
	require.NotEqual(t, h0, h2)
	require.False(t, ValuesEqual(b.ColVec(0), 0, b.ColVec(0), 1))

	// Column order matters.
	require.NotEqual(t, HashRow(b, 0, []uint32{0, 1}), HashRow(b, 0, []uint32{1, 0}))
}

func TestHashDecimal(t *testing.T) {
	var d1, d2 apd.Decimal
	_, _, err := d1.SetString("12.50")
	require.NoError(t, err)
	_, _, err = d2.SetString("12.5")
	require.NoError(t, err)
	vec := coldata.NewVecFromSlice(coltypes.Decimal, []apd.Decimal{d1, d2}, coldata.NewNulls(2))
	require.Equal(t, HashValue(vec, 0), HashValue(vec, 1))
}

func TestRowHashUsesHashChannel(t *testing.T) {
	typs := []coltypes.T{coltypes.Int64, coltypes.Int64}
	b := mustMakeBatch(t, typs, coldata.Tuple{5, 42})
	require.Equal(t, uint64(42), RowHash(b, 0, []uint32{0}, MakeHashChannel(1)))
	require.Equal(t, HashRow(b, 0, []uint32{0}), RowHash(b, 0, []uint32{0}, NoHashChannel))
}

func TestHasNullKey(t *testing.T) {
	typs := []coltypes.T{coltypes.Int64, coltypes.Bytes}
	b := mustMakeBatch(t, typs, coldata.Tuple{nil, "a"}, coldata.Tuple{1, "a"})
	require.True(t, HasNullKey(b, 0, []uint32{0, 1}))
	require.False(t, HasNullKey(b, 0, []uint32{1}))
	require.False(t, HasNullKey(b, 1, []uint32{0, 1}))
	require.Equal(t, uint64(nullHash), HashValue(b.ColVec(0), 0))
}
