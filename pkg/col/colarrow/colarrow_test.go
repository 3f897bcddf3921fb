// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colarrow

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/stretchr/testify/require"
)

var testTypes = []coltypes.T{
	coltypes.Int64, coltypes.Float64, coltypes.Bytes, coltypes.Bool, coltypes.Decimal,
}
var testNames = []string{"k", "f", "b", "ok", "d"}

func TestBatchRecordRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	in, err := coldata.MakeBatch(testTypes, []coldata.Tuple{
		{1, 1.5, "x", true, "10.25"},
		{nil, nil, nil, nil, nil},
		{-3, 0.0, "", false, "0"},
	})
	require.NoError(t, err)

	rec, err := BatchToRecord(mem, in, testNames)
	require.NoError(t, err)
	require.Equal(t, int64(3), rec.NumRows())
	require.Equal(t, "k", rec.ColumnName(0))

	out, err := RecordToBatch(rec, testTypes)
	rec.Release()
	require.NoError(t, err)
	require.Equal(t, coldata.Tuples(in), coldata.Tuples(out))
}

func TestRecordToBatchMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()
	in, err := coldata.MakeBatch([]coltypes.T{coltypes.Int64}, []coldata.Tuple{{1}})
	require.NoError(t, err)
	rec, err := BatchToRecord(mem, in, []string{"k"})
	require.NoError(t, err)
	defer rec.Release()

	_, err = RecordToBatch(rec, []coltypes.T{coltypes.Int64, coltypes.Int64})
	require.Error(t, err)
	_, err = RecordToBatch(rec, []coltypes.T{coltypes.Float64})
	require.Error(t, err)
}

func TestRecordProducer(t *testing.T) {
	mem := memory.NewGoAllocator()
	typs := []coltypes.T{coltypes.Int64}
	schema, err := NewSchema([]string{"k"}, typs)
	require.NoError(t, err)

	var recs []arrow.Record
	for _, tuples := range [][]coldata.Tuple{{{1}, {2}}, {}, {{3}}} {
		b, err := coldata.MakeBatch(typs, tuples)
		require.NoError(t, err)
		rec, err := BatchToRecord(mem, b, []string{"k"})
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	reader, err := array.NewRecordReader(schema, recs)
	require.NoError(t, err)
	for _, rec := range recs {
		rec.Release()
	}

	p := NewRecordProducer(reader, typs)
	defer p.Close()
	ctx := context.Background()
	var got []coldata.Tuple
	for {
		b, err := p.NextBatch(ctx)
		require.NoError(t, err)
		if b.Length() == 0 {
			break
		}
		got = append(got, coldata.Tuples(b)...)
	}
	require.Equal(t, []coldata.Tuple{{int64(1)}, {int64(2)}, {int64(3)}}, got)
}
