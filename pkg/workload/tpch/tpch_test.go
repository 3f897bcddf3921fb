// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package tpch

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/colarrow"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/stretchr/testify/require"
)

const testScaleFactor = 0.001

func readAll(t *testing.T, r *RecordReader) []coldata.Tuple {
	t.Helper()
	var rows []coldata.Tuple
	defer r.Release()
	for r.Next() {
		rec := r.Record()
		require.LessOrEqual(t, int(rec.NumRows()), r.batchSize)
		b, err := recordToBatch(r, rec)
		require.NoError(t, err)
		rows = append(rows, coldata.Tuples(b)...)
	}
	require.NoError(t, r.Err())
	return rows
}

func TestOrdersGenerator(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	g, err := NewOrdersGenerator(testScaleFactor, DefaultSeed)
	require.NoError(t, err)
	require.EqualValues(t, 1500, g.NumOrders())

	r, err := g.NewRecordReader(mem, 100, "orderkey", "totalprice")
	require.NoError(t, err)
	require.Equal(t, []coltypes.T{coltypes.Int64, coltypes.Float64}, r.Types())
	rows := readAll(t, r)
	require.Len(t, rows, 1500)

	// Keys are sparse and increasing.
	require.EqualValues(t, 1, rows[0][0])
	require.EqualValues(t, 8, rows[7][0])
	require.EqualValues(t, 33, rows[8][0])
	for i := 1; i < len(rows); i++ {
		require.Greater(t, rows[i][0].(int64), rows[i-1][0].(int64))
	}
	for _, row := range rows {
		require.Greater(t, row[1].(float64), 0.0)
	}
}

func TestGeneratorDeterminism(t *testing.T) {
	read := func(seed uint64) []coldata.Tuple {
		g, err := NewLineItemGenerator(testScaleFactor, seed)
		require.NoError(t, err)
		r, err := g.NewRecordReader(memory.DefaultAllocator, 256)
		require.NoError(t, err)
		return readAll(t, r)
	}
	a, b := read(7), read(7)
	require.Equal(t, a, b)
	require.NotEqual(t, a, read(8))
}

func TestLineItemsMatchOrders(t *testing.T) {
	orders, err := NewOrdersGenerator(testScaleFactor, DefaultSeed)
	require.NoError(t, err)
	lineItems, err := NewLineItemGenerator(testScaleFactor, DefaultSeed)
	require.NoError(t, err)

	or, err := orders.NewRecordReader(memory.DefaultAllocator, 64, "orderkey", "totalprice")
	require.NoError(t, err)
	lr, err := lineItems.NewRecordReader(
		memory.DefaultAllocator, 1000, "orderkey", "linenumber", "extendedprice", "discount")
	require.NoError(t, err)

	totals := make(map[int64]float64)
	for _, row := range readAll(t, or) {
		totals[row[0].(int64)] = row[1].(float64)
	}
	sums := make(map[int64]int64)
	lastLine := make(map[int64]int64)
	for _, row := range readAll(t, lr) {
		key := row[0].(int64)
		_, ok := totals[key]
		require.True(t, ok, "lineitem references unknown order %d", key)
		line := row[1].(int64)
		require.Equal(t, lastLine[key]+1, line)
		lastLine[key] = line

		cents := int64(row[2].(float64)*100 + 0.5)
		discount, err := parseDiscountPercent(row[3])
		require.NoError(t, err)
		sums[key] += cents * (100 - discount) / 100
	}
	require.Len(t, sums, len(totals))
	for key, total := range totals {
		require.InDelta(t, total, float64(sums[key])/100, 0.001, "order %d", key)
		require.GreaterOrEqual(t, lastLine[key], int64(minLinesPerOrder))
		require.LessOrEqual(t, lastLine[key], int64(maxLinesPerOrder))
	}
}

func TestProducer(t *testing.T) {
	ctx := context.Background()
	g, err := NewLineItemGenerator(testScaleFactor, DefaultSeed)
	require.NoError(t, err)
	p, typs, err := g.NewProducer(coldata.BatchSize(), "orderkey", "quantity")
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, []coltypes.T{coltypes.Int64, coltypes.Int64}, typs)

	var total int
	for {
		b, err := p.NextBatch(ctx)
		require.NoError(t, err)
		if b.Length() == 0 {
			break
		}
		require.Equal(t, typs, b.Types())
		for _, q := range b.ColVec(1).Int64()[:b.Length()] {
			require.GreaterOrEqual(t, q, int64(minQuantity))
			require.LessOrEqual(t, q, int64(maxQuantity))
		}
		total += b.Length()
	}
	require.GreaterOrEqual(t, total, 1500*minLinesPerOrder)
	require.LessOrEqual(t, total, 1500*maxLinesPerOrder)
}

func TestGeneratorErrors(t *testing.T) {
	_, err := NewOrdersGenerator(0, DefaultSeed)
	require.Error(t, err)

	g, err := NewOrdersGenerator(testScaleFactor, DefaultSeed)
	require.NoError(t, err)
	_, err = g.NewRecordReader(memory.DefaultAllocator, 10, "quantity")
	require.ErrorContains(t, err, `table orders has no column "quantity"`)
	_, err = g.NewRecordReader(memory.DefaultAllocator, 0)
	require.Error(t, err)
}

func recordToBatch(r *RecordReader, rec arrow.Record) (coldata.Batch, error) {
	return colarrow.RecordToBatch(rec, r.Types())
}

func parseDiscountPercent(v interface{}) (int64, error) {
	d, _, err := apd.NewFromString(v.(string))
	if err != nil {
		return 0, err
	}
	if d.Exponent != -2 {
		return 0, errors.Newf("unexpected discount %s", d)
	}
	return d.Coeff.Int64(), nil
}
