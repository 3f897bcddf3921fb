// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package colarrow converts between Apache Arrow records and coldata batches.
// It is how table data in the Arrow in-memory format is scanned into the
// engine.
package colarrow

import (
	"context"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/array"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
)

// TypeToArrow returns the arrow type used to store columns of type t. Decimals
// are stored as their canonical string representation.
func TypeToArrow(t coltypes.T) (arrow.DataType, error) {
	switch t {
	case coltypes.Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case coltypes.Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case coltypes.Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case coltypes.Bytes:
		return arrow.BinaryTypes.Binary, nil
	case coltypes.Decimal:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, errors.AssertionFailedf("unsupported type %s", t)
	}
}

// NewSchema returns an arrow schema with one nullable field per column.
func NewSchema(names []string, typs []coltypes.T) (*arrow.Schema, error) {
	if len(names) != len(typs) {
		return nil, errors.AssertionFailedf("%d names for %d types", len(names), len(typs))
	}
	fields := make([]arrow.Field, len(typs))
	for i, t := range typs {
		at, err := TypeToArrow(t)
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: names[i], Type: at, Nullable: true}
	}
	return arrow.NewSchema(fields, nil /* metadata */), nil
}

// RecordToBatch copies the contents of rec into a new batch of the given
// types. The record may be released once this returns.
func RecordToBatch(rec arrow.Record, typs []coltypes.T) (coldata.Batch, error) {
	if int(rec.NumCols()) != len(typs) {
		return nil, errors.Newf("record has %d columns, expected %d", rec.NumCols(), len(typs))
	}
	n := int(rec.NumRows())
	b := coldata.NewMemBatchWithCapacity(typs, n)
	for j, t := range typs {
		if err := copyArrowColumn(rec.Column(j), t, b.ColVec(j), n); err != nil {
			return nil, errors.Wrapf(err, "column %q", rec.ColumnName(j))
		}
	}
	b.SetLength(n)
	return b, nil
}

func copyArrowColumn(arr arrow.Array, t coltypes.T, vec coldata.Vec, n int) error {
	nulls := vec.Nulls()
	for i := 0; i < n; i++ {
		if arr.IsNull(i) {
			nulls.SetNull(i)
		}
	}
	switch t {
	case coltypes.Bool:
		a, ok := arr.(*array.Boolean)
		if !ok {
			return errors.Newf("unexpected arrow array %T for %s", arr, t)
		}
		col := vec.Bool()
		for i := 0; i < n; i++ {
			col[i] = a.Value(i)
		}
	case coltypes.Int64:
		a, ok := arr.(*array.Int64)
		if !ok {
			return errors.Newf("unexpected arrow array %T for %s", arr, t)
		}
		copy(vec.Int64(), a.Int64Values())
	case coltypes.Float64:
		a, ok := arr.(*array.Float64)
		if !ok {
			return errors.Newf("unexpected arrow array %T for %s", arr, t)
		}
		copy(vec.Float64(), a.Float64Values())
	case coltypes.Bytes:
		a, ok := arr.(*array.Binary)
		if !ok {
			return errors.Newf("unexpected arrow array %T for %s", arr, t)
		}
		col := vec.Bytes()
		for i := 0; i < n; i++ {
			if !a.IsNull(i) {
				// Arrow buffers are released with the record.
				col[i] = append([]byte(nil), a.Value(i)...)
			}
		}
	case coltypes.Decimal:
		a, ok := arr.(*array.String)
		if !ok {
			return errors.Newf("unexpected arrow array %T for %s", arr, t)
		}
		col := vec.Decimal()
		for i := 0; i < n; i++ {
			if a.IsNull(i) {
				continue
			}
			if _, _, err := col[i].SetString(a.Value(i)); err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
		}
	default:
		return errors.AssertionFailedf("unsupported type %s", t)
	}
	return nil
}

// BatchToRecord converts b into an arrow record with the given column names.
// The caller owns the returned record and must Release it.
func BatchToRecord(mem memory.Allocator, b coldata.Batch, names []string) (arrow.Record, error) {
	schema, err := NewSchema(names, b.Types())
	if err != nil {
		return nil, err
	}
	n := b.Length()
	cols := make([]arrow.Array, b.Width())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for j, t := range b.Types() {
		vec := b.ColVec(j)
		nulls := vec.Nulls()
		switch t {
		case coltypes.Bool:
			bld := array.NewBooleanBuilder(mem)
			for i, v := range vec.Bool()[:n] {
				if nulls.NullAt(i) {
					bld.AppendNull()
				} else {
					bld.Append(v)
				}
			}
			cols[j] = bld.NewArray()
			bld.Release()
		case coltypes.Int64:
			bld := array.NewInt64Builder(mem)
			for i, v := range vec.Int64()[:n] {
				if nulls.NullAt(i) {
					bld.AppendNull()
				} else {
					bld.Append(v)
				}
			}
			cols[j] = bld.NewArray()
			bld.Release()
		case coltypes.Float64:
			bld := array.NewFloat64Builder(mem)
			for i, v := range vec.Float64()[:n] {
				if nulls.NullAt(i) {
					bld.AppendNull()
				} else {
					bld.Append(v)
				}
			}
			cols[j] = bld.NewArray()
			bld.Release()
		case coltypes.Bytes:
			bld := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
			for i, v := range vec.Bytes()[:n] {
				if nulls.NullAt(i) {
					bld.AppendNull()
				} else {
					bld.Append(v)
				}
			}
			cols[j] = bld.NewArray()
			bld.Release()
		case coltypes.Decimal:
			bld := array.NewStringBuilder(mem)
			col := vec.Decimal()
			for i := 0; i < n; i++ {
				if nulls.NullAt(i) {
					bld.AppendNull()
				} else {
					bld.Append(col[i].String())
				}
			}
			cols[j] = bld.NewArray()
			bld.Release()
		default:
			return nil, errors.AssertionFailedf("unsupported type %s", t)
		}
	}
	return array.NewRecord(schema, cols, int64(n)), nil
}

// RecordIterator is the subset of array.RecordReader used by RecordProducer.
type RecordIterator interface {
	Next() bool
	Record() arrow.Record
	Release()
}

var _ RecordIterator = array.RecordReader(nil)

// RecordProducer turns a stream of arrow records into batches. It satisfies
// colexecop.BatchProducer.
type RecordProducer struct {
	reader RecordIterator
	typs   []coltypes.T
}

// NewRecordProducer returns a producer reading records from reader. The
// producer takes ownership of the reader.
func NewRecordProducer(reader RecordIterator, typs []coltypes.T) *RecordProducer {
	return &RecordProducer{reader: reader, typs: typs}
}

// NextBatch returns the next non-empty batch, or coldata.ZeroBatch once the
// reader is exhausted.
func (p *RecordProducer) NextBatch(ctx context.Context) (coldata.Batch, error) {
	for p.reader != nil && p.reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec := p.reader.Record()
		if rec.NumRows() == 0 {
			continue
		}
		return RecordToBatch(rec, p.typs)
	}
	if e, ok := p.reader.(interface{ Err() error }); ok {
		if err := e.Err(); err != nil {
			return nil, err
		}
	}
	return coldata.ZeroBatch, nil
}

// Close releases the underlying reader.
func (p *RecordProducer) Close() {
	if p.reader != nil {
		p.reader.Release()
		p.reader = nil
	}
}
