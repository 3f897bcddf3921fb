// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package coldata

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
)

// Tuple is a row of Go values, with nil standing for NULL.
type Tuple []interface{}

// MakeBatch builds a batch of the given types out of tuples. Values are
// converted from the usual Go representations: any integer kind for Int64,
// float64 for Float64, string or []byte for Bytes, and string, float64, int or
// *apd.Decimal for Decimal.
func MakeBatch(typs []coltypes.T, tuples []Tuple) (*MemBatch, error) {
	b := NewMemBatchWithCapacity(typs, len(tuples))
	for i, tup := range tuples {
		if len(tup) != len(typs) {
			return nil, errors.Newf("tuple %d has %d values, expected %d", i, len(tup), len(typs))
		}
		for j, v := range tup {
			if err := setValue(b.ColVec(j), i, v); err != nil {
				return nil, errors.Wrapf(err, "tuple %d column %d", i, j)
			}
		}
	}
	b.SetLength(len(tuples))
	return b, nil
}

func setValue(vec Vec, i int, v interface{}) error {
	if v == nil {
		vec.Nulls().SetNull(i)
		return nil
	}
	switch vec.Type() {
	case coltypes.Bool:
		b, ok := v.(bool)
		if !ok {
			return errors.Newf("cannot use %T as Bool", v)
		}
		vec.Bool()[i] = b
	case coltypes.Int64:
		switch t := v.(type) {
		case int:
			vec.Int64()[i] = int64(t)
		case int32:
			vec.Int64()[i] = int64(t)
		case int64:
			vec.Int64()[i] = t
		default:
			return errors.Newf("cannot use %T as Int64", v)
		}
	case coltypes.Float64:
		switch t := v.(type) {
		case float64:
			vec.Float64()[i] = t
		case int:
			vec.Float64()[i] = float64(t)
		default:
			return errors.Newf("cannot use %T as Float64", v)
		}
	case coltypes.Bytes:
		switch t := v.(type) {
		case string:
			vec.Bytes()[i] = []byte(t)
		case []byte:
			vec.Bytes()[i] = t
		default:
			return errors.Newf("cannot use %T as Bytes", v)
		}
	case coltypes.Decimal:
		d := &vec.Decimal()[i]
		switch t := v.(type) {
		case *apd.Decimal:
			d.Set(t)
		case string:
			if _, _, err := d.SetString(t); err != nil {
				return err
			}
		case float64:
			if _, err := d.SetFloat64(t); err != nil {
				return err
			}
		case int:
			d.SetInt64(int64(t))
		case int64:
			d.SetInt64(t)
		default:
			return errors.Newf("cannot use %T as Decimal", v)
		}
	default:
		return errors.Newf("unhandled type %s", vec.Type())
	}
	return nil
}

// Tuples returns the rows of b as Tuples; Decimal values are rendered as
// strings so that tuples can be compared with ==.
func Tuples(b Batch) []Tuple {
	res := make([]Tuple, b.Length())
	for i := range res {
		tup := make(Tuple, b.Width())
		for j := range tup {
			v := b.ColVec(j).Get(i)
			switch t := v.(type) {
			case []byte:
				v = string(t)
			case *apd.Decimal:
				v = t.String()
			}
			tup[j] = v
		}
		res[i] = tup
	}
	return res
}
