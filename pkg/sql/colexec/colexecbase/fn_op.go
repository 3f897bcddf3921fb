// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecbase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
)

// fnOp is an operator that executes an arbitrary function for its
// side-effects, once per input batch, passing the input batch unmodified
// along. An error returned by the function fails the driver.
type fnOp struct {
	colexecop.OperatorBase

	typs    []coltypes.T
	fn      func(ctx context.Context, b coldata.Batch) error
	pending coldata.Batch
}

var _ colexecop.Operator = &fnOp{}

// NewFnOpFactory returns the factory of pass-through operators calling fn
// on every batch of typs.
func NewFnOpFactory(
	operatorID int, typs []coltypes.T, fn func(ctx context.Context, b coldata.Batch) error,
) colexecop.OperatorFactory {
	return colexecop.NewFuncFactory(operatorID, "fn", typs, func(dctx *execctx.DriverContext) (colexecop.Operator, error) {
		return &fnOp{
			OperatorBase: colexecop.MakeOperatorBase(dctx, operatorID, "fn"),
			typs:         typs,
			fn:           fn,
		}, nil
	})
}

func (f *fnOp) OutputTypes() []coltypes.T { return f.typs }

func (f *fnOp) NeedsInput() bool { return !f.Finishing() && f.pending == nil }

func (f *fnOp) AddInput(ctx context.Context, b coldata.Batch) error {
	if !f.NeedsInput() {
		return errors.AssertionFailedf("fn operator %d is not accepting input", f.ID)
	}
	f.Stats.RecordInput(b.Length())
	if err := f.fn(ctx, b); err != nil {
		return err
	}
	f.pending = b
	return nil
}

func (f *fnOp) GetOutput(context.Context) (coldata.Batch, error) {
	b := f.pending
	if b == nil {
		return nil, nil
	}
	f.pending = nil
	f.Stats.RecordOutput(b.Length())
	return b, nil
}

func (f *fnOp) IsFinished() bool { return f.Finishing() && f.pending == nil }

func (f *fnOp) Close(context.Context) error {
	f.MarkClosed()
	f.pending = nil
	return nil
}
