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

// nullOutputOp is a terminal sink that consumes and discards every batch.
// The discarded rows are counted in its stats.
type nullOutputOp struct {
	colexecop.OperatorBase

	inputTypes []coltypes.T
	rows       int64
}

var _ colexecop.Operator = &nullOutputOp{}

// NewNullOutputOpFactory returns the factory of terminal operators that
// discard batches of inputTypes.
func NewNullOutputOpFactory(operatorID int, inputTypes []coltypes.T) colexecop.OperatorFactory {
	return colexecop.NewFuncFactory(operatorID, "null-output", nil /* outputTypes */, func(dctx *execctx.DriverContext) (colexecop.Operator, error) {
		return &nullOutputOp{
			OperatorBase: colexecop.MakeOperatorBase(dctx, operatorID, "null-output"),
			inputTypes:   inputTypes,
		}, nil
	})
}

func (n *nullOutputOp) OutputTypes() []coltypes.T { return nil }

func (n *nullOutputOp) NeedsInput() bool { return !n.Finishing() }

func (n *nullOutputOp) AddInput(ctx context.Context, b coldata.Batch) error {
	if n.Finishing() {
		return errors.AssertionFailedf("null output %d received input after finish", n.ID)
	}
	n.Stats.RecordInput(b.Length())
	n.rows += int64(b.Length())
	return nil
}

func (n *nullOutputOp) GetOutput(context.Context) (coldata.Batch, error) { return nil, nil }

func (n *nullOutputOp) IsFinished() bool { return n.Finishing() }

func (n *nullOutputOp) Close(context.Context) error {
	n.MarkClosed()
	return nil
}
