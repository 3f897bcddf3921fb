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
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexechash"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
)

// hashProjectOp is an operator that appends to every input batch an Int64
// column holding the hash of the row's key columns. The output batch shares
// the input's vectors; only the hash column is allocated.
type hashProjectOp struct {
	colexecop.OperatorBase

	outputTypes []coltypes.T
	keyCols     []uint32
	// output is the projected batch not yet handed out.
	output coldata.Batch
}

var _ colexecop.Operator = &hashProjectOp{}

// NewHashProjectOpFactory returns the factory of operators that append the
// hash of keyCols to batches of inputTypes. The hash column is placed at
// position len(inputTypes).
func NewHashProjectOpFactory(
	operatorID int, inputTypes []coltypes.T, keyCols []uint32,
) (colexecop.OperatorFactory, error) {
	if len(keyCols) == 0 {
		return nil, colexecerror.NewConfigurationErrorf("hash projection requires key columns")
	}
	if err := colexecop.CheckColumns(inputTypes, keyCols, "key"); err != nil {
		return nil, err
	}
	outputTypes := make([]coltypes.T, 0, len(inputTypes)+1)
	outputTypes = append(outputTypes, inputTypes...)
	outputTypes = append(outputTypes, coltypes.Int64)
	// We make a copy of keyCols to be safe.
	keyCols = append([]uint32(nil), keyCols...)
	return colexecop.NewFuncFactory(operatorID, "hash-project", outputTypes, func(dctx *execctx.DriverContext) (colexecop.Operator, error) {
		return &hashProjectOp{
			OperatorBase: colexecop.MakeOperatorBase(dctx, operatorID, "hash-project"),
			outputTypes:  outputTypes,
			keyCols:      keyCols,
		}, nil
	}), nil
}

func (p *hashProjectOp) OutputTypes() []coltypes.T { return p.outputTypes }

func (p *hashProjectOp) NeedsInput() bool {
	return !p.Finishing() && p.output == nil
}

func (p *hashProjectOp) AddInput(ctx context.Context, b coldata.Batch) error {
	if !p.NeedsInput() {
		return errors.AssertionFailedf("hash projection %d is not accepting input", p.ID)
	}
	p.Stats.RecordInput(b.Length())
	n := b.Length()
	hashes := make([]int64, n)
	for i := 0; i < n; i++ {
		hashes[i] = int64(colexechash.HashRow(b, i, p.keyCols))
	}
	vecs := make([]coldata.Vec, 0, b.Width()+1)
	vecs = append(vecs, b.ColVecs()...)
	vecs = append(vecs, coldata.NewVecFromSlice(coltypes.Int64, hashes, coldata.NewNulls(n)))
	p.output = coldata.NewBatchWithVecs(vecs, n)
	return nil
}

func (p *hashProjectOp) GetOutput(context.Context) (coldata.Batch, error) {
	b := p.output
	if b == nil {
		return nil, nil
	}
	p.output = nil
	p.Stats.RecordOutput(b.Length())
	return b, nil
}

func (p *hashProjectOp) IsFinished() bool {
	return p.Finishing() && p.output == nil
}

func (p *hashProjectOp) Close(context.Context) error {
	p.MarkClosed()
	p.output = nil
	return nil
}
