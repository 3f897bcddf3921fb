// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecjoin

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexechash"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
)

// LookupJoinFactory creates the lookup joins of a probe pipeline. Every
// join created by the factory probes the lookup source of the same
// supplier.
type LookupJoinFactory struct {
	*colexecop.FuncFactory

	supplier         *colexechash.LookupSourceSupplier
	probeTypes       []coltypes.T
	probeKeyCols     []uint32
	probeHashChannel colexechash.HashChannel
	probeOutputCols  []uint32
}

var _ colexecop.OperatorFactory = &LookupJoinFactory{}

// NewInnerJoinFactory returns the factory of inner lookup joins between
// probe batches of probeTypes and the lookup source of supplier. Joined rows
// hold the probeOutputCols of the probe row followed by the build output
// columns. A nil probeOutputCols selects every probe column but the hash
// column.
func NewInnerJoinFactory(
	operatorID int,
	supplier *colexechash.LookupSourceSupplier,
	probeTypes []coltypes.T,
	probeKeyCols []uint32,
	probeHashChannel colexechash.HashChannel,
	probeOutputCols []uint32,
) (*LookupJoinFactory, error) {
	if probeOutputCols == nil {
		probeOutputCols = defaultOutputCols(len(probeTypes), probeHashChannel)
	}
	if err := checkInputSide("probe", probeTypes, probeKeyCols, probeHashChannel, probeOutputCols); err != nil {
		return nil, err
	}
	if err := checkKeyTypes(supplier.BuildKeyTypes(), probeTypes, probeKeyCols); err != nil {
		return nil, err
	}
	outputTypes := colexecop.ProjectTypes(probeTypes, probeOutputCols)
	outputTypes = append(outputTypes, supplier.BuildOutputTypes()...)

	f := &LookupJoinFactory{
		supplier:         supplier,
		probeTypes:       probeTypes,
		probeKeyCols:     probeKeyCols,
		probeHashChannel: probeHashChannel,
		probeOutputCols:  probeOutputCols,
	}
	f.FuncFactory = colexecop.NewFuncFactory(operatorID, "lookup-join", outputTypes, func(dctx *execctx.DriverContext) (colexecop.Operator, error) {
		return &lookupJoinOp{
			OperatorBase: colexecop.MakeOperatorBase(dctx, operatorID, "lookup-join"),
			factory:      f,
			outputTypes:  outputTypes,
			batchSize:    coldata.BatchSize(),
		}, nil
	})
	return f, nil
}

// lookupJoinOp is an inner join of probe batches against a LookupSource.
//
// Output is produced in batches of at most batchSize rows. When an output
// batch fills up in the middle of a probe row's match chain, the position
// in the probe batch and in the chain is kept and the next GetOutput call
// resumes from it.
type lookupJoinOp struct {
	colexecop.OperatorBase

	factory     *LookupJoinFactory
	outputTypes []coltypes.T
	batchSize   int

	// source is nil until the supplier is resolved.
	source *colexechash.LookupSource

	// probe is the probe batch being joined, nil if none is buffered.
	probe coldata.Batch
	// probeIdx is the position of the probe row being joined.
	probeIdx int
	// rowStarted is set once the first match of the probe row at probeIdx
	// has been looked up; nextMatch and hash are valid only then.
	rowStarted bool
	hash       uint64
	// nextMatch is the keyID of the next build row to emit for the probe row
	// at probeIdx, or 0 once its chain is exhausted.
	nextMatch uint64

	// output is the batch being filled, outIdx the number of rows in it.
	output *coldata.MemBatch
	outIdx int
}

var _ colexecop.Operator = &lookupJoinOp{}

func (j *lookupJoinOp) OutputTypes() []coltypes.T { return j.outputTypes }

// NeedsInput returns true while no probe batch is buffered. One probe batch
// is accepted even before the lookup source is available.
func (j *lookupJoinOp) NeedsInput() bool {
	return !j.Finishing() && j.probe == nil
}

func (j *lookupJoinOp) AddInput(ctx context.Context, b coldata.Batch) error {
	if !j.NeedsInput() {
		return errors.AssertionFailedf("lookup join %d is not accepting input", j.ID)
	}
	j.Stats.RecordInput(b.Length())
	if b.Length() == 0 {
		return nil
	}
	j.probe = b
	j.probeIdx = 0
	j.rowStarted = false
	return nil
}

// resolve picks up the lookup source if the supplier has been set.
func (j *lookupJoinOp) resolve(ctx context.Context) bool {
	if j.source != nil {
		return true
	}
	src, ok := j.factory.supplier.TryGet()
	if !ok {
		return false
	}
	j.source = src
	log.VEventf(ctx, 2, "lookup join %d resolved lookup source with %d rows", j.ID, src.RowCount())
	return true
}

// IsBlocked returns the supplier's ready channel while the lookup source is
// unknown.
func (j *lookupJoinOp) IsBlocked() colexecop.BlockedFuture {
	if j.source != nil {
		return colexecop.NotBlocked
	}
	if _, ok := j.factory.supplier.TryGet(); ok {
		return colexecop.NotBlocked
	}
	return j.factory.supplier.Ready()
}

func (j *lookupJoinOp) GetOutput(ctx context.Context) (coldata.Batch, error) {
	if j.probe == nil || !j.resolve(ctx) {
		return nil, nil
	}
	if j.source.IsEmpty() {
		// Nothing can match; the probe input is drained.
		j.probe = nil
		return nil, nil
	}

	f := j.factory
	n := j.probe.Length()
	for j.probeIdx < n {
		if !j.rowStarted {
			j.hash = colexechash.RowHash(j.probe, j.probeIdx, f.probeKeyCols, f.probeHashChannel)
			j.nextMatch = j.source.FirstMatch(j.probe, j.probeIdx, f.probeKeyCols, j.hash)
			j.rowStarted = true
		}
		for j.nextMatch != 0 {
			if j.outIdx == j.batchSize {
				// The output batch is full; we'll resume from the same
				// probe row and match.
				return j.flush(), nil
			}
			j.emit(j.nextMatch)
			j.nextMatch = j.source.NextMatch(j.nextMatch, j.probe, j.probeIdx, f.probeKeyCols, j.hash)
		}
		j.rowStarted = false
		j.probeIdx++
	}
	// We're done probing the batch.
	j.probe = nil
	if j.outIdx == 0 {
		return nil, nil
	}
	return j.flush(), nil
}

// emit appends the joined row of the current probe row and build row keyID
// to the output batch.
func (j *lookupJoinOp) emit(keyID uint64) {
	if j.output == nil {
		j.output = coldata.NewMemBatchWithCapacity(j.outputTypes, j.batchSize)
	}
	vecs := j.output.ColVecs()
	for i, c := range j.factory.probeOutputCols {
		vecs[i].Copy(j.outIdx, j.probe.ColVec(int(c)), j.probeIdx)
	}
	j.source.AppendBuildRow(keyID, vecs[len(j.factory.probeOutputCols):], j.outIdx)
	j.outIdx++
}

func (j *lookupJoinOp) flush() coldata.Batch {
	b := j.output
	b.SetLength(j.outIdx)
	j.output = nil
	j.outIdx = 0
	j.Stats.RecordOutput(b.Length())
	return b
}

// IsFinished returns true once the join is finishing and holds neither a
// probe batch nor pending output.
func (j *lookupJoinOp) IsFinished() bool {
	return j.Finishing() && j.probe == nil && j.outIdx == 0
}

func (j *lookupJoinOp) Close(context.Context) error {
	j.MarkClosed()
	j.probe = nil
	j.output = nil
	j.outIdx = 0
	return nil
}
