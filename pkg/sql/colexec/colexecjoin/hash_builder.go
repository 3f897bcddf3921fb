// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecjoin

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexechash"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/hashjoin/pkg/sql/mon"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/redact"
)

// HashBuilderFactory creates the hash builder of a build pipeline and owns
// the LookupSourceSupplier that the builder publishes to.
type HashBuilderFactory struct {
	id          int
	types       []coltypes.T
	keyCols     []uint32
	hashChannel colexechash.HashChannel
	outputCols  []uint32
	capacity    colexechash.Capacity
	supplier    *colexechash.LookupSourceSupplier

	created atomic.Bool
	closed  atomic.Bool
}

var _ colexecop.OperatorFactory = &HashBuilderFactory{}

// NewHashBuilderFactory validates the build columns and creates the
// supplier. A nil outputCols selects every build column but the hash column.
func NewHashBuilderFactory(
	operatorID int,
	types []coltypes.T,
	keyCols []uint32,
	hashChannel colexechash.HashChannel,
	outputCols []uint32,
	capacity colexechash.Capacity,
) (*HashBuilderFactory, error) {
	if outputCols == nil {
		outputCols = defaultOutputCols(len(types), hashChannel)
	}
	if err := checkInputSide("build", types, keyCols, hashChannel, outputCols); err != nil {
		return nil, err
	}
	if capacity.MaxRows < 0 || capacity.MaxBytes < 0 {
		return nil, colexecerror.NewConfigurationErrorf("negative hash builder capacity")
	}
	return &HashBuilderFactory{
		id:          operatorID,
		types:       types,
		keyCols:     keyCols,
		hashChannel: hashChannel,
		outputCols:  outputCols,
		capacity:    capacity,
		supplier:    colexechash.NewLookupSourceSupplier(types, keyCols, outputCols),
	}, nil
}

// Supplier returns the supplier the builder publishes its lookup source to.
func (f *HashBuilderFactory) Supplier() *colexechash.LookupSourceSupplier { return f.supplier }

// OperatorID implements the colexecop.OperatorFactory interface.
func (f *HashBuilderFactory) OperatorID() int { return f.id }

// Name implements the colexecop.OperatorFactory interface.
func (f *HashBuilderFactory) Name() redact.SafeString { return "hash-builder" }

// OutputTypes implements the colexecop.OperatorFactory interface. The
// builder is a sink.
func (f *HashBuilderFactory) OutputTypes() []coltypes.T { return nil }

// CreateOperator implements the colexecop.OperatorFactory interface. The
// build is not partitioned, so only one builder may be created.
func (f *HashBuilderFactory) CreateOperator(dctx *execctx.DriverContext) (colexecop.Operator, error) {
	if f.closed.Load() {
		return nil, errors.AssertionFailedf("hash builder %d created after NoMoreOperators", f.id)
	}
	if !f.created.CompareAndSwap(false, true) {
		return nil, colexecerror.NewConfigurationErrorf(
			"hash builder %d supports a single driver", f.id)
	}
	m := mon.NewMonitor(redact.SafeString("hash-builder"), f.capacity.MaxBytes, dctx.Monitor())
	acc := m.MakeBoundAccount()
	b := &hashBuilderOp{
		OperatorBase: colexecop.MakeOperatorBase(dctx, f.id, "hash-builder"),
		dctx:         dctx,
		factory:      f,
		mon:          m,
		acc:          acc,
	}
	b.index = colexechash.NewHashIndex(f.types, f.keyCols, f.hashChannel, f.capacity, &b.acc)
	return b, nil
}

// NoMoreOperators implements the colexecop.OperatorFactory interface.
func (f *HashBuilderFactory) NoMoreOperators() { f.closed.Store(true) }

// hashBuilderOp consumes the build input into a HashIndex and, once its
// input is finished, freezes the index and publishes it as a LookupSource.
type hashBuilderOp struct {
	colexecop.OperatorBase

	dctx    *execctx.DriverContext
	factory *HashBuilderFactory
	mon     *mon.BytesMonitor
	acc     mon.BoundAccount
	index   *colexechash.HashIndex

	failed    bool
	published bool
}

var _ colexecop.Operator = &hashBuilderOp{}

func (b *hashBuilderOp) OutputTypes() []coltypes.T { return nil }

func (b *hashBuilderOp) NeedsInput() bool {
	return !b.Finishing() && !b.failed
}

func (b *hashBuilderOp) AddInput(ctx context.Context, batch coldata.Batch) error {
	if !b.NeedsInput() {
		return errors.AssertionFailedf("hash builder %d is not accepting input", b.ID)
	}
	b.Stats.RecordInput(batch.Length())
	if err := b.index.Insert(ctx, batch); err != nil {
		b.failed = true
		return err
	}
	return nil
}

// GetOutput freezes and publishes the index once the builder is finishing.
// The builder never produces batches.
func (b *hashBuilderOp) GetOutput(ctx context.Context) (coldata.Batch, error) {
	if !b.Finishing() || b.published || b.failed {
		return nil, nil
	}
	if err := b.publish(ctx); err != nil {
		b.failed = true
		return nil, err
	}
	return nil, nil
}

func (b *hashBuilderOp) publish(ctx context.Context) error {
	if err := b.index.Freeze(ctx); err != nil {
		return err
	}
	src, err := colexechash.NewLookupSource(b.index, b.factory.outputCols, b.acc)
	if err != nil {
		return err
	}
	if err := b.factory.supplier.Set(src); err != nil {
		return err
	}
	// The lookup source now owns the memory of the index; it lives as long as
	// the task since probers of other pipelines may still use it.
	b.acc = mon.BoundAccount{}
	b.published = true
	m := b.mon
	b.dctx.Task().AddCloser(func(ctx context.Context) {
		src.Close(ctx)
		m.Stop(ctx)
	})
	log.VEventf(ctx, 1, "published lookup source with %d rows, %d bytes",
		redact.Safe(src.RowCount()), redact.Safe(src.MemoryUsage()))
	return nil
}

func (b *hashBuilderOp) IsFinished() bool { return b.published }

func (b *hashBuilderOp) Close(ctx context.Context) error {
	if !b.MarkClosed() {
		return nil
	}
	if !b.published {
		b.acc.Close(ctx)
		b.mon.Stop(ctx)
	}
	return nil
}
