// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package colexecop defines the push/pull operator protocol shared by every
// vectorized operator and the driver that steps chains of them.
package colexecop

import (
	"context"

	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/redact"
)

// BlockedFuture is a one-shot readiness signal: the channel is closed when
// the operator that returned it may be able to make progress again. A nil
// BlockedFuture means "not blocked".
type BlockedFuture <-chan struct{}

// NotBlocked is the BlockedFuture of an operator that can make progress.
var NotBlocked BlockedFuture

var closedFuture = func() BlockedFuture {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// ClosedFuture returns a BlockedFuture that has already fired.
func ClosedFuture() BlockedFuture {
	return closedFuture
}

// Operator is a single stage of a driver's chain. The driver pushes batches
// in with AddInput and pulls them out with GetOutput, in a single goroutine;
// implementations need not be safe for concurrent use.
//
// The lifecycle is: any interleaving of AddInput (only while NeedsInput) and
// GetOutput, then Finish once the upstream is exhausted, then GetOutput
// until IsFinished, then Close. Close may also be called at any earlier
// point, in which case the operator abandons its work.
type Operator interface {
	// OutputTypes returns the column types of the batches produced by
	// GetOutput.
	OutputTypes() []coltypes.T

	// NeedsInput returns whether the operator will accept a batch through
	// AddInput right now.
	NeedsInput() bool

	// AddInput hands a batch to the operator. It must only be called while
	// NeedsInput returns true. The batch must not be mutated by the operator.
	AddInput(ctx context.Context, b coldata.Batch) error

	// GetOutput returns the next output batch, or nil if none is available
	// right now.
	GetOutput(ctx context.Context) (coldata.Batch, error)

	// Finish signals that no more input will be added. It is idempotent.
	Finish(ctx context.Context)

	// IsFinished returns whether the operator will never produce output
	// again.
	IsFinished() bool

	// IsBlocked returns NotBlocked, or a future that fires when the operator
	// may be able to make progress.
	IsBlocked() BlockedFuture

	// Close releases the operator's resources. It is idempotent.
	Close(ctx context.Context) error
}

// OperatorFactory creates fresh operator instances, one per driver. Objects
// shared between the operators of several drivers (like a lookup source
// supplier) live in the factory.
type OperatorFactory interface {
	// OperatorID returns the position id of the operator in its pipeline.
	OperatorID() int
	// Name returns the operator type, for stats and EXPLAIN output.
	Name() redact.SafeString
	// OutputTypes returns the column types produced by the operators.
	OutputTypes() []coltypes.T
	// CreateOperator creates a new operator for the driver with the given
	// context.
	CreateOperator(dctx *execctx.DriverContext) (Operator, error)
	// NoMoreOperators signals that CreateOperator will not be called again.
	NoMoreOperators()
}

// BatchProducer is the external data source of a source operator. NextBatch
// returns coldata.ZeroBatch once the source is exhausted.
type BatchProducer interface {
	NextBatch(ctx context.Context) (coldata.Batch, error)
}

// Closer is implemented by producers that hold resources.
type Closer interface {
	Close()
}

// OperatorBase carries what every operator in this repository holds: its
// position id, type name, stats, and the finishing flag.
type OperatorBase struct {
	ID    int
	Stats *execctx.OperatorStats

	finishing bool
	closed    bool
}

// MakeOperatorBase registers the operator's stats with the driver context.
func MakeOperatorBase(
	dctx *execctx.DriverContext, operatorID int, operatorType redact.SafeString,
) OperatorBase {
	return OperatorBase{
		ID:    operatorID,
		Stats: dctx.AddOperatorStats(operatorID, operatorType),
	}
}

// Finish marks the operator as finishing.
func (o *OperatorBase) Finish(context.Context) {
	o.finishing = true
}

// Finishing returns whether Finish was called.
func (o *OperatorBase) Finishing() bool {
	return o.finishing
}

// IsBlocked implements the Operator interface for operators that never
// block.
func (o *OperatorBase) IsBlocked() BlockedFuture {
	return NotBlocked
}

// MarkClosed returns false if the operator was already closed.
func (o *OperatorBase) MarkClosed() bool {
	if o.closed {
		return false
	}
	o.closed = true
	return true
}
