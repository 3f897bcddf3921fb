// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package colflow steps chains of vectorized operators. A Driver moves
// batches along one chain; a Scheduler runs the drivers of a task on a
// bounded set of workers in time-sliced quanta.
package colflow

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/hashjoin/pkg/util/timeutil"
)

// maxPassesPerQuantum bounds the passes of one ProcessFor call independently
// of the wall time.
const maxPassesPerQuantum = 1 << 16

// Driver owns a chain of operators and moves batches between adjacent
// operators. It is not safe for concurrent use: a driver is stepped by at
// most one goroutine at a time.
type Driver struct {
	dctx *execctx.DriverContext
	ops  []colexecop.Operator
	// pending[i] is the batch produced by ops[i] that ops[i+1] did not
	// accept yet.
	pending []coldata.Batch
	// finishSent[i] is set once ops[i].Finish has been called.
	finishSent []bool

	closed bool
}

// NewDriver returns a driver over the given chain. The driver takes
// ownership of the operators.
func NewDriver(dctx *execctx.DriverContext, ops []colexecop.Operator) (*Driver, error) {
	if len(ops) == 0 {
		return nil, colexecerror.NewConfigurationErrorf("driver requires at least one operator")
	}
	return &Driver{
		dctx:       dctx,
		ops:        ops,
		pending:    make([]coldata.Batch, len(ops)-1),
		finishSent: make([]bool, len(ops)),
	}, nil
}

// Context returns the driver's execution context.
func (d *Driver) Context() *execctx.DriverContext { return d.dctx }

// IsFinished returns whether the terminal operator is finished.
func (d *Driver) IsFinished() bool {
	return d.closed || d.ops[len(d.ops)-1].IsFinished()
}

// ProcessFor steps the chain until the terminal operator is finished, no
// batch can move, or the quantum elapses. It returns a non-nil future when
// the driver cannot make progress until the future fires. On error, and
// when the task is cancelled, the driver closes itself; a cancelled task
// yields a CancellationError.
func (d *Driver) ProcessFor(
	ctx context.Context, quantum time.Duration,
) (future colexecop.BlockedFuture, retErr error) {
	if d.closed {
		return nil, errors.AssertionFailedf("driver %d used after close", d.dctx.ID())
	}
	var watch timeutil.StopWatch
	watch.Start()
	defer func() {
		d.dctx.RecordQuantum(watch.Stop())
		if retErr != nil {
			retErr = errors.CombineErrors(retErr, d.Close(ctx))
		}
	}()
	retErr = colexecerror.CatchVectorizedRuntimeError(func() error {
		start := timeutil.Now()
		for passes := 0; ; passes++ {
			if err := d.dctx.Err(); err != nil {
				return err
			}
			if d.IsFinished() {
				return nil
			}
			moved, err := d.pass(ctx)
			if err != nil {
				return err
			}
			if d.IsFinished() {
				return nil
			}
			if !moved {
				future = d.blockedFuture()
				return nil
			}
			if passes >= maxPassesPerQuantum || timeutil.Since(start) >= quantum {
				return nil
			}
		}
	})
	if retErr != nil {
		future = nil
	}
	return future, retErr
}

// pass makes one sweep over the links of the chain and reports whether
// anything changed.
func (d *Driver) pass(ctx context.Context) (moved bool, _ error) {
	for i := 0; i < len(d.ops)-1; i++ {
		cur, next := d.ops[i], d.ops[i+1]
		if d.pending[i] != nil && next.NeedsInput() {
			if err := next.AddInput(ctx, d.pending[i]); err != nil {
				return moved, err
			}
			d.pending[i] = nil
			moved = true
		}
		if d.pending[i] == nil && !cur.IsFinished() {
			b, err := cur.GetOutput(ctx)
			if err != nil {
				return moved, err
			}
			if b != nil && b.Length() > 0 {
				moved = true
				if next.NeedsInput() {
					if err := next.AddInput(ctx, b); err != nil {
						return moved, err
					}
				} else {
					d.pending[i] = b
				}
			}
		}
		if d.pending[i] == nil && cur.IsFinished() && !d.finishSent[i+1] {
			next.Finish(ctx)
			d.finishSent[i+1] = true
			moved = true
		}
	}
	// The terminal operator is a sink; it may still have work to do once
	// finishing, like a hash builder publishing its index.
	last := d.ops[len(d.ops)-1]
	if !last.IsFinished() {
		b, err := last.GetOutput(ctx)
		if err != nil {
			return moved, err
		}
		if b != nil && b.Length() > 0 {
			return moved, errors.AssertionFailedf("terminal operator produced %d rows", b.Length())
		}
		if last.IsFinished() {
			moved = true
		}
	}
	return moved, nil
}

// blockedFuture returns the future of the first blocked operator, or
// NotBlocked if no operator reports being blocked.
func (d *Driver) blockedFuture() colexecop.BlockedFuture {
	for _, op := range d.ops {
		if f := op.IsBlocked(); f != nil {
			return f
		}
	}
	return colexecop.NotBlocked
}

// Close closes every operator of the chain, combining their errors, and
// releases the driver context. It is idempotent.
func (d *Driver) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	var retErr error
	for i, op := range d.ops {
		if err := colexecerror.CatchVectorizedRuntimeError(func() error {
			return op.Close(ctx)
		}); err != nil {
			log.Warningf(ctx, "error closing operator %d: %v", i, err)
			retErr = errors.CombineErrors(retErr, err)
		}
	}
	for i := range d.pending {
		d.pending[i] = nil
	}
	d.dctx.Close()
	return retErr
}
