// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecjoin_test

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexecbase"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexechash"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/colflow"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/kr/pretty"
)

// joinCase describes an inner join of two in-memory inputs.
type joinCase struct {
	buildTypes, probeTypes []coltypes.T
	build, probe           []coldata.Tuple
	buildKeys, probeKeys   []uint32
	// buildOutput and probeOutput select every input column when nil.
	buildOutput, probeOutput []uint32
	capacity                 colexechash.Capacity
	// inputBatchSize is the number of rows per input batch, 1 if unset.
	inputBatchSize int
	// hash routes both inputs through a hash projection.
	hash bool
}

// joinResult is what the sink of the probe pipeline saw.
type joinResult struct {
	// rows are formatted with coldata.FormatRow, in output order.
	rows         []string
	batchLengths []int
}

func (r joinResult) sortedRows() []string {
	rows := append([]string(nil), r.rows...)
	sort.Strings(rows)
	return rows
}

func valuesProducerFn(
	typs []coltypes.T, tuples []coldata.Tuple, batchSize int,
) (colexecbase.ProducerFn, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches []coldata.Batch
	for len(tuples) > 0 {
		n := batchSize
		if n > len(tuples) {
			n = len(tuples)
		}
		b, err := coldata.MakeBatch(typs, tuples[:n])
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
		tuples = tuples[n:]
	}
	return func(*execctx.DriverContext) (colexecop.BatchProducer, error) {
		return colexecbase.NewValuesProducer(batches...), nil
	}, nil
}

// hashInput optionally appends a hash projection to a pipeline reading
// typs, returning the types and hash channel seen by the next operator.
func hashInput(
	factories []colexecop.OperatorFactory, typs []coltypes.T, keys []uint32, hash bool,
) ([]colexecop.OperatorFactory, []coltypes.T, colexechash.HashChannel, error) {
	if !hash {
		return factories, typs, colexechash.NoHashChannel, nil
	}
	hp, err := colexecbase.NewHashProjectOpFactory(1, typs, keys)
	if err != nil {
		return nil, nil, colexechash.HashChannel{}, err
	}
	return append(factories, hp), hp.OutputTypes(), colexechash.MakeHashChannel(uint32(len(typs))), nil
}

// pipelines assembles the build and probe pipelines of c. The probe
// pipeline ends with a collector feeding res and a null output.
func (c joinCase) pipelines(res *joinResult) (build, probe *colflow.DriverFactory, _ error) {
	buildFn, err := valuesProducerFn(c.buildTypes, c.build, c.inputBatchSize)
	if err != nil {
		return nil, nil, err
	}
	buildOps := []colexecop.OperatorFactory{
		colexecbase.NewSourceOpFactory(0, "build", c.buildTypes, buildFn),
	}
	buildOps, buildTypes, buildHash, err := hashInput(buildOps, c.buildTypes, c.buildKeys, c.hash)
	if err != nil {
		return nil, nil, err
	}
	builder, err := colexecjoin.NewHashBuilderFactory(
		2, buildTypes, c.buildKeys, buildHash, c.buildOutput, c.capacity)
	if err != nil {
		return nil, nil, err
	}
	build, err = colflow.NewDriverFactory(true /* hasInput */, false /* isOutput */, append(buildOps, builder)...)
	if err != nil {
		return nil, nil, err
	}

	probeFn, err := valuesProducerFn(c.probeTypes, c.probe, c.inputBatchSize)
	if err != nil {
		return nil, nil, err
	}
	probeOps := []colexecop.OperatorFactory{
		colexecbase.NewSourceOpFactory(0, "probe", c.probeTypes, probeFn),
	}
	probeOps, probeTypes, probeHash, err := hashInput(probeOps, c.probeTypes, c.probeKeys, c.hash)
	if err != nil {
		return nil, nil, err
	}
	join, err := colexecjoin.NewInnerJoinFactory(
		2, builder.Supplier(), probeTypes, c.probeKeys, probeHash, c.probeOutput)
	if err != nil {
		return nil, nil, err
	}
	collect := colexecbase.NewFnOpFactory(3, join.OutputTypes(), func(_ context.Context, b coldata.Batch) error {
		res.batchLengths = append(res.batchLengths, b.Length())
		for i := 0; i < b.Length(); i++ {
			res.rows = append(res.rows, coldata.FormatRow(b, i))
		}
		return nil
	})
	probe, err = colflow.NewDriverFactory(true /* hasInput */, true /* isOutput */,
		append(probeOps, join, collect, colexecbase.NewNullOutputOpFactory(4, join.OutputTypes()))...)
	if err != nil {
		return nil, nil, err
	}
	return build, probe, nil
}

// createDrivers creates one driver per pipeline within task.
func createDrivers(
	task *execctx.TaskContext, factories ...*colflow.DriverFactory,
) ([]*colflow.Driver, error) {
	var drivers []*colflow.Driver
	for _, f := range factories {
		d, err := f.CreateDriver(task.AddPipelineContext(f.HasInput(), f.IsOutput()).AddDriverContext())
		f.NoMoreDrivers()
		if err != nil {
			return nil, errors.CombineErrors(err, closeDrivers(task.Ctx(), drivers))
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}

func closeDrivers(ctx context.Context, drivers []*colflow.Driver) error {
	var err error
	for _, d := range drivers {
		err = errors.CombineErrors(err, d.Close(ctx))
	}
	return err
}

// maxRounds bounds the round-robin passes of runDrivers over drivers that
// keep reporting progress.
const maxRounds = 100000

// runDrivers steps the drivers round-robin on the calling goroutine until
// all of them are finished. The first error cancels the task, as the
// scheduler does, and is returned.
func runDrivers(task *execctx.TaskContext, drivers []*colflow.Driver) error {
	var firstErr error
	for round := 0; round < maxRounds; round++ {
		done := true
		for _, d := range drivers {
			if d.IsFinished() {
				continue
			}
			if _, err := d.ProcessFor(d.Context().Ctx(), time.Second); err != nil && firstErr == nil {
				firstErr = err
				task.Cancel(err)
			}
			if !d.IsFinished() {
				done = false
			}
		}
		if done {
			return firstErr
		}
	}
	return errors.CombineErrors(firstErr, errors.Newf("drivers not finished after %d rounds", maxRounds))
}

// runJoinInTask runs c within task, leaving the task open.
func runJoinInTask(task *execctx.TaskContext, c joinCase) (joinResult, error) {
	var res joinResult
	build, probe, err := c.pipelines(&res)
	if err != nil {
		return joinResult{}, err
	}
	drivers, err := createDrivers(task, build, probe)
	if err != nil {
		return joinResult{}, err
	}
	err = runDrivers(task, drivers)
	if closeErr := closeDrivers(task.Ctx(), drivers); err == nil {
		err = closeErr
	}
	return res, err
}

func runJoin(c joinCase) (joinResult, error) {
	task := execctx.NewTaskContext(context.Background(), 1 /* id */, 0 /* memoryLimit */)
	defer task.Close()
	return runJoinInTask(task, c)
}

// runJoinBothWays runs c with and without hash projections and returns the
// sorted rows, failing if the two runs disagree.
func runJoinBothWays(c joinCase) ([]string, error) {
	c.hash = false
	plain, plainErr := runJoin(c)
	c.hash = true
	hashed, hashedErr := runJoin(c)
	if (plainErr == nil) != (hashedErr == nil) {
		return nil, errors.Newf("hash projection changed the outcome: %v vs %v", plainErr, hashedErr)
	}
	if plainErr != nil {
		if colexecerror.KindOf(plainErr) != colexecerror.KindOf(hashedErr) {
			return nil, errors.Newf("hash projection changed the error: %v vs %v", plainErr, hashedErr)
		}
		return nil, plainErr
	}
	rows := plain.sortedRows()
	if diff := pretty.Diff(rows, hashed.sortedRows()); len(diff) > 0 {
		return nil, errors.Newf("hash projection changed the rows:\n%s", pretty.Sprint(diff))
	}
	return rows, nil
}
