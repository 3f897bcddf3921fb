// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexecbase"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/colflow"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/hashjoin/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
)

var testTypes = []coltypes.T{coltypes.Int64, coltypes.Int64}

// makeBatches returns batches of testTypes with rows (k, 10*k) for the
// given keys, n rows per batch.
func makeBatches(t testing.TB, n int, keys ...int64) []coldata.Batch {
	var batches []coldata.Batch
	for len(keys) > 0 {
		m := n
		if m > len(keys) {
			m = len(keys)
		}
		tuples := make([]coldata.Tuple, m)
		for i, k := range keys[:m] {
			tuples[i] = coldata.Tuple{k, 10 * k}
		}
		b, err := coldata.MakeBatch(testTypes, tuples)
		require.NoError(t, err)
		batches = append(batches, b)
		keys = keys[m:]
	}
	return batches
}

func valuesFn(batches ...coldata.Batch) colexecbase.ProducerFn {
	return func(*execctx.DriverContext) (colexecop.BatchProducer, error) {
		return colexecbase.NewValuesProducer(batches...), nil
	}
}

// collector gathers the rows passing through a fn operator.
type collector struct {
	rows []string
}

func (c *collector) factory(id int, typs []coltypes.T) colexecop.OperatorFactory {
	return colexecbase.NewFnOpFactory(id, typs, func(_ context.Context, b coldata.Batch) error {
		for i := 0; i < b.Length(); i++ {
			c.rows = append(c.rows, coldata.FormatRow(b, i))
		}
		return nil
	})
}

// gateOp passes batches through once its gate is closed and reports itself
// blocked on the gate until then.
type gateOp struct {
	colexecop.OperatorBase
	typs    []coltypes.T
	gate    chan struct{}
	pending coldata.Batch
}

func gateFactory(id int, typs []coltypes.T, gate chan struct{}) colexecop.OperatorFactory {
	return colexecop.NewFuncFactory(id, "gate", typs, func(dctx *execctx.DriverContext) (colexecop.Operator, error) {
		return &gateOp{
			OperatorBase: colexecop.MakeOperatorBase(dctx, id, "gate"),
			typs:         typs,
			gate:         gate,
		}, nil
	})
}

func (g *gateOp) open() bool {
	select {
	case <-g.gate:
		return true
	default:
		return false
	}
}

func (g *gateOp) OutputTypes() []coltypes.T { return g.typs }

func (g *gateOp) NeedsInput() bool { return g.open() && !g.Finishing() && g.pending == nil }

func (g *gateOp) AddInput(_ context.Context, b coldata.Batch) error {
	g.pending = b
	return nil
}

func (g *gateOp) GetOutput(context.Context) (coldata.Batch, error) {
	b := g.pending
	g.pending = nil
	return b, nil
}

func (g *gateOp) IsBlocked() colexecop.BlockedFuture {
	if g.open() {
		return colexecop.NotBlocked
	}
	return g.gate
}

func (g *gateOp) IsFinished() bool { return g.Finishing() && g.pending == nil }

func (g *gateOp) Close(context.Context) error {
	g.MarkClosed()
	return nil
}

func newTask(t testing.TB) *execctx.TaskContext {
	task := execctx.NewTaskContext(context.Background(), 1 /* id */, 0 /* memoryLimit */)
	t.Cleanup(task.Close)
	return task
}

func createDriver(
	t testing.TB, task *execctx.TaskContext, factories ...colexecop.OperatorFactory,
) *colflow.Driver {
	f, err := colflow.NewDriverFactory(true /* hasInput */, true /* isOutput */, factories...)
	require.NoError(t, err)
	d, err := f.CreateDriver(task.AddPipelineContext(f.HasInput(), f.IsOutput()).AddDriverContext())
	require.NoError(t, err)
	f.NoMoreDrivers()
	return d
}

func TestDriverMovesBatches(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	task := newTask(t)

	var c collector
	d := createDriver(t, task,
		colexecbase.NewSourceOpFactory(0, "values", testTypes, valuesFn(makeBatches(t, 2, 1, 2, 3)...)),
		c.factory(1, testTypes),
		colexecbase.NewNullOutputOpFactory(2, testTypes),
	)
	future, err := d.ProcessFor(ctx, time.Second)
	require.NoError(t, err)
	require.Nil(t, future)
	require.True(t, d.IsFinished())
	require.Equal(t, []string{"[1 10]", "[2 20]", "[3 30]"}, c.rows)
	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))

	stats := task.Snapshot()
	ds := stats.Pipelines[0].Drivers[0]
	require.True(t, ds.Closed)
	require.EqualValues(t, 1, ds.Quanta)
	require.EqualValues(t, 3, ds.Operators[0].OutputRows)
	require.EqualValues(t, 3, ds.Operators[2].InputRows)
	require.EqualValues(t, 3, stats.OutputRows())

	_, err = d.ProcessFor(ctx, time.Second)
	require.Error(t, err)
}

func TestDriverBlocksAndRetainsPendingBatch(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	task := newTask(t)

	gate := make(chan struct{})
	var c collector
	d := createDriver(t, task,
		colexecbase.NewSourceOpFactory(0, "values", testTypes, valuesFn(makeBatches(t, 1, 1, 2)...)),
		gateFactory(1, testTypes, gate),
		c.factory(2, testTypes),
		colexecbase.NewNullOutputOpFactory(3, testTypes),
	)
	future, err := d.ProcessFor(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, future)
	require.False(t, d.IsFinished())
	require.Empty(t, c.rows)

	close(gate)
	<-future
	future, err = d.ProcessFor(ctx, time.Second)
	require.NoError(t, err)
	require.Nil(t, future)
	require.True(t, d.IsFinished())
	require.Equal(t, []string{"[1 10]", "[2 20]"}, c.rows)
	require.NoError(t, d.Close(ctx))
}

func TestDriverYieldsAfterQuantum(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	task := newTask(t)

	d := createDriver(t, task,
		colexecbase.NewSourceOpFactory(0, "values", testTypes, valuesFn(makeBatches(t, 1, 1, 2, 3, 4)...)),
		colexecbase.NewNullOutputOpFactory(1, testTypes),
	)
	passes := 0
	for !d.IsFinished() {
		future, err := d.ProcessFor(ctx, 0 /* quantum */)
		require.NoError(t, err)
		require.Nil(t, future)
		passes++
	}
	require.Greater(t, passes, 1)
	require.NoError(t, d.Close(ctx))
}

func TestDriverUpstreamError(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	task := newTask(t)

	cause := errors.New("connection reset")
	d := createDriver(t, task,
		colexecbase.NewSourceOpFactory(0, "lineitem", testTypes, func(*execctx.DriverContext) (colexecop.BatchProducer, error) {
			return colexecbase.NewErrorProducer(cause, makeBatches(t, 1, 1)...), nil
		}),
		colexecbase.NewNullOutputOpFactory(1, testTypes),
	)
	_, err := d.ProcessFor(ctx, time.Second)
	require.Error(t, err)
	require.Equal(t, colexecerror.KindUpstream, colexecerror.KindOf(err))
	require.True(t, errors.Is(err, cause))
	// The driver closed itself.
	require.True(t, d.IsFinished())
	require.True(t, d.Context().IsClosed())
}

func TestDriverCancelled(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	task := newTask(t)

	d := createDriver(t, task,
		colexecbase.NewSourceOpFactory(0, "values", testTypes, valuesFn(makeBatches(t, 1, 1, 2)...)),
		colexecbase.NewNullOutputOpFactory(1, testTypes),
	)
	task.Cancel(errors.New("user abort"))
	_, err := d.ProcessFor(ctx, time.Second)
	require.Error(t, err)
	require.Equal(t, colexecerror.KindCancelled, colexecerror.KindOf(err))
	require.True(t, d.Context().IsClosed())
}

func TestDriverFactoryErrors(t *testing.T) {
	_, err := colflow.NewDriverFactory(true, true)
	require.Equal(t, colexecerror.KindConfiguration, colexecerror.KindOf(err))

	_, err = colflow.NewDriverFactory(true, true,
		colexecbase.NewSourceOpFactory(0, "values", testTypes, valuesFn()),
		colexecbase.NewNullOutputOpFactory(0, testTypes),
	)
	require.Equal(t, colexecerror.KindConfiguration, colexecerror.KindOf(err))

	_, err = colflow.NewDriver(newTask(t).AddPipelineContext(true, true).AddDriverContext(), nil)
	require.Equal(t, colexecerror.KindConfiguration, colexecerror.KindOf(err))
}

func TestDriverFactoryCreatesIndependentDrivers(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	task := newTask(t)

	var c collector
	f, err := colflow.NewDriverFactory(true, true,
		colexecbase.NewSourceOpFactory(0, "values", testTypes, valuesFn(makeBatches(t, 2, 1, 2)...)),
		c.factory(1, testTypes),
		colexecbase.NewNullOutputOpFactory(2, testTypes),
	)
	require.NoError(t, err)
	p := task.AddPipelineContext(true, true)
	var drivers []*colflow.Driver
	for i := 0; i < 2; i++ {
		d, err := f.CreateDriver(p.AddDriverContext())
		require.NoError(t, err)
		drivers = append(drivers, d)
	}
	f.NoMoreDrivers()
	_, err = f.CreateDriver(p.AddDriverContext())
	require.Error(t, err)

	for _, d := range drivers {
		_, err := d.ProcessFor(ctx, time.Second)
		require.NoError(t, err)
		require.True(t, d.IsFinished())
		require.NoError(t, d.Close(ctx))
	}
	// Each driver scans its own producer.
	require.Equal(t, []string{"[1 10]", "[2 20]", "[1 10]", "[2 20]"}, c.rows)
}
