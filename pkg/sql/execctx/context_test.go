// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execctx_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/logtags"
	"github.com/stretchr/testify/require"
)

func TestHierarchy(t *testing.T) {
	ctx := context.Background()
	task := execctx.NewTaskContext(ctx, 7, 0 /* memoryLimit */)
	defer task.Close()

	build := task.AddPipelineContext(true, false)
	probe := task.AddPipelineContext(true, true)
	require.Equal(t, 0, build.ID())
	require.Equal(t, 1, probe.ID())
	require.True(t, probe.IsOutput())
	require.False(t, build.IsOutput())

	d0 := probe.AddDriverContext()
	d1 := probe.AddDriverContext()
	require.Equal(t, 0, d0.ID())
	require.Equal(t, 1, d1.ID())
	require.Same(t, task, d1.Task())
	require.Same(t, probe, d1.Pipeline())
	require.Equal(t, "task=7,pipeline=1,driver=1", logtags.FromContext(d1.Ctx()).String())

	// Memory reserved by a driver is charged to its pipeline and task.
	acc := d0.Monitor().MakeBoundAccount()
	require.NoError(t, acc.Grow(ctx, 100))
	require.EqualValues(t, 100, probe.Monitor().AllocBytes())
	require.EqualValues(t, 100, task.Monitor().AllocBytes())
	acc.Close(ctx)
	require.EqualValues(t, 0, task.Monitor().AllocBytes())
	require.EqualValues(t, 100, task.Monitor().MaximumBytes())
}

func TestTaskMemoryLimit(t *testing.T) {
	ctx := context.Background()
	task := execctx.NewTaskContext(ctx, 1, 1000 /* memoryLimit */)
	defer task.Close()

	a := task.AddPipelineContext(true, false).AddDriverContext().Monitor().MakeBoundAccount()
	b := task.AddPipelineContext(true, true).AddDriverContext().Monitor().MakeBoundAccount()
	defer a.Close(ctx)
	defer b.Close(ctx)
	require.NoError(t, a.Grow(ctx, 600))
	require.Error(t, b.Grow(ctx, 600))
	require.NoError(t, b.Grow(ctx, 400))
}

func TestCancel(t *testing.T) {
	task := execctx.NewTaskContext(context.Background(), 1, 0)
	defer task.Close()
	d := task.AddPipelineContext(true, true).AddDriverContext()

	require.NoError(t, task.Err())
	require.NoError(t, d.Err())
	require.NoError(t, task.Cause())

	cause := errors.New("boom")
	task.Cancel(cause)
	task.Cancel(errors.New("second"))
	<-task.Done()
	<-d.Ctx().Done()

	require.Equal(t, colexecerror.KindCancelled, colexecerror.KindOf(d.Err()))
	require.ErrorIs(t, task.Err(), cause)
	// The first cause wins.
	require.Equal(t, cause, task.Cause())
}

func TestCancelWithoutCause(t *testing.T) {
	task := execctx.NewTaskContext(context.Background(), 1, 0)
	defer task.Close()
	task.Cancel(nil)
	require.ErrorIs(t, task.Err(), colexecerror.ErrCancelled)
}

func TestParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	task := execctx.NewTaskContext(ctx, 1, 0)
	defer task.Close()
	cancel()
	<-task.Done()
	require.Equal(t, colexecerror.KindCancelled, colexecerror.KindOf(task.Err()))
}

func TestClose(t *testing.T) {
	task := execctx.NewTaskContext(context.Background(), 1, 0)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		task.AddCloser(func(context.Context) { order = append(order, i) })
	}
	task.Close()
	task.Close()
	require.Equal(t, []int{2, 1, 0}, order)
	// Closing cancels the task's context.
	<-task.Done()

	// Closers registered after Close run immediately.
	ran := false
	task.AddCloser(func(context.Context) { ran = true })
	require.True(t, ran)
}

func TestSnapshot(t *testing.T) {
	task := execctx.NewTaskContext(context.Background(), 3, 0)
	defer task.Close()

	build := task.AddPipelineContext(true, false).AddDriverContext()
	probe := task.AddPipelineContext(true, true).AddDriverContext()

	scan := build.AddOperatorStats(0, "source")
	scan.RecordOutput(10)
	scan.RecordOutput(5)
	build.RecordQuantum(time.Millisecond)
	build.RecordQuantum(2 * time.Millisecond)
	build.Close()

	join := probe.AddOperatorStats(1, "lookup-join")
	sink := probe.AddOperatorStats(2, "null-output")
	join.RecordInput(8)
	join.RecordOutput(3)
	sink.RecordInput(3)
	probe.RecordBlocked(time.Second)

	s := task.Snapshot()
	require.EqualValues(t, 3, s.TaskID)
	require.Len(t, s.Pipelines, 2)
	bs := s.Pipelines[0].Drivers[0]
	require.EqualValues(t, 2, bs.Quanta)
	require.Equal(t, 3*time.Millisecond, bs.WallTime)
	require.True(t, bs.Closed)
	require.EqualValues(t, 15, bs.Operators[0].OutputRows)
	require.EqualValues(t, 2, bs.Operators[0].OutputBatches)

	ps := s.Pipelines[1].Drivers[0]
	require.False(t, ps.Closed)
	require.Equal(t, time.Second, ps.BlockedTime)
	require.EqualValues(t, 3, s.OutputRows())

	out := s.String()
	require.Contains(t, out, "task 3:")
	require.Contains(t, out, "pipeline 1 (input=true, output=true)")
	require.Contains(t, out, "1 lookup-join: in 8 rows (1 batches), out 3 rows (1 batches)")
}
