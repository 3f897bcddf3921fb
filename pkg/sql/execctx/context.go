// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package execctx implements the execution context hierarchy of a task:
// task -> pipeline -> driver -> operator. The hierarchy records resource
// usage and carries the task's cancellation signal; it holds no business
// logic. Nodes only ever gain children, counters are written by their owning
// driver and may be read by anyone.
package execctx

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/mon"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/hashjoin/pkg/util/syncutil"
	"github.com/cockroachdb/hashjoin/pkg/util/timeutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// TaskContext is the root of the execution context hierarchy.
type TaskContext struct {
	id        int64
	ctx       context.Context
	cancel    context.CancelCauseFunc
	mon       *mon.BytesMonitor
	createdAt time.Time

	mu struct {
		syncutil.Mutex
		pipelines []*PipelineContext
		// closers are run in reverse order when the task is closed. They
		// release resources whose lifetime is the task, like lookup sources.
		closers []func(context.Context)
		closed  bool
	}
}

// NewTaskContext creates the context of a task. memoryLimit bounds the bytes
// reserved by all of the task's drivers; zero means unlimited.
func NewTaskContext(ctx context.Context, id int64, memoryLimit int64) *TaskContext {
	ctx = logtags.AddTag(ctx, "task", id)
	ctx, cancel := context.WithCancelCause(ctx)
	return &TaskContext{
		id:        id,
		ctx:       ctx,
		cancel:    cancel,
		mon:       mon.NewMonitor("task", memoryLimit, nil /* parent */),
		createdAt: timeutil.Now(),
	}
}

// ID returns the task id.
func (t *TaskContext) ID() int64 { return t.id }

// Ctx returns the task's context. It is cancelled when the task is.
func (t *TaskContext) Ctx() context.Context { return t.ctx }

// Monitor returns the task's memory monitor.
func (t *TaskContext) Monitor() *mon.BytesMonitor { return t.mon }

// AddPipelineContext creates the context of a new pipeline of this task.
func (t *TaskContext) AddPipelineContext(hasInput, isOutput bool) *PipelineContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := len(t.mu.pipelines)
	p := &PipelineContext{
		task:     t,
		id:       id,
		hasInput: hasInput,
		isOutput: isOutput,
		ctx:      logtags.AddTag(t.ctx, "pipeline", id),
		mon:      mon.NewMonitor(redact.SafeString("pipeline"), 0 /* limit */, t.mon),
	}
	t.mu.pipelines = append(t.mu.pipelines, p)
	return p
}

// Cancel requests a cooperative stop of every driver of the task. The first
// cause wins. Cancel may be called any number of times from any goroutine.
func (t *TaskContext) Cancel(cause error) {
	if cause == nil {
		cause = colexecerror.ErrCancelled
	}
	t.cancel(cause)
}

// Done returns a channel closed when the task is cancelled.
func (t *TaskContext) Done() <-chan struct{} { return t.ctx.Done() }

// Err returns nil if the task is live, or a CancellationError wrapping the
// cancellation cause.
func (t *TaskContext) Err() error {
	if t.ctx.Err() == nil {
		return nil
	}
	return colexecerror.NewCancellationError(context.Cause(t.ctx))
}

// Cause returns the cause passed to the first Cancel call, or nil.
func (t *TaskContext) Cause() error {
	if t.ctx.Err() == nil {
		return nil
	}
	return context.Cause(t.ctx)
}

// AddCloser registers f to be called when the task is closed. If the task is
// already closed, f is called immediately.
func (t *TaskContext) AddCloser(f func(context.Context)) {
	t.mu.Lock()
	if !t.mu.closed {
		t.mu.closers = append(t.mu.closers, f)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	f(t.ctx)
}

// Close releases the task's resources: registered closers run in reverse
// registration order and every monitor is stopped. Drivers must be closed
// first. Close is idempotent.
func (t *TaskContext) Close() {
	t.mu.Lock()
	if t.mu.closed {
		t.mu.Unlock()
		return
	}
	t.mu.closed = true
	closers := t.mu.closers
	t.mu.closers = nil
	pipelines := t.mu.pipelines
	t.mu.Unlock()

	// The context may already be cancelled; resources are released with a
	// context that keeps the log tags.
	ctx := logtags.WithTags(context.Background(), logtags.FromContext(t.ctx))
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i](ctx)
	}
	for _, p := range pipelines {
		p.stop(ctx)
	}
	t.mon.Stop(ctx)
	if t.ctx.Err() == nil {
		t.cancel(errors.New("task closed"))
	}
	log.VEventf(ctx, 1, "task closed after %s", redact.Safe(timeutil.Since(t.createdAt)))
}

// PipelineContext is the context of one pipeline of a task.
type PipelineContext struct {
	task     *TaskContext
	id       int
	hasInput bool
	isOutput bool
	ctx      context.Context
	mon      *mon.BytesMonitor

	mu struct {
		syncutil.Mutex
		drivers []*DriverContext
	}
}

// Task returns the parent task context.
func (p *PipelineContext) Task() *TaskContext { return p.task }

// ID returns the pipeline's position in the task.
func (p *PipelineContext) ID() int { return p.id }

// HasInput returns whether the pipeline owns an external input source.
func (p *PipelineContext) HasInput() bool { return p.hasInput }

// IsOutput returns whether the pipeline is the task's terminal pipeline.
func (p *PipelineContext) IsOutput() bool { return p.isOutput }

// Monitor returns the pipeline's memory monitor.
func (p *PipelineContext) Monitor() *mon.BytesMonitor { return p.mon }

// AddDriverContext creates the context of a new driver of this pipeline.
func (p *PipelineContext) AddDriverContext() *DriverContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := len(p.mu.drivers)
	d := &DriverContext{
		pipeline: p,
		id:       id,
		ctx:      logtags.AddTag(p.ctx, "driver", id),
		mon:      mon.NewMonitor(redact.SafeString("driver"), 0 /* limit */, p.mon),
	}
	p.mu.drivers = append(p.mu.drivers, d)
	return d
}

func (p *PipelineContext) stop(ctx context.Context) {
	p.mu.Lock()
	drivers := p.mu.drivers
	p.mu.Unlock()
	for _, d := range drivers {
		d.mon.Stop(ctx)
	}
	p.mon.Stop(ctx)
}

// DriverContext is the context of one driver. Its counters are only written
// by the goroutine currently running the driver.
type DriverContext struct {
	pipeline *PipelineContext
	id       int
	ctx      context.Context
	mon      *mon.BytesMonitor

	quanta      atomic.Int64
	wallNanos   atomic.Int64
	blockedNano atomic.Int64
	closed      atomic.Bool

	mu struct {
		syncutil.Mutex
		operators []*OperatorStats
	}
}

// Pipeline returns the parent pipeline context.
func (d *DriverContext) Pipeline() *PipelineContext { return d.pipeline }

// Task returns the task context.
func (d *DriverContext) Task() *TaskContext { return d.pipeline.task }

// ID returns the driver's position in its pipeline.
func (d *DriverContext) ID() int { return d.id }

// Ctx returns the driver's context, tagged with the task, pipeline and
// driver ids. It is cancelled when the task is.
func (d *DriverContext) Ctx() context.Context { return d.ctx }

// Monitor returns the driver's memory monitor.
func (d *DriverContext) Monitor() *mon.BytesMonitor { return d.mon }

// Err returns a CancellationError once the task has been cancelled.
func (d *DriverContext) Err() error { return d.pipeline.task.Err() }

// AddOperatorStats registers an operator of the driver's chain.
func (d *DriverContext) AddOperatorStats(operatorID int, operatorType redact.SafeString) *OperatorStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &OperatorStats{OperatorID: operatorID, OperatorType: operatorType}
	d.mu.operators = append(d.mu.operators, s)
	return s
}

// RecordQuantum records one scheduling quantum of the given wall time.
func (d *DriverContext) RecordQuantum(wall time.Duration) {
	d.quanta.Add(1)
	d.wallNanos.Add(int64(wall))
}

// RecordBlocked records time spent parked on a blocked future.
func (d *DriverContext) RecordBlocked(blocked time.Duration) {
	d.blockedNano.Add(int64(blocked))
}

// Close marks the driver as done. It is idempotent.
func (d *DriverContext) Close() {
	d.closed.Store(true)
}

// IsClosed returns whether Close was called.
func (d *DriverContext) IsClosed() bool { return d.closed.Load() }

// OperatorStats accumulates the input and output of one operator instance.
type OperatorStats struct {
	OperatorID   int
	OperatorType redact.SafeString

	inputBatches  atomic.Int64
	inputRows     atomic.Int64
	outputBatches atomic.Int64
	outputRows    atomic.Int64
}

// RecordInput records a batch of n rows handed to the operator.
func (s *OperatorStats) RecordInput(n int) {
	s.inputBatches.Add(1)
	s.inputRows.Add(int64(n))
}

// RecordOutput records a batch of n rows produced by the operator.
func (s *OperatorStats) RecordOutput(n int) {
	s.outputBatches.Add(1)
	s.outputRows.Add(int64(n))
}

// InputRows returns the number of rows handed to the operator so far.
func (s *OperatorStats) InputRows() int64 { return s.inputRows.Load() }

// OutputRows returns the number of rows produced by the operator so far.
func (s *OperatorStats) OutputRows() int64 { return s.outputRows.Load() }
