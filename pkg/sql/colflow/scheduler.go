// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colflow

import (
	"container/list"
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/base"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/hashjoin/pkg/util/syncutil"
	"github.com/cockroachdb/hashjoin/pkg/util/timeutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/marusama/semaphore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrSchedulerStopped is the cancellation cause of tasks whose drivers were
// abandoned by a stopping scheduler.
var ErrSchedulerStopped = errors.New("scheduler stopped")

const tracerName = "github.com/cockroachdb/hashjoin/pkg/sql/colflow"

// Scheduler runs the drivers of tasks on a bounded number of workers. Each
// worker runs one quantum of one driver at a time; after the quantum the
// driver is requeued, parked on the future it returned, or retired. The
// number of workers is independent of the number of drivers.
type Scheduler struct {
	quantum time.Duration
	sem     semaphore.Semaphore
	metrics *Metrics
	tracer  trace.Tracer
	// slowDequeue rate limits the warnings about drivers starved of a
	// worker.
	slowDequeue log.EveryN

	// wakeCh signals the dispatch loop that the queue is not empty.
	wakeCh  chan struct{}
	stopCtx context.Context
	stop    context.CancelFunc
	// workers tracks the dispatch loop, running quanta and parked drivers.
	workers errgroup.Group
	// tasks are the tasks with live drivers.
	tasks syncutil.Set[*TaskHandle]

	mu struct {
		syncutil.Mutex
		// queue keeps the runnable drivers waiting for a worker.
		queue   *list.List
		started bool
		stopped bool
	}
}

const (
	// slowDequeueFactor is the number of quanta a driver may wait in the
	// queue before the wait is reported.
	slowDequeueFactor      = 100
	slowDequeueLogInterval = 10 * time.Second
)

// NewScheduler creates a scheduler that must be started before use.
func NewScheduler(cfg *base.ExecConfig, metrics *Metrics) *Scheduler {
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Scheduler{
		quantum: cfg.Quantum,
		sem:     semaphore.New(cfg.NumWorkers),
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		wakeCh:  make(chan struct{}, 1),
	}
	s.slowDequeue.N = slowDequeueLogInterval
	s.stopCtx, s.stop = context.WithCancel(context.Background())
	s.mu.queue = list.New()
	return s
}

// Metrics returns the scheduler's metrics.
func (s *Scheduler) Metrics() *Metrics { return s.metrics }

// SetNumWorkers changes the number of drivers that may run concurrently.
func (s *Scheduler) SetNumWorkers(n int) {
	s.sem.SetLimit(n)
}

// NumWorkers returns the number of drivers that may run concurrently.
func (s *Scheduler) NumWorkers() int {
	return s.sem.GetLimit()
}

// NumDriversInQueue returns the number of runnable drivers waiting for a
// worker.
func (s *Scheduler) NumDriversInQueue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mu.queue.Len()
}

// Start launches the dispatch loop of the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mu.started {
		return
	}
	s.mu.started = true
	ctx = logtags.AddTag(ctx, "scheduler", nil)
	s.workers.Go(func() error {
		s.dispatchLoop(ctx)
		return nil
	})
}

// Stop stops the dispatch loop, cancels every task with live drivers and
// waits for all drivers to be closed.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.mu.stopped {
		s.mu.Unlock()
		return
	}
	s.mu.stopped = true
	s.mu.Unlock()

	s.stop()
	s.tasks.Range(func(h *TaskHandle) bool {
		h.task.Cancel(colexecerror.NewCancellationError(ErrSchedulerStopped))
		return true
	})
	_ = s.workers.Wait()

	// Drain the queue.
	s.mu.Lock()
	abandoned := s.drainLocked()
	s.mu.Unlock()
	if len(abandoned) > 0 {
		log.Infof(ctx, "abandoning %d drivers that will never run", len(abandoned))
	}
	for _, sd := range abandoned {
		sd.retire(ctx, colexecerror.NewCancellationError(ErrSchedulerStopped))
	}
}

func (s *Scheduler) drainLocked() []*scheduledDriver {
	s.mu.AssertHeld()
	var res []*scheduledDriver
	for e := s.mu.queue.Front(); e != nil; e = s.mu.queue.Front() {
		s.mu.queue.Remove(e)
		s.metrics.DriversQueued.Dec()
		res = append(res, e.Value.(*scheduledDriver))
	}
	return res
}

// scheduledDriver stores a driver to run and the context to run it with.
type scheduledDriver struct {
	driver      *Driver
	handle      *TaskHandle
	ctx         context.Context
	span        trace.Span
	enqueueTime time.Time
}

// Schedule hands the drivers of a task to the scheduler. The drivers must
// all belong to task. The returned handle reports the outcome of the task;
// the task context is closed once every driver is retired.
func (s *Scheduler) Schedule(task *execctx.TaskContext, drivers []*Driver) *TaskHandle {
	h := &TaskHandle{task: task, done: make(chan struct{}), metrics: s.metrics}
	h.mu.remaining = len(drivers)
	if len(drivers) == 0 {
		h.finish(task.Ctx())
		return h
	}
	s.tasks.Add(h)
	h.onDone = func() { s.tasks.Remove(h) }

	sds := make([]*scheduledDriver, len(drivers))
	for i, d := range drivers {
		dctx := d.Context()
		ctx, span := s.tracer.Start(dctx.Ctx(), "driver", trace.WithAttributes(
			attribute.Int64("task", task.ID()),
			attribute.Int("pipeline", dctx.Pipeline().ID()),
			attribute.Int("driver", dctx.ID()),
		))
		sds[i] = &scheduledDriver{driver: d, handle: h, ctx: ctx, span: span}
	}
	s.metrics.DriversScheduled.Add(float64(len(drivers)))
	log.VEventf(task.Ctx(), 1, "scheduling %d drivers", len(drivers))
	for _, sd := range sds {
		s.enqueue(sd)
	}
	return h
}

// enqueue makes sd runnable, or retires it if the scheduler is stopped.
func (s *Scheduler) enqueue(sd *scheduledDriver) {
	s.mu.Lock()
	if s.mu.stopped {
		s.mu.Unlock()
		sd.retire(sd.ctx, colexecerror.NewCancellationError(ErrSchedulerStopped))
		return
	}
	sd.enqueueTime = timeutil.Now()
	s.mu.queue.PushBack(sd)
	s.metrics.DriversQueued.Inc()
	s.mu.Unlock()
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) dequeue() *scheduledDriver {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.mu.queue.Front()
	if e == nil {
		return nil
	}
	s.mu.queue.Remove(e)
	s.metrics.DriversQueued.Dec()
	return e.Value.(*scheduledDriver)
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-s.wakeCh:
		case <-s.stopCtx.Done():
			return
		}
		for {
			// Acquire a worker slot before taking a driver so that the driver
			// stays visible in the queue while all workers are busy.
			if err := s.sem.Acquire(s.stopCtx, 1); err != nil {
				return
			}
			sd := s.dequeue()
			if sd == nil {
				s.sem.Release(1)
				break
			}
			wait := timeutil.Since(sd.enqueueTime)
			s.metrics.QueueWait.Observe(wait.Seconds())
			log.VEventf(sd.ctx, 3, "driver dequeued, spent %s in queue", redact.Safe(wait))
			if wait > slowDequeueFactor*s.quantum && s.slowDequeue.ShouldLog() {
				log.Warningf(sd.ctx, "driver waited %s for a worker, %d workers may be too few",
					redact.Safe(wait), redact.Safe(s.NumWorkers()))
			}
			s.workers.Go(func() error {
				defer s.sem.Release(1)
				s.runQuantum(sd)
				return nil
			})
		}
	}
}

// runQuantum runs one quantum of sd and decides what happens to it next.
func (s *Scheduler) runQuantum(sd *scheduledDriver) {
	s.metrics.DriversRunning.Inc()
	start := timeutil.Now()
	future, err := sd.driver.ProcessFor(sd.ctx, s.quantum)
	s.metrics.QuantumTime.Observe(timeutil.Since(start).Seconds())
	s.metrics.QuantaRun.Inc()
	s.metrics.DriversRunning.Dec()

	switch {
	case err != nil:
		sd.retire(sd.ctx, err)
	case sd.driver.IsFinished():
		sd.retire(sd.ctx, nil)
	case future != nil:
		s.park(sd, future)
	default:
		s.enqueue(sd)
	}
}

// park waits for the future to fire, or for the task to be cancelled, and
// makes the driver runnable again. A cancelled driver observes the
// cancellation at the start of its next quantum.
func (s *Scheduler) park(sd *scheduledDriver, future colexecop.BlockedFuture) {
	s.metrics.BlockedParks.Inc()
	s.metrics.DriversParked.Inc()
	log.VEventf(sd.ctx, 2, "driver blocked")
	parkedAt := timeutil.Now()
	s.workers.Go(func() error {
		select {
		case <-future:
		case <-sd.handle.task.Done():
		}
		sd.driver.Context().RecordBlocked(timeutil.Since(parkedAt))
		s.metrics.DriversParked.Dec()
		s.enqueue(sd)
		return nil
	})
}

// retire closes the driver and accounts for it in its task.
func (sd *scheduledDriver) retire(ctx context.Context, err error) {
	if closeErr := sd.driver.Close(ctx); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		sd.span.RecordError(err)
		sd.span.SetStatus(codes.Error, colexecerror.KindOf(err).String())
	}
	sd.span.End()
	sd.handle.driverDone(ctx, err)
}

// TaskHandle reports the outcome of a scheduled task.
type TaskHandle struct {
	task    *execctx.TaskContext
	done    chan struct{}
	metrics *Metrics
	onDone  func()
	// stats is written before done is closed.
	stats execctx.TaskStats

	mu struct {
		syncutil.Mutex
		remaining int
		err       error
	}
}

// Task returns the task context.
func (h *TaskHandle) Task() *execctx.TaskContext { return h.task }

// Done returns a channel closed once every driver of the task is retired and
// the task context is closed.
func (h *TaskHandle) Done() <-chan struct{} { return h.done }

// Cancel cancels the task. Wait then returns a CancellationError unless a
// driver failed first.
func (h *TaskHandle) Cancel(cause error) {
	h.task.Cancel(cause)
}

// Err returns the first error of the task. It must only be called once Done
// is closed.
func (h *TaskHandle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mu.err
}

// Stats returns the statistics of the task, taken just before its context
// was closed. It must only be called once Done is closed.
func (h *TaskHandle) Stats() execctx.TaskStats { return h.stats }

// Wait blocks until the task is done and returns its first error. If ctx is
// done first, the task is cancelled and Wait still waits for its drivers to
// be closed.
func (h *TaskHandle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
	case <-ctx.Done():
		h.task.Cancel(colexecerror.NewCancellationError(context.Cause(ctx)))
		<-h.done
	}
	return h.Err()
}

// driverDone records the outcome of one driver. The first error cancels the
// task so that the drivers of sibling pipelines stop as well.
func (h *TaskHandle) driverDone(ctx context.Context, err error) {
	h.mu.Lock()
	first := err != nil && h.mu.err == nil
	if first {
		h.mu.err = err
	}
	h.mu.remaining--
	last := h.mu.remaining == 0
	h.mu.Unlock()

	if first {
		if colexecerror.KindOf(err) != colexecerror.KindCancelled {
			log.Warningf(ctx, "driver failed, cancelling task: %v", err)
		}
		h.task.Cancel(err)
	}
	if last {
		h.finish(ctx)
	}
}

func (h *TaskHandle) finish(ctx context.Context) {
	stats := h.task.Snapshot()
	h.stats = stats
	h.task.Close()
	h.metrics.RowsOutput.Add(float64(stats.OutputRows()))
	outcome := "ok"
	if err := h.Err(); err != nil {
		outcome = colexecerror.KindOf(err).String()
	}
	h.metrics.TasksFinished.WithLabelValues(outcome).Inc()
	log.VEventf(ctx, 1, "task finished: %s", redact.SafeString(outcome))
	if h.onDone != nil {
		h.onDone()
	}
	close(h.done)
}
