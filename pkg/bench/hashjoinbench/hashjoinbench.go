// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package hashjoinbench wires and runs the hash build-and-join benchmark,
// the equivalent of
//
//	SELECT orderkey, quantity, totalprice
//	FROM lineitem JOIN orders USING (orderkey)
//
// as two pipelines of one task: a build pipeline scanning orders into a hash
// builder, and a probe pipeline scanning lineitem through an inner lookup
// join into a null output.
package hashjoinbench

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/base"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexecbase"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexechash"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexecjoin"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/colflow"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/hashjoin/pkg/util/humanizeutil"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/hashjoin/pkg/util/timeutil"
	"github.com/cockroachdb/hashjoin/pkg/workload/tpch"
	"github.com/cockroachdb/logtags"
	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
)

var (
	// OrdersTypes are the types of the scanned orders columns: orderkey and
	// totalprice.
	OrdersTypes = []coltypes.T{coltypes.Int64, coltypes.Float64}
	// LineItemTypes are the types of the scanned lineitem columns: orderkey
	// and quantity.
	LineItemTypes = []coltypes.T{coltypes.Int64, coltypes.Int64}
)

var (
	ordersColumns   = []string{"orderkey", "totalprice"}
	lineItemColumns = []string{"orderkey", "quantity"}
)

// Sources provides the scans of the benchmark. Every call of a ProducerFn
// must start a new scan of the whole table.
type Sources struct {
	Orders   colexecbase.ProducerFn
	LineItem colexecbase.ProducerFn
}

// TPCHSources returns sources generating the tables with the tpch workload
// generators.
func TPCHSources(scaleFactor float64, seed uint64, batchSize int) (Sources, error) {
	orders, err := tpch.NewOrdersGenerator(scaleFactor, seed)
	if err != nil {
		return Sources{}, err
	}
	lineItems, err := tpch.NewLineItemGenerator(scaleFactor, seed)
	if err != nil {
		return Sources{}, err
	}
	return Sources{
		Orders: func(*execctx.DriverContext) (colexecop.BatchProducer, error) {
			p, _, err := orders.NewProducer(batchSize, ordersColumns...)
			return p, err
		},
		LineItem: func(*execctx.DriverContext) (colexecop.BatchProducer, error) {
			p, _, err := lineItems.NewProducer(batchSize, lineItemColumns...)
			return p, err
		},
	}, nil
}

// Pipelines are the two pipelines of the benchmark.
type Pipelines struct {
	Build *colflow.DriverFactory
	Probe *colflow.DriverFactory
	// Builder is the build pipeline's sink.
	Builder *colexecjoin.HashBuilderFactory
}

// NewPipelines assembles the pipelines. With cfg.HashEnabled, both scans go
// through a hash projection whose output column 2 carries the key hash.
func NewPipelines(cfg *base.ExecConfig, sources Sources) (*Pipelines, error) {
	// Build: orders scan, [hash project], hash builder.
	build := []colexecop.OperatorFactory{
		colexecbase.NewSourceOpFactory(0, "orders", OrdersTypes, sources.Orders),
	}
	buildTypes := OrdersTypes
	hashChannel := colexechash.NoHashChannel
	if cfg.HashEnabled {
		hp, err := colexecbase.NewHashProjectOpFactory(1, buildTypes, []uint32{0})
		if err != nil {
			return nil, err
		}
		build = append(build, hp)
		buildTypes = hp.OutputTypes()
		hashChannel = colexechash.MakeHashChannel(2)
	}
	builder, err := colexecjoin.NewHashBuilderFactory(
		2, buildTypes, []uint32{0}, hashChannel, []uint32{1}, /* totalprice */
		colexechash.Capacity{
			MaxRows:  cfg.BuildMaxRows,
			MaxBytes: int64(cfg.BuildMemoryBudget),
		},
	)
	if err != nil {
		return nil, err
	}
	build = append(build, builder)
	buildFactory, err := colflow.NewDriverFactory(true /* hasInput */, false /* isOutput */, build...)
	if err != nil {
		return nil, err
	}

	// Probe: lineitem scan, [hash project], lookup join, null output.
	probe := []colexecop.OperatorFactory{
		colexecbase.NewSourceOpFactory(0, "lineitem", LineItemTypes, sources.LineItem),
	}
	probeTypes := LineItemTypes
	hashChannel = colexechash.NoHashChannel
	if cfg.HashEnabled {
		hp, err := colexecbase.NewHashProjectOpFactory(1, probeTypes, []uint32{0})
		if err != nil {
			return nil, err
		}
		probe = append(probe, hp)
		probeTypes = hp.OutputTypes()
		hashChannel = colexechash.MakeHashChannel(2)
	}
	join, err := colexecjoin.NewInnerJoinFactory(
		2, builder.Supplier(), probeTypes, []uint32{0}, hashChannel, []uint32{0, 1}, /* orderkey, quantity */
	)
	if err != nil {
		return nil, err
	}
	probe = append(probe, join, colexecbase.NewNullOutputOpFactory(3, join.OutputTypes()))
	probeFactory, err := colflow.NewDriverFactory(true /* hasInput */, true /* isOutput */, probe...)
	if err != nil {
		return nil, err
	}
	return &Pipelines{Build: buildFactory, Probe: probeFactory, Builder: builder}, nil
}

// CreateDrivers creates one driver per pipeline of the benchmark within
// task: the build driver first, then the probe driver.
func CreateDrivers(
	task *execctx.TaskContext, cfg *base.ExecConfig, sources Sources,
) ([]*colflow.Driver, error) {
	p, err := NewPipelines(cfg, sources)
	if err != nil {
		return nil, err
	}
	return p.CreateDrivers(task)
}

// CreateDrivers creates one driver for each pipeline within task. It may
// only be called once.
func (p *Pipelines) CreateDrivers(task *execctx.TaskContext) ([]*colflow.Driver, error) {
	var drivers []*colflow.Driver
	for _, f := range []*colflow.DriverFactory{p.Build, p.Probe} {
		d, err := f.CreateDriver(task.AddPipelineContext(f.HasInput(), f.IsOutput()).AddDriverContext())
		f.NoMoreDrivers()
		if err != nil {
			for _, created := range drivers {
				_ = created.Close(task.Ctx())
			}
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, nil
}

// Config configures a benchmark run.
type Config struct {
	Exec base.ExecConfig
	// WarmupIterations are run first and not measured.
	WarmupIterations int
	// MeasuredIterations are averaged into the Result.
	MeasuredIterations int
}

// DefaultConfig returns the configuration of the standard run: four warmup
// and five measured iterations.
func DefaultConfig() Config {
	return Config{
		Exec:               base.DefaultExecConfig(),
		WarmupIterations:   4,
		MeasuredIterations: 5,
	}
}

// Result summarizes the measured iterations of a run.
type Result struct {
	Name       string
	Iterations int
	// Elapsed, InputRows and OutputRows are per-iteration averages.
	Elapsed    time.Duration
	InputRows  int64
	OutputRows int64
	// MedianElapsed and StdDevElapsed describe the spread of the iteration
	// wall times.
	MedianElapsed time.Duration
	StdDevElapsed time.Duration
	// MaxMemory is the largest memory use of any iteration's task.
	MaxMemory int64
	// LastStats are the stats of the last iteration.
	LastStats execctx.TaskStats
}

// Name returns the name of the benchmark for the given hash setting.
func Name(hashEnabled bool) string {
	return fmt.Sprintf("hash_build_and_join_hash_enabled_%t", hashEnabled)
}

// String formats r as one line.
func (r Result) String() string {
	return fmt.Sprintf(
		"%s :: %s elapsed (median %s, stddev %s), %s input rows (%s), %s output rows (%s), max memory %s",
		r.Name,
		humanizeutil.Duration(r.Elapsed),
		humanizeutil.Duration(r.MedianElapsed), humanizeutil.Duration(r.StdDevElapsed),
		humanize.Comma(r.InputRows), humanizeutil.Rate(r.InputRows, r.Elapsed),
		humanize.Comma(r.OutputRows), humanizeutil.Rate(r.OutputRows, r.Elapsed),
		humanize.IBytes(uint64(r.MaxMemory)),
	)
}

// Run executes the benchmark on sched, which must be started. Each
// iteration is a new task; the first failing iteration stops the run.
func Run(
	ctx context.Context, sched *colflow.Scheduler, cfg Config, sources Sources,
) (Result, error) {
	if cfg.MeasuredIterations <= 0 {
		return Result{}, errors.Newf("measured iterations must be positive, got %d", cfg.MeasuredIterations)
	}
	name := Name(cfg.Exec.HashEnabled)
	ctx = logtags.AddTag(ctx, "bench", name)
	res := Result{Name: name, Iterations: cfg.MeasuredIterations}
	walls := make(stats.Float64Data, 0, cfg.MeasuredIterations)
	for i := 0; i < cfg.WarmupIterations+cfg.MeasuredIterations; i++ {
		taskStats, wall, err := RunOnce(ctx, sched, &cfg.Exec, sources, int64(i))
		if err != nil {
			return Result{}, errors.Wrapf(err, "iteration %d", i)
		}
		log.VEventf(ctx, 2, "iteration %d:\n%s", i, taskStats)
		if i < cfg.WarmupIterations {
			log.VEventf(ctx, 1, "warmup iteration %d took %s", i, wall)
			continue
		}
		walls = append(walls, float64(wall))
		res.LastStats = taskStats
		res.InputRows += InputRows(taskStats)
		res.OutputRows += taskStats.OutputRows()
		if taskStats.MaxMemory > res.MaxMemory {
			res.MaxMemory = taskStats.MaxMemory
		}
	}
	var err error
	if res.Elapsed, err = summarize(walls, stats.Mean); err != nil {
		return Result{}, err
	}
	if res.MedianElapsed, err = summarize(walls, stats.Median); err != nil {
		return Result{}, err
	}
	if res.StdDevElapsed, err = summarize(walls, stats.StandardDeviation); err != nil {
		return Result{}, err
	}
	n := int64(cfg.MeasuredIterations)
	res.InputRows /= n
	res.OutputRows /= n
	log.Infof(ctx, "%s", res)
	return res, nil
}

// summarize reduces wall times, in nanoseconds, to one duration.
func summarize(walls stats.Float64Data, f func(stats.Float64Data) (float64, error)) (time.Duration, error) {
	v, err := f(walls)
	if err != nil {
		return 0, errors.Wrap(err, "summarizing iteration times")
	}
	return time.Duration(v), nil
}

// RunOnce executes one iteration as task taskID and returns its stats and
// wall time.
func RunOnce(
	ctx context.Context,
	sched *colflow.Scheduler,
	cfg *base.ExecConfig,
	sources Sources,
	taskID int64,
) (execctx.TaskStats, time.Duration, error) {
	start := timeutil.Now()
	task := execctx.NewTaskContext(ctx, taskID, int64(cfg.TaskMemoryLimit))
	drivers, err := CreateDrivers(task, cfg, sources)
	if err != nil {
		task.Close()
		return execctx.TaskStats{}, 0, err
	}
	h := sched.Schedule(task, drivers)
	if err := h.Wait(ctx); err != nil {
		return h.Stats(), timeutil.Since(start), err
	}
	return h.Stats(), timeutil.Since(start), nil
}

// InputRows returns the rows read by the scans of the task, which are the
// first operators of the pipelines with input.
func InputRows(s execctx.TaskStats) int64 {
	var n int64
	for _, p := range s.Pipelines {
		if !p.HasInput {
			continue
		}
		for _, d := range p.Drivers {
			if len(d.Operators) > 0 {
				n += d.Operators[0].OutputRows
			}
		}
	}
	return n
}
