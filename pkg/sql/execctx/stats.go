// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execctx

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/hashjoin/pkg/util/timeutil"
	"github.com/cockroachdb/redact"
	"github.com/dustin/go-humanize"
)

// TaskStats is a point-in-time copy of the counters of a task.
type TaskStats struct {
	TaskID    int64
	Elapsed   time.Duration
	MaxMemory int64
	Pipelines []PipelineStats
}

// PipelineStats is a point-in-time copy of the counters of a pipeline.
type PipelineStats struct {
	PipelineID int
	HasInput   bool
	IsOutput   bool
	MaxMemory  int64
	Drivers    []DriverStats
}

// DriverStats is a point-in-time copy of the counters of a driver.
type DriverStats struct {
	DriverID    int
	Quanta      int64
	WallTime    time.Duration
	BlockedTime time.Duration
	MaxMemory   int64
	Closed      bool
	Operators   []OperatorStatsSnapshot
}

// OperatorStatsSnapshot is a point-in-time copy of an OperatorStats.
type OperatorStatsSnapshot struct {
	OperatorID    int
	OperatorType  redact.SafeString
	InputBatches  int64
	InputRows     int64
	OutputBatches int64
	OutputRows    int64
}

// Snapshot copies the counters of the whole hierarchy. It may be called
// concurrently with running drivers; each counter is read atomically but
// the snapshot as a whole is not.
func (t *TaskContext) Snapshot() TaskStats {
	t.mu.Lock()
	pipelines := append([]*PipelineContext(nil), t.mu.pipelines...)
	t.mu.Unlock()

	s := TaskStats{
		TaskID:    t.id,
		Elapsed:   timeutil.Since(t.createdAt),
		MaxMemory: t.mon.MaximumBytes(),
	}
	for _, p := range pipelines {
		s.Pipelines = append(s.Pipelines, p.snapshot())
	}
	return s
}

func (p *PipelineContext) snapshot() PipelineStats {
	p.mu.Lock()
	drivers := append([]*DriverContext(nil), p.mu.drivers...)
	p.mu.Unlock()

	s := PipelineStats{
		PipelineID: p.id,
		HasInput:   p.hasInput,
		IsOutput:   p.isOutput,
		MaxMemory:  p.mon.MaximumBytes(),
	}
	for _, d := range drivers {
		s.Drivers = append(s.Drivers, d.snapshot())
	}
	return s
}

func (d *DriverContext) snapshot() DriverStats {
	d.mu.Lock()
	operators := append([]*OperatorStats(nil), d.mu.operators...)
	d.mu.Unlock()

	s := DriverStats{
		DriverID:    d.id,
		Quanta:      d.quanta.Load(),
		WallTime:    time.Duration(d.wallNanos.Load()),
		BlockedTime: time.Duration(d.blockedNano.Load()),
		MaxMemory:   d.mon.MaximumBytes(),
		Closed:      d.closed.Load(),
	}
	for _, o := range operators {
		s.Operators = append(s.Operators, OperatorStatsSnapshot{
			OperatorID:    o.OperatorID,
			OperatorType:  o.OperatorType,
			InputBatches:  o.inputBatches.Load(),
			InputRows:     o.inputRows.Load(),
			OutputBatches: o.outputBatches.Load(),
			OutputRows:    o.outputRows.Load(),
		})
	}
	return s
}

// OutputRows returns the rows produced by the last operator of every driver
// of the terminal pipelines.
func (s TaskStats) OutputRows() int64 {
	var n int64
	for _, p := range s.Pipelines {
		if !p.IsOutput {
			continue
		}
		for _, d := range p.Drivers {
			if len(d.Operators) > 0 {
				n += d.Operators[len(d.Operators)-1].InputRows
			}
		}
	}
	return n
}

// String renders the stats as an indented tree.
func (s TaskStats) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "task %d: %s, max memory %s\n",
		s.TaskID, s.Elapsed.Round(time.Microsecond), humanize.IBytes(uint64(s.MaxMemory)))
	for _, p := range s.Pipelines {
		fmt.Fprintf(&buf, "  pipeline %d (input=%t, output=%t): max memory %s\n",
			p.PipelineID, p.HasInput, p.IsOutput, humanize.IBytes(uint64(p.MaxMemory)))
		for _, d := range p.Drivers {
			fmt.Fprintf(&buf, "    driver %d: %d quanta, wall %s, blocked %s\n",
				d.DriverID, d.Quanta, d.WallTime.Round(time.Microsecond), d.BlockedTime.Round(time.Microsecond))
			for _, o := range d.Operators {
				fmt.Fprintf(&buf, "      %d %s: in %s rows (%d batches), out %s rows (%d batches)\n",
					o.OperatorID, o.OperatorType,
					humanize.Comma(o.InputRows), o.InputBatches,
					humanize.Comma(o.OutputRows), o.OutputBatches)
			}
		}
	}
	return buf.String()
}
