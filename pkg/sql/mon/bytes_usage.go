// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package mon tracks the memory usage of a task, its pipelines and drivers
// as a tree of byte monitors.
package mon

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/hashjoin/pkg/util/syncutil"
	"github.com/cockroachdb/redact"
	"github.com/dustin/go-humanize"
)

// ErrBudgetExceeded is the mark of errors returned when a reservation would
// push a monitor over its limit.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// BytesMonitor defines an object that can track and limit memory usage by
// other components. Monitors form a tree: a reservation against a monitor is
// also a reservation against every ancestor, and fails if any of them would
// exceed its limit.
//
// A monitor is safe for concurrent use; the accounts opened on it are not.
type BytesMonitor struct {
	name   redact.SafeString
	limit  int64
	parent *BytesMonitor

	mu struct {
		syncutil.Mutex
		// curAllocated is the number of bytes currently reserved through this
		// monitor, including the reservations of descendant monitors.
		curAllocated int64
		// maxAllocated is the high-water mark of curAllocated.
		maxAllocated int64
		stopped      bool
	}
}

// NewMonitor creates a monitor. A limit of zero or less means the monitor
// itself imposes no limit (ancestors still do).
func NewMonitor(name redact.SafeString, limit int64, parent *BytesMonitor) *BytesMonitor {
	return &BytesMonitor{name: name, limit: limit, parent: parent}
}

// NewUnlimitedMonitor creates a root monitor without a limit.
func NewUnlimitedMonitor(name redact.SafeString) *BytesMonitor {
	return NewMonitor(name, 0 /* limit */, nil /* parent */)
}

// Name returns the name of the monitor.
func (mm *BytesMonitor) Name() redact.SafeString {
	return mm.name
}

// Limit returns the limit of this monitor, or zero when unlimited.
func (mm *BytesMonitor) Limit() int64 {
	return mm.limit
}

// AllocBytes returns the current number of allocated bytes in this monitor.
func (mm *BytesMonitor) AllocBytes() int64 {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.mu.curAllocated
}

// MaximumBytes returns the maximum number of bytes that were allocated by
// this monitor at one time since it was created.
func (mm *BytesMonitor) MaximumBytes() int64 {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	return mm.mu.maxAllocated
}

// Stop completes a monitoring region. Any bytes still reserved are reported,
// since they indicate an account that was never closed.
func (mm *BytesMonitor) Stop(ctx context.Context) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.mu.stopped {
		return
	}
	mm.mu.stopped = true
	if mm.mu.curAllocated != 0 {
		log.Errorf(ctx, "%s: unexpected %s leftover memory", mm.name,
			redact.Safe(humanize.IBytes(uint64(mm.mu.curAllocated))))
	}
}

func (mm *BytesMonitor) reserveBytes(ctx context.Context, x int64) error {
	mm.mu.Lock()
	if mm.limit > 0 && mm.mu.curAllocated+x > mm.limit {
		cur := mm.mu.curAllocated
		mm.mu.Unlock()
		return newBudgetExceededError(mm.name, x, cur, mm.limit)
	}
	mm.mu.curAllocated += x
	mm.mu.Unlock()

	if mm.parent != nil {
		if err := mm.parent.reserveBytes(ctx, x); err != nil {
			mm.mu.Lock()
			mm.mu.curAllocated -= x
			mm.mu.Unlock()
			return err
		}
	}
	// The high-water mark only counts reservations granted at every level.
	mm.mu.Lock()
	if mm.mu.curAllocated > mm.mu.maxAllocated {
		mm.mu.maxAllocated = mm.mu.curAllocated
	}
	mm.mu.Unlock()
	return nil
}

func (mm *BytesMonitor) releaseBytes(ctx context.Context, x int64) {
	mm.mu.Lock()
	if mm.mu.curAllocated < x {
		log.Errorf(ctx, "%s: no bytes to release, current %d, free %d", mm.name,
			redact.Safe(mm.mu.curAllocated), redact.Safe(x))
		x = mm.mu.curAllocated
	}
	mm.mu.curAllocated -= x
	mm.mu.Unlock()
	if mm.parent != nil {
		mm.parent.releaseBytes(ctx, x)
	}
}

func newBudgetExceededError(
	name redact.SafeString, requested, alreadyAllocated, budget int64,
) error {
	return errors.Mark(errors.Newf(
		"%s: memory budget exceeded: %s requested, %s already allocated, %s budget",
		name,
		redact.Safe(humanize.IBytes(uint64(requested))),
		redact.Safe(humanize.IBytes(uint64(alreadyAllocated))),
		redact.Safe(humanize.IBytes(uint64(budget))),
	), ErrBudgetExceeded)
}
