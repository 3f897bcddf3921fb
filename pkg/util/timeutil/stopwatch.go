// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import "time"

// StopWatch is a utility stop watch that can be safely started and stopped
// multiple times. It is not safe to use concurrently. If StopWatch is nil,
// all operations are no-ops.
type StopWatch struct {
	started bool
	start   time.Time
	total   time.Duration
}

// Start starts the stop watch if it isn't running already.
func (w *StopWatch) Start() {
	if w == nil || w.started {
		return
	}
	w.started = true
	w.start = Now()
}

// Stop stops the stop watch and returns the duration of the lap that just
// ended. Stop on a stopped watch returns zero.
func (w *StopWatch) Stop() time.Duration {
	if w == nil || !w.started {
		return 0
	}
	w.started = false
	lap := Since(w.start)
	w.total += lap
	return lap
}

// Elapsed returns the total time measured by the stop watch so far,
// excluding the currently running lap.
func (w *StopWatch) Elapsed() time.Duration {
	if w == nil {
		return 0
	}
	return w.total
}
