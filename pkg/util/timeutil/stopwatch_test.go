// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStopWatch(t *testing.T) {
	var w StopWatch
	require.Zero(t, w.Stop())

	w.Start()
	time.Sleep(time.Millisecond)
	lap := w.Stop()
	require.GreaterOrEqual(t, lap, time.Millisecond)
	require.Equal(t, lap, w.Elapsed())

	w.Start()
	w.Start()
	second := w.Stop()
	require.Equal(t, lap+second, w.Elapsed())

	var nilWatch *StopWatch
	nilWatch.Start()
	require.Zero(t, nilWatch.Stop())
	require.Zero(t, nilWatch.Elapsed())
}
