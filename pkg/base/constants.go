// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package base

import "time"

const (
	// DefaultQuantum is the wall time a driver runs before it yields its
	// worker to other runnable drivers.
	DefaultQuantum = 1 * time.Second

	// DefaultBatchSize is the maximum number of rows of the batches produced
	// by operators.
	DefaultBatchSize = 1024

	// DefaultBuildMaxRows is the row capacity of a hash build.
	DefaultBuildMaxRows = 1_500_000

	// MaxBatchSize is the largest accepted batch size.
	MaxBatchSize = 4096
)
