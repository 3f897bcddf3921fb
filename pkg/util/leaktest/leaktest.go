// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package leaktest provides tools to detect leaked goroutines in tests.
// To use it, call "defer leaktest.AfterTest(t)()" at the beginning of each
// test that may use goroutines.
package leaktest

import (
	"testing"

	"go.uber.org/goleak"
)

// AfterTest snapshots the currently-running goroutines and returns a
// function to be run at the end of tests to see whether any
// goroutines leaked. Goroutines that exist when AfterTest is called are
// never reported.
func AfterTest(t testing.TB) func() {
	ignore := goleak.IgnoreCurrent()
	return func() {
		if t.Failed() {
			return
		}
		// goleak retries with backoff, so goroutines that are winding down
		// when the test returns are not reported.
		if err := goleak.Find(ignore); err != nil {
			t.Error(err)
		}
	}
}
