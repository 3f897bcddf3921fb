// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

//go:build deadlock

package syncutil

import (
	"sync/atomic"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

func init() {
	deadlock.Opts.DeadlockTimeout = time.Minute
}

// DeadlockEnabled is true if the deadlock detector is enabled.
const DeadlockEnabled = true

// A Mutex is a mutual exclusion lock that reports lock acquisitions stuck
// longer than the deadlock timeout.
type Mutex struct {
	mu     deadlock.Mutex
	locked atomic.Bool
}

// Lock locks m.
func (m *Mutex) Lock() {
	m.mu.Lock()
	m.locked.Store(true)
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	m.locked.Store(false)
	m.mu.Unlock()
}

// AssertHeld panics if m is not locked. It cannot tell which goroutine holds
// the lock.
func (m *Mutex) AssertHeld() {
	if !m.locked.Load() {
		panic("mutex is not locked")
	}
}
