// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package mon

import "context"

// BoundAccount tracks the cumulated allocations for one client of a
// BytesMonitor. It is not safe for concurrent use.
type BoundAccount struct {
	used int64
	mon  *BytesMonitor
}

// MakeBoundAccount creates a BoundAccount connected to the given monitor.
func (mm *BytesMonitor) MakeBoundAccount() BoundAccount {
	return BoundAccount{mon: mm}
}

// Monitor returns the monitor the account reserves against.
func (b *BoundAccount) Monitor() *BytesMonitor {
	return b.mon
}

// Used returns the number of bytes currently allocated through this account.
func (b *BoundAccount) Used() int64 {
	return b.used
}

// Grow is an accessor for b.mon.reserveBytes. On failure the account is left
// unchanged.
func (b *BoundAccount) Grow(ctx context.Context, x int64) error {
	if x <= 0 {
		return nil
	}
	if err := b.mon.reserveBytes(ctx, x); err != nil {
		return err
	}
	b.used += x
	return nil
}

// Shrink releases part of the cumulated allocations by the specified size.
func (b *BoundAccount) Shrink(ctx context.Context, delta int64) {
	if delta > b.used {
		delta = b.used
	}
	if delta <= 0 {
		return
	}
	b.used -= delta
	b.mon.releaseBytes(ctx, delta)
}

// Clear releases all the cumulated allocations of the account but keeps it
// usable.
func (b *BoundAccount) Clear(ctx context.Context) {
	b.Shrink(ctx, b.used)
}

// Close releases all the cumulated allocations of the account at once.
func (b *BoundAccount) Close(ctx context.Context) {
	if b.mon == nil {
		return
	}
	b.Clear(ctx)
}
