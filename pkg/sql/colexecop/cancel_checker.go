// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecop

import (
	"context"

	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
)

// CancelChecker checks whether the task has been cancelled during
// long-running loops that don't return to the driver, like freezing a large
// hash index. The zero value is ready to use.
type CancelChecker struct {
	// Number of times Check() has been called since last context cancellation
	// check.
	callsSinceLastCheck uint32
}

// Interval of Check() calls to wait between checks for context cancellation.
// The value is a power of 2 to allow the compiler to use bitwise AND instead
// of division.
const cancelCheckInterval = 1024

// Check returns a CancellationError if ctx has been cancelled. The context
// is only consulted on every cancelCheckInterval'th call.
func (c *CancelChecker) Check(ctx context.Context) error {
	var err error
	if c.callsSinceLastCheck%cancelCheckInterval == 0 {
		err = CheckCancelled(ctx)
	}
	// Increment. This may rollover when the 32-bit capacity is reached, but
	// that's all right.
	c.callsSinceLastCheck++
	return err
}

// CheckCancelled returns a CancellationError if ctx has been cancelled.
func CheckCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return colexecerror.NewCancellationError(context.Cause(ctx))
	default:
		return nil
	}
}
