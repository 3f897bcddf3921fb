// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecerror

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		err      error
		expected Kind
	}{
		{NewConfigurationErrorf("bad channel %d", 3), KindConfiguration},
		{NewCapacityExceededErrorf("too many rows"), KindCapacityExceeded},
		{MarkCapacityExceeded(errors.New("budget")), KindCapacityExceeded},
		{NewCancellationError(nil), KindCancelled},
		{NewCancellationError(context.Canceled), KindCancelled},
		{NewCancellationError(errors.New("sibling failed")), KindCancelled},
		{WrapUpstream(errors.New("disk on fire"), "orders"), KindUpstream},
		{WrapUpstream(context.Canceled, "orders"), KindCancelled},
		{errors.New("boom"), KindInternal},
		{errors.Wrap(NewCapacityExceededErrorf("x"), "wrapped"), KindCapacityExceeded},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, KindOf(tc.err), "%v", tc.err)
	}
	require.Nil(t, WrapUpstream(nil, "orders"))
	require.Equal(t, "CapacityExceeded", KindCapacityExceeded.String())
}

func TestCatchVectorizedRuntimeError(t *testing.T) {
	err := CatchVectorizedRuntimeError(func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	require.Error(t, err)
	require.True(t, errors.HasAssertionFailure(err))

	capErr := NewCapacityExceededErrorf("x")
	err = CatchVectorizedRuntimeError(func() error { panic(capErr) })
	require.True(t, errors.Is(err, ErrCapacityExceeded))

	plain := errors.New("plain")
	require.Equal(t, plain, CatchVectorizedRuntimeError(func() error { return plain }))

	err = CatchVectorizedRuntimeError(func() error { panic("a string") })
	require.Contains(t, err.Error(), "a string")
}
