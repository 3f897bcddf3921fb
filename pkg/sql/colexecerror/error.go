// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package colexecerror defines the kinds of errors a join task can fail with
// and the helpers used to classify them.
package colexecerror

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Sentinel errors identifying the failure kinds. Concrete errors are marked
// with one of these and can be tested with errors.Is.
var (
	// ErrConfiguration is the mark of errors caused by mismatched schemas or
	// channel indices, detected before any row is processed.
	ErrConfiguration = errors.New("configuration error")
	// ErrCapacityExceeded is the mark of errors caused by the build side
	// crossing its configured row or byte bound.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrCancelled is the mark of errors caused by a cooperative stop.
	ErrCancelled = errors.New("query execution canceled")
	// ErrUpstream is the mark of errors returned by a data source.
	ErrUpstream = errors.New("upstream failure")
)

// Kind classifies an error returned by the engine.
type Kind int

const (
	// KindInternal is any error not marked with one of the sentinels.
	KindInternal Kind = iota
	// KindConfiguration is ConfigurationError.
	KindConfiguration
	// KindCapacityExceeded is CapacityExceeded.
	KindCapacityExceeded
	// KindCancelled is CancellationError.
	KindCancelled
	// KindUpstream is UpstreamError.
	KindUpstream
)

var _ redact.SafeValue = Kind(0)

// SafeValue implements the redact.SafeValue interface.
func (Kind) SafeValue() {}

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "ConfigurationError"
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindCancelled:
		return "CancellationError"
	case KindUpstream:
		return "UpstreamError"
	default:
		return "InternalError"
	}
}

// KindOf returns the kind of err. Cancellation wins over other marks since a
// cancelled task may observe secondary failures while shutting down.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrCapacityExceeded):
		return KindCapacityExceeded
	case errors.Is(err, ErrUpstream):
		return KindUpstream
	default:
		return KindInternal
	}
}

// NewConfigurationErrorf returns an error marked as ErrConfiguration.
func NewConfigurationErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrConfiguration)
}

// NewCapacityExceededErrorf returns an error marked as ErrCapacityExceeded.
func NewCapacityExceededErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.NewWithDepthf(1, format, args...), ErrCapacityExceeded)
}

// MarkCapacityExceeded marks err, typically a memory budget error, as
// ErrCapacityExceeded.
func MarkCapacityExceeded(err error) error {
	return errors.Mark(err, ErrCapacityExceeded)
}

// NewCancellationError returns an error marked as ErrCancelled. The cause, if
// any, is retained for diagnostics.
func NewCancellationError(cause error) error {
	if cause == nil || errors.Is(cause, context.Canceled) {
		return ErrCancelled
	}
	if errors.Is(cause, ErrCancelled) {
		return cause
	}
	return errors.Mark(errors.Wrap(cause, "query execution canceled"), ErrCancelled)
}

// WrapUpstream marks an error returned by a data source as ErrUpstream.
// Context errors are turned into cancellation errors instead.
func WrapUpstream(err error, source redact.SafeString) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled) {
		return NewCancellationError(err)
	}
	return errors.Mark(errors.Wrapf(err, "reading from %s", source), ErrUpstream)
}

// CatchVectorizedRuntimeError executes operation, catches a runtime error if
// it is coming from an operator, and returns it as an assertion failure. Any
// error returned by operation is passed through.
func CatchVectorizedRuntimeError(operation func() error) (retErr error) {
	defer func() {
		if panicObj := recover(); panicObj != nil {
			var err error
			switch t := panicObj.(type) {
			case error:
				if KindOf(t) != KindInternal {
					// Errors carrying a kind were raised deliberately.
					retErr = t
					return
				}
				err = t
			default:
				err = errors.Newf("%v", redact.Safe(fmt.Sprint(t)))
			}
			retErr = errors.WithDetailf(
				errors.NewAssertionErrorWithWrappedErrf(err, "unexpected error from the vectorized engine"),
				"%s", debug.Stack(),
			)
		}
	}()
	return operation()
}
