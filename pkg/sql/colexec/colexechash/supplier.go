// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexechash

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
)

// LookupSourceSupplier is the set-once publication point between a hash
// builder and the lookup joins probing its result. The build types are known
// when the supplier is created; the lookup source is set exactly once, when
// the build completes, and never if the build fails or is cancelled.
//
// The source is stored before the ready channel is closed, so any goroutine
// that observes the channel as closed also observes the source.
type LookupSourceSupplier struct {
	buildTypes       []coltypes.T
	buildKeyTypes    []coltypes.T
	buildOutputTypes []coltypes.T

	set    atomic.Bool
	source *LookupSource
	ready  chan struct{}
}

// NewLookupSourceSupplier creates an unresolved supplier for a build input
// of buildTypes keyed by keyCols, whose outputCols are appended to joined
// rows. The columns must be valid positions in buildTypes.
func NewLookupSourceSupplier(
	buildTypes []coltypes.T, keyCols []uint32, outputCols []uint32,
) *LookupSourceSupplier {
	s := &LookupSourceSupplier{
		buildTypes:       buildTypes,
		buildKeyTypes:    make([]coltypes.T, len(keyCols)),
		buildOutputTypes: make([]coltypes.T, len(outputCols)),
		ready:            make(chan struct{}),
	}
	for i, c := range keyCols {
		s.buildKeyTypes[i] = buildTypes[c]
	}
	for i, c := range outputCols {
		s.buildOutputTypes[i] = buildTypes[c]
	}
	return s
}

// BuildTypes returns the column types of the build input.
func (s *LookupSourceSupplier) BuildTypes() []coltypes.T { return s.buildTypes }

// BuildKeyTypes returns the types of the build key columns, in key order.
func (s *LookupSourceSupplier) BuildKeyTypes() []coltypes.T { return s.buildKeyTypes }

// BuildOutputTypes returns the types of the build columns appended to
// joined rows.
func (s *LookupSourceSupplier) BuildOutputTypes() []coltypes.T { return s.buildOutputTypes }

// Set publishes the lookup source and wakes every waiter. Calling Set a
// second time is an assertion failure.
func (s *LookupSourceSupplier) Set(source *LookupSource) error {
	if source == nil {
		return errors.AssertionFailedf("nil lookup source")
	}
	if !coltypes.TypesEqual(source.OutputTypes(), s.buildOutputTypes) {
		return errors.AssertionFailedf("lookup source types %v don't match supplier types %v",
			source.OutputTypes(), s.buildOutputTypes)
	}
	if !s.set.CompareAndSwap(false, true) {
		return errors.AssertionFailedf("lookup source set twice")
	}
	s.source = source
	close(s.ready)
	return nil
}

// Ready returns a channel that is closed once the lookup source is set.
func (s *LookupSourceSupplier) Ready() <-chan struct{} { return s.ready }

// TryGet returns the lookup source if it has been set.
func (s *LookupSourceSupplier) TryGet() (*LookupSource, bool) {
	select {
	case <-s.ready:
		return s.source, true
	default:
		return nil, false
	}
}

// Wait blocks until the lookup source is set or ctx is done.
func (s *LookupSourceSupplier) Wait(ctx context.Context) (*LookupSource, error) {
	select {
	case <-s.ready:
		return s.source, nil
	case <-ctx.Done():
		return nil, colexecerror.NewCancellationError(context.Cause(ctx))
	}
}
