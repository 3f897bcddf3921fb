// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexechash

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/mon"
)

// LookupSource is the read-only view of a frozen HashIndex that probe-side
// operators look rows up in. It owns the memory account of the index and is
// safe for concurrent use by any number of probers.
type LookupSource struct {
	index       *HashIndex
	outputCols  []uint32
	outputTypes []coltypes.T
	acc         mon.BoundAccount
	closed      atomic.Bool
}

// NewLookupSource wraps a frozen index. outputCols select the build columns
// appended to joined rows. Ownership of acc, which must hold the memory of
// the index, is transferred to the lookup source.
func NewLookupSource(
	index *HashIndex, outputCols []uint32, acc mon.BoundAccount,
) (*LookupSource, error) {
	if !index.IsFrozen() {
		return nil, errors.AssertionFailedf("lookup source over an unfrozen hash index")
	}
	outputTypes := make([]coltypes.T, len(outputCols))
	for i, c := range outputCols {
		outputTypes[i] = index.types[c]
	}
	return &LookupSource{
		index:       index,
		outputCols:  outputCols,
		outputTypes: outputTypes,
		acc:         acc,
	}, nil
}

// IsEmpty returns whether no build row can ever match.
func (s *LookupSource) IsEmpty() bool { return s.index.RowCount() == 0 }

// RowCount returns the number of indexed build rows.
func (s *LookupSource) RowCount() int { return s.index.RowCount() }

// OutputTypes returns the types of the build columns appended to joined
// rows.
func (s *LookupSource) OutputTypes() []coltypes.T { return s.outputTypes }

// FirstMatch returns the keyID of the first build row matching probe[row],
// or 0.
func (s *LookupSource) FirstMatch(
	probe coldata.Batch, row int, probeKeyCols []uint32, hash uint64,
) uint64 {
	return s.index.FirstMatch(probe, row, probeKeyCols, hash)
}

// NextMatch returns the keyID of the build row matching probe[row] that
// follows prev in its chain, or 0.
func (s *LookupSource) NextMatch(
	prev uint64, probe coldata.Batch, row int, probeKeyCols []uint32, hash uint64,
) uint64 {
	return s.index.NextMatch(prev, probe, row, probeKeyCols, hash)
}

// AppendBuildRow copies the output columns of build row keyID into
// dst[i][dstIdx] for every output column i.
func (s *LookupSource) AppendBuildRow(keyID uint64, dst []coldata.Vec, dstIdx int) {
	b, row := s.index.row(keyID)
	for i, c := range s.outputCols {
		dst[i].Copy(dstIdx, b.ColVec(int(c)), row)
	}
}

// MemoryUsage returns the bytes accounted for the lookup source.
func (s *LookupSource) MemoryUsage() int64 { return s.acc.Used() }

// Close releases the memory of the lookup source. It is idempotent and must
// only be called once no prober uses the source anymore.
func (s *LookupSource) Close(ctx context.Context) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.acc.Close(ctx)
}
