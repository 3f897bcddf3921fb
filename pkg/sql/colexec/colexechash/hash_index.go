// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexechash

import (
	"context"
	"math/bits"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/mon"
)

// sizeOfRow is the memory accounted per indexed row: its address, its hash
// and its link in the chain.
const sizeOfRow = 3 * 8

// Capacity bounds the size of a HashIndex. A zero field means the dimension
// is unbounded.
type Capacity struct {
	// MaxRows is the maximum number of rows the index may hold.
	MaxRows int64
	// MaxBytes is the maximum number of bytes the index may retain, counting
	// the retained batches and the index structures.
	MaxBytes int64
}

// HashIndex is the build side of a hash join. It retains every batch handed
// to Insert and, once frozen, chains the rows sharing a hash bucket.
//
// Rows are identified by a keyID, calculated as
//
//	keyID = position of the row in insertion order + 1
//
// keyID 0 is reserved to represent the end of a chain.
type HashIndex struct {
	types       []coltypes.T
	keyCols     []uint32
	hashChannel HashChannel
	maxRows     int64
	acc         *mon.BoundAccount

	// batches are the retained build batches.
	batches []coldata.Batch
	// addresses stores, per keyID-1, the position of the row as
	// batchIdx<<32 | rowIdx.
	addresses []uint64
	// hashes stores, per keyID-1, the hash of the row.
	hashes []uint64

	// first stores the keyID of the first row of each bucket.
	first []uint64
	// next is a densely-packed list that stores the keyID of the next row in
	// the bucket chain.
	next []uint64
	// mask maps a hash to its bucket; the number of buckets is a power of
	// two.
	mask   uint64
	frozen bool

	cancelChecker colexecop.CancelChecker
}

// NewHashIndex creates an empty index over batches of the given types, keyed
// by keyCols. Memory retained by the index is registered with acc, which
// stays owned by the caller.
func NewHashIndex(
	types []coltypes.T,
	keyCols []uint32,
	hashChannel HashChannel,
	capacity Capacity,
	acc *mon.BoundAccount,
) *HashIndex {
	return &HashIndex{
		types:       types,
		keyCols:     keyCols,
		hashChannel: hashChannel,
		maxRows:     capacity.MaxRows,
		acc:         acc,
	}
}

// Types returns the column types of the indexed batches.
func (h *HashIndex) Types() []coltypes.T { return h.types }

// KeyCols returns the key columns of the indexed batches.
func (h *HashIndex) KeyCols() []uint32 { return h.keyCols }

// RowCount returns the number of indexed rows.
func (h *HashIndex) RowCount() int { return len(h.addresses) }

// Insert adds the rows of b whose keys are all non-NULL. The batch is
// retained, never copied or mutated. Either all rows of the batch are
// inserted or, if a capacity bound would be exceeded, none is and an error
// marked as CapacityExceeded is returned.
func (h *HashIndex) Insert(ctx context.Context, b coldata.Batch) error {
	if h.frozen {
		return errors.AssertionFailedf("insert into a frozen hash index")
	}
	n := b.Length()
	if n == 0 {
		return nil
	}
	inserted := 0
	for i := 0; i < n; i++ {
		if !HasNullKey(b, i, h.keyCols) {
			inserted++
		}
	}
	if inserted == 0 {
		return nil
	}
	if h.maxRows > 0 && int64(len(h.addresses)+inserted) > h.maxRows {
		return colexecerror.NewCapacityExceededErrorf(
			"hash index row limit of %d exceeded", h.maxRows)
	}
	if err := h.acc.Grow(ctx, coldata.EstimatedSize(b)+int64(inserted)*sizeOfRow); err != nil {
		return colexecerror.MarkCapacityExceeded(err)
	}

	batchIdx := uint64(len(h.batches))
	h.batches = append(h.batches, b)
	for i := 0; i < n; i++ {
		if HasNullKey(b, i, h.keyCols) {
			continue
		}
		h.addresses = append(h.addresses, batchIdx<<32|uint64(i))
		h.hashes = append(h.hashes, RowHash(b, i, h.keyCols, h.hashChannel))
	}
	return nil
}

// Freeze builds the bucket chains. It is called exactly once, after the last
// Insert; the index is read-only afterwards and may be probed concurrently.
func (h *HashIndex) Freeze(ctx context.Context) error {
	if h.frozen {
		return errors.AssertionFailedf("hash index frozen twice")
	}
	numRows := uint64(len(h.addresses))
	numBuckets := uint64(1)
	if numRows > 1 {
		numBuckets = 1 << bits.Len64(numRows-1)
	}
	if err := h.acc.Grow(ctx, int64(numBuckets)*8); err != nil {
		return colexecerror.MarkCapacityExceeded(err)
	}
	h.first = make([]uint64, numBuckets)
	h.next = make([]uint64, numRows+1)
	h.mask = numBuckets - 1
	for id := uint64(1); id <= numRows; id++ {
		if err := h.cancelChecker.Check(ctx); err != nil {
			return err
		}
		// keyID is stored into corresponding hash bucket at the front of the
		// next chain.
		bucket := h.hashes[id-1] & h.mask
		h.next[id] = h.first[bucket]
		h.first[bucket] = id
	}
	h.frozen = true
	return nil
}

// IsFrozen returns whether Freeze succeeded.
func (h *HashIndex) IsFrozen() bool { return h.frozen }

// row returns the batch and the row position of keyID.
func (h *HashIndex) row(keyID uint64) (coldata.Batch, int) {
	addr := h.addresses[keyID-1]
	return h.batches[addr>>32], int(addr & (1<<32 - 1))
}

// FirstMatch returns the keyID of the first indexed row whose keys equal the
// keys of probe[row], or 0 if none does. hash must be the hash of the probe
// row's keys.
func (h *HashIndex) FirstMatch(
	probe coldata.Batch, row int, probeKeyCols []uint32, hash uint64,
) uint64 {
	if len(h.addresses) == 0 || HasNullKey(probe, row, probeKeyCols) {
		return 0
	}
	return h.findFrom(h.first[hash&h.mask], probe, row, probeKeyCols, hash)
}

// NextMatch returns the keyID of the next indexed row after prev that
// matches probe[row], or 0 if none does.
func (h *HashIndex) NextMatch(
	prev uint64, probe coldata.Batch, row int, probeKeyCols []uint32, hash uint64,
) uint64 {
	return h.findFrom(h.next[prev], probe, row, probeKeyCols, hash)
}

func (h *HashIndex) findFrom(
	keyID uint64, probe coldata.Batch, row int, probeKeyCols []uint32, hash uint64,
) uint64 {
	for ; keyID != 0; keyID = h.next[keyID] {
		if h.hashes[keyID-1] != hash {
			continue
		}
		if h.keysEqual(keyID, probe, row, probeKeyCols) {
			return keyID
		}
	}
	return 0
}

func (h *HashIndex) keysEqual(
	keyID uint64, probe coldata.Batch, probeRow int, probeKeyCols []uint32,
) bool {
	b, buildRow := h.row(keyID)
	for i, c := range h.keyCols {
		if !ValuesEqual(b.ColVec(int(c)), buildRow, probe.ColVec(int(probeKeyCols[i])), probeRow) {
			return false
		}
	}
	return true
}
