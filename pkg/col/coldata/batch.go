// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package coldata

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
)

// Batch is the type that columnar operators receive and produce. It
// represents a set of column vectors (partial data columns) as well as
// metadata about a batch, like its length.
//
// A Batch is immutable once it has been handed to another operator: the
// consumer may retain it (e.g. in a hash table) for as long as it wishes.
type Batch interface {
	// Length returns the number of values in the columns in the batch.
	Length() int
	// Width returns the number of columns in the batch.
	Width() int
	// ColVec returns the ith Vec in this batch.
	ColVec(i int) Vec
	// ColVecs returns all of the underlying Vecs in this batch.
	ColVecs() []Vec
	// Types returns the types of the columns, in order.
	Types() []coltypes.T
	// String returns a pretty representation of this batch.
	String() string
}

var _ Batch = &MemBatch{}

// defaultBatchSize is the size of batches that is used in the non-test
// setting.
const defaultBatchSize = 1024

// MaxBatchSize is the maximum acceptable size of batches.
const MaxBatchSize = 4096

var batchSize int64 = defaultBatchSize

// BatchSize is the maximum number of tuples that fit in a column batch.
func BatchSize() int {
	return int(atomic.LoadInt64(&batchSize))
}

// SetBatchSize sets the maximum number of tuples that operators put into
// batches they produce. It must be called before any operator is created.
func SetBatchSize(size int) error {
	if size < 1 || size > MaxBatchSize {
		return errors.Newf("batch size %d is out of range [1, %d]", size, MaxBatchSize)
	}
	atomic.StoreInt64(&batchSize, int64(size))
	return nil
}

// ResetBatchSizeForTests resets the batch size to the default value.
func ResetBatchSizeForTests() {
	atomic.StoreInt64(&batchSize, defaultBatchSize)
}

// MemBatch is an in-memory implementation of Batch.
type MemBatch struct {
	length int
	typs   []coltypes.T
	b      []Vec
}

// NewMemBatchWithCapacity allocates a new in-memory Batch with the given
// column types and capacity. The length is zero until SetLength is called by
// the producer.
func NewMemBatchWithCapacity(typs []coltypes.T, capacity int) *MemBatch {
	b := &MemBatch{typs: typs, b: make([]Vec, len(typs))}
	for i, t := range typs {
		b.b[i] = NewMemColumn(t, capacity)
	}
	return b
}

// NewBatchWithVecs creates a batch over already populated vectors. Vectors
// are shared, not copied, so this is the way to derive a batch from another
// one without copying data.
func NewBatchWithVecs(vecs []Vec, length int) *MemBatch {
	typs := make([]coltypes.T, len(vecs))
	for i := range vecs {
		typs[i] = vecs[i].Type()
	}
	return &MemBatch{length: length, typs: typs, b: vecs}
}

// Length implements the Batch interface.
func (m *MemBatch) Length() int { return m.length }

// Width implements the Batch interface.
func (m *MemBatch) Width() int { return len(m.b) }

// ColVec implements the Batch interface.
func (m *MemBatch) ColVec(i int) Vec { return m.b[i] }

// ColVecs implements the Batch interface.
func (m *MemBatch) ColVecs() []Vec { return m.b }

// Types implements the Batch interface.
func (m *MemBatch) Types() []coltypes.T { return m.typs }

// SetLength sets the length of the batch. It may only be called by the
// producer before the batch is handed off.
func (m *MemBatch) SetLength(n int) {
	m.length = n
}

// String implements the Batch interface.
func (m *MemBatch) String() string {
	if m.length == 0 {
		return "[zero-length batch]"
	}
	var buf strings.Builder
	for i := 0; i < m.length; i++ {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(FormatRow(m, i))
	}
	return buf.String()
}

// FormatRow returns the string representation of row i of b, e.g.
// "[1 'a' NULL]".
func FormatRow(b Batch, i int) string {
	var buf strings.Builder
	buf.WriteByte('[')
	for j := 0; j < b.Width(); j++ {
		if j > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(FormatValue(b.ColVec(j).Get(i)))
	}
	buf.WriteByte(']')
	return buf.String()
}

// FormatValue formats a value returned by Vec.Get.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("'%s'", t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// EstimatedSize returns the number of bytes retained by the batch's vectors.
func EstimatedSize(b Batch) int64 {
	var size int64
	for _, v := range b.ColVecs() {
		size += v.Size()
	}
	return size
}

// zeroBatch is a schema-less Batch of length 0.
type zeroBatch struct{}

// ZeroBatch is a schema-less Batch of length 0. Producers return it to signal
// that they are exhausted.
var ZeroBatch Batch = &zeroBatch{}

func (*zeroBatch) Length() int { return 0 }

func (*zeroBatch) Width() int { return 0 }

func (*zeroBatch) ColVec(int) Vec {
	panic(errors.AssertionFailedf("ColVec should not be called on zeroBatch"))
}

func (*zeroBatch) ColVecs() []Vec { return nil }

func (*zeroBatch) Types() []coltypes.T { return nil }

func (*zeroBatch) String() string { return "[zero-length batch]" }
