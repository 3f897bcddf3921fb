// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package tpch

import (
	"math"

	"github.com/apache/arrow/go/v11/arrow"
	"github.com/apache/arrow/go/v11/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/colarrow"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"golang.org/x/exp/rand"
)

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = 1

type config struct {
	scaleFactor float64
	seed        uint64
	numOrders   int64
	customers   int64
}

func makeConfig(scaleFactor float64, seed uint64) (config, error) {
	if scaleFactor <= 0 {
		return config{}, errors.Newf("scale factor must be positive, got %v", scaleFactor)
	}
	cfg := config{
		scaleFactor: scaleFactor,
		seed:        seed,
		numOrders:   int64(math.Round(scaleFactor * ordersPerScaleFactor)),
		customers:   int64(math.Round(scaleFactor * customersPerScaleFactor)),
	}
	if cfg.numOrders < 1 {
		cfg.numOrders = 1
	}
	if cfg.customers < 1 {
		cfg.customers = 1
	}
	return cfg, nil
}

// OrdersGenerator produces the rows of the orders table.
type OrdersGenerator struct {
	cfg config
}

// NewOrdersGenerator returns a generator of 1.5M orders per unit of
// scaleFactor.
func NewOrdersGenerator(scaleFactor float64, seed uint64) (*OrdersGenerator, error) {
	cfg, err := makeConfig(scaleFactor, seed)
	if err != nil {
		return nil, err
	}
	return &OrdersGenerator{cfg: cfg}, nil
}

// Table returns the orders schema.
func (g *OrdersGenerator) Table() Table { return Orders }

// NumOrders returns the number of rows the generator produces.
func (g *OrdersGenerator) NumOrders() int64 { return g.cfg.numOrders }

// NewRecordReader returns a reader producing records of at most batchSize
// rows holding the named columns, all of them if none are named.
func (g *OrdersGenerator) NewRecordReader(
	mem memory.Allocator, batchSize int, columns ...string,
) (*RecordReader, error) {
	ords, typs, err := Orders.Resolve(columns...)
	if err != nil {
		return nil, err
	}
	s := &ordersState{cfg: g.cfg, ords: ords, rng: rand.New(rand.NewSource(g.cfg.seed))}
	return newRecordReader(mem, Orders, ords, typs, batchSize, s.fill)
}

// NewProducer returns a batch producer over the named columns along with
// their types.
func (g *OrdersGenerator) NewProducer(
	batchSize int, columns ...string,
) (*colarrow.RecordProducer, []coltypes.T, error) {
	r, err := g.NewRecordReader(memory.DefaultAllocator, batchSize, columns...)
	if err != nil {
		return nil, nil, err
	}
	return colarrow.NewRecordProducer(r, r.typs), r.typs, nil
}

type ordersState struct {
	cfg  config
	ords []int
	rng  *rand.Rand
	next int64
	o    order
}

func (s *ordersState) fill(b *coldata.MemBatch, capacity int) int {
	n := 0
	for ; n < capacity && s.next < s.cfg.numOrders; n++ {
		makeOrder(s.rng, s.cfg.seed, s.cfg.customers, s.next, &s.o)
		s.next++
		for j, ord := range s.ords {
			vec := b.ColVec(j)
			switch ord {
			case 0:
				vec.Int64()[n] = s.o.key
			case 1:
				vec.Int64()[n] = s.o.custKey
			case 2:
				vec.Bytes()[n] = orderPriorities[s.o.priority]
			case 3:
				vec.Float64()[n] = float64(s.o.totalCents) / 100
			}
		}
	}
	return n
}

// LineItemGenerator produces the rows of the lineitem table. Its orderkeys
// are exactly those of the OrdersGenerator with the same scale factor and
// seed.
type LineItemGenerator struct {
	cfg config
}

// NewLineItemGenerator returns a generator of the line items of 1.5M orders
// per unit of scaleFactor, about 6M rows.
func NewLineItemGenerator(scaleFactor float64, seed uint64) (*LineItemGenerator, error) {
	cfg, err := makeConfig(scaleFactor, seed)
	if err != nil {
		return nil, err
	}
	return &LineItemGenerator{cfg: cfg}, nil
}

// Table returns the lineitem schema.
func (g *LineItemGenerator) Table() Table { return LineItem }

// NewRecordReader is like OrdersGenerator.NewRecordReader.
func (g *LineItemGenerator) NewRecordReader(
	mem memory.Allocator, batchSize int, columns ...string,
) (*RecordReader, error) {
	ords, typs, err := LineItem.Resolve(columns...)
	if err != nil {
		return nil, err
	}
	s := &lineItemState{cfg: g.cfg, ords: ords, rng: rand.New(rand.NewSource(g.cfg.seed))}
	return newRecordReader(mem, LineItem, ords, typs, batchSize, s.fill)
}

// NewProducer is like OrdersGenerator.NewProducer.
func (g *LineItemGenerator) NewProducer(
	batchSize int, columns ...string,
) (*colarrow.RecordProducer, []coltypes.T, error) {
	r, err := g.NewRecordReader(memory.DefaultAllocator, batchSize, columns...)
	if err != nil {
		return nil, nil, err
	}
	return colarrow.NewRecordProducer(r, r.typs), r.typs, nil
}

type lineItemState struct {
	cfg  config
	ords []int
	rng  *rand.Rand
	// next is the index of the next order to expand. line is the next line
	// of the current order o; it equals o.numLines when o is used up.
	next int64
	o    order
	line int
}

func (s *lineItemState) fill(b *coldata.MemBatch, capacity int) int {
	n := 0
	for n < capacity {
		if s.line == s.o.numLines {
			if s.next == s.cfg.numOrders {
				break
			}
			makeOrder(s.rng, s.cfg.seed, s.cfg.customers, s.next, &s.o)
			s.next++
			s.line = 0
		}
		l := &s.o.lines[s.line]
		for j, ord := range s.ords {
			vec := b.ColVec(j)
			switch ord {
			case 0:
				vec.Int64()[n] = s.o.key
			case 1:
				vec.Int64()[n] = int64(s.line + 1)
			case 2:
				vec.Int64()[n] = l.quantity
			case 3:
				vec.Float64()[n] = float64(l.extendedPriceCents()) / 100
			case 4:
				vec.Decimal()[n].SetFinite(l.discountPercent, -2)
			}
		}
		s.line++
		n++
	}
	return n
}

// RecordReader generates arrow records lazily. It satisfies
// colarrow.RecordIterator.
type RecordReader struct {
	mem       memory.Allocator
	schema    *arrow.Schema
	names     []string
	typs      []coltypes.T
	batchSize int
	fill      func(b *coldata.MemBatch, capacity int) int

	rec  arrow.Record
	err  error
	done bool
}

var _ colarrow.RecordIterator = (*RecordReader)(nil)

func newRecordReader(
	mem memory.Allocator,
	table Table,
	ords []int,
	typs []coltypes.T,
	batchSize int,
	fill func(b *coldata.MemBatch, capacity int) int,
) (*RecordReader, error) {
	if batchSize <= 0 {
		return nil, errors.Newf("batch size must be positive, got %d", batchSize)
	}
	names := make([]string, len(ords))
	for i, ord := range ords {
		names[i] = table.Columns[ord].Name
	}
	schema, err := colarrow.NewSchema(names, typs)
	if err != nil {
		return nil, err
	}
	return &RecordReader{
		mem:       mem,
		schema:    schema,
		names:     names,
		typs:      typs,
		batchSize: batchSize,
		fill:      fill,
	}, nil
}

// Schema returns the schema of the produced records.
func (r *RecordReader) Schema() *arrow.Schema { return r.schema }

// Types returns the column types of the produced records.
func (r *RecordReader) Types() []coltypes.T { return r.typs }

// Next generates the next record, releasing the previous one.
func (r *RecordReader) Next() bool {
	r.releaseRecord()
	if r.done {
		return false
	}
	b := coldata.NewMemBatchWithCapacity(r.typs, r.batchSize)
	n := r.fill(b, r.batchSize)
	if n == 0 {
		r.done = true
		return false
	}
	b.SetLength(n)
	rec, err := colarrow.BatchToRecord(r.mem, b, r.names)
	if err != nil {
		r.err = err
		r.done = true
		return false
	}
	r.rec = rec
	return true
}

// Record returns the current record. It is valid until the next call to
// Next or Release.
func (r *RecordReader) Record() arrow.Record { return r.rec }

// Err returns the error that stopped generation, if any.
func (r *RecordReader) Err() error { return r.err }

// Release releases the current record and stops generation.
func (r *RecordReader) Release() {
	r.releaseRecord()
	r.done = true
}

func (r *RecordReader) releaseRecord() {
	if r.rec != nil {
		r.rec.Release()
		r.rec = nil
	}
}
