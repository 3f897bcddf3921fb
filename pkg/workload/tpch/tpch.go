// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package tpch generates the orders and lineitem tables of TPC-H, restricted
// to the columns the join benchmarks read. Generation is deterministic: the
// same scale factor and seed always produce the same rows, and the lineitem
// rows of an order always add up to the order's totalprice.
package tpch

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"golang.org/x/exp/rand"
)

const (
	ordersPerScaleFactor    = 1_500_000
	customersPerScaleFactor = 150_000

	minLinesPerOrder = 1
	maxLinesPerOrder = 7

	minQuantity = 1
	maxQuantity = 50

	// Part retail prices, in cents.
	minRetailPriceCents = 90_000
	maxRetailPriceCents = 209_899

	maxDiscountPercent = 10
)

var orderPriorities = [...][]byte{
	[]byte("1-URGENT"), []byte("2-HIGH"), []byte("3-MEDIUM"), []byte("4-NOT SPECIFIED"), []byte("5-LOW"),
}

// Column is a column of a generated table.
type Column struct {
	Name string
	Type coltypes.T
}

// Table describes a generated table.
type Table struct {
	Name    string
	Columns []Column
}

// Orders is the schema of the orders table.
var Orders = Table{
	Name: "orders",
	Columns: []Column{
		{Name: "orderkey", Type: coltypes.Int64},
		{Name: "custkey", Type: coltypes.Int64},
		{Name: "orderpriority", Type: coltypes.Bytes},
		{Name: "totalprice", Type: coltypes.Float64},
	},
}

// LineItem is the schema of the lineitem table.
var LineItem = Table{
	Name: "lineitem",
	Columns: []Column{
		{Name: "orderkey", Type: coltypes.Int64},
		{Name: "linenumber", Type: coltypes.Int64},
		{Name: "quantity", Type: coltypes.Int64},
		{Name: "extendedprice", Type: coltypes.Float64},
		{Name: "discount", Type: coltypes.Decimal},
	},
}

// Resolve returns the ordinals and types of the named columns. No names
// resolves to every column.
func (t Table) Resolve(names ...string) (ords []int, typs []coltypes.T, _ error) {
	if len(names) == 0 {
		for i, c := range t.Columns {
			ords = append(ords, i)
			typs = append(typs, c.Type)
		}
		return ords, typs, nil
	}
	for _, name := range names {
		ord := -1
		for i, c := range t.Columns {
			if c.Name == name {
				ord = i
				break
			}
		}
		if ord < 0 {
			return nil, nil, errors.Newf("table %s has no column %q", errors.Safe(t.Name), name)
		}
		ords = append(ords, ord)
		typs = append(typs, t.Columns[ord].Type)
	}
	return ords, typs, nil
}

// orderKey returns the key of the i-th order. Keys are sparse, as in dbgen:
// only the first 8 of every 32 keys are used.
func orderKey(i int64) int64 {
	return (i/8)*32 + i%8 + 1
}

type lineItem struct {
	quantity        int64
	retailCents     int64
	discountPercent int64
}

func (l *lineItem) extendedPriceCents() int64 {
	return l.quantity * l.retailCents
}

type order struct {
	key      int64
	custKey  int64
	priority int
	lines    [maxLinesPerOrder]lineItem
	numLines int
	// totalCents is the sum of the discounted extended prices.
	totalCents int64
}

// orderSeed derives the seed of the i-th order so that orders can be
// regenerated independently by the orders and lineitem generators.
func orderSeed(seed uint64, i int64) uint64 {
	return seed ^ (uint64(i)+1)*0x9e3779b97f4a7c15
}

func randInt(rng *rand.Rand, min, max int64) int64 {
	return rng.Int63n(max-min+1) + min
}

// makeOrder fills o with the i-th order.
func makeOrder(rng *rand.Rand, seed uint64, numCustomers int64, i int64, o *order) {
	rng.Seed(orderSeed(seed, i))
	o.key = orderKey(i)
	o.custKey = randInt(rng, 1, numCustomers)
	o.priority = rng.Intn(len(orderPriorities))
	o.numLines = int(randInt(rng, minLinesPerOrder, maxLinesPerOrder))
	o.totalCents = 0
	for j := 0; j < o.numLines; j++ {
		l := &o.lines[j]
		l.quantity = randInt(rng, minQuantity, maxQuantity)
		l.retailCents = randInt(rng, minRetailPriceCents, maxRetailPriceCents)
		l.discountPercent = randInt(rng, 0, maxDiscountPercent)
		o.totalCents += l.extendedPriceCents() * (100 - l.discountPercent) / 100
	}
}
