// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecop

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/redact"
)

// FuncFactory is an OperatorFactory whose operators are created by a
// function. It is the factory of every operator that shares no state between
// drivers.
type FuncFactory struct {
	id          int
	name        redact.SafeString
	outputTypes []coltypes.T
	create      func(dctx *execctx.DriverContext) (Operator, error)
	closed      atomic.Bool
}

var _ OperatorFactory = &FuncFactory{}

// NewFuncFactory returns a factory of operators created by create.
func NewFuncFactory(
	operatorID int,
	name redact.SafeString,
	outputTypes []coltypes.T,
	create func(dctx *execctx.DriverContext) (Operator, error),
) *FuncFactory {
	return &FuncFactory{id: operatorID, name: name, outputTypes: outputTypes, create: create}
}

// OperatorID implements the OperatorFactory interface.
func (f *FuncFactory) OperatorID() int { return f.id }

// Name implements the OperatorFactory interface.
func (f *FuncFactory) Name() redact.SafeString { return f.name }

// OutputTypes implements the OperatorFactory interface.
func (f *FuncFactory) OutputTypes() []coltypes.T { return f.outputTypes }

// CreateOperator implements the OperatorFactory interface.
func (f *FuncFactory) CreateOperator(dctx *execctx.DriverContext) (Operator, error) {
	if f.closed.Load() {
		return nil, errors.AssertionFailedf("operator %d created after NoMoreOperators", f.id)
	}
	return f.create(dctx)
}

// NoMoreOperators implements the OperatorFactory interface.
func (f *FuncFactory) NoMoreOperators() { f.closed.Store(true) }
