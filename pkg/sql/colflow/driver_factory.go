// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colflow

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
)

// DriverFactory is the template of a pipeline: the ordered operator
// factories of a chain plus its flags. Every driver it creates owns fresh
// operators; state shared between drivers lives in the factories.
type DriverFactory struct {
	hasInput  bool
	isOutput  bool
	factories []colexecop.OperatorFactory
	closed    atomic.Bool
}

// NewDriverFactory validates the chain and returns its factory. hasInput
// indicates that the first operator reads an external source, isOutput that
// the pipeline's sink is the task's output.
func NewDriverFactory(
	hasInput, isOutput bool, factories ...colexecop.OperatorFactory,
) (*DriverFactory, error) {
	if len(factories) == 0 {
		return nil, colexecerror.NewConfigurationErrorf("pipeline has no operators")
	}
	seen := make(map[int]struct{}, len(factories))
	for _, f := range factories {
		if _, ok := seen[f.OperatorID()]; ok {
			return nil, colexecerror.NewConfigurationErrorf(
				"duplicate operator id %d in pipeline", f.OperatorID())
		}
		seen[f.OperatorID()] = struct{}{}
	}
	return &DriverFactory{hasInput: hasInput, isOutput: isOutput, factories: factories}, nil
}

// HasInput returns whether the pipeline reads an external source.
func (f *DriverFactory) HasInput() bool { return f.hasInput }

// IsOutput returns whether the pipeline is the task's terminal pipeline.
func (f *DriverFactory) IsOutput() bool { return f.isOutput }

// Factories returns the operator factories of the chain.
func (f *DriverFactory) Factories() []colexecop.OperatorFactory { return f.factories }

// CreateDriver instantiates the chain for one driver. If any operator cannot
// be created, the already created ones are closed.
func (f *DriverFactory) CreateDriver(dctx *execctx.DriverContext) (*Driver, error) {
	if f.closed.Load() {
		return nil, errors.AssertionFailedf("driver created after NoMoreDrivers")
	}
	ops := make([]colexecop.Operator, 0, len(f.factories))
	for _, factory := range f.factories {
		op, err := factory.CreateOperator(dctx)
		if err != nil {
			for _, created := range ops {
				_ = created.Close(dctx.Ctx())
			}
			dctx.Close()
			return nil, err
		}
		ops = append(ops, op)
	}
	return NewDriver(dctx, ops)
}

// NoMoreDrivers signals that no more drivers will be created, which is
// passed on to every operator factory.
func (f *DriverFactory) NoMoreDrivers() {
	if !f.closed.CompareAndSwap(false, true) {
		return
	}
	for _, factory := range f.factories {
		factory.NoMoreOperators()
	}
}
