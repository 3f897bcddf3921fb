// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecbase

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/cockroachdb/redact"
)

// ProducerFn creates the batch producer of one driver's source operator.
type ProducerFn func(dctx *execctx.DriverContext) (colexecop.BatchProducer, error)

// sourceOp is the first operator of a pipeline with an external input. It
// never accepts input and pulls batches from its producer.
type sourceOp struct {
	colexecop.OperatorBase

	typs     []coltypes.T
	name     redact.SafeString
	producer colexecop.BatchProducer
	done     bool
}

var _ colexecop.Operator = &sourceOp{}

// NewSourceOpFactory returns the factory of source operators reading batches
// of the given types from producers created by producerFn. Errors returned
// by a producer are surfaced as UpstreamErrors naming the source.
func NewSourceOpFactory(
	operatorID int, name redact.SafeString, typs []coltypes.T, producerFn ProducerFn,
) colexecop.OperatorFactory {
	return colexecop.NewFuncFactory(operatorID, "source", typs, func(dctx *execctx.DriverContext) (colexecop.Operator, error) {
		producer, err := producerFn(dctx)
		if err != nil {
			return nil, colexecerror.WrapUpstream(err, name)
		}
		return &sourceOp{
			OperatorBase: colexecop.MakeOperatorBase(dctx, operatorID, "source"),
			typs:         typs,
			name:         name,
			producer:     producer,
		}, nil
	})
}

func (s *sourceOp) OutputTypes() []coltypes.T { return s.typs }

func (s *sourceOp) NeedsInput() bool { return false }

func (s *sourceOp) AddInput(context.Context, coldata.Batch) error {
	return errors.AssertionFailedf("source operator %d does not accept input", s.ID)
}

func (s *sourceOp) GetOutput(ctx context.Context) (coldata.Batch, error) {
	if s.done || s.Finishing() {
		return nil, nil
	}
	b, err := s.producer.NextBatch(ctx)
	if err != nil {
		s.done = true
		return nil, colexecerror.WrapUpstream(err, s.name)
	}
	if b == nil || b.Length() == 0 {
		s.done = true
		return nil, nil
	}
	if !coltypes.TypesEqual(b.Types(), s.typs) {
		s.done = true
		return nil, colexecerror.WrapUpstream(
			errors.Newf("batch types %v don't match declared types %v", b.Types(), s.typs), s.name)
	}
	s.Stats.RecordOutput(b.Length())
	return b, nil
}

func (s *sourceOp) IsFinished() bool { return s.done || s.Finishing() }

func (s *sourceOp) Close(context.Context) error {
	if !s.MarkClosed() {
		return nil
	}
	if c, ok := s.producer.(colexecop.Closer); ok {
		c.Close()
	}
	return nil
}

// ValuesProducer produces a fixed list of batches. It is safe to share
// between drivers only if each driver gets its own ValuesProducer.
type ValuesProducer struct {
	batches []coldata.Batch
	idx     int
}

var _ colexecop.BatchProducer = &ValuesProducer{}

// NewValuesProducer returns a producer of the given batches, in order.
func NewValuesProducer(batches ...coldata.Batch) *ValuesProducer {
	return &ValuesProducer{batches: batches}
}

// NextBatch implements the colexecop.BatchProducer interface.
func (p *ValuesProducer) NextBatch(ctx context.Context) (coldata.Batch, error) {
	for p.idx < len(p.batches) {
		b := p.batches[p.idx]
		p.idx++
		if b.Length() > 0 {
			return b, nil
		}
	}
	return coldata.ZeroBatch, nil
}

// ErrorProducer returns its batches, then fails with err.
type ErrorProducer struct {
	ValuesProducer
	err error
}

// NewErrorProducer returns a producer that fails with err after producing
// batches.
func NewErrorProducer(err error, batches ...coldata.Batch) *ErrorProducer {
	return &ErrorProducer{ValuesProducer: ValuesProducer{batches: batches}, err: err}
}

// NextBatch implements the colexecop.BatchProducer interface.
func (p *ErrorProducer) NextBatch(ctx context.Context) (coldata.Batch, error) {
	b, err := p.ValuesProducer.NextBatch(ctx)
	if err != nil || b.Length() > 0 {
		return b, err
	}
	return nil, p.err
}
