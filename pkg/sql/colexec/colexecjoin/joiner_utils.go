// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecjoin

import (
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexec/colexechash"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecop"
	"github.com/cockroachdb/redact"
)

// checkInputSide validates the key, hash and output columns of one join
// input, returning a ConfigurationError on the first problem.
func checkInputSide(
	side redact.SafeString,
	typs []coltypes.T,
	keyCols []uint32,
	hashChannel colexechash.HashChannel,
	outputCols []uint32,
) error {
	if len(keyCols) == 0 {
		return colexecerror.NewConfigurationErrorf("%s side has no key columns", side)
	}
	if err := colexecop.CheckColumns(typs, keyCols, side+" key"); err != nil {
		return err
	}
	if err := colexecop.CheckColumns(typs, outputCols, side+" output"); err != nil {
		return err
	}
	if hashChannel.Valid {
		if err := colexecop.CheckHashColumn(typs, hashChannel.Idx); err != nil {
			return err
		}
		for _, c := range outputCols {
			if c == hashChannel.Idx {
				return colexecerror.NewConfigurationErrorf(
					"%s output column %d is the hash column", side, c)
			}
		}
	}
	return nil
}

// defaultOutputCols returns every column of an input of width n except the
// hash column, so that the output schema does not depend on whether hashes
// are precomputed.
func defaultOutputCols(n int, hashChannel colexechash.HashChannel) []uint32 {
	cols := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		if hashChannel.Valid && uint32(i) == hashChannel.Idx {
			continue
		}
		cols = append(cols, uint32(i))
	}
	return cols
}

// checkKeyTypes returns a ConfigurationError unless the probe key columns
// are join-comparable with the build key types.
func checkKeyTypes(buildKeyTypes []coltypes.T, probeTypes []coltypes.T, probeKeyCols []uint32) error {
	if len(buildKeyTypes) != len(probeKeyCols) {
		return colexecerror.NewConfigurationErrorf(
			"join has %d build key columns and %d probe key columns",
			len(buildKeyTypes), len(probeKeyCols))
	}
	for i, c := range probeKeyCols {
		if probeTypes[c] != buildKeyTypes[i] {
			return colexecerror.NewConfigurationErrorf(
				"join key %d has build type %s and probe type %s",
				i, buildKeyTypes[i], probeTypes[c])
		}
	}
	return nil
}
