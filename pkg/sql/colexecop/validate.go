// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecop

import (
	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/redact"
)

// CheckColumns returns a ConfigurationError if any of cols is not a valid
// position in typs.
func CheckColumns(typs []coltypes.T, cols []uint32, what redact.SafeString) error {
	for _, c := range cols {
		if int(c) >= len(typs) {
			return colexecerror.NewConfigurationErrorf(
				"%s column %d out of range for %d input columns", what, c, len(typs))
		}
	}
	return nil
}

// CheckHashColumn returns a ConfigurationError unless idx is a valid Int64
// column of typs.
func CheckHashColumn(typs []coltypes.T, idx uint32) error {
	if int(idx) >= len(typs) {
		return colexecerror.NewConfigurationErrorf(
			"hash column %d out of range for %d input columns", idx, len(typs))
	}
	if typs[idx] != coltypes.Int64 {
		return colexecerror.NewConfigurationErrorf(
			"hash column %d has type %s, expected %s", idx, typs[idx], coltypes.Int64)
	}
	return nil
}

// ProjectTypes returns the types of cols in typs, or a copy of typs if cols
// is nil.
func ProjectTypes(typs []coltypes.T, cols []uint32) []coltypes.T {
	if cols == nil {
		return append([]coltypes.T(nil), typs...)
	}
	res := make([]coltypes.T, len(cols))
	for i, c := range cols {
		res[i] = typs[c]
	}
	return res
}
