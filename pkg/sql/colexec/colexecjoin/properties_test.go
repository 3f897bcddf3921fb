// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colexecjoin_test

import (
	"fmt"
	"sort"
	"testing"

	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/kr/pretty"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// nullKey stands for a NULL key in the generated inputs.
const nullKey = 0

func keyTuples(keys []int64) []coldata.Tuple {
	res := make([]coldata.Tuple, len(keys))
	for i, k := range keys {
		var key interface{} = k
		if k == nullKey {
			key = nil
		}
		res[i] = coldata.Tuple{key, int64(i)}
	}
	return res
}

// nestedLoopJoin returns the formatted rows of the inner join of probe and
// build on their keys, with the output layout of joinCase for pairs of
// Int64 columns.
func nestedLoopJoin(build, probe []int64) []string {
	var rows []string
	for pi, p := range probe {
		if p == nullKey {
			continue
		}
		for bi, b := range build {
			if b == p {
				rows = append(rows, fmt.Sprintf("[%d %d %d %d]", p, pi, b, bi))
			}
		}
	}
	sort.Strings(rows)
	return rows
}

func TestLookupJoinProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	keys := gen.SliceOf(gen.Int64Range(0, 6))
	properties.Property("matches a nested loop join", prop.ForAll(
		func(build, probe []int64, inputBatch, outputBatch int, hash bool) bool {
			if err := coldata.SetBatchSize(outputBatch); err != nil {
				t.Log(err)
				return false
			}
			defer coldata.ResetBatchSizeForTests()
			res, err := runJoin(joinCase{
				buildTypes: intPairTypes, probeTypes: intPairTypes,
				build: keyTuples(build), probe: keyTuples(probe),
				buildKeys: []uint32{0}, probeKeys: []uint32{0},
				inputBatchSize: inputBatch,
				hash:           hash,
			})
			if err != nil {
				t.Log(err)
				return false
			}
			for _, n := range res.batchLengths {
				if n > outputBatch {
					t.Logf("output batch of %d rows exceeds %d", n, outputBatch)
					return false
				}
			}
			expected := nestedLoopJoin(build, probe)
			if diff := pretty.Diff(expected, res.sortedRows()); len(diff) > 0 {
				t.Logf("build %v probe %v:\n%s", build, probe, pretty.Sprint(diff))
				return false
			}
			return true
		},
		keys,
		keys,
		gen.IntRange(1, 4),
		gen.IntRange(1, 5),
		gen.Bool(),
	))

	properties.Property("output is independent of precomputed hashes", prop.ForAll(
		func(build, probe []int64) bool {
			_, err := runJoinBothWays(joinCase{
				buildTypes: intPairTypes, probeTypes: intPairTypes,
				build: keyTuples(build), probe: keyTuples(probe),
				buildKeys: []uint32{0}, probeKeys: []uint32{0},
				inputBatchSize: 3,
			})
			if err != nil {
				t.Log(err)
				return false
			}
			return true
		},
		keys,
		keys,
	))

	properties.TestingRun(t)
}
