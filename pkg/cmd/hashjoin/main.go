// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// hashjoin runs the hash build-and-join benchmark on generated TPC-H data.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := makeHashJoinCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
