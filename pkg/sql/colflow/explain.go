// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package colflow

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/hashjoin/pkg/col/coltypes"
)

// ExplainPipelines renders the operator chains of the pipelines of a task,
// one line per operator, in the order batches flow through them.
func ExplainPipelines(pipelines ...*DriverFactory) string {
	var buf strings.Builder
	for i, p := range pipelines {
		var flags []string
		if p.HasInput() {
			flags = append(flags, "input")
		}
		if p.IsOutput() {
			flags = append(flags, "output")
		}
		fmt.Fprintf(&buf, "pipeline %d", i)
		if len(flags) > 0 {
			fmt.Fprintf(&buf, " (%s)", strings.Join(flags, ", "))
		}
		buf.WriteString("\n")
		for j, f := range p.Factories() {
			connector := "├──"
			if j == len(p.Factories())-1 {
				connector = "└──"
			}
			fmt.Fprintf(&buf, " %s %d %s", connector, f.OperatorID(), f.Name())
			if typs := f.OutputTypes(); len(typs) > 0 {
				fmt.Fprintf(&buf, " %s", formatTypes(typs))
			}
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

func formatTypes(typs []coltypes.T) string {
	names := make([]string, len(typs))
	for i, t := range typs {
		names[i] = t.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}
