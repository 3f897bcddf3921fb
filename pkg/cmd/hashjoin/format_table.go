// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/hashjoin/pkg/sql/execctx"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

var statsColumns = []string{
	"pipeline", "driver", "operator", "in rows", "in batches", "out rows", "out batches", "wall", "blocked",
}

// writeStatsTable renders one row per operator of stats. The driver columns
// are only filled on the first operator of each driver.
func writeStatsTable(w io.Writer, stats execctx.TaskStats) {
	fmt.Fprintf(w, "task %d: %s, max memory %s\n",
		stats.TaskID, stats.Elapsed.Round(time.Microsecond), humanize.IBytes(uint64(stats.MaxMemory)))
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(statsColumns)
	for _, p := range stats.Pipelines {
		for _, d := range p.Drivers {
			for i, o := range d.Operators {
				row := make([]string, 0, len(statsColumns))
				if i == 0 {
					row = append(row,
						strconv.Itoa(p.PipelineID), strconv.Itoa(d.DriverID))
				} else {
					row = append(row, "", "")
				}
				row = append(row,
					fmt.Sprintf("%d %s", o.OperatorID, o.OperatorType),
					humanize.Comma(o.InputRows), strconv.FormatInt(o.InputBatches, 10),
					humanize.Comma(o.OutputRows), strconv.FormatInt(o.OutputBatches, 10),
				)
				if i == 0 {
					row = append(row,
						d.WallTime.Round(time.Microsecond).String(),
						d.BlockedTime.Round(time.Microsecond).String())
				} else {
					row = append(row, "", "")
				}
				table.Append(row)
			}
		}
	}
	table.Render()
}
