package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"chordscout/internal/cloud"
	"chordscout/internal/history"
)

func newTableWriter(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}

// jobsTable renders the job ledger listing, newest first as given.
func jobsTable(records []*history.Record) string {
	tw := newTableWriter(table.Row{"Job", "Video", "State", "Segment", "Submitted"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})
	for _, record := range records {
		segment := "-"
		if record.HasSegment {
			segment = fmt.Sprintf("%.1fs-%.1fs", record.SegmentStart, record.SegmentEnd)
		}
		tw.AppendRow(table.Row{
			record.JobID,
			record.VideoID,
			record.State,
			segment,
			record.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return tw.Render()
}

// cloudTable renders the capability report with services in name order.
func cloudTable(report cloud.Report) string {
	names := make([]string, 0, len(report.Services))
	for name := range report.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := newTableWriter(table.Row{"Service", "Enabled", "Healthy", "Error"})
	for _, name := range names {
		status := report.Services[name]
		tw.AppendRow(table.Row{
			displayName(name),
			yesNo(status.Enabled),
			yesNo(status.Healthy),
			status.Error,
		})
	}
	return tw.Render()
}
