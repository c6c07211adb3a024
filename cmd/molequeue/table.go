package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable renders rows under headers. rightCols lists 1-based column
// numbers to right-align; molequeue only right-aligns numeric columns, so
// everything else stays left-aligned.
func renderTable(headers []string, rows [][]string, rightCols ...int) string {
	if len(headers) == 0 {
		return ""
	}

	right := make(map[int]bool, len(rightCols))
	for _, col := range rightCols {
		right[col] = true
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	configs := make([]table.ColumnConfig, len(headers))
	for i, h := range headers {
		header[i] = h
		align := text.AlignLeft
		if right[i+1] {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	return tw.Render()
}
