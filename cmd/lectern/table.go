package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable draws rows under headers in go-pretty's rounded style. Column
// indexes listed in numeric are right aligned; short rows are padded.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	width := len(headers)
	if width == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(tableRow(headers, width))
	for _, row := range rows {
		tw.AppendRow(tableRow(row, width))
	}

	configs := make([]table.ColumnConfig, 0, len(numeric))
	for _, col := range numeric {
		if col < 0 || col >= width {
			continue
		}
		configs = append(configs, table.ColumnConfig{
			Number:      col + 1,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func tableRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
