package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// wrapWidth bounds free-text columns (details, errors) so long tool
// messages wrap instead of stretching the table.
const wrapWidth = 72

// tableLayout names the columns that are right aligned (durations,
// counts) and the ones holding free text.
type tableLayout struct {
	right []int
	wrap  []int
}

// renderTable draws rows under headers. Short rows are padded with empty
// cells; column indexes in layout are zero based.
func renderTable(headers []string, rows [][]string, layout tableLayout) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	for _, i := range layout.right {
		if i >= 0 && i < len(configs) {
			configs[i].Align = text.AlignRight
		}
	}
	for _, i := range layout.wrap {
		if i >= 0 && i < len(configs) {
			configs[i].WidthMax = wrapWidth
			configs[i].WidthMaxEnforcer = text.WrapSoft
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
