package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column. Numeric columns are right-aligned.
type column struct {
	title   string
	numeric bool
}

var (
	classifyColumns = []column{{title: "File"}, {title: "Category"}, {title: "Moves to"}}
	categoryColumns = []column{{title: "Category"}, {title: "Extensions"}, {title: "Directory"}}
	historyColumns  = []column{
		{title: "Time"},
		{title: "Outcome"},
		{title: "Category"},
		{title: "File"},
		{title: "Result"},
		{title: "Size", numeric: true},
	}
)

// renderTable lays rows out under cols. Short rows are padded; extra cells
// are dropped. A non-empty caption is printed under the table.
func renderTable(cols []column, rows [][]string, caption string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, col := range cols {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if col.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, cells := range rows {
		row := make(table.Row, len(cols))
		for i := range row {
			row[i] = ""
			if i < len(cells) {
				row[i] = cells[i]
			}
		}
		tw.AppendRow(row)
	}
	if caption != "" {
		tw.SetCaption("%s", caption)
	}
	return tw.Render()
}
