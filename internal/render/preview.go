package render

import (
	"time"

	"github.com/salmonumbrella/csvnotes/internal/hierarchy"
	"github.com/salmonumbrella/csvnotes/internal/table"
)

// exampleTable builds a one-row table with placeholder values for every
// structure and data column.
func exampleTable(structure, dataColumns []string) *table.Table {
	columns := append(append([]string(nil), structure...), dataColumns...)
	cells := make([]table.Value, 0, len(columns))
	for _, col := range structure {
		cells = append(cells, table.String("Example_"+col+"_Value"))
	}
	for _, col := range dataColumns {
		cells = append(cells, table.String("Sample "+col+" data"))
	}
	return &table.Table{
		Name:    "example",
		Columns: columns,
		Rows:    []table.Row{table.NewRow(columns, cells)},
	}
}

// PreviewJSON renders the JSON document a one-row file with these columns
// would produce. An empty structure previews as "{}".
func PreviewJSON(structure, dataColumns []string, now time.Time) (string, error) {
	if len(structure) == 0 {
		return "{}\n", nil
	}
	res, err := hierarchy.Build(exampleTable(structure, dataColumns), hierarchy.Config{
		SourceFile: "example",
		Structure:  structure,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		return "", err
	}
	data, err := JSON(res)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PreviewMarkdown renders the note a one-row file with these columns would
// produce in format f.
func PreviewMarkdown(structure, dataColumns []string, f Format, now time.Time) Note {
	tbl := exampleTable(structure, dataColumns)
	notes := Notes(tbl, NotesConfig{
		SourceFile:  "example.csv",
		Structure:   structure,
		DataColumns: dataColumns,
		Format:      f,
		Generated:   now,
	})
	return notes[0]
}
