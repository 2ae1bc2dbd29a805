package table

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads a worksheet from an xlsx workbook. An empty sheet name
// selects the first sheet. The first row is the header, as with Parse.
func ReadXLSX(data []byte, sheet string, opts Options) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmpty
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	tbl, err := FromRecords(rows[0], rows[1:], opts)
	if err != nil {
		return nil, err
	}
	tbl.Name = sheet
	return tbl, nil
}
