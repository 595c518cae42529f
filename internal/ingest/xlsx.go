package ingest

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/oregrid/facility-cli/internal/resilience"
)

// ParseXLSX reads the first sheet of an XLSX workbook into facility records.
// The first row must be a header, same columns as ParseCSV.
func ParseXLSX(path, defaultCountry string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(resilience.ErrInput, "ingest: open xlsx %s: %v", path, err)
	}
	if len(f.Sheets) == 0 {
		return nil, errEmptyFile
	}

	sheet := f.Sheets[0]
	var rows [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	if len(rows) < 2 {
		return nil, errEmptyFile
	}

	return rowsToRecords(rows[0], rows[1:], defaultCountry, filepath.Base(path), 2), nil
}
