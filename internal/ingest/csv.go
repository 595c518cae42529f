package ingest

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/oregrid/facility-cli/internal/resilience"
)

// ParseCSV reads a CSV export into facility records. The first row must be a
// header; recognized columns are name, country, lat, lng, types, commodities,
// status, operator, owner, source, aliases.
func ParseCSV(path, defaultCountry string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(resilience.ErrStorage, "ingest: open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are handled per-field

	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(resilience.ErrInput, "ingest: parse csv %s: %v", path, err)
	}
	if len(rows) < 2 {
		return nil, errEmptyFile
	}

	return rowsToRecords(rows[0], rows[1:], defaultCountry, filepath.Base(path), 2), nil
}
