package dataset

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads call records from the first sheet of an Excel workbook.
func LoadXLSX(path string) ([]CallRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	var out []CallRecord
	skipped := 0
	for rowNum, row := range rows[1:] {
		rec, ok := buildRecord(cols, rowNum+1, row)
		if !ok {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	if skipped > 0 {
		slog.Warn("skipped rows without transcripts", "count", skipped, "sheet", sheets[0])
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable call records found in sheet %q", sheets[0])
	}
	return out, nil
}
