package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LoadCSV reads call records from a CSV file with a header row.
func LoadCSV(path string) ([]CallRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	return readCSV(f)
}

func readCSV(r io.Reader) ([]CallRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // exports often have ragged trailing cells

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var out []CallRecord
	skipped := 0
	for rowNum := 1; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", rowNum, err)
		}
		rec, ok := buildRecord(cols, rowNum, row)
		if !ok {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	if skipped > 0 {
		slog.Warn("skipped rows without transcripts", "count", skipped)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable call records found")
	}
	return out, nil
}
