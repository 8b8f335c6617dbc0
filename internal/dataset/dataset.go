// Package dataset loads transcribed call records from tabular exports.
// CSV and XLSX are supported; columns are resolved by header heuristics
// because call-center exports rarely agree on naming.
package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// CallRecord is one transcribed customer-service call awaiting enrichment.
// Records are immutable inputs and their order is significant.
type CallRecord struct {
	ID              string  `json:"id"`
	Customer        string  `json:"customer,omitempty"`
	Transcript      string  `json:"transcript"`
	CallReason      string  `json:"call_reason,omitempty"`
	IssuesDiscussed string  `json:"issues_discussed,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Load reads records from path, picking the loader by file extension.
func Load(path string) ([]CallRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

// columns maps a header row to field indexes. -1 means the column is absent.
type columns struct {
	id       int
	customer int
	text     int
	reason   int
	issues   int
	duration int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{id: -1, customer: -1, text: -1, reason: -1, issues: -1, duration: -1}
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case cols.text == -1 && strings.Contains(l, "transcript"):
			cols.text = i
		case cols.reason == -1 && strings.Contains(l, "reason"):
			cols.reason = i
		case cols.issues == -1 && strings.Contains(l, "issue"):
			cols.issues = i
		case cols.duration == -1 && (strings.Contains(l, "duration") || strings.Contains(l, "length")):
			cols.duration = i
		case cols.customer == -1 && (strings.Contains(l, "customer") || strings.Contains(l, "caller") || strings.Contains(l, "member")):
			cols.customer = i
		case cols.id == -1 && (l == "id" || strings.Contains(l, "call id") || strings.Contains(l, "callid") || strings.HasSuffix(l, "_id")):
			cols.id = i
		}
	}
	if cols.text == -1 {
		return cols, fmt.Errorf("no transcript column found in header %v", header)
	}
	return cols, nil
}

// buildRecord converts one data row. Rows with an empty transcript are
// invalid and reported by the callers as skipped.
func buildRecord(cols columns, rowNum int, row []string) (CallRecord, bool) {
	cell := func(idx int) string {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	rec := CallRecord{
		ID:              cell(cols.id),
		Customer:        cell(cols.customer),
		Transcript:      cell(cols.text),
		CallReason:      cell(cols.reason),
		IssuesDiscussed: cell(cols.issues),
	}
	if rec.Transcript == "" {
		return CallRecord{}, false
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("row-%d", rowNum)
	}
	if d := cell(cols.duration); d != "" {
		if v, err := strconv.ParseFloat(d, 64); err == nil && v >= 0 {
			rec.DurationSeconds = v
		}
	}
	return rec, true
}
