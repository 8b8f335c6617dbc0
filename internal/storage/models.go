package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Analysis statuses.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// Analysis is one finished batch run. SnapshotJSON holds the serialized
// stats.Snapshot for completed runs and is empty for aborted ones. Only
// final results are persisted; per-item intermediate state never is.
type Analysis struct {
	ID           string
	CreatedAt    time.Time
	Source       string // dataset file name or API caller label
	Status       string
	TotalCalls   int
	SnapshotJSON string
}
