package pipeline

import (
	"time"

	"salesdw/internal/dataset"
)

// TableSummary reports what happened to one dataset.
type TableSummary struct {
	Dataset dataset.Kind
	Table   string

	// Read counts parsed rows; Skipped counts malformed source lines.
	Read    int
	Skipped int

	CoercionFailures int
	Duplicates       int
	Invalid          int

	// Dropped lists dataset columns absent from the target table.
	Dropped []string
	Deleted int64
	Loaded  int64
}

// Summary reports a run.
type Summary struct {
	RunID   string
	Started time.Time
	Elapsed time.Duration
	Tables  []TableSummary
}

// Table returns the summary of kind, if it was processed.
func (s *Summary) Table(kind dataset.Kind) (TableSummary, bool) {
	for _, t := range s.Tables {
		if t.Dataset == kind {
			return t, true
		}
	}
	return TableSummary{}, false
}

// Loaded sums loaded rows across tables.
func (s *Summary) Loaded() int64 {
	var n int64
	for _, t := range s.Tables {
		n += t.Loaded
	}
	return n
}
