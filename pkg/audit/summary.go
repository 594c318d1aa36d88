package audit

import (
	"context"
	"time"
)

// Dimension is an event column runs can be grouped by.
type Dimension string

// Supported summary dimensions.
const (
	DimensionTarget    Dimension = "target"
	DimensionUser      Dimension = "user_id"
	DimensionErrorKind Dimension = "error_kind"
)

// Valid reports whether d names a groupable column.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionTarget, DimensionUser, DimensionErrorKind:
		return true
	}
	return false
}

// SummaryFilter selects the window and grouping of a summary. A nil bound
// defaults to the last 24 hours.
type SummaryFilter struct {
	GroupBy   Dimension
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
}

// SummaryEntry aggregates the runs sharing one dimension value.
type SummaryEntry struct {
	Key           string  `json:"key"`
	Runs          int     `json:"runs"`
	Failures      int     `json:"failures"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	MaxDurationMS int64   `json:"max_duration_ms"`
	Rows          int64   `json:"rows"`
}

// Summarizer aggregates recorded events.
type Summarizer interface {
	Summarize(ctx context.Context, filter SummaryFilter) ([]SummaryEntry, error)
}
