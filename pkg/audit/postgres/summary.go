package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

const (
	defaultSummaryWindow = 24 * time.Hour
	defaultSummaryLimit  = 10
	maxSummaryLimit      = 100

	// noValue labels runs whose dimension column is empty.
	noValue = "(none)"
)

// Summarize groups runs in the filter window by one dimension, busiest
// first.
func (s *Store) Summarize(ctx context.Context, filter audit.SummaryFilter) ([]audit.SummaryEntry, error) {
	if !filter.GroupBy.Valid() {
		return nil, fmt.Errorf("unsupported summary dimension %q", filter.GroupBy)
	}
	start, end := s.window(filter.StartTime, filter.EndTime)

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSummaryLimit
	}
	limit = min(limit, maxSummaryLimit)

	// GroupBy is one of the Dimension constants, never caller text.
	key := fmt.Sprintf("COALESCE(NULLIF(%s, ''), '%s') AS dimension", filter.GroupBy, noValue)

	query, args, err := psq.Select(
		key,
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE NOT success)",
		"COALESCE(AVG(duration_ms), 0)",
		"COALESCE(MAX(duration_ms), 0)",
		"COALESCE(SUM(row_count), 0)",
	).
		From(tableName).
		Where(sq.And{sq.GtOrEq{"timestamp": start}, sq.LtOrEq{"timestamp": end}}).
		GroupBy("dimension").
		OrderBy("COUNT(*) DESC", "dimension").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit summary: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []audit.SummaryEntry{}
	for rows.Next() {
		var e audit.SummaryEntry
		if err := rows.Scan(&e.Key, &e.Runs, &e.Failures, &e.AvgDurationMS, &e.MaxDurationMS, &e.Rows); err != nil {
			return nil, fmt.Errorf("scanning audit summary: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit summary: %w", err)
	}
	return entries, nil
}

// window fills missing bounds: end defaults to now, start to a day before end.
func (s *Store) window(from, to *time.Time) (time.Time, time.Time) {
	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.Add(-defaultSummaryWindow)
	if from != nil {
		start = *from
	}
	return start, end
}

var _ audit.Summarizer = (*Store)(nil)
