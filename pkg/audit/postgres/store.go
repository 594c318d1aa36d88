// Package postgres stores query audit events in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/txn2/dremio-simplejson/pkg/audit"
)

const (
	defaultRetentionDays = 30
	tableName            = "query_audit_logs"

	// pageCap bounds the slice preallocation for a single Query call.
	pageCap = 500
)

var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// auditColumns is the insert and scan order. It must match eventValues and
// scanEvent.
var auditColumns = []string{
	"id", "timestamp", "duration_ms", "request_id", "user_id", "target",
	"sql_text", "job_id", "row_count", "success", "error_kind", "error_message",
}

// Config configures a Store.
type Config struct {
	// RetentionDays is how long events are kept (default 30).
	RetentionDays int

	// Now returns the current time (default time.Now).
	Now func() time.Time
}

// Store is an audit.Logger backed by the query_audit_logs table.
type Store struct {
	db        *sql.DB
	retention time.Duration
	now       func() time.Time

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New returns a Store over an already migrated database.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = defaultRetentionDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		db:        db,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		now:       cfg.Now,
	}
}

// Log inserts one event.
func (s *Store) Log(ctx context.Context, event audit.Event) error {
	query, args, err := psq.Insert(tableName).
		Columns(auditColumns...).
		Values(eventValues(event)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event %s: %w", event.ID, err)
	}
	return nil
}

// Query returns events matching filter, newest first.
func (s *Store) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	qb := psq.Select(auditColumns...).
		From(tableName).
		Where(filterConditions(filter)).
		OrderBy("timestamp DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]audit.Event, 0, min(max(filter.Limit, 0), pageCap))
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading audit events: %w", err)
	}
	return events, nil
}

// filterConditions turns a filter into a conjunction; an empty filter
// matches every row.
func filterConditions(filter audit.QueryFilter) sq.And {
	conds := sq.And{}
	if filter.StartTime != nil {
		conds = append(conds, sq.GtOrEq{"timestamp": *filter.StartTime})
	}
	if filter.EndTime != nil {
		conds = append(conds, sq.LtOrEq{"timestamp": *filter.EndTime})
	}
	if filter.UserID != "" {
		conds = append(conds, sq.Eq{"user_id": filter.UserID})
	}
	if filter.Target != "" {
		conds = append(conds, sq.Eq{"target": filter.Target})
	}
	if filter.Success != nil {
		conds = append(conds, sq.Eq{"success": *filter.Success})
	}
	return conds
}

func eventValues(e audit.Event) []any {
	return []any{
		e.ID, e.Timestamp, e.DurationMS, e.RequestID, e.UserID, e.Target,
		e.SQL, e.JobID, e.RowCount, e.Success, e.ErrorKind, e.ErrorMessage,
	}
}

func scanEvent(rows *sql.Rows) (audit.Event, error) {
	var e audit.Event
	err := rows.Scan(
		&e.ID, &e.Timestamp, &e.DurationMS, &e.RequestID, &e.UserID, &e.Target,
		&e.SQL, &e.JobID, &e.RowCount, &e.Success, &e.ErrorKind, &e.ErrorMessage,
	)
	if err != nil {
		return audit.Event{}, fmt.Errorf("scanning audit event: %w", err)
	}
	return e, nil
}

// Purge deletes events older than the retention window and reports how
// many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention)
	query, args, err := psq.Delete(tableName).Where(sq.Lt{"timestamp": cutoff}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building audit purge: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purging audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging audit events: %w", err)
	}
	return n, nil
}

// StartRetention purges expired events every interval until Close.
// Calling it more than once has no effect.
func (s *Store) StartRetention(interval time.Duration) {
	if s.stop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.Purge(ctx)
				if err != nil {
					slog.Warn("audit purge failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Debug("audit events purged", "count", n)
				}
			}
		}
	}()
}

// Close stops the retention loop, if running. The database handle is owned
// by the caller.
func (s *Store) Close() error {
	if s.stop != nil {
		s.stop()
	}
	s.wg.Wait()
	return nil
}

var _ audit.Logger = (*Store)(nil)
