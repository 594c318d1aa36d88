package simplejson

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/txn2/dremio-simplejson/pkg/sqlguard"
)

// Time range macros recognised in target SQL.
const (
	MacroTimeFrom = "$__timeFrom"
	MacroTimeTo   = "$__timeTo"
)

// isoMillis matches the millisecond ISO-8601 form dashboards send.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ErrUnknownTarget is returned for a target name that is not in the catalog.
var ErrUnknownTarget = errors.New("unknown target")

// Target is a named, allow-listed query.
type Target struct {
	Name string
	SQL  string
}

// TimeRange is the dashboard time range of a query request.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// WithDefault fills each unset bound of r from def.
func (r TimeRange) WithDefault(def TimeRange) TimeRange {
	if r.From.IsZero() {
		r.From = def.From
	}
	if r.To.IsZero() {
		r.To = def.To
	}
	return r
}

// DayRange returns the range from the start of now's day to 23:59:59 of
// the same day, in now's location.
func DayRange(now time.Time) TimeRange {
	y, m, d := now.Date()
	return TimeRange{
		From: time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		To:   time.Date(y, m, d, 23, 59, 59, 0, now.Location()),
	}
}

// Catalog maps dashboard target names to read-only SQL. Only names present
// in the catalog can reach the engine.
type Catalog struct {
	sql   map[string]string
	names []string
}

// NewCatalog builds a catalog from targets. A target without SQL selects
// every column from the table path named like the target. Every statement
// must be a single read-only statement.
func NewCatalog(targets []Target) (*Catalog, error) {
	c := &Catalog{sql: make(map[string]string, len(targets))}
	for _, t := range targets {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, errors.New("target name is required")
		}
		if _, dup := c.sql[name]; dup {
			return nil, fmt.Errorf("duplicate target %q", name)
		}

		stmt := strings.TrimSpace(t.SQL)
		if stmt == "" {
			stmt = "SELECT * FROM " + quotePath(name)
		}
		if err := sqlguard.CheckReadOnly(stmt); err != nil {
			return nil, fmt.Errorf("target %q: %w", name, err)
		}

		c.sql[name] = stmt
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)
	return c, nil
}

// Names returns the target names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// SQL returns the statement for name with time macros expanded from r.
func (c *Catalog) SQL(name string, r TimeRange) (string, error) {
	stmt, ok := c.sql[name]
	if !ok {
		return "", ErrUnknownTarget
	}
	return strings.NewReplacer(
		MacroTimeFrom, quoteTime(r.From),
		MacroTimeTo, quoteTime(r.To),
	).Replace(stmt), nil
}

func quoteTime(t time.Time) string {
	return "'" + t.UTC().Format(isoMillis) + "'"
}

// quotePath quotes each dot-separated part of a table path.
func quotePath(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = sqlguard.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
