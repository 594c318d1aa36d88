package simplejson

import (
	"strings"

	"github.com/txn2/dremio-simplejson/pkg/engine"
)

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Range   TimeRange   `json:"range"`
	Targets []TargetRef `json:"targets"`
}

// TargetRef names one dashboard target.
type TargetRef struct {
	Target string `json:"target"`
	RefID  string `json:"refId,omitempty"`
	Type   string `json:"type,omitempty"`
}

// targetNames returns the non-empty target names in request order.
func (q QueryRequest) targetNames() []string {
	var names []string
	for _, t := range q.Targets {
		if name := strings.TrimSpace(t.Target); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Table is one table response of the Simple JSON protocol.
type Table struct {
	Columns []TableColumn `json:"columns"`
	Rows    [][]any       `json:"rows"`
	Type    string        `json:"type"`
}

// TableColumn is a table column header.
type TableColumn struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// NewTable converts a result set into a table, keeping column order.
func NewTable(rs *engine.ResultSet) Table {
	cols := make([]TableColumn, len(rs.Columns))
	for i, c := range rs.Columns {
		cols[i] = TableColumn{Text: c.Name, Type: columnType(c.Type)}
	}
	return Table{Columns: cols, Rows: rs.Values(), Type: "table"}
}

// columnType maps an engine SQL type to a dashboard column type. Unknown
// types map to "" so the dashboard infers them.
func columnType(sqlType string) string {
	switch strings.ToUpper(sqlType) {
	case "BIGINT", "INTEGER", "INT", "SMALLINT", "TINYINT", "DOUBLE", "FLOAT", "DECIMAL":
		return "number"
	case "TIMESTAMP", "DATE", "TIME":
		return "time"
	case "VARCHAR", "CHAR", "CHARACTER VARYING":
		return "string"
	case "BOOLEAN":
		return "boolean"
	default:
		return ""
	}
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

