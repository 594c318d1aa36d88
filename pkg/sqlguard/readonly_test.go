package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckReadOnly(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{name: "select", sql: `SELECT * FROM "user_status"`},
		{name: "trailing semicolon", sql: "SELECT 1;"},
		{name: "cte", sql: "WITH x AS (SELECT 1) SELECT * FROM x"},
		{name: "leading comment", sql: "-- daily\nSELECT 1"},
		{name: "keyword inside literal", sql: "SELECT * FROM t WHERE note = 'drop table'"},
		{name: "keyword as quoted identifier", sql: `SELECT "update" FROM t`},
		{name: "empty", sql: "  ", wantErr: ErrEmptyStatement},
		{name: "only semicolons", sql: ";;", wantErr: ErrEmptyStatement},
		{name: "delete", sql: "DELETE FROM t", wantErr: ErrNotReadOnly},
		{name: "commented write", sql: "/* x */ DROP TABLE t", wantErr: ErrNotReadOnly},
		{name: "write inside cte", sql: "WITH x AS (DELETE FROM t) SELECT 1", wantErr: ErrNotReadOnly},
		{name: "stacked statements", sql: "SELECT 1; SELECT 2", wantErr: ErrMultipleStatement},
		{name: "stacked write", sql: "SELECT 1; DROP TABLE t", wantErr: ErrMultipleStatement},
		{name: "quoted first token", sql: `"select" 1`, wantErr: ErrNotReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReadOnly(tt.sql)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckReadOnly_NamesReadKeywords(t *testing.T) {
	err := CheckReadOnly("MERGE INTO t USING s ON t.id = s.id")
	assert.ErrorIs(t, err, ErrNotReadOnly)
	assert.EqualError(t, err,
		`statement is not read-only: must start with one of DESCRIBE, EXPLAIN, SELECT, SHOW, VALUES, WITH, got "MERGE"`)

	for _, sql := range []string{"VALUES (1)", "SHOW TABLES", "DESCRIBE t", "EXPLAIN PLAN FOR SELECT 1"} {
		assert.NoError(t, CheckReadOnly(sql), sql)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"user_status"`, QuoteIdentifier("user_status"))
	assert.Equal(t, `"a""b"`, QuoteIdentifier(`a"b`))

	quoted := QuoteIdentifier(`x"; DROP TABLE t; --`)
	assert.Equal(t, `"x""; DROP TABLE t; --"`, quoted)
	assert.NoError(t, CheckReadOnly("SELECT * FROM "+quoted), "quoted input must stay a single identifier")
}
