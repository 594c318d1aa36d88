package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	bare := func(s string) token { return token{kind: tokBare, text: s} }
	quoted := func(s string) token { return token{kind: tokQuoted, text: s} }
	semi := token{kind: tokSemicolon, text: ";"}

	tests := []struct {
		name string
		sql  string
		want []token
	}{
		{
			name: "simple select",
			sql:  "SELECT id FROM user_status WHERE id > 30",
			want: []token{bare("SELECT"), bare("id"), bare("FROM"), bare("user_status"), bare("WHERE"), bare("id")},
		},
		{
			name: "string literal with escaped quote",
			sql:  "SELECT * FROM t WHERE name = 'John O''Brien; DROP'",
			want: []token{bare("SELECT"), bare("FROM"), bare("t"), bare("WHERE"), bare("name")},
		},
		{
			name: "quoted path",
			sql:  `SELECT * FROM ConexaoOpa.suite."user_status"`,
			want: []token{bare("SELECT"), bare("FROM"), bare("ConexaoOpa"), bare("suite"), quoted("user_status")},
		},
		{
			name: "escaped double quote",
			sql:  `SELECT "a""b" FROM t`,
			want: []token{bare("SELECT"), quoted(`a"b`), bare("FROM"), bare("t")},
		},
		{
			name: "comments",
			sql:  "SELECT a -- hidden;\nFROM t /* secret; */",
			want: []token{bare("SELECT"), bare("a"), bare("FROM"), bare("t")},
		},
		{
			name: "unterminated block comment",
			sql:  "SELECT a /* never closed",
			want: []token{bare("SELECT"), bare("a")},
		},
		{
			name: "separators",
			sql:  "SELECT 1; SELECT 2;",
			want: []token{bare("SELECT"), semi, bare("SELECT"), semi},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.sql))
		})
	}
}
