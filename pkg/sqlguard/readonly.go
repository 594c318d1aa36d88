package sqlguard

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Errors returned by CheckReadOnly.
var (
	ErrEmptyStatement    = errors.New("empty SQL statement")
	ErrMultipleStatement = errors.New("multiple SQL statements are not allowed")
	ErrNotReadOnly       = errors.New("statement is not read-only")
)

// readKeywords may start a read-only statement.
var readKeywords = map[string]bool{
	"select":   true,
	"with":     true,
	"values":   true,
	"show":     true,
	"describe": true,
	"explain":  true,
}

// readKeywordList names readKeywords in error messages.
var readKeywordList = func() string {
	kws := make([]string, 0, len(readKeywords))
	for kw := range readKeywords {
		kws = append(kws, strings.ToUpper(kw))
	}
	slices.Sort(kws)
	return strings.Join(kws, ", ")
}()

// writeKeywords indicate a data or schema modification anywhere in a statement.
var writeKeywords = map[string]bool{
	"insert":   true,
	"update":   true,
	"delete":   true,
	"drop":     true,
	"create":   true,
	"alter":    true,
	"truncate": true,
	"grant":    true,
	"revoke":   true,
	"merge":    true,
	"call":     true,
	"execute":  true,
	"refresh":  true,
	"optimize": true,
	"vacuum":   true,
}

// CheckReadOnly returns an error unless sql is a single read-only statement.
// A trailing semicolon is allowed. Quoted identifiers named like keywords
// (for example "update") are not treated as keywords.
func CheckReadOnly(sql string) error {
	toks := tokenize(sql)
	for len(toks) > 0 && toks[len(toks)-1].kind == tokSemicolon {
		toks = toks[:len(toks)-1]
	}
	if len(toks) == 0 {
		return ErrEmptyStatement
	}

	first := toks[0]
	if first.kind != tokBare || !readKeywords[strings.ToLower(first.text)] {
		return fmt.Errorf("%w: must start with one of %s, got %q", ErrNotReadOnly, readKeywordList, first.text)
	}

	for _, t := range toks {
		switch t.kind {
		case tokSemicolon:
			return ErrMultipleStatement
		case tokBare:
			if kw := strings.ToLower(t.text); writeKeywords[kw] {
				return fmt.Errorf("%w: contains %s", ErrNotReadOnly, strings.ToUpper(kw))
			}
		}
	}
	return nil
}

// QuoteIdentifier double-quotes name, escaping embedded quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
