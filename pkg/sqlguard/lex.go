// Package sqlguard inspects SQL text lexically: it rejects statements that
// could modify data and quotes identifiers for generated SQL.
package sqlguard

import "strings"

type tokenKind int

const (
	tokBare tokenKind = iota
	tokQuoted
	tokSemicolon
)

type token struct {
	kind tokenKind
	text string
}

// scanner walks SQL text one byte at a time.
type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

// peek returns the byte at pos+off, or 0 past the end.
func (s *scanner) peek(off int) byte {
	if i := s.pos + off; i < len(s.src) {
		return s.src[i]
	}
	return 0
}

// tokenize returns the barewords, double-quoted identifiers and statement
// separators of sql. String literals and comments produce no tokens.
func tokenize(sql string) []token {
	s := &scanner{src: sql}
	var toks []token
	for !s.done() {
		switch c := s.peek(0); {
		case c == '\'':
			s.quoted('\'')
		case c == '"':
			if id := s.quoted('"'); id != "" {
				toks = append(toks, token{kind: tokQuoted, text: id})
			}
		case c == ';':
			s.pos++
			toks = append(toks, token{kind: tokSemicolon, text: ";"})
		case c == '-' && s.peek(1) == '-':
			s.lineComment()
		case c == '/' && s.peek(1) == '*':
			s.blockComment()
		case identStart(c):
			toks = append(toks, token{kind: tokBare, text: s.word()})
		default:
			s.pos++
		}
	}
	return toks
}

// quoted consumes a q-delimited run starting at the opening quote and
// returns its content. A doubled delimiter is an escaped one. An
// unterminated run extends to the end of input.
func (s *scanner) quoted(q byte) string {
	s.pos++
	var b strings.Builder
	for !s.done() {
		c := s.peek(0)
		s.pos++
		if c != q {
			b.WriteByte(c)
			continue
		}
		if s.peek(0) != q {
			return b.String()
		}
		b.WriteByte(q)
		s.pos++
	}
	return b.String()
}

func (s *scanner) lineComment() {
	for !s.done() && s.peek(0) != '\n' {
		s.pos++
	}
}

func (s *scanner) blockComment() {
	end := strings.Index(s.src[s.pos+2:], "*/")
	if end < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += 2 + end + 2
}

func (s *scanner) word() string {
	start := s.pos
	for !s.done() && identPart(s.peek(0)) {
		s.pos++
	}
	return s.src[start:s.pos]
}

func identStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func identPart(c byte) bool {
	return identStart(c) || ('0' <= c && c <= '9')
}
