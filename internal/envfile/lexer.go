package envfile

import (
	"strings"
	"unicode/utf8"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokEscape
	tokAssign
	tokComment
	tokDQuote
	tokSQuote
	tokNewline
	tokSpace
)

func (k tokenKind) String() string {
	switch k {
	case tokEscape:
		return "ESCAPE"
	case tokAssign:
		return "ASSIGN"
	case tokComment:
		return "COMMENT"
	case tokDQuote:
		return "DQUOTE"
	case tokSQuote:
		return "SQUOTE"
	case tokNewline:
		return "NEWLINE"
	case tokSpace:
		return "WS"
	default:
		return "TEXT"
	}
}

type token struct {
	kind  tokenKind
	value string
	line  int
	col   int
}

// dangling reports whether an escape token has no character to escape.
func (t token) dangling() bool {
	return t.kind == tokEscape && len(t.value) == 1
}

// escapesNewline reports whether t is a backslash-newline pair.
func (t token) escapesNewline() bool {
	return t.kind == tokEscape && t.value == "\\\n"
}

const spaceChars = " \t\r\f\v"

func isSpace(c byte) bool {
	return strings.IndexByte(spaceChars, c) >= 0
}

func isSpecial(c byte) bool {
	switch c {
	case '\\', '=', '#', '"', '\'', '\n':
		return true
	}
	return isSpace(c)
}

// tokenize splits text into tokens. Every byte of text belongs to exactly
// one token, so joining the token values reproduces the input.
func tokenize(text string) []token {
	var toks []token
	line, lineStart := 1, 0
	for i := 0; i < len(text); {
		start := i
		var kind tokenKind
		switch c := text[i]; {
		case c == '\\':
			kind = tokEscape
			i++
			if i < len(text) {
				_, size := utf8.DecodeRuneInString(text[i:])
				i += size
			}
		case c == '=':
			kind = tokAssign
			i++
		case c == '#':
			kind = tokComment
			i++
		case c == '"':
			kind = tokDQuote
			i += quoteLen(text[i:], `"""`)
		case c == '\'':
			kind = tokSQuote
			i += quoteLen(text[i:], `'''`)
		case c == '\n':
			kind = tokNewline
			i++
		case isSpace(c):
			kind = tokSpace
			for i < len(text) && isSpace(text[i]) {
				i++
			}
		default:
			kind = tokText
			for i < len(text) && !isSpecial(text[i]) {
				i++
			}
		}
		value := text[start:i]
		toks = append(toks, token{kind: kind, value: value, line: line, col: start - lineStart + 1})
		for j := start; j < i; j++ {
			if text[j] == '\n' {
				line++
				lineStart = j + 1
			}
		}
	}
	return toks
}

func quoteLen(s, triple string) int {
	if strings.HasPrefix(s, triple) {
		return len(triple)
	}
	return 1
}
