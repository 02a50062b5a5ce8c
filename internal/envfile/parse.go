// Package envfile parses environment definition files.
//
// The syntax is a relaxed subset of bash variable assignment. Each assignment
// starts on a new line and is a name, an equal sign, and an optional value.
// White space around the name and the equal sign and at the end of the line
// is ignored. Leaving out the value unsets the variable; an empty quoted
// string sets it to the empty string.
//
// Values are built from any mix of unquoted text, double-quoted (") and
// triple double-quoted (""") strings, and single-quoted (') and triple
// single-quoted (''') strings. Unquoted and double-quoted text expands $name
// and ${name} and treats a backslash as an escape for the next character,
// including a newline. Single-quoted text is taken literally.
//
// A comment starts at an unquoted, unescaped # at the beginning of a line or
// after white space and runs to the end of the line.
//
//	assignment  ::= ws* name ws* "=" ws* value (ws+ comment)?
//	name        ::= (letter | "_") (letter | digit | "_")*
//	value       ::= (double-quoted | single-quoted | unquoted)*
//	comment     ::= "#" not-newline*
package envfile

import (
	"fmt"
	"strings"
)

// ParseError reports malformed input.
type ParseError struct {
	Line   int
	Column int
	Reason string
	// Text is the source line the error was found on.
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Reason)
}

type fragment struct {
	text       string
	expandable bool
	space      bool
}

// Assignment is one parsed NAME=VALUE line. The value is kept in fragments
// until it is expanded against an environment.
type Assignment struct {
	Name  string
	Line  int
	value []fragment
}

// Unset reports whether the assignment has no value and removes the variable.
func (a Assignment) Unset() bool {
	return len(a.value) == 0
}

// Expand returns the assignment value with substitutions resolved by lookup.
func (a Assignment) Expand(lookup Lookup) string {
	var b strings.Builder
	for _, f := range a.value {
		if f.expandable {
			b.WriteString(substitute(f.text, lookup))
		} else {
			b.WriteString(f.text)
		}
	}
	return b.String()
}

// Raw returns the assignment value without substitution.
func (a Assignment) Raw() string {
	var b strings.Builder
	for _, f := range a.value {
		b.WriteString(f.text)
	}
	return b.String()
}

// Parse returns the assignments in text in order. It stops at the first
// malformed line and returns a *ParseError.
func Parse(text string) ([]Assignment, error) {
	p := &parser{text: text, toks: tokenize(text)}
	return p.parse()
}

type parser struct {
	text string
	toks []token
	pos  int
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	tok := p.toks[p.pos]
	p.pos++
	return tok, true
}

func (p *parser) parse() ([]Assignment, error) {
	var out []Assignment
	comment := false
	for {
		tok, ok := p.next()
		if !ok {
			return out, nil
		}
		switch {
		case tok.kind == tokNewline:
			comment = false
		case comment:
			if tok.escapesNewline() {
				comment = false
			}
		case tok.kind == tokComment:
			comment = true
		case tok.kind == tokSpace:
		case tok.kind == tokText && isName(tok.value):
			value, err := p.assignment(tok)
			if err != nil {
				return nil, err
			}
			out = append(out, Assignment{Name: tok.value, Line: tok.line, value: value})
		default:
			return nil, p.errorAt(tok.line, tok.col, "expected a variable assignment or comment")
		}
	}
}

func (p *parser) assignment(name token) ([]fragment, error) {
	line, col := name.line, name.col+len(name.value)
	for {
		tok, ok := p.next()
		if !ok {
			return nil, p.errorAt(line, col, "expected '=' after variable name")
		}
		switch tok.kind {
		case tokSpace:
			col = tok.col + len(tok.value)
		case tokAssign:
			return p.value()
		default:
			return nil, p.errorAt(tok.line, tok.col, "expected '=' after variable name")
		}
	}
}

func (p *parser) value() ([]fragment, error) {
	var frags []fragment
	comment := false
loop:
	for {
		tok, ok := p.next()
		if !ok || tok.kind == tokNewline {
			break
		}
		if comment {
			// An escaped newline cannot continue a comment.
			if tok.escapesNewline() {
				break loop
			}
			continue
		}
		switch tok.kind {
		case tokComment:
			if n := len(frags); n > 0 && frags[n-1].space {
				comment = true
			} else {
				frags = append(frags, fragment{text: tok.value})
			}
		case tokSpace:
			frags = append(frags, fragment{text: tok.value, space: true})
		case tokAssign:
			frags = append(frags, fragment{text: tok.value})
		case tokText:
			frags = append(frags, fragment{text: tok.value, expandable: true})
		case tokDQuote, tokSQuote:
			quoted, err := p.quoted(tok)
			if err != nil {
				return nil, err
			}
			frags = append(frags, quoted...)
		case tokEscape:
			if tok.dangling() {
				return nil, p.errorAt(tok.line, tok.col, "unterminated escape sequence")
			}
			frags = append(frags, fragment{text: tok.value[1:]})
		}
	}
	for len(frags) > 0 && frags[0].space {
		frags = frags[1:]
	}
	for len(frags) > 0 && frags[len(frags)-1].space {
		frags = frags[:len(frags)-1]
	}
	return frags, nil
}

func (p *parser) quoted(open token) ([]fragment, error) {
	var frags []fragment
	single := open.kind == tokSQuote
	for {
		tok, ok := p.next()
		if !ok {
			return nil, p.errorAt(open.line, open.col, "expected a matching end quote")
		}
		switch {
		case tok.kind == open.kind && tok.value == open.value:
			if len(frags) == 0 {
				frags = append(frags, fragment{})
			}
			return frags, nil
		case tok.kind == tokEscape && single:
			// \' ends a single-quoted string, leaving the backslash behind.
			if tok.value[1:] == open.value {
				return append(frags, fragment{text: `\`}), nil
			}
			frags = append(frags, fragment{text: tok.value})
		case tok.kind == tokEscape:
			if tok.dangling() {
				return nil, p.errorAt(tok.line, tok.col, "unterminated escape sequence")
			}
			frags = append(frags, fragment{text: tok.value[1:]})
		default:
			frags = append(frags, fragment{text: tok.value, expandable: !single})
		}
	}
}

func (p *parser) errorAt(line, col int, reason string) *ParseError {
	text := ""
	if lines := strings.SplitAfter(p.text, "\n"); line-1 < len(lines) {
		text = strings.TrimRight(lines[line-1], "\n")
	}
	return &ParseError{Line: line, Column: col, Reason: reason, Text: text}
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
