/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package karl

import (
	"strconv"
	"strings"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokString
	tokIdent
	tokSysCall // #ident
	tokPunct
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  Position
}

// multi-character punctuation, longest match first; single characters fall
// through to the default one-rune token.
var multiPunct = []string{
	"==", "!=", "<=", ">=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=",
	"++", "--", "=>", ";>",
}

// tokenize turns KaRL source into a flat token stream: a single loop that
// switches on the current rune and consumes one whole token per case
// (whitespace, comments, numbers, strings, #syscalls, identifiers,
// punctuation), for KaRL's C-like punctuation instead of s-expression parens.
func tokenize(src string) ([]token, error) {
	var toks []token
	line, col := 1, 0
	runes := []rune(src)
	n := len(runes)
	i := 0

	advance := func() rune {
		ch := runes[i]
		i++
		if ch == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		return ch
	}
	peekAt := func(off int) rune {
		if i+off >= n {
			return 0
		}
		return runes[i+off]
	}

	for i < n {
		startPos := Position{line, col + 1}
		ch := runes[i]

		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			advance()
			continue
		case ch == '/' && peekAt(1) == '/':
			for i < n && runes[i] != '\n' {
				advance()
			}
			continue
		case ch == '/' && peekAt(1) == '*':
			advance()
			advance()
			for i < n && !(runes[i] == '*' && peekAt(1) == '/') {
				advance()
			}
			if i < n {
				advance()
				advance()
			}
			continue
		case ch >= '0' && ch <= '9', ch == '.' && peekAt(1) >= '0' && peekAt(1) <= '9':
			start := i
			for i < n && (runes[i] >= '0' && runes[i] <= '9' || runes[i] == '.') {
				advance()
			}
			text := string(runes[start:i])
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errAt(startPos, "invalid number literal %q", text)
			}
			toks = append(toks, token{kind: tokNumber, num: f, text: text, pos: startPos})
		case ch == '"':
			advance() // opening quote
			var b strings.Builder
			for i < n && runes[i] != '"' {
				c := advance()
				if c == '\\' && i < n {
					esc := advance()
					switch esc {
					case 'n':
						b.WriteByte('\n')
					case 't':
						b.WriteByte('\t')
					case 'r':
						b.WriteByte('\r')
					case '"':
						b.WriteByte('"')
					case '\\':
						b.WriteByte('\\')
					default:
						b.WriteRune(esc)
					}
					continue
				}
				b.WriteRune(c)
			}
			if i >= n {
				return nil, errAt(startPos, "unterminated string literal")
			}
			advance() // closing quote
			toks = append(toks, token{kind: tokString, text: b.String(), pos: startPos})
		case ch == '#':
			advance()
			start := i
			for i < n && isIdentRune(runes[i]) {
				advance()
			}
			if i == start {
				return nil, errAt(startPos, "expected identifier after '#'")
			}
			toks = append(toks, token{kind: tokSysCall, text: string(runes[start:i]), pos: startPos})
		case isIdentStart(ch):
			start := i
			for i < n && isIdentRune(runes[i]) {
				advance()
			}
			toks = append(toks, token{kind: tokIdent, text: string(runes[start:i]), pos: startPos})
		default:
			matched := false
			for _, p := range multiPunct {
				if matchesAt(runes, i, p) {
					for range p {
						advance()
					}
					toks = append(toks, token{kind: tokPunct, text: p, pos: startPos})
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			advance()
			toks = append(toks, token{kind: tokPunct, text: string(ch), pos: startPos})
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: Position{line, col + 1}})
	return toks, nil
}

func isIdentStart(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '.'
}
func isIdentRune(ch rune) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
func matchesAt(runes []rune, i int, s string) bool {
	for off, c := range s {
		if i+off >= len(runes) || runes[i+off] != c {
			return false
		}
	}
	return true
}
