// Copyright 2024 The EURE Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scanner implements a lossless tokenizer for EURE source text: every
// byte of the input is accounted for by some token, including whitespace,
// newlines, and comments, so the parser can thread them into the CST as
// trivia nodes rather than discarding them. Unlike a scanner for a language
// with automatic statement termination, Scan never skips or merges trivia on
// the caller's behalf — one call returns exactly one token.
package scanner

import (
	"unicode"
	"unicode/utf8"

	"eure.sh/eure/cst"
	"eure.sh/eure/errors"
	"eure.sh/eure/token"
)

// A Scanner holds the scanner's internal state while processing a given
// text. It can be allocated as part of another data structure but must be
// initialized via Init before use.
type Scanner struct {
	file *token.File
	src  []byte
	err  ErrorHandler

	ch       rune
	offset   int
	rdOffset int

	ErrorCount int
}

// ErrorHandler receives a position and message for each lexical error
// encountered; it may be nil to suppress reporting.
type ErrorHandler func(pos token.Pos, msg string)

const bom = 0xFEFF

// Init prepares s to tokenize src, whose length must equal file.Size().
func (s *Scanner) Init(file *token.File, src []byte, err ErrorHandler) {
	s.file = file
	s.src = src
	s.err = err
	s.ch = ' '
	s.offset = 0
	s.rdOffset = 0
	s.ErrorCount = 0

	s.next()
	if s.ch == bom {
		s.next()
	}
}

func (s *Scanner) next() {
	if s.rdOffset < len(s.src) {
		s.offset = s.rdOffset
		r, w := rune(s.src[s.rdOffset]), 1
		if r >= utf8.RuneSelf {
			r, w = utf8.DecodeRune(s.src[s.rdOffset:])
			if r == utf8.RuneError && w == 1 {
				s.error(s.offset, "illegal UTF-8 encoding")
			}
		}
		s.rdOffset += w
		s.ch = r
	} else {
		s.offset = len(s.src)
		s.ch = -1
	}
}

// peekByte returns the byte at the read offset (the one following the
// current character) without consuming it, or 0 at end of input.
func (s *Scanner) peekByte() byte {
	if s.rdOffset < len(s.src) {
		return s.src[s.rdOffset]
	}
	return 0
}

func (s *Scanner) error(offs int, msg string) {
	if s.err != nil {
		s.err(s.file.Pos(offs), msg)
	}
	s.ErrorCount++
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch >= utf8.RuneSelf && unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9' || ch >= utf8.RuneSelf && unicode.IsDigit(ch)
}

func (s *Scanner) scanIdentifier() string {
	offs := s.offset
	for isLetter(s.ch) || isDigit(s.ch) {
		s.next()
	}
	return string(s.src[offs:s.offset])
}

func keywordKind(lit string) (cst.TerminalKind, bool) {
	switch lit {
	case "true":
		return cst.TerminalTrue, true
	case "false":
		return cst.TerminalFalse, true
	case "null":
		return cst.TerminalNull, true
	case "inf":
		return cst.TerminalInf, true
	case "nan":
		return cst.TerminalNan, true
	}
	return cst.TerminalUnknown, false
}

func digitVal(ch rune) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch - '0')
	case 'a' <= ch && ch <= 'f':
		return int(ch - 'a' + 10)
	case 'A' <= ch && ch <= 'F':
		return int(ch - 'A' + 10)
	}
	return 16
}

func (s *Scanner) scanMantissa(base int) {
	for digitVal(s.ch) < base || s.ch == '_' {
		s.next()
	}
}

// scanNumber scans an integer or float literal starting at the current
// character (a digit, or '.' followed by a digit when fromDot is set).
func (s *Scanner) scanNumber(fromDot bool) (cst.TerminalKind, string) {
	offs := s.offset
	kind := cst.TerminalInteger
	if fromDot {
		offs--
		kind = cst.TerminalFloat
		s.scanMantissa(10)
		goto exponent
	}

	if s.ch == '0' && (s.peekByte() == 'x' || s.peekByte() == 'X') {
		s.next()
		s.next()
		s.scanMantissa(16)
		goto exit
	}
	if s.ch == '0' && s.peekByte() == 'b' {
		s.next()
		s.next()
		s.scanMantissa(2)
		goto exit
	}
	if s.ch == '0' && s.peekByte() == 'o' {
		s.next()
		s.next()
		s.scanMantissa(8)
		goto exit
	}

	s.scanMantissa(10)
	if s.ch == '.' {
		if p := s.offset + 1; p < len(s.src) && s.src[p] == '.' {
			// a following '..' means this '.' begins a range, not a fraction
			goto exit
		}
		kind = cst.TerminalFloat
		s.next()
		s.scanMantissa(10)
	}

exponent:
	if s.ch == 'e' || s.ch == 'E' {
		kind = cst.TerminalFloat
		s.next()
		if s.ch == '-' || s.ch == '+' {
			s.next()
		}
		s.scanMantissa(10)
	}

exit:
	return kind, string(s.src[offs:s.offset])
}

// scanEscape consumes one escape sequence after a backslash. It assumes s.ch
// is the character right after the backslash.
func (s *Scanner) scanEscape(quote rune) {
	switch s.ch {
	case 'a', 'b', 'f', 'n', 'r', 't', 'v', '\\', quote:
		s.next()
		return
	case 'x':
		s.next()
		for i := 0; i < 2 && digitVal(s.ch) < 16; i++ {
			s.next()
		}
		return
	case 'u':
		s.next()
		for i := 0; i < 4 && digitVal(s.ch) < 16; i++ {
			s.next()
		}
		return
	case 'U':
		s.next()
		for i := 0; i < 8 && digitVal(s.ch) < 16; i++ {
			s.next()
		}
		return
	default:
		s.error(s.offset, "unknown escape sequence")
	}
}

// scanString scans a single- or double-quoted string literal, supporting
// the doubled-quote empty-string form ("" / '') and backslash escapes. The
// opening quote has not yet been consumed.
func (s *Scanner) scanString() string {
	quote := s.ch
	offs := s.offset
	s.next() // consume opening quote
	for {
		if s.ch == quote {
			s.next()
			break
		}
		if s.ch < 0 || s.ch == '\n' {
			s.error(offs, "string literal not terminated")
			break
		}
		if s.ch == '\\' {
			s.next()
			s.scanEscape(quote)
			continue
		}
		s.next()
	}
	return string(s.src[offs:s.offset])
}

// scanCodeInline scans a single backtick-delimited inline code literal. The
// opening backtick has not yet been consumed.
func (s *Scanner) scanCodeInline() string {
	offs := s.offset
	s.next() // consume opening backtick
	for s.ch != '`' && s.ch >= 0 {
		s.next()
	}
	if s.ch < 0 {
		s.error(offs, "inline code literal not terminated")
	} else {
		s.next()
	}
	return string(s.src[offs:s.offset])
}

// scanCodeBlock scans a fenced code block: three backticks already
// confirmed present, content runs until a line that begins with three
// backticks.
func (s *Scanner) scanCodeBlock() string {
	offs := s.offset
	s.next()
	s.next()
	s.next() // consume the three opening backticks
	for s.ch >= 0 {
		if s.ch == '\n' {
			s.next()
			if s.ch == '`' && s.peekByte() == '`' {
				fenceStart := s.offset
				s.next() // first backtick
				s.next() // second backtick
				if s.ch == '`' {
					s.next() // third backtick
					return string(s.src[offs:s.offset])
				}
				// not a real closing fence; keep scanning from where it left off
				_ = fenceStart
			}
			continue
		}
		s.next()
	}
	s.error(offs, "fenced code block not terminated")
	return string(s.src[offs:s.offset])
}

// Scan returns the next token: its start position, terminal kind, and
// literal text. At end of input it returns cst.TerminalEOF forever.
func (s *Scanner) Scan() (pos token.Pos, kind cst.TerminalKind, lit string) {
	offset := s.offset
	pos = s.file.Pos(offset)

	switch ch := s.ch; {
	case ch == -1:
		return pos, cst.TerminalEOF, ""
	case ch == ' ' || ch == '\t':
		for s.ch == ' ' || s.ch == '\t' {
			s.next()
		}
		return pos, cst.TerminalWhitespace, string(s.src[offset:s.offset])
	case ch == '\r' || ch == '\n':
		if ch == '\r' && s.peekByte() == '\n' {
			s.next()
		}
		s.next()
		return pos, cst.TerminalNewLine, string(s.src[offset:s.offset])
	case isLetter(ch):
		lit = s.scanIdentifier()
		if kw, ok := keywordKind(lit); ok {
			return pos, kw, lit
		}
		return pos, cst.TerminalIdent, lit
	case isDigit(ch):
		kind, lit = s.scanNumber(false)
		return pos, kind, lit
	case ch == '"' || ch == '\'':
		lit = s.scanString()
		return pos, cst.TerminalStringLiteral, lit
	case ch == '`':
		if s.peekByte() == '`' && offset+2 < len(s.src) && s.src[offset+2] == '`' {
			lit = s.scanCodeBlock()
			return pos, cst.TerminalCode, lit
		}
		lit = s.scanCodeInline()
		return pos, cst.TerminalCode, lit
	case ch == '/':
		if s.peekByte() == '/' {
			s.next()
			s.next()
			for s.ch != '\n' && s.ch >= 0 {
				s.next()
			}
			return pos, cst.TerminalLineComment, string(s.src[offset:s.offset])
		}
		if s.peekByte() == '*' {
			s.next()
			s.next()
			terminated := false
			for s.ch >= 0 {
				if s.ch == '*' && s.peekByte() == '/' {
					s.next()
					s.next()
					terminated = true
					break
				}
				s.next()
			}
			if !terminated {
				s.error(offset, "block comment not terminated")
			}
			return pos, cst.TerminalBlockComment, string(s.src[offset:s.offset])
		}
	}

	s.next()
	switch ch := s.src[offset]; ch {
	case '@':
		return pos, cst.TerminalAt, "@"
	case '=':
		return pos, cst.TerminalEquals, "="
	case ':':
		return pos, cst.TerminalColon, ":"
	case '.':
		if isDigit(s.ch) {
			kind, lit = s.scanNumber(true)
			return pos, kind, lit
		}
		return pos, cst.TerminalDot, "."
	case ',':
		return pos, cst.TerminalComma, ","
	case '{':
		return pos, cst.TerminalLBrace, "{"
	case '}':
		return pos, cst.TerminalRBrace, "}"
	case '[':
		return pos, cst.TerminalLBracket, "["
	case ']':
		return pos, cst.TerminalRBracket, "]"
	case '(':
		return pos, cst.TerminalLParen, "("
	case ')':
		return pos, cst.TerminalRParen, ")"
	case '$':
		if s.ch == '$' {
			s.next()
			return pos, cst.TerminalDollarDollar, "$$"
		}
		return pos, cst.TerminalDollar, "$"
	case '!':
		if isLetter(s.ch) {
			lit = s.scanIdentifier()
			return pos, cst.TerminalHoleLabel, lit
		}
		return pos, cst.TerminalBang, "!"
	default:
		s.error(offset, "illegal character "+string(ch))
		return pos, cst.TerminalUnknown, string(ch)
	}
}

// HandlerFromList adapts an errors.List into an ErrorHandler that appends a
// Parse-shape-style diagnostic for every lexical error.
func HandlerFromList(list *errors.List) ErrorHandler {
	return func(pos token.Pos, msg string) {
		list.Add(errors.New("ScanError", pos, nil, "%s", msg))
	}
}
