// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package text

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// idChar reports whether r may appear inside a keyword, identifier, or
// numeric literal run, per the WebAssembly text format's idchar class.
func idChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-./:<=>?@\\^_`|~", r)
}

var (
	reMagnitude = regexp.MustCompile(`^(?:[0-9][0-9_]*|0x[0-9a-fA-F][0-9a-fA-F_]*)$`)
	reFloatMag  = regexp.MustCompile(`^(?:` +
		`[0-9][0-9_]*\.[0-9_]*(?:[eE][+-]?[0-9_]+)?` +
		`|[0-9][0-9_]*[eE][+-]?[0-9_]+` +
		`|0x[0-9a-fA-F][0-9a-fA-F_]*\.[0-9a-fA-F_]*(?:[pP][+-]?[0-9_]+)?` +
		`|0x[0-9a-fA-F][0-9a-fA-F_]*[pP][+-]?[0-9_]+` +
		`)$`)
)

// Scanner tokenizes WebAssembly text format source with two runes of
// lookahead, in the manner of the teacher's scanner: skip whitespace
// and comments first, then dispatch on the lookahead rune.
type Scanner struct {
	runes []rune
	idx   int
	line  int
	col   int
}

func NewScanner(src string) *Scanner {
	return &Scanner{runes: []rune(src), line: 1, col: 1}
}

func (s *Scanner) at(off int) rune {
	if s.idx+off >= len(s.runes) {
		return -1
	}
	return s.runes[s.idx+off]
}

func (s *Scanner) peek() rune  { return s.at(0) }
func (s *Scanner) peek2() rune { return s.at(1) }

func (s *Scanner) pos() Pos { return Pos{Line: s.line, Column: s.col} }

func (s *Scanner) chomp() rune {
	r := s.at(0)
	if r == -1 {
		return r
	}
	s.idx++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func (s *Scanner) skipSpace() error {
	for {
		switch {
		case s.peek() == ' ' || s.peek() == '\t' || s.peek() == '\n' || s.peek() == '\r':
			s.chomp()
		case s.peek() == ';' && s.peek2() == ';':
			for s.peek() != '\n' && s.peek() != -1 {
				s.chomp()
			}
		case s.peek() == '(' && s.peek2() == ';':
			p := s.pos()
			s.chomp()
			s.chomp()
			depth := 1
			for depth > 0 {
				if s.peek() == -1 {
					return fmt.Errorf("%v: unterminated block comment", p)
				}
				if s.peek() == '(' && s.peek2() == ';' {
					s.chomp()
					s.chomp()
					depth++
				} else if s.peek() == ';' && s.peek2() == ')' {
					s.chomp()
					s.chomp()
					depth--
				} else {
					s.chomp()
				}
			}
		default:
			return nil
		}
	}
}

// Scan returns the next token, or an error for malformed input
// (unterminated comment or string literal).
func (s *Scanner) Scan() (Token, error) {
	if err := s.skipSpace(); err != nil {
		return Token{}, err
	}
	p := s.pos()
	switch r := s.peek(); {
	case r == -1:
		return Token{Kind: EOF, Pos: p}, nil
	case r == '(':
		s.chomp()
		return Token{Kind: LPar, Pos: p}, nil
	case r == ')':
		s.chomp()
		return Token{Kind: RPar, Pos: p}, nil
	case r == '"':
		return s.scanString(p)
	case r == '$':
		return s.scanIdent(p)
	default:
		return s.scanWord(p)
	}
}

func (s *Scanner) scanIdent(p Pos) (Token, error) {
	s.chomp() // '$'
	var b strings.Builder
	for idChar(s.peek()) {
		b.WriteRune(s.chomp())
	}
	if b.Len() == 0 {
		return Token{}, fmt.Errorf("%v: empty identifier", p)
	}
	return Token{Kind: Ident, Pos: p, Text: b.String()}, nil
}

func (s *Scanner) scanWord(p Pos) (Token, error) {
	var b strings.Builder
	for idChar(s.peek()) {
		b.WriteRune(s.chomp())
	}
	text := b.String()
	if text == "" {
		// A stray character outside the idchar class; consume it so
		// the scanner makes progress and report it as reserved.
		r := s.chomp()
		return Token{Kind: Reserved, Pos: p, Text: string(r)}, nil
	}
	kind, lit := classifyWord(text)
	return Token{Kind: kind, Pos: p, Text: text, Value: lit}, nil
}

// classifyWord decides whether an idchar run is a numeric literal
// (Nat/Int/Float) or an opaque Keyword, following the WAT number
// grammar (spec.md §4.5's LiteralInfo). Anything that looks like a
// signed/unsigned numeral but doesn't parse cleanly falls back to
// Keyword so callers such as align=N pseudo-tokens keep working.
func classifyWord(text string) (TokenKind, *BigInt) {
	sign := ""
	mag := text
	neg := false
	if len(text) > 0 && (text[0] == '+' || text[0] == '-') {
		sign = text[:1]
		mag = text[1:]
		neg = sign == "-"
	}

	if mag == "nan" || strings.HasPrefix(mag, "nan:0x") {
		special := "nan"
		body := strings.TrimPrefix(mag, "nan:0x")
		if body != mag {
			special = "nan:payload"
			return Float, &BigInt{Text: strings.ReplaceAll(body, "_", ""), Base: 16, Neg: neg, Special: special}
		}
		return Float, &BigInt{Neg: neg, Special: special}
	}
	if mag == "inf" {
		return Float, &BigInt{Neg: neg, Special: "inf"}
	}

	if reFloatMag.MatchString(mag) {
		base := 10
		body := mag
		if strings.HasPrefix(mag, "0x") {
			base = 16
			body = mag[2:]
		}
		return Float, &BigInt{Text: strings.ReplaceAll(body, "_", ""), Base: base, Neg: neg}
	}

	if reMagnitude.MatchString(mag) {
		base := 10
		body := mag
		if strings.HasPrefix(mag, "0x") {
			base = 16
			body = mag[2:]
		}
		lit := &BigInt{Text: strings.ReplaceAll(body, "_", ""), Base: base, Neg: neg}
		if sign == "" {
			return Nat, lit
		}
		return Int, lit
	}

	return Keyword, nil
}

func (s *Scanner) scanString(p Pos) (Token, error) {
	s.chomp() // opening quote
	var b strings.Builder
	for {
		r := s.peek()
		switch r {
		case -1, '\n':
			return Token{}, fmt.Errorf("%v: unterminated string literal", p)
		case '"':
			s.chomp()
			return Token{Kind: Text, Pos: p, Value: b.String()}, nil
		case '\\':
			s.chomp()
			if err := s.scanEscape(&b, p); err != nil {
				return Token{}, err
			}
		default:
			b.WriteRune(s.chomp())
		}
	}
}

func (s *Scanner) scanEscape(b *strings.Builder, p Pos) error {
	r := s.peek()
	switch r {
	case 'n':
		s.chomp()
		b.WriteByte('\n')
	case 't':
		s.chomp()
		b.WriteByte('\t')
	case 'r':
		s.chomp()
		b.WriteByte('\r')
	case '\\':
		s.chomp()
		b.WriteByte('\\')
	case '\'':
		s.chomp()
		b.WriteByte('\'')
	case '"':
		s.chomp()
		b.WriteByte('"')
	case 'u':
		s.chomp()
		if s.peek() != '{' {
			return fmt.Errorf("%v: malformed \\u escape", p)
		}
		s.chomp()
		var hex strings.Builder
		for s.peek() != '}' {
			if s.peek() == -1 {
				return fmt.Errorf("%v: unterminated \\u escape", p)
			}
			hex.WriteRune(s.chomp())
		}
		s.chomp() // '}'
		cp, err := strconv.ParseUint(hex.String(), 16, 32)
		if err != nil {
			return fmt.Errorf("%v: malformed \\u escape: %w", p, err)
		}
		b.WriteRune(rune(cp))
	default:
		hi := s.chomp()
		lo := s.chomp()
		v, err := strconv.ParseUint(string([]rune{hi, lo}), 16, 8)
		if err != nil {
			return fmt.Errorf("%v: malformed hex byte escape", p)
		}
		b.WriteByte(byte(v))
	}
	return nil
}
