// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package text implements the WebAssembly text format: a one-pass
// lexer producing a lookahead token stream, and a recursive-descent
// parser building an *ir.Module from it.
package text

import (
	"fmt"
	"math/big"
)

// Pos is a 1-based line/column source location.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// TokenKind identifies a lexical token. Values in the printable-rune
// range name single-character tokens ('(' and ')'); values above
// tokenBase name multi-character token classes. Keeping both in one
// integer space, after the teacher's scanner, lets a parser switch on
// a single type whether the token was one byte or many.
type TokenKind rune

const (
	LPar TokenKind = '('
	RPar TokenKind = ')'
)

const tokenBase = TokenKind(0x110000) // one past the last valid rune

const (
	EOF TokenKind = tokenBase + iota
	// Ident is a $-prefixed symbolic identifier.
	Ident
	// Keyword is any bare idchar run that isn't a recognized numeric
	// literal: module-grammar keywords (module, func, param, ...) and
	// instruction mnemonics (i32.add, local.get, ...) alike. The
	// parser distinguishes them by comparing Token.Text, the same way
	// the teacher's generated keyword table does, rather than minting
	// one TokenKind per mnemonic - there are over 400 of those and the
	// ir package already centralizes their metadata in opcodeTable.
	Keyword
	// Nat is an unsigned integer literal (decimal or 0x-hex).
	Nat
	// Int is a signed integer literal.
	Int
	// Float is a floating point literal, including nan/nan:0x.../inf.
	Float
	// Text is a quoted string literal with escapes resolved.
	Text
	// Reserved is a single character outside the idchar class that
	// starts no other token; the parser turns it into a diagnostic.
	Reserved
)

func (k TokenKind) String() string {
	switch k {
	case LPar:
		return "("
	case RPar:
		return ")"
	case EOF:
		return "eof"
	case Ident:
		return "id"
	case Keyword:
		return "keyword"
	case Nat:
		return "nat"
	case Int:
		return "int"
	case Float:
		return "float"
	case Text:
		return "text"
	case Reserved:
		return "reserved"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

// BigInt defers interpretation of a numeric literal's magnitude until
// the parser asks for it in a specific target width, since the lexer
// doesn't yet know whether "42" will be read as an i32, i64, or the
// integral part of a float.
type BigInt struct {
	Text string // digits only, no sign, underscores stripped
	Base int    // 10 or 16
	Neg  bool
	Special string // "nan", "nan:payload", "inf" ("" for ordinary magnitudes)
}

// I interprets the literal as a signed integer magnitude.
func (b *BigInt) I() (int64, error) {
	if b.Special != "" {
		return 0, fmt.Errorf("%q is not an integer literal", b.Special)
	}
	v, ok := new(big.Int).SetString(b.Text, b.Base)
	if !ok {
		return 0, fmt.Errorf("malformed integer literal %q", b.Text)
	}
	if b.Neg {
		v.Neg(v)
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("integer literal %q out of range", b.Text)
	}
	return v.Int64(), nil
}

// U interprets the literal as an unsigned integer magnitude.
func (b *BigInt) U() (uint64, error) {
	if b.Special != "" {
		return 0, fmt.Errorf("%q is not an integer literal", b.Special)
	}
	if b.Neg {
		return 0, fmt.Errorf("unsigned literal %q may not carry a sign", b.Text)
	}
	v, ok := new(big.Int).SetString(b.Text, b.Base)
	if !ok {
		return 0, fmt.Errorf("malformed integer literal %q", b.Text)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("integer literal %q out of range", b.Text)
	}
	return v.Uint64(), nil
}

// F interprets the literal as an arbitrary-precision float.
func (b *BigInt) F() (*big.Float, error) {
	switch b.Special {
	case "inf":
		f := big.NewFloat(0).SetInf(b.Neg)
		return f, nil
	case "nan", "nan:payload":
		return nil, errNaN
	}
	text := b.Text
	if b.Base == 16 {
		text = "0x" + text
	}
	if b.Neg {
		text = "-" + text
	}
	f, _, err := big.ParseFloat(text, 0, 240, big.ToNearestEven)
	if err != nil {
		return nil, fmt.Errorf("malformed float literal %q: %w", b.Text, err)
	}
	return f, nil
}

// errNaN signals that a literal names NaN, which big.Float cannot
// represent; callers producing float32/float64 must special-case it.
var errNaN = fmt.Errorf("literal is NaN")

// IsNaN reports whether this literal spells a NaN, and if so whether
// it carries an explicit payload (nan:0x...).
func (b *BigInt) IsNaN() (isNaN bool, payload uint64, hasPayload bool) {
	if b.Special != "nan" && b.Special != "nan:payload" {
		return false, 0, false
	}
	if b.Special == "nan:payload" {
		v, ok := new(big.Int).SetString(b.Text, b.Base)
		if ok {
			return true, v.Uint64(), true
		}
	}
	return true, 0, false
}

// Token is one lexical unit.
type Token struct {
	Kind TokenKind
	Pos  Pos

	// Text carries the raw spelling for Ident (sans '$'), Keyword, and
	// Reserved tokens.
	Text string

	// Value carries *BigInt for Nat/Int/Float and the unescaped string
	// for Text tokens.
	Value interface{}
}

func (t Token) String() string {
	switch t.Kind {
	case Ident:
		return "$" + t.Text
	case Keyword, Reserved:
		return t.Text
	case Text:
		return fmt.Sprintf("%q", t.Value)
	default:
		return t.Kind.String()
	}
}
