// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leb128

import (
	"bytes"
	"fmt"
	"testing"
)

var casesUint = []struct {
	v uint32
	b []byte
}{
	{0, []byte{0x00}},
	{1, []byte{0x01}},
	{127, []byte{0x7f}},
	{128, []byte{0x80, 0x01}},
	{624485, []byte{0xe5, 0x8e, 0x26}},
	{0xffffffff, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
}

var casesInt = []struct {
	v int64
	b []byte
}{
	{0, []byte{0x00}},
	{1, []byte{0x01}},
	{-1, []byte{0x7f}},
	{63, []byte{0x3f}},
	{64, []byte{0xc0, 0x00}},
	{-64, []byte{0x40}},
	{-129, []byte{0xff, 0x7e}},
	{624485, []byte{0xe5, 0x8e, 0x26}},
	{-624485, []byte{0x9b, 0xf1, 0x59}},
}

func TestWriteUint32(t *testing.T) {
	for _, c := range casesUint {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			got := WriteUint32(nil, c.v)
			if !bytes.Equal(got, c.b) {
				t.Fatalf("got %x, want %x", got, c.b)
			}
		})
	}
}

func TestWriteInt64(t *testing.T) {
	for _, c := range casesInt {
		t.Run(fmt.Sprint(c.v), func(t *testing.T) {
			got := WriteInt64(nil, c.v)
			if !bytes.Equal(got, c.b) {
				t.Fatalf("got %x, want %x", got, c.b)
			}
		})
	}
}

func TestRoundTripUint32(t *testing.T) {
	for _, c := range casesUint {
		buf := WriteUint32(nil, c.v)
		got, n, err := Uint32(buf)
		if err != nil {
			t.Fatalf("Uint32: %v", err)
		}
		if n != len(buf) {
			t.Fatalf("consumed %d bytes, want %d", n, len(buf))
		}
		if got != c.v {
			t.Fatalf("got %d, want %d", got, c.v)
		}
	}
}

func TestRoundTripInt64(t *testing.T) {
	for _, c := range casesInt {
		buf := WriteInt64(nil, c.v)
		got, n, err := Int64(buf)
		if err != nil {
			t.Fatalf("Int64: %v", err)
		}
		if n != len(buf) {
			t.Fatalf("consumed %d bytes, want %d", n, len(buf))
		}
		if got != c.v {
			t.Fatalf("got %d, want %d", got, c.v)
		}
	}
}

func TestUint32RejectsOverlongHighBits(t *testing.T) {
	// 5 bytes is the max for a 32-bit value; the 5th byte carries bits
	// 28..31, so only its low 4 value bits fit (32-4*7=4) and its upper
	// 3 value bits must be zero.
	_, _, err := Uint32([]byte{0xff, 0xff, 0xff, 0xff, 0x1f})
	if err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestUint32AcceptsMaxValue(t *testing.T) {
	v, n, err := Uint32([]byte{0xff, 0xff, 0xff, 0xff, 0x0f})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0xffffffff || n != 5 {
		t.Fatalf("got %x/%d, want 0xffffffff/5", v, n)
	}
}

func TestTruncatedInputIsAnError(t *testing.T) {
	_, _, err := Uint32([]byte{0x80})
	if err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestInt32SignExtension(t *testing.T) {
	v, _, err := Int32([]byte{0x7f})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -1 {
		t.Fatalf("got %d, want -1", v)
	}
}

func TestInt32RejectsInconsistentOverlongEncoding(t *testing.T) {
	// An encoding of -1 as int32 padded with an extra continuation byte
	// whose value bits disagree with the sign-extended result.
	_, _, err := Int32([]byte{0xff, 0xff, 0xff, 0xff, 0x4f})
	if err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestInt64SignExtension(t *testing.T) {
	v, _, err := Int64([]byte{0x7f})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -1 {
		t.Fatalf("got %d, want -1", v)
	}
}
