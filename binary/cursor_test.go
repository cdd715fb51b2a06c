package binary

import (
	"testing"

	"github.com/matovitch/wasp/leb128"
)

func TestCursorReadByteAdvancesAndReportsTruncation(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02}, 0)
	b, err := c.ReadByte()
	if err != nil || b != 0x01 {
		t.Fatalf("got %v/%v, want 0x01/nil", b, err)
	}
	c.ReadByte()
	if _, err := c.ReadByte(); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestCursorPeekByteDoesNotAdvance(t *testing.T) {
	c := NewCursor([]byte{0x2a}, 0)
	b, ok := c.PeekByte()
	if !ok || b != 0x2a {
		t.Fatalf("got %v/%v", b, ok)
	}
	if c.Pos() != 0 {
		t.Fatalf("PeekByte advanced the cursor")
	}
}

func TestCursorOffsetAddsBase(t *testing.T) {
	c := NewCursor([]byte{0x00, 0x00, 0x00}, 100)
	c.Advance(2)
	if c.Offset() != 102 {
		t.Fatalf("got %d, want 102", c.Offset())
	}
}

func TestCursorReadVarU32(t *testing.T) {
	buf := leb128.WriteUint32(nil, 624485)
	c := NewCursor(buf, 0)
	v, err := c.ReadVarU32()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 624485 {
		t.Fatalf("got %d, want 624485", v)
	}
	if !c.AtEnd() {
		t.Fatalf("cursor should be at end after consuming the whole buffer")
	}
}

func TestCursorReadVarS32Negative(t *testing.T) {
	buf := leb128.WriteInt32(nil, -129)
	c := NewCursor(buf, 0)
	v, err := c.ReadVarS32()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != -129 {
		t.Fatalf("got %d, want -129", v)
	}
}

func TestCursorReadF32RoundTrips(t *testing.T) {
	// 1.5f32, little-endian IEEE-754 bit pattern.
	c := NewCursor([]byte{0x00, 0x00, 0xc0, 0x3f}, 0)
	v, err := c.ReadF32()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1.5 {
		t.Fatalf("got %v, want 1.5", v)
	}
}

func TestCursorReadF64RoundTrips(t *testing.T) {
	c := NewCursor([]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xf8, 0x3f}, 0)
	v, err := c.ReadF64()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 1.5 {
		t.Fatalf("got %v, want 1.5", v)
	}
}

func TestCursorReadV128(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	c := NewCursor(data, 0)
	v, err := c.ReadV128()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range v {
		if v[i] != byte(i) {
			t.Fatalf("byte %d: got %x, want %x", i, v[i], byte(i))
		}
	}
}

func TestCursorReadNameValidatesUTF8(t *testing.T) {
	buf := leb128.WriteUint32(nil, 5)
	buf = append(buf, "hello"...)
	c := NewCursor(buf, 0)
	name, err := c.ReadName()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "hello" {
		t.Fatalf("got %q, want %q", name, "hello")
	}
}

func TestCursorReadNameRejectsMalformedUTF8(t *testing.T) {
	buf := leb128.WriteUint32(nil, 1)
	buf = append(buf, 0xff)
	c := NewCursor(buf, 0)
	if _, err := c.ReadName(); err != ErrMalformedUTF8 {
		t.Fatalf("got %v, want ErrMalformedUTF8", err)
	}
}

func TestCursorReadBytesRejectsOverrun(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02}, 0)
	if _, err := c.ReadBytes(3); err != ErrTruncated {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestCursorMarkAndReset(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03}, 0)
	mark := c.Mark()
	c.Advance(2)
	c.Reset(mark)
	if c.Pos() != mark {
		t.Fatalf("Reset did not restore position")
	}
}
