package binary

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"

	"github.com/matovitch/wasp/diag"
	"github.com/matovitch/wasp/leb128"
)

// ErrTruncated is returned when a read runs past the end of a
// Cursor's span.
var ErrTruncated = errors.New("binary: truncated input")

// ErrMalformedUTF8 is returned when a name string is not valid UTF-8.
var ErrMalformedUTF8 = errors.New("binary: malformed UTF-8 encoding")

// Cursor reads sequentially through an owned byte span without ever
// mutating or copying the underlying bytes. Every section gets its own
// Cursor over its own Span, so decoding one section never disturbs the
// read position of any other: the restartability the binary reader
// promises comes entirely from never sharing a Cursor across sections.
type Cursor struct {
	data []byte
	pos  int
	base int // absolute offset of data[0] within the module
}

func NewCursor(data []byte, base int) *Cursor {
	return &Cursor{data: data, base: base}
}

func (c *Cursor) Len() int       { return len(c.data) - c.pos }
func (c *Cursor) AtEnd() bool    { return c.pos >= len(c.data) }
func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) Offset() int    { return c.base + c.pos }
func (c *Cursor) Remaining() []byte { return c.data[c.pos:] }

func (c *Cursor) Location() diag.Location {
	return diag.Location{Offset: c.Offset()}
}

// Mark and Reset let a caller snapshot and rewind the cursor, used to
// give a malformed element a diagnostic location before skipping past
// it with separately-known length information.
func (c *Cursor) Mark() int       { return c.pos }
func (c *Cursor) Reset(mark int)  { c.pos = mark }
func (c *Cursor) Advance(n int)   { c.pos += n }

func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, ErrTruncated
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

func (c *Cursor) PeekByte() (byte, bool) {
	if c.pos >= len(c.data) {
		return 0, false
	}
	return c.data[c.pos], true
}

func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, ErrTruncated
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *Cursor) ReadVarU32() (uint32, error) {
	v, n, err := leb128.Uint32(c.Remaining())
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *Cursor) ReadVarU64() (uint64, error) {
	v, n, err := leb128.Uint64(c.Remaining())
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *Cursor) ReadVarS32() (int32, error) {
	v, n, err := leb128.Int32(c.Remaining())
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *Cursor) ReadVarS64() (int64, error) {
	v, n, err := leb128.Int64(c.Remaining())
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *Cursor) ReadF32() (float32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (c *Cursor) ReadF64() (float64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (c *Cursor) ReadV128() ([16]byte, error) {
	var v [16]byte
	b, err := c.ReadBytes(16)
	if err != nil {
		return v, err
	}
	copy(v[:], b)
	return v, nil
}

// ReadName reads a length-prefixed, UTF-8-validated string, per the
// binary format's "name" production.
func (c *Cursor) ReadName() (string, error) {
	n, err := c.ReadVarU32()
	if err != nil {
		return "", err
	}
	b, err := c.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrMalformedUTF8
	}
	return string(b), nil
}
