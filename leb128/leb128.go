// Package leb128 reads and writes the variable-length integer encoding
// used throughout the WebAssembly binary format.
//
// The decoders reject over-long encodings: a continuation group that
// would shift bits past the target width, or whose unused high bits
// (for unsigned values) or sign sentinel (for signed values) disagree
// with the represented value, is a malformed-encoding error rather than
// a silently truncated one.
package leb128

import "errors"

// ErrOverflow is returned when a LEB128 value does not fit the
// requested width, or when an over-long encoding's discarded bits are
// inconsistent with the represented value.
var ErrOverflow = errors.New("leb128: integer overflows target width")

// ErrTruncated is returned when the input ends before a continuation
// sequence is closed.
var ErrTruncated = errors.New("leb128: truncated encoding")

// Uint32 decodes an unsigned LEB128 value into a uint32, returning the
// value and the number of bytes consumed.
func Uint32(b []byte) (uint32, int, error) {
	v, n, err := uint64N(b, 32)
	return uint32(v), n, err
}

// Uint64 decodes an unsigned LEB128 value into a uint64.
func Uint64(b []byte) (uint64, int, error) {
	return uint64N(b, 64)
}

func uint64N(b []byte, width uint) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; ; i++ {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		c := b[i]
		low := uint64(c & 0x7f)

		if shift >= width {
			// A group that starts past the target width makes the
			// encoding over-long, whatever its bits.
			return 0, 0, ErrOverflow
		} else if shift+7 > width {
			// Some bits in this group survive, the rest must be zero.
			keep := width - shift
			if low>>keep != 0 {
				return 0, 0, ErrOverflow
			}
			result |= low << shift
		} else {
			result |= low << shift
		}

		if c&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
}

// Int32 decodes a signed LEB128 value into an int32.
func Int32(b []byte) (int32, int, error) {
	v, n, err := int64N(b, 32)
	return int32(v), n, err
}

// Int64 decodes a signed LEB128 value into an int64.
func Int64(b []byte) (int64, int, error) {
	return int64N(b, 64)
}

func int64N(b []byte, width uint) (int64, int, error) {
	var result int64
	var shift uint
	var c byte
	i := 0
	for {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		c = b[i]
		low := int64(c & 0x7f)

		if shift >= width {
			return 0, 0, ErrOverflow
		}
		if shift < 64 {
			result |= low << shift
		}
		shift += 7
		i++

		if c&0x80 == 0 {
			break
		}
	}

	if shift < 64 && c&0x40 != 0 {
		result |= -1 << shift
	}

	// An over-long encoding's trailing group may carry bits beyond
	// width; they must agree with the sign the represented value would
	// naturally have, or the encoding is malformed rather than merely
	// redundant.
	if width < 64 {
		top := result >> width
		if top != 0 && top != -1 {
			return 0, 0, ErrOverflow
		}
		// Truncate/sign-extend to exactly `width` bits for the caller's type.
		signBit := int64(1) << (width - 1)
		mask := (int64(1) << width) - 1
		result &= mask
		if result&signBit != 0 {
			result |= ^mask
		}
	}
	return result, i, nil
}

// WriteUint32 appends an unsigned LEB128 encoding of v to buf.
func WriteUint32(buf []byte, v uint32) []byte {
	return writeUint64(buf, uint64(v))
}

// WriteUint64 appends an unsigned LEB128 encoding of v to buf.
func WriteUint64(buf []byte, v uint64) []byte {
	return writeUint64(buf, v)
}

func writeUint64(buf []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, c|0x80)
		} else {
			buf = append(buf, c)
			return buf
		}
	}
}

// WriteInt32 appends a signed LEB128 encoding of v to buf.
func WriteInt32(buf []byte, v int32) []byte {
	return writeInt64(buf, int64(v))
}

// WriteInt64 appends a signed LEB128 encoding of v to buf.
func WriteInt64(buf []byte, v int64) []byte {
	return writeInt64(buf, v)
}

func writeInt64(buf []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		signBitSet := c&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			buf = append(buf, c)
			return buf
		}
		buf = append(buf, c|0x80)
	}
}
