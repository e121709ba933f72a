package lis

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// ReprCode is a LIS representation code.
type ReprCode uint8

// Representation codes
const (
	F16    ReprCode = 49 // 16-bit floating point
	F32Low ReprCode = 50 // 32-bit low resolution floating point
	I8     ReprCode = 56 // 8-bit two's complement integer
	String ReprCode = 65 // alphanumeric
	Byte   ReprCode = 66 // 8-bit unsigned integer
	F32    ReprCode = 68 // 32-bit floating point
	F32Fix ReprCode = 70 // 32-bit fixed point
	I32    ReprCode = 73 // 32-bit two's complement integer
	Mask   ReprCode = 77 // bit mask
	I16    ReprCode = 79 // 16-bit two's complement integer
)

var reprcNames = map[ReprCode]string{
	F16:    "f16",
	F32Low: "f32low",
	I8:     "i8",
	String: "string",
	Byte:   "byte",
	F32:    "f32",
	F32Fix: "f32fix",
	I32:    "i32",
	Mask:   "mask",
	I16:    "i16",
}

var reprcWidths = map[ReprCode]int{
	F16:    2,
	F32Low: 4,
	I8:     1,
	Byte:   1,
	F32:    4,
	F32Fix: 4,
	I32:    4,
	I16:    2,
}

// Valid reports whether c is a defined code.
func (c ReprCode) Valid() bool {
	_, ok := reprcNames[c]
	return ok
}

func (c ReprCode) String() string {
	if name, ok := reprcNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ReprCode(%d)", uint8(c))
}

// Width returns the encoded size of one value, 0 for codes whose size is
// given by the enclosing block (string and mask).
func (c ReprCode) Width() int {
	return reprcWidths[c]
}

// f16 decodes a 16-bit float: 12-bit two's complement fraction, 4-bit
// exponent.
func f16(v uint16) float32 {
	exp := int(v & 0x000F)
	frac := float64((v&0x7FF0)>>4) / 2048.0
	if v&0x8000 != 0 {
		frac -= 1.0
	}
	return float32(math.Ldexp(frac, exp))
}

// f32low decodes a 16-bit exponent followed by a 16-bit fraction.
func f32low(b []byte) float32 {
	exp := int(int16(binary.BigEndian.Uint16(b[0:2])))
	frac := float64(int16(binary.BigEndian.Uint16(b[2:4]))) / float64(1<<15)
	return float32(math.Ldexp(frac, exp))
}

// f32 decodes a sign bit, an excess-128 exponent and a 23-bit fraction.
// Negative values store the fraction in two's complement and the
// exponent in one's complement.
func f32(v uint32) float32 {
	exp := int((v >> 23) & 0xFF)
	frac := float64(v&0x007FFFFF) / float64(1<<23)
	if v&0x80000000 != 0 {
		exp = ^exp & 0xFF
		frac -= 1.0
	}
	if exp == 0 && frac == 0 {
		return 0
	}
	return float32(math.Ldexp(frac, exp-128))
}

// Decode decodes one value of code occupying size bytes at the start of
// buf. size only matters for String and Mask.
func Decode(buf []byte, code ReprCode, size int) (any, error) {
	width := code.Width()
	if width == 0 {
		width = size
	}
	if !code.Valid() {
		return nil, errors.Wrapf(fault.ErrUnsupportedReprCode, "representation code %d", uint8(code))
	}
	if len(buf) < width {
		return nil, errors.Wrapf(fault.ErrTruncatedInput,
			"%s needs %d bytes, %d left", code, width, len(buf))
	}
	b := buf[:width]

	switch code {
	case F16:
		return f16(binary.BigEndian.Uint16(b)), nil
	case F32Low:
		return f32low(b), nil
	case I8:
		return int8(b[0]), nil
	case String:
		return string(b), nil
	case Byte:
		return b[0], nil
	case F32:
		return f32(binary.BigEndian.Uint32(b)), nil
	case F32Fix:
		return float32(float64(int32(binary.BigEndian.Uint32(b))) / float64(1<<16)), nil
	case I32:
		return int32(binary.BigEndian.Uint32(b)), nil
	case Mask:
		return append([]byte(nil), b...), nil
	default: // I16
		return int16(binary.BigEndian.Uint16(b)), nil
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case int8:
		return float64(n), true
	case uint8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int8:
		return int(n), true
	case uint8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case float32:
		return int(n), true
	default:
		return 0, false
	}
}
