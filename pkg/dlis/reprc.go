package dlis

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// ReprCode is a representation code.
type ReprCode uint8

// Representation codes
const (
	FSHORT ReprCode = iota + 1
	FSINGL
	FSING1
	FSING2
	ISINGL
	VSINGL
	FDOUBL
	FDOUB1
	FDOUB2
	CSINGL
	CDOUBL
	SSHORT
	SNORM
	SLONG
	USHORT
	UNORM
	ULONG
	UVARI
	IDENT
	ASCII
	DTIME
	ORIGIN
	OBNAME
	OBJREF
	ATTREF
	STATUS
	UNITS
)

type reprInfo struct {
	name  string
	width int // 0 for variable width
	fmt   byte
}

var reprTable = [...]reprInfo{
	FSHORT: {"FSHORT", 2, 'r'},
	FSINGL: {"FSINGL", 4, 'f'},
	FSING1: {"FSING1", 8, 'b'},
	FSING2: {"FSING2", 12, 'B'},
	ISINGL: {"ISINGL", 4, 'x'},
	VSINGL: {"VSINGL", 4, 'V'},
	FDOUBL: {"FDOUBL", 8, 'F'},
	FDOUB1: {"FDOUB1", 16, 'z'},
	FDOUB2: {"FDOUB2", 24, 'Z'},
	CSINGL: {"CSINGL", 8, 'c'},
	CDOUBL: {"CDOUBL", 16, 'C'},
	SSHORT: {"SSHORT", 1, 'd'},
	SNORM:  {"SNORM", 2, 'D'},
	SLONG:  {"SLONG", 4, 'l'},
	USHORT: {"USHORT", 1, 'u'},
	UNORM:  {"UNORM", 2, 'U'},
	ULONG:  {"ULONG", 4, 'L'},
	UVARI:  {"UVARI", 0, 'i'},
	IDENT:  {"IDENT", 0, 's'},
	ASCII:  {"ASCII", 0, 'S'},
	DTIME:  {"DTIME", 8, 'j'},
	ORIGIN: {"ORIGIN", 0, 'J'},
	OBNAME: {"OBNAME", 0, 'o'},
	OBJREF: {"OBJREF", 0, 'O'},
	ATTREF: {"ATTREF", 0, 'A'},
	STATUS: {"STATUS", 1, 'q'},
	UNITS:  {"UNITS", 0, 'Q'},
}

// Valid reports whether c is one of the 27 defined codes.
func (c ReprCode) Valid() bool {
	return c >= FSHORT && c <= UNITS
}

func (c ReprCode) String() string {
	if c.Valid() {
		return reprTable[c].name
	}
	return fmt.Sprintf("ReprCode(%d)", uint8(c))
}

// Width returns the encoded size, or 0 for variable width codes.
func (c ReprCode) Width() int {
	if c.Valid() {
		return reprTable[c].width
	}
	return 0
}

// Format returns the format character of c.
func (c ReprCode) Format() byte {
	if c.Valid() {
		return reprTable[c].fmt
	}
	return '?'
}

// ReprCodeFromFormat is the inverse of Format.
func ReprCodeFromFormat(ch byte) (ReprCode, bool) {
	for c := FSHORT; c <= UNITS; c++ {
		if reprTable[c].fmt == ch {
			return c, true
		}
	}
	return 0, false
}

// reader decodes values from a record payload.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) done() bool { return r.pos >= len(r.buf) }

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errors.Wrapf(fault.ErrTruncatedInput,
			"need %d bytes at offset %d, %d left", n, r.pos, r.remaining())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) peek() (byte, error) {
	if r.done() {
		return 0, errors.Wrapf(fault.ErrTruncatedInput, "no byte left at offset %d", r.pos)
	}
	return r.buf[r.pos], nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) uvari() (uint32, error) {
	b, err := r.peek()
	if err != nil {
		return 0, err
	}
	switch {
	case b&0x80 == 0:
		v, err := r.u8()
		return uint32(v), err
	case b&0xC0 == 0x80:
		v, err := r.u16()
		return uint32(v & 0x3FFF), err
	default:
		v, err := r.u32()
		return v & 0x3FFFFFFF, err
	}
}

func (r *reader) ident() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) ascii() (string, error) {
	n, err := r.uvari()
	if err != nil {
		return "", err
	}
	if int64(n) > int64(r.remaining()) {
		return "", errors.Wrapf(fault.ErrTruncatedInput,
			"ascii length %d exceeds the %d bytes left", n, r.remaining())
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) obname() (ObjectName, error) {
	var name ObjectName
	origin, err := r.uvari()
	if err != nil {
		return name, err
	}
	copyNumber, err := r.u8()
	if err != nil {
		return name, err
	}
	id, err := r.ident()
	if err != nil {
		return name, err
	}
	return ObjectName{Origin: origin, Copy: copyNumber, ID: id}, nil
}

func (r *reader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *reader) f64() (float64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// fshort decodes a 16-bit low precision float: 12-bit two's complement
// fraction followed by a 4-bit exponent.
func fshort(v uint16) float32 {
	exp := int(v & 0x000F)
	frac := float64((v&0x7FF0)>>4) / 2048.0
	if v&0x8000 != 0 {
		frac -= 1.0
	}
	return float32(math.Ldexp(frac, exp))
}

// isingl decodes an IBM single precision float.
func isingl(v uint32) float32 {
	exp := int((v >> 24) & 0x7F)
	frac := float64(v&0x00FFFFFF) / float64(1<<24)
	val := frac * math.Pow(16, float64(exp-64))
	if v&0x80000000 != 0 {
		val = -val
	}
	return float32(val)
}

// vsingl decodes a VAX single precision float from its on-disk byte order.
func vsingl(b []byte) float32 {
	v := uint32(b[1])<<24 | uint32(b[0])<<16 | uint32(b[3])<<8 | uint32(b[2])
	exp := int((v >> 23) & 0xFF)
	if exp == 0 {
		if v&0x80000000 != 0 {
			return float32(math.NaN())
		}
		return 0
	}
	frac := float64(v&0x007FFFFF) / float64(1<<24)
	val := math.Ldexp(0.5+frac, exp-128)
	if v&0x80000000 != 0 {
		val = -val
	}
	return float32(val)
}

// value decodes one value of the given code.
func (r *reader) value(code ReprCode) (any, error) {
	switch code {
	case FSHORT:
		v, err := r.u16()
		return fshort(v), err
	case FSINGL:
		return r.f32()
	case FSING1:
		v, err1 := r.f32()
		a, err2 := r.f32()
		return Validated1[float32]{V: v, A: a}, errors.CombineErrors(err1, err2)
	case FSING2:
		v, err1 := r.f32()
		a, err2 := r.f32()
		b, err3 := r.f32()
		return Validated2[float32]{V: v, A: a, B: b}, errors.CombineErrors(err1, errors.CombineErrors(err2, err3))
	case ISINGL:
		v, err := r.u32()
		return isingl(v), err
	case VSINGL:
		b, err := r.take(4)
		if err != nil {
			return float32(0), err
		}
		return vsingl(b), nil
	case FDOUBL:
		return r.f64()
	case FDOUB1:
		v, err1 := r.f64()
		a, err2 := r.f64()
		return Validated1[float64]{V: v, A: a}, errors.CombineErrors(err1, err2)
	case FDOUB2:
		v, err1 := r.f64()
		a, err2 := r.f64()
		b, err3 := r.f64()
		return Validated2[float64]{V: v, A: a, B: b}, errors.CombineErrors(err1, errors.CombineErrors(err2, err3))
	case CSINGL:
		re, err1 := r.f32()
		im, err2 := r.f32()
		return complex(re, im), errors.CombineErrors(err1, err2)
	case CDOUBL:
		re, err1 := r.f64()
		im, err2 := r.f64()
		return complex(re, im), errors.CombineErrors(err1, err2)
	case SSHORT:
		v, err := r.u8()
		return int8(v), err
	case SNORM:
		v, err := r.u16()
		return int16(v), err
	case SLONG:
		v, err := r.u32()
		return int32(v), err
	case USHORT:
		return r.u8()
	case UNORM:
		return r.u16()
	case ULONG:
		return r.u32()
	case UVARI, ORIGIN:
		return r.uvari()
	case IDENT, UNITS:
		return r.ident()
	case ASCII:
		return r.ascii()
	case DTIME:
		b, err := r.take(8)
		if err != nil {
			return DateTime{}, err
		}
		return DateTime{
			Year:        1900 + int(b[0]),
			TimeZone:    int(b[1] >> 4),
			Month:       int(b[1] & 0x0F),
			Day:         int(b[2]),
			Hour:        int(b[3]),
			Minute:      int(b[4]),
			Second:      int(b[5]),
			Millisecond: int(binary.BigEndian.Uint16(b[6:8])),
		}, nil
	case OBNAME:
		return r.obname()
	case OBJREF:
		typ, err := r.ident()
		if err != nil {
			return ObjectRef{}, err
		}
		name, err := r.obname()
		return ObjectRef{Type: typ, Name: name}, err
	case ATTREF:
		typ, err := r.ident()
		if err != nil {
			return AttributeRef{}, err
		}
		name, err := r.obname()
		if err != nil {
			return AttributeRef{}, err
		}
		label, err := r.ident()
		return AttributeRef{Type: typ, Name: name, Label: label}, err
	case STATUS:
		v, err := r.u8()
		return v != 0, err
	default:
		return nil, errors.Wrapf(fault.ErrUnsupportedReprCode, "representation code %d", uint8(code))
	}
}

// values decodes count consecutive values of code.
func (r *reader) values(code ReprCode, count int) ([]any, error) {
	if !code.Valid() {
		return nil, errors.Wrapf(fault.ErrUnsupportedReprCode, "representation code %d", uint8(code))
	}
	if count < 0 {
		return nil, errors.Wrapf(fault.ErrMalformedComponent, "negative value count %d of %s", count, code)
	}
	// every code takes at least one byte
	if count > r.remaining() {
		return nil, errors.Wrapf(fault.ErrTruncatedInput,
			"%d values of %s cannot fit in %d bytes", count, code, r.remaining())
	}
	out := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := r.value(code)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d of %d (%s)", i+1, count, code)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeValues decodes count values of code from buf and returns the
// number of bytes consumed.
func DecodeValues(buf []byte, code ReprCode, count int) ([]any, int, error) {
	r := newReader(buf)
	vs, err := r.values(code, count)
	return vs, r.pos, err
}
