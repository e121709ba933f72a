package dlis

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValues(t *testing.T) {
	tests := []struct {
		name string
		code ReprCode
		in   []byte
		want any
	}{
		{"fshort", FSHORT, []byte{0x4C, 0x88}, float32(153)},
		{"fshort negative", FSHORT, []byte{0xB3, 0x88}, float32(-153)},
		{"fsingl", FSINGL, vF32(153), float32(153)},
		{"fsing1", FSING1, vF32(1, 2), Validated1[float32]{V: 1, A: 2}},
		{"isingl", ISINGL, []byte{0x42, 0x99, 0x00, 0x00}, float32(153)},
		{"isingl negative", ISINGL, []byte{0xC2, 0x99, 0x00, 0x00}, float32(-153)},
		{"vsingl", VSINGL, []byte{0x19, 0x44, 0x00, 0x00}, float32(153)},
		{"vsingl zero", VSINGL, []byte{0x00, 0x00, 0x00, 0x00}, float32(0)},
		{"csingl", CSINGL, vF32(1, -1), complex64(complex(1, -1))},
		{"sshort", SSHORT, []byte{0xFF}, int8(-1)},
		{"snorm", SNORM, []byte{0xFF, 0xFE}, int16(-2)},
		{"slong", SLONG, []byte{0x80, 0x00, 0x00, 0x00}, int32(math.MinInt32)},
		{"ushort", USHORT, []byte{0xFF}, uint8(255)},
		{"unorm", UNORM, []byte{0x01, 0x00}, uint16(256)},
		{"ulong", ULONG, []byte{0x00, 0x01, 0x00, 0x00}, uint32(65536)},
		{"uvari 1", UVARI, []byte{0x7F}, uint32(127)},
		{"uvari 2", UVARI, []byte{0x81, 0x00}, uint32(256)},
		{"uvari 4", UVARI, []byte{0xC0, 0x01, 0x00, 0x00}, uint32(65536)},
		{"origin", ORIGIN, []byte{0x0A}, uint32(10)},
		{"ident", IDENT, vIdent("DEPT"), "DEPT"},
		{"ascii", ASCII, vASCII("free text"), "free text"},
		{"units", UNITS, vIdent("m/s"), "m/s"},
		{"status", STATUS, []byte{0x01}, true},
		{"obname", OBNAME, vObname(2, 1, "GR"), ObjectName{Origin: 2, Copy: 1, ID: "GR"}},
		{"objref", OBJREF, concat(vIdent("CHANNEL"), vObname(2, 0, "GR")),
			ObjectRef{Type: "CHANNEL", Name: ObjectName{Origin: 2, ID: "GR"}}},
		{"attref", ATTREF, concat(vIdent("CHANNEL"), vObname(2, 0, "GR"), vIdent("UNITS")),
			AttributeRef{Type: "CHANNEL", Name: ObjectName{Origin: 2, ID: "GR"}, Label: "UNITS"}},
		{"dtime", DTIME, []byte{87, 0x14, 19, 21, 20, 15, 0x02, 0x6C},
			DateTime{Year: 1987, TimeZone: 1, Month: 4, Day: 19, Hour: 21, Minute: 20, Second: 15, Millisecond: 620}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs, n, err := DecodeValues(tt.in, tt.code, 1)
			require.NoError(t, err)
			require.Len(t, vs, 1)
			assert.Equal(t, tt.want, vs[0])
			assert.Equal(t, len(tt.in), n)
		})
	}
}

func TestDecodeValues_Errors(t *testing.T) {
	_, _, err := DecodeValues([]byte{0x00}, ReprCode(0), 1)
	assert.True(t, errors.Is(err, fault.ErrUnsupportedReprCode))

	_, _, err = DecodeValues([]byte{0x00}, ReprCode(28), 1)
	assert.True(t, errors.Is(err, fault.ErrUnsupportedReprCode))

	_, _, err = DecodeValues([]byte{0x00, 0x01}, FSINGL, 1)
	assert.True(t, errors.Is(err, fault.ErrTruncatedInput))

	_, _, err = DecodeValues([]byte{0x05, 'a'}, IDENT, 1)
	assert.True(t, errors.Is(err, fault.ErrTruncatedInput))

	// a count that cannot fit is rejected before decoding
	_, _, err = DecodeValues([]byte{0x01}, USHORT, 1<<30)
	assert.True(t, errors.Is(err, fault.ErrTruncatedInput))
}

func TestReprCode_Table(t *testing.T) {
	assert.Equal(t, "rfbBxVFzZcCdDluULisSjJoOAqQ", func() string {
		var s []byte
		for c := FSHORT; c <= UNITS; c++ {
			s = append(s, c.Format())
		}
		return string(s)
	}())

	assert.Equal(t, 4, FSINGL.Width())
	assert.Equal(t, 24, FDOUB2.Width())
	assert.Equal(t, 8, DTIME.Width())
	assert.Equal(t, 0, UVARI.Width())
	assert.Equal(t, "FDOUBL", FDOUBL.String())
	assert.Equal(t, "ReprCode(99)", ReprCode(99).String())

	c, ok := ReprCodeFromFormat('l')
	assert.True(t, ok)
	assert.Equal(t, SLONG, c)
	_, ok = ReprCodeFromFormat('?')
	assert.False(t, ok)
}

func TestDateTime_Time(t *testing.T) {
	dt := DateTime{Year: 1987, Month: 4, Day: 19, Hour: 21, Minute: 20, Second: 15, Millisecond: 620}
	assert.Equal(t, "1987-04-19 21:20:15.620", dt.String())
}
