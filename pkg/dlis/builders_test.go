package dlis

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssargent/welllog/pkg/fault"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dlis")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// observed returns a permissive handler whose logs can be inspected.
func observed() (*fault.Handler, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return fault.NewHandler(zap.New(core)), logs
}

func label(layout string) []byte {
	s := "   1" + "V1.00" + layout + " 8192" + "Default Storage Set"
	return []byte(s + strings.Repeat(" ", StorageLabelSize-len(s)))
}

// segment builds a logical record segment with no trailer.
func segment(attrs byte, typ int, body []byte) []byte {
	buf := make([]byte, SegmentHeaderSize, SegmentHeaderSize+len(body))
	binary.BigEndian.PutUint16(buf, uint16(SegmentHeaderSize+len(body)))
	buf[2] = attrs
	buf[3] = byte(typ)
	return append(buf, body...)
}

// padded builds a segment whose body is followed by pad bytes, a
// checksum and a trailing length.
func padded(attrs byte, typ int, body []byte, pad int) []byte {
	trailer := make([]byte, pad)
	trailer[pad-1] = byte(pad)
	trailer = append(trailer, 0xAB, 0xCD) // checksum
	n := SegmentHeaderSize + len(body) + len(trailer) + 2
	trailer = append(trailer, byte(n>>8), byte(n))
	return segment(attrs|SegPadding|SegChecksum|SegTrailingLength, typ, append(append([]byte{}, body...), trailer...))
}

func explicit(typ int, body []byte) []byte { return segment(SegExplicit, typ, body) }

func visible(payload []byte) []byte {
	buf := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint16(buf, uint16(4+len(payload)))
	buf[2], buf[3] = 0xFF, 0x01
	return append(buf, payload...)
}

// dlisFile builds a file of a storage label and one visible record per
// group of segments.
func dlisFile(records ...[]byte) []byte {
	out := label("RECORD")
	for _, rec := range records {
		out = append(out, visible(rec)...)
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// value encoders

func vIdent(s string) []byte { return append([]byte{byte(len(s))}, s...) }
func vASCII(s string) []byte { return append(vUvari(uint32(len(s))), s...) }
func vU8(v uint8) []byte     { return []byte{v} }

func vUvari(v uint32) []byte {
	switch {
	case v < 0x80:
		return []byte{byte(v)}
	case v < 0x4000:
		return []byte{0x80 | byte(v>>8), byte(v)}
	default:
		return []byte{0xC0 | byte(v>>24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

func vObname(origin uint32, copyNumber uint8, id string) []byte {
	return concat(vUvari(origin), []byte{copyNumber}, vIdent(id))
}

func vF32(vs ...float32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.BigEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// eflr builds the payload of an explicitly formatted record.
type eflr struct{ buf []byte }

func newSet(typ string) *eflr {
	return &eflr{buf: append([]byte{0xF0}, vIdent(typ)...)}
}

func (e *eflr) raw(b ...byte) *eflr {
	e.buf = append(e.buf, b...)
	return e
}

// template adds a template attribute with only a label.
func (e *eflr) template(labels ...string) *eflr {
	for _, l := range labels {
		e.buf = append(e.buf, 0x30)
		e.buf = append(e.buf, vIdent(l)...)
	}
	return e
}

// templateCode adds a template attribute with a label and a code.
func (e *eflr) templateCode(l string, code ReprCode) *eflr {
	e.buf = append(e.buf, 0x34)
	e.buf = append(e.buf, vIdent(l)...)
	e.buf = append(e.buf, byte(code))
	return e
}

// templateValue adds a template attribute with a label, a code and one value.
func (e *eflr) templateValue(l string, code ReprCode, value []byte) *eflr {
	e.buf = append(e.buf, 0x35)
	e.buf = append(e.buf, vIdent(l)...)
	e.buf = append(e.buf, byte(code))
	e.buf = append(e.buf, value...)
	return e
}

func (e *eflr) object(origin uint32, copyNumber uint8, id string) *eflr {
	e.buf = append(e.buf, 0x70)
	e.buf = append(e.buf, vObname(origin, copyNumber, id)...)
	return e
}

// value adds an object attribute that only carries a value.
func (e *eflr) value(v []byte) *eflr {
	e.buf = append(e.buf, 0x21)
	e.buf = append(e.buf, v...)
	return e
}

// values adds an object attribute with a count, a code and values.
func (e *eflr) values(code ReprCode, count int, v []byte) *eflr {
	e.buf = append(e.buf, 0x2D)
	e.buf = append(e.buf, vUvari(uint32(count))...)
	e.buf = append(e.buf, byte(code))
	e.buf = append(e.buf, v...)
	return e
}

func (e *eflr) absent() *eflr {
	e.buf = append(e.buf, 0x00)
	return e
}

func (e *eflr) bytes() []byte { return e.buf }

// fileHeader is the payload of a FILE-HEADER record.
func fileHeader(seq string) []byte {
	return newSet("FILE-HEADER").
		template("SEQUENCE-NUMBER", "ID").
		object(10, 0, "5").
		values(ASCII, 1, vASCII(seq)).
		values(ASCII, 1, vASCII("MAIN FILE")).
		bytes()
}

// channels is a CHANNEL set of FSINGL channels.
func channels(ids ...string) []byte {
	set := newSet("CHANNEL").template("LONG-NAME").templateCode("REPRESENTATION-CODE", USHORT).template("UNITS")
	for _, id := range ids {
		set.object(10, 0, id).value(vIdent(strings.ToLower(id))).value(vU8(uint8(FSINGL))).value(vIdent("m"))
	}
	return set.bytes()
}

// frame is a FRAME set listing channels.
func frame(id string, ids ...string) []byte {
	var refs []byte
	for _, ch := range ids {
		refs = append(refs, vObname(10, 0, ch)...)
	}
	return newSet("FRAME").templateCode("CHANNELS", OBNAME).
		object(10, 0, id).values(OBNAME, len(ids), refs).
		bytes()
}

// fdata is an FDATA record payload for frame id.
func fdata(id string, number uint32, row []byte) []byte {
	return concat(vObname(10, 0, id), vUvari(number), row)
}
