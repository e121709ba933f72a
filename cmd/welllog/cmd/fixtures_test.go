package cmd

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ident(s string) []byte { return append([]byte{byte(len(s))}, s...) }

func obname(id string) []byte { return join([]byte{10, 0}, ident(id)) }

func segment(attrs byte, typ byte, body []byte) []byte {
	hdr := binary.BigEndian.AppendUint16(nil, uint16(4+len(body)))
	return join(hdr, []byte{attrs, typ}, body)
}

// dlisFixture is one logical file with a GR channel in frame MAIN and
// two frames of data.
func dlisFixture() []byte {
	label := "   1V1.00RECORD 8192Default Storage Set"
	label += strings.Repeat(" ", 80-len(label))

	fileHeader := join([]byte{0xF0}, ident("FILE-HEADER"),
		[]byte{0x30}, ident("SEQUENCE-NUMBER"),
		[]byte{0x70}, obname("5"),
		[]byte{0x21}, ident("1"))
	channel := join([]byte{0xF0}, ident("CHANNEL"),
		[]byte{0x30}, ident("LONG-NAME"),
		[]byte{0x70}, obname("GR"),
		[]byte{0x21}, ident("gamma"))
	frame := join([]byte{0xF0}, ident("FRAME"),
		[]byte{0x34}, ident("CHANNELS"), []byte{23},
		[]byte{0x70}, obname("MAIN"),
		[]byte{0x29, 1}, obname("GR"))
	row := func(n byte, v float32) []byte {
		return join(obname("MAIN"), []byte{n}, binary.BigEndian.AppendUint32(nil, math.Float32bits(v)))
	}

	records := join(
		segment(0x80, 0, fileHeader),
		segment(0x80, 3, channel),
		segment(0x80, 4, frame),
		segment(0, 0, row(1, 10.5)),
		segment(0, 0, row(2, 11.5)),
	)
	vr := join(binary.BigEndian.AppendUint16(nil, uint16(4+len(records))), []byte{0xFF, 0x01}, records)
	return join([]byte(label), vr)
}

func lisLogicalRecord(typ byte, body []byte) []byte {
	data := join([]byte{typ, 0}, body)
	hdr := binary.BigEndian.AppendUint16(nil, uint16(4+len(data)))
	return join(hdr, []byte{0, 0}, data)
}

func lisFileHeader(name string) []byte {
	s := name + strings.Repeat(" ", 10-len(name)) + strings.Repeat(" ", 46)
	return []byte(s)
}

// lisFixture is one logical file with a DFSR of one I32 channel and two
// frames of data.
func lisFixture() []byte {
	spec := []byte("GR  SERVICORDER   GAPI")
	spec = append(spec, 0, 0, 0, 0, 0, 1, 0, 4, 0, 0, 0, 1, 73, 0, 0, 0, 0, 0)
	dfsr := join([]byte{0, 0, 66}, spec)
	return join(
		lisLogicalRecord(128, lisFileHeader("FILE.001")),
		lisLogicalRecord(64, dfsr),
		lisLogicalRecord(0, []byte{0, 0, 0, 7, 0, 0, 0, 9}),
		lisLogicalRecord(129, lisFileHeader("FILE.001")),
	)
}
