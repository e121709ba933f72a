package lis

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/stream"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.lis")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// observed returns a permissive handler whose logs can be inspected.
func observed() (*fault.Handler, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return fault.NewHandler(zap.New(core)), logs
}

// physical builds one physical record with no trailer.
func physical(attrs uint16, body []byte) []byte {
	buf := make([]byte, PRHeaderSize, PRHeaderSize+len(body))
	binary.BigEndian.PutUint16(buf[0:], uint16(PRHeaderSize+len(body)))
	binary.BigEndian.PutUint16(buf[2:], attrs)
	return append(buf, body...)
}

// logical builds a logical record of type t in a single physical record.
func logical(t RecordType, body []byte) []byte {
	return physical(0, append([]byte{byte(t), 0}, body...))
}

// split builds a logical record of type t over physical records holding
// at most n payload bytes each.
func split(t RecordType, body []byte, n int) []byte {
	data := append([]byte{byte(t), 0}, body...)
	var out []byte
	for i := 0; len(data) > 0; i++ {
		k := n
		if k > len(data) {
			k = len(data)
		}
		var attrs uint16
		if i > 0 {
			attrs |= PRPredecessor
		}
		if k < len(data) {
			attrs |= PRSuccessor
		}
		out = append(out, physical(attrs, data[:k])...)
		data = data[k:]
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

func pad(s string, n int) string {
	return s + strings.Repeat(" ", n-len(s))
}

// fileHeaderBody builds a file header payload named name.
func fileHeaderBody(name string) []byte {
	s := pad(name, 10) + "  " + pad("SUB", 6) + pad("1.0", 8) + pad("24/01/01", 8) +
		" " + pad("1024", 5) + "  " + "LO" + "  " + pad("", 10)
	return []byte(s)
}

func reelHeaderBody(name string) []byte {
	s := pad("SERVIC", 6) + pad("", 6) + pad("24/01/01", 8) + "  " + pad("ORIG", 4) + "  " +
		pad(name, 8) + "  " + "01" + "  " + pad("", 8) + "  " + pad("comment", 74)
	return []byte(s)
}

// entry builds a DFSR entry block.
func entry(typ uint8, code ReprCode, value []byte) []byte {
	return append([]byte{typ, byte(len(value)), byte(code)}, value...)
}

// spec builds a 40-byte datum spec block.
func spec(mnemonic, units string, size int, code ReprCode) []byte {
	b := []byte(pad(mnemonic, 4) + pad("SERVIC", 6) + pad("ORDER", 8) + pad(units, 4))
	b = append(b, 0, 0, 0, 0) // API codes
	b = append(b, 0, 1)       // file number
	b = append(b, byte(size>>8), byte(size))
	b = append(b, 0, 0) // spare
	b = append(b, 0, 1, byte(code))
	return append(b, 0, 0, 0, 0, 0)
}

func i32(v int32) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(v))
}

func i16(v int16) []byte {
	return binary.BigEndian.AppendUint16(nil, uint16(v))
}

// encodeF32 encodes v as a LIS 32-bit float, representation code 68.
func encodeF32(v float32) []byte {
	if v == 0 {
		return []byte{0x40, 0, 0, 0}
	}
	frac, exp := math.Frexp(float64(v)) // v = frac * 2^exp, 0.5 <= |frac| < 1
	if frac < 0 {
		if frac == -0.5 {
			frac, exp = -1, exp-1
		}
		bits := uint32((frac+1)*float64(1<<23)) & 0x7FFFFF
		e := uint32(^(exp + 128)) & 0xFF
		return binary.BigEndian.AppendUint32(nil, 0x80000000|e<<23|bits)
	}
	bits := uint32(frac*float64(1<<23)) & 0x7FFFFF
	return binary.BigEndian.AppendUint32(nil, uint32(exp+128)<<23|bits)
}

func f32s(vs ...float32) []byte {
	var out []byte
	for _, v := range vs {
		out = append(out, encodeF32(v)...)
	}
	return out
}

// simpleDFSR describes frames of two F32 channels, DEPT and GR.
func simpleDFSR() []byte {
	return concat(
		entry(EntryUpDown, Byte, []byte{255}),
		entry(EntryFrameSize, I16, i16(8)),
		entry(EntryTerminator, Byte, nil),
		spec("DEPT", "FT", 4, F32),
		spec("GR", "GAPI", 4, F32),
	)
}

// partitioned builds two logical files between reel and tape records.
func partitioned() []byte {
	return concat(
		logical(ReelHeader, reelHeaderBody("REEL1")),
		logical(TapeHeader, reelHeaderBody("TAPE1")),
		logical(FileHeader, fileHeaderBody("FILE.001")),
		logical(FlicComment, []byte("comment")),
		logical(FileTrailer, fileHeaderBody("FILE.001")),
		logical(FileHeader, fileHeaderBody("FILE.002")),
		logical(WellsiteData, nil),
		logical(DataFormatSpec, simpleDFSR()),
		logical(NormalData, f32s(100, 50, 100.5, 60)),
		logical(FileTrailer, fileHeaderBody("FILE.002")),
		logical(TapeTrailer, reelHeaderBody("TAPE1")),
		logical(ReelTrailer, reelHeaderBody("REEL1")),
	)
}

// tapeImage wraps each record in its own tape image record, followed by
// two tape marks.
func tapeImage(records ...[]byte) []byte {
	var out []byte
	prev := 0
	header := func(typ uint32, n int) {
		h := make([]byte, stream.TapeImageHeaderSize)
		binary.LittleEndian.PutUint32(h[0:], typ)
		binary.LittleEndian.PutUint32(h[4:], uint32(prev))
		binary.LittleEndian.PutUint32(h[8:], uint32(len(out)+stream.TapeImageHeaderSize+n))
		prev = len(out)
		out = append(out, h...)
	}
	for _, rec := range records {
		header(stream.TapeImageRecord, len(rec))
		out = append(out, rec...)
	}
	header(stream.TapeImageMark, 0)
	header(stream.TapeImageMark, 0)
	return out
}
