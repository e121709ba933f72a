package dlis

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/metrics"
	"github.com/ssargent/welllog/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstLogicalFile() []byte {
	return concat(
		explicit(0, fileHeader("1")),
		explicit(3, channels("A", "B", "C", "D")),
		explicit(4, frame("MAIN", "A", "B", "C", "D")),
		segment(0, 0, fdata("MAIN", 1, vF32(1, 2, 3, 4))),
		segment(0, 0, fdata("MAIN", 2, vF32(5, 6, 7, 8))),
		segment(0, 1, concat(vObname(10, 0, "BLOB"), []byte("raw"))),
		segment(0, 127, vObname(10, 0, "MAIN")),
	)
}

func secondLogicalFile() []byte {
	return concat(
		explicit(0, fileHeader("2")),
		explicit(3, channels("X")),
	)
}

func twoFiles() []byte {
	return dlisFile(firstLogicalFile(), secondLogicalFile())
}

// tapeImage wraps data in tape image records of at most size bytes,
// followed by two tape marks.
func tapeImage(data []byte, size int) []byte {
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
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		header(stream.TapeImageRecord, n)
		out = append(out, data[:n]...)
		data = data[n:]
	}
	header(stream.TapeImageMark, 0)
	header(stream.TapeImageMark, 0)
	return out
}

func TestLoad(t *testing.T) {
	files, err := Load(writeFile(t, twoFiles()), Options{})
	require.NoError(t, err)
	defer files.Close()
	require.Len(t, files, 2)

	lf := files[0]
	assert.Len(t, lf.Explicits, 3)
	assert.Len(t, lf.Index.Implicits(), 4)
	assert.Len(t, lf.Channels(), 4)

	fh, ok := lf.FileHeader()
	require.True(t, ok)
	assert.Equal(t, []any{"1"}, fh.Values("SEQUENCE-NUMBER"))

	main, ok := lf.Frame("MAIN")
	require.True(t, ok)
	assert.Len(t, lf.FrameDataOffsets(main), 2)

	curves, err := lf.Curves(main)
	require.NoError(t, err)
	assert.Equal(t, "ffff", curves.Layout.Format())
	assert.Equal(t, []uint32{1, 2}, curves.FrameNumbers)
	assert.Equal(t, 2, curves.Rows())
	a, ok := curves.Column("A")
	require.True(t, ok)
	assert.Equal(t, []any{float32(1), float32(5)}, a.Samples)
	d, _ := curves.Column("D")
	assert.Equal(t, []any{float32(4), float32(8)}, d.Samples)

	blob := &Object{Type: "NO-FORMAT", Name: ObjectName{Origin: 10, ID: "BLOB"}}
	data, err := lf.NoFormat(blob)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("raw")}, data)

	second := files[1]
	fh, ok = second.FileHeader()
	require.True(t, ok)
	assert.Equal(t, []any{"2"}, fh.Values("SEQUENCE-NUMBER"))
	assert.Len(t, second.Channels(), 1)
	assert.Empty(t, second.Frames())
}

func TestLoad_ObjectsOutliveClose(t *testing.T) {
	files, err := Load(writeFile(t, twoFiles()), Options{})
	require.NoError(t, err)
	require.NoError(t, files.Close())

	assert.Len(t, files[0].Channels(), 4)
	main, ok := files[0].Frame("MAIN")
	require.True(t, ok)
	_, err = files[0].Curves(main)
	assert.Error(t, err)
}

func TestLoad_FrameWidthMismatch(t *testing.T) {
	lf := concat(
		explicit(0, fileHeader("1")),
		explicit(3, channels("A", "B", "C", "D")),
		explicit(4, frame("MAIN", "A", "B", "C", "D")),
		segment(0, 0, fdata("MAIN", 1, vF32(1, 2, 3))),
	)
	files, err := Load(writeFile(t, dlisFile(lf)), Options{})
	require.NoError(t, err)
	defer files.Close()

	main, _ := files[0].Frame("MAIN")
	_, err = files[0].Curves(main)
	assert.True(t, errors.Is(err, fault.ErrFrameWidthMismatch))
}

func TestOpen_StorageLabel(t *testing.T) {
	f, err := Open(writeFile(t, twoFiles()), Options{})
	require.NoError(t, err)
	defer f.Close()

	first, err := f.StorageLabel()
	require.NoError(t, err)
	second, err := f.StorageLabel()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "1.0", first.Version)
	assert.Equal(t, int64(0), f.StorageLabelOffset())
	assert.False(t, f.TapeImage())
}

func TestOpen_TooShort(t *testing.T) {
	_, err := Open(writeFile(t, label("RECORD")[:40]), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrUnreadableHeader))
	assert.Contains(t, err.Error(), "cannot read 80 first bytes of file")

	_, err = Load(writeFile(t, nil), Options{})
	assert.True(t, errors.Is(err, fault.ErrUnreadableHeader))
}

func TestOpen_NonExistent(t *testing.T) {
	_, err := Open("/nonexistent/file.dlis", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to open file for path")
}

func TestLoad_BytesBeforeLabel(t *testing.T) {
	path := writeFile(t, append([]byte("garbage12345"), twoFiles()...))
	h, logs := observed()

	f, err := Open(path, Options{Handler: h})
	require.NoError(t, err)
	assert.Equal(t, int64(12), f.StorageLabelOffset())
	require.NoError(t, f.Close())
	assert.Equal(t, 1, logs.FilterMessage("unexpected bytes found before the storage unit label").Len())

	files, err := Load(path, Options{Handler: h})
	require.NoError(t, err)
	defer files.Close()
	assert.Len(t, files, 2)

	_, err = Load(path, Options{Handler: &fault.Handler{Info: fault.Raise}})
	assert.Error(t, err)
}

func TestLoad_BytesBeforeVisibleRecord(t *testing.T) {
	data := twoFiles()
	sul := StorageLabelSize
	data = concat(data[:sul], []byte{0x00, 0x00, 0x00}, data[sul:])
	h, logs := observed()

	files, err := Load(writeFile(t, data), Options{Handler: h})
	require.NoError(t, err)
	defer files.Close()
	assert.Len(t, files, 2)
	assert.Equal(t, 1, logs.FilterMessage("unexpected bytes between the storage unit label and the first visible record").Len())
}

func TestLoad_Truncated(t *testing.T) {
	full := twoFiles()
	cut := StorageLabelSize + len(visible(firstLogicalFile())) + 4 + 10
	path := writeFile(t, full[:cut])

	h, logs := observed()
	files, err := Load(path, Options{Handler: h})
	require.NoError(t, err)
	defer files.Close()
	assert.Len(t, files, 1, "only the complete logical file is returned")
	assert.Equal(t, 1, logs.FilterMessage("file truncated in logical record segment").Len())

	_, err = Load(path, Options{Handler: fault.Strict(nil)})
	assert.True(t, errors.Is(err, fault.ErrTruncatedRecord), "got %v", err)
}

func TestLoad_TapeImage(t *testing.T) {
	path := writeFile(t, tapeImage(twoFiles(), 100))

	f, err := Open(path, Options{})
	require.NoError(t, err)
	assert.True(t, f.TapeImage())
	sul, err := f.StorageLabel()
	require.NoError(t, err)
	assert.Equal(t, "record", sul.Layout)
	require.NoError(t, f.Close())

	files, err := Load(path, Options{})
	require.NoError(t, err)
	defer files.Close()
	require.Len(t, files, 2)

	main, _ := files[0].Frame("MAIN")
	curves, err := files[0].Curves(main)
	require.NoError(t, err)
	assert.Equal(t, 2, curves.Rows())
}

func TestLoad_BadRecordSkipped(t *testing.T) {
	lf := concat(
		explicit(0, fileHeader("1")),
		explicit(3, []byte{0x70, 0x01}),
		explicit(3, channels("A")),
	)
	path := writeFile(t, dlisFile(lf))

	h, logs := observed()
	files, err := Load(path, Options{Handler: h})
	require.NoError(t, err)
	defer files.Close()
	assert.Len(t, files[0].Explicits, 3)
	assert.Len(t, files[0].Channels(), 1)
	assert.Equal(t, 1, logs.FilterMessage("unable to parse explicit record").Len())

	_, err = Load(path, Options{Handler: fault.Strict(nil)})
	assert.True(t, errors.Is(err, fault.ErrMalformedComponent), "got %v", err)
}

func TestLoad_NoLogicalFiles(t *testing.T) {
	_, err := Load(writeFile(t, label("RECORD")), Options{})
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestLoad_NoStorageLabel(t *testing.T) {
	_, err := Load(writeFile(t, make([]byte, 200)), Options{})
	assert.True(t, errors.Is(err, fault.ErrUnreadableHeader), "got %v", err)
}

func TestFile_IndexAndExtract(t *testing.T) {
	f, err := Open(writeFile(t, twoFiles()), Options{})
	require.NoError(t, err)
	defer f.Close()

	idx, err := f.Index()
	require.NoError(t, err)
	assert.Equal(t, 9, idx.Size())
	assert.Empty(t, idx.Broken)

	recs, err := f.Extract([]int{0, 1, 7})
	require.NoError(t, err)
	assert.Equal(t, TagFileHeader, recs[0].Tag())
	assert.Equal(t, TagChannel, recs[1].Tag())
	assert.Equal(t, TagFileHeader, recs[2].Tag())

	_, err = f.Extract([]int{9})
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestFile_Reindex(t *testing.T) {
	body := make([]byte, 176)
	body[175] = 180
	h, logs := observed()

	f, err := Open(writeFile(t, segment(SegExplicit|SegPadding, 0, body)), Options{Handler: h})
	require.NoError(t, err)
	defer f.Close()

	_, err = f.StorageLabel()
	assert.True(t, errors.Is(err, fault.ErrUnreadableHeader))

	require.NoError(t, f.Reindex([]int64{0}, []int{180}))
	recs, err := f.Extract([]int{0})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Explicit)
	assert.Empty(t, recs[0].Data)
	assert.Equal(t, 1, logs.FilterMessage("bad segment trim: padbytes >= segment.length").Len())

	assert.Error(t, f.Reindex([]int64{0, 1}, []int{180}))
}

func TestLoad_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	files, err := Load(writeFile(t, twoFiles()), Options{Recorder: rec})
	require.NoError(t, err)
	defer files.Close()

	expected := `
# HELP welllog_logical_files_total Total number of logical files loaded
# TYPE welllog_logical_files_total counter
welllog_logical_files_total{format="dlis"} 2
# HELP welllog_records_indexed_total Total number of logical records indexed
# TYPE welllog_records_indexed_total counter
welllog_records_indexed_total{format="dlis",kind="explicit"} 5
welllog_records_indexed_total{format="dlis",kind="implicit"} 4
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"welllog_logical_files_total", "welllog_records_indexed_total"))
}

func TestOpen_CorruptTapeImageBeforeLabel(t *testing.T) {
	data := tapeImage(concat(make([]byte, 30), twoFiles()), 30)
	// second header: prev no longer points at the first
	binary.LittleEndian.PutUint32(data[12+30+4:], 999)

	f, err := Open(writeFile(t, data), Options{})
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, f.TapeImage())

	_, err = f.StorageLabel()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrUnreadableHeader), "got %v", err)
	assert.True(t, errors.Is(err, fault.ErrCorruptFormat), "got %v", err)

	_, err = Load(writeFile(t, data), Options{})
	assert.True(t, errors.Is(err, fault.ErrCorruptFormat), "got %v", err)
}
