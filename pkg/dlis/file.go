package dlis

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/metrics"
	"github.com/ssargent/welllog/pkg/stream"
	"go.uber.org/zap"
)

const (
	// bytes searched after the storage label for the first visible record
	visibleSearchSize = 200

	// payload bytes read to key an implicit record by its object name
	fdataPrefixSize = 262

	format = "dlis"
)

// Options configure Open and Load.
type Options struct {
	// Handler routes decoding problems. When nil a permissive handler
	// logging to Logger and observed by Recorder is used.
	Handler  *fault.Handler
	Logger   *zap.Logger
	Recorder *metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Handler == nil {
		o.Handler = fault.NewHandler(o.Logger)
		if o.Recorder != nil {
			o.Handler.WithObserver(o.Recorder)
		}
	}
	return o
}

// File is an open DLIS file.
type File struct {
	path   string
	file   *stream.File
	base   stream.Cursor // file, or tape image layer over it
	cursor stream.Cursor // logical record segments

	tapeImage bool
	sulOffset int64
	labelErr  error
	index     *Index

	opts Options
}

// Open opens path and locates the storage label and the first visible
// record. A file without a storage label is opened as a raw stream of
// logical record segments; its StorageLabel returns the reason.
func Open(path string, opts Options) (*File, error) {
	opts = opts.withDefaults()

	file, err := stream.OpenFile(stream.FileConfig{Path: path})
	if err != nil {
		return nil, err
	}

	f := &File{path: path, file: file, base: file, cursor: file, sulOffset: -1, opts: opts}
	if err := f.open(); err != nil {
		file.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) open() error {
	if f.file.Size() < StorageLabelSize {
		return errors.Wrapf(fault.ErrUnreadableHeader,
			"cannot read %d first bytes of file %s", StorageLabelSize, f.path)
	}

	tif, err := stream.ProbeTapeImage(f.file)
	if err != nil {
		return err
	}
	if tif {
		layer, err := stream.NewTapeImage(f.file)
		if err != nil {
			return err
		}
		f.base, f.cursor, f.tapeImage = layer, layer, true
	}

	if err := f.base.Seek(0); err != nil {
		return err
	}
	n := f.base.Size()
	if n > labelSearchSize {
		n = labelSearchSize
	}
	buf, readErr := f.base.Read(int(n))
	if readErr == nil && n < labelSearchSize {
		readErr = f.base.Err()
	}
	searchErr := func(err error) error {
		if readErr != nil {
			err = errors.Wrapf(readErr, "%s, search stopped after %d bytes", err, len(buf))
		}
		return errors.Mark(err, fault.ErrUnreadableHeader)
	}

	sul, err := FindStorageLabel(buf)
	if err != nil {
		f.labelErr = searchErr(err)
		return f.cursor.Seek(0)
	}
	if sul+StorageLabelSize > len(buf) {
		f.labelErr = searchErr(errors.Newf("storage label at %d runs past the %d bytes searched", sul, len(buf)))
		return f.cursor.Seek(0)
	}
	if sul > 0 {
		if err := f.opts.Handler.Handle(fault.Report{
			Severity: fault.Info,
			Context:  "dlis.Open",
			Problem:  "unexpected bytes found before the storage unit label",
			Spec:     "RP66 V1 2.3.2: the storage unit label is the first 80 bytes of the storage unit",
			Action:   "bytes before the label are ignored",
			Debug:    fmt.Sprintf("storage label at physical offset %d", f.base.Physical(int64(sul))),
		}); err != nil {
			return err
		}
	}
	f.sulOffset = int64(sul)

	vr, err := f.findVisibleRecord(f.sulOffset + StorageLabelSize)
	if err != nil {
		return err
	}
	env, err := stream.NewEnvelope(f.base, vr)
	if err != nil {
		return err
	}
	f.cursor = env
	return env.Seek(0)
}

// findVisibleRecord returns the offset of the first visible record header
// at or after start.
func (f *File) findVisibleRecord(start int64) (int64, error) {
	if start >= f.base.Size() {
		return start, nil
	}
	if err := f.base.Seek(start); err != nil {
		return 0, err
	}
	buf, _ := f.base.Read(visibleSearchSize)
	if len(buf) >= stream.VisibleHeaderSize &&
		buf[2] == stream.VisiblePad && buf[3] == stream.VisibleVersion {
		return start, nil
	}

	i := bytes.Index(buf, []byte{stream.VisiblePad, stream.VisibleVersion})
	for i >= 0 && i < 2 {
		j := bytes.Index(buf[i+1:], []byte{stream.VisiblePad, stream.VisibleVersion})
		if j < 0 {
			i = -1
			break
		}
		i += j + 1
	}
	if i < 0 {
		if tail := f.base.Err(); tail != nil && len(buf) < visibleSearchSize {
			return 0, errors.Wrapf(tail,
				"searched %d bytes from offset %d, but could not find visible record envelope",
				len(buf), start)
		}
		return 0, errors.Wrapf(fault.ErrCorruptFormat,
			"searched %d bytes from offset %d, but could not find visible record envelope",
			len(buf), start)
	}

	offset := start + int64(i) - 2
	if err := f.opts.Handler.Handle(fault.Report{
		Severity: fault.Info,
		Context:  "dlis.Open",
		Problem:  "unexpected bytes between the storage unit label and the first visible record",
		Spec:     "RP66 V1 2.3.6: visible records follow the storage unit label",
		Action:   "bytes are ignored",
		Debug:    fmt.Sprintf("visible record at %d, expected at %d", offset, start),
	}); err != nil {
		return 0, err
	}
	return offset, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// TapeImage reports whether the file is wrapped in tape image framing.
func (f *File) TapeImage() bool { return f.tapeImage }

// StorageLabelOffset returns the offset of the storage label, -1 when
// the file has none.
func (f *File) StorageLabelOffset() int64 { return f.sulOffset }

// StorageLabel reads and decodes the storage label.
func (f *File) StorageLabel() (StorageLabel, error) {
	if f.labelErr != nil {
		return StorageLabel{}, f.labelErr
	}
	if err := f.base.Seek(f.sulOffset); err != nil {
		return StorageLabel{}, err
	}
	buf, err := f.base.Read(StorageLabelSize)
	if err != nil {
		return StorageLabel{}, errors.Mark(err, fault.ErrUnreadableHeader)
	}
	return ParseStorageLabel(buf)
}

// Index returns the record index of the whole file, indexing it on the
// first call.
func (f *File) Index() (*Index, error) {
	if f.index != nil {
		return f.index, nil
	}
	if err := f.cursor.Seek(0); err != nil {
		return nil, err
	}

	all := &Index{}
	for {
		idx, err := FindOffsets(f.cursor, f.opts.Handler)
		if err != nil {
			return nil, err
		}
		all.Entries = append(all.Entries, idx.Entries...)
		all.Segments = append(all.Segments, idx.Segments...)
		all.Broken = append(all.Broken, idx.Broken...)
		if len(idx.Broken) > 0 || f.cursor.Remaining() == 0 || idx.Size() == 0 {
			break
		}
	}
	f.index = all
	return all, nil
}

// Reindex replaces the index with caller supplied record boundaries.
// lengths bound the payload extracted from each record.
func (f *File) Reindex(offsets []int64, lengths []int) error {
	if len(offsets) != len(lengths) {
		return errors.Newf("reindex: %d offsets but %d lengths", len(offsets), len(lengths))
	}

	idx := &Index{}
	for i, off := range offsets {
		if err := f.cursor.Seek(off); err != nil {
			return err
		}
		buf, err := f.cursor.Read(SegmentHeaderSize)
		if err != nil {
			return errors.Wrapf(errors.Mark(err, fault.ErrTruncatedRecord),
				"reindex: no segment header at offset %d", off)
		}
		hdr := ParseSegmentHeader(buf)
		idx.Entries = append(idx.Entries, Entry{
			Offset:   off,
			Explicit: hdr.Explicit(),
			Type:     hdr.Type,
			Length:   lengths[i],
		})
	}
	f.index = idx
	return nil
}

// Extract assembles the records at the given index positions.
func (f *File) Extract(indices []int) ([]*Record, error) {
	idx, err := f.Index()
	if err != nil {
		return nil, err
	}

	out := make([]*Record, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(idx.Entries) {
			return nil, errors.Wrapf(fault.ErrNotFound, "record %d of %d", i, len(idx.Entries))
		}
		rec, err := f.extract(idx.Entries[i])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// extract assembles the record of e, at most e.Length payload bytes when
// the length is positive.
func (f *File) extract(e Entry) (*Record, error) {
	n := math.MaxInt
	if e.Length > 0 {
		n = e.Length
	}
	rec, err := ExtractN(f.cursor, e.Offset, n, f.opts.Handler)
	if err != nil {
		return nil, err
	}
	f.opts.Recorder.RecordBytes(format, len(rec.Data))
	return rec, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	return f.file.Close()
}

// Files is the result of Load: the logical files of one physical file,
// sharing its open handle.
type Files []*LogicalFile

// Close closes the shared file handle. Materialized records and objects
// stay usable; curves can no longer be read.
func (fs Files) Close() error {
	if len(fs) == 0 {
		return nil
	}
	return fs[0].file.Close()
}

// Load opens path and decodes every logical file in it. With a handler
// that logs, the logical files read before a critical problem are
// returned. A missing or bad storage label, or a file without logical
// files, is an error regardless of the handler.
func Load(path string, opts Options) (Files, error) {
	start := time.Now()
	opts = opts.withDefaults()

	f, err := Open(path, opts)
	if err != nil {
		opts.Recorder.RecordLoad(format, false, time.Since(start))
		return nil, err
	}

	files, err := f.load()
	if err != nil {
		f.Close()
		opts.Recorder.RecordLoad(format, false, time.Since(start))
		return nil, err
	}

	opts.Recorder.RecordLoad(format, true, time.Since(start))
	return files, nil
}

func (f *File) load() (Files, error) {
	if _, err := f.StorageLabel(); err != nil {
		return nil, err
	}
	if err := f.cursor.Seek(0); err != nil {
		return nil, err
	}

	var files Files
	for {
		idx, err := FindOffsets(f.cursor, f.opts.Handler)
		if err != nil {
			return nil, err
		}
		next := f.cursor.Tell()

		if idx.Size() > 0 {
			lf, err := f.newLogicalFile(idx)
			if err != nil {
				return nil, err
			}
			files = append(files, lf)
			f.opts.Recorder.RecordLogicalFile(format)
			f.opts.Logger.Debug("loaded logical file",
				zap.String("path", f.path),
				zap.Int("explicits", len(idx.Explicits())),
				zap.Int("implicits", len(idx.Implicits())),
				zap.Int("objects", lf.pool.Len()),
			)
		}

		if len(idx.Broken) > 0 || idx.Size() == 0 {
			break
		}
		if err := f.cursor.Seek(next); err != nil {
			return nil, err
		}
		if f.cursor.Remaining() == 0 && f.cursor.Err() == nil {
			break
		}
	}

	if len(files) == 0 {
		return nil, errors.Wrapf(fault.ErrNotFound, "no logical files in %s", f.path)
	}
	return files, nil
}
