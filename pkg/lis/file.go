package lis

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/metrics"
	"github.com/ssargent/welllog/pkg/stream"
	"go.uber.org/zap"
)

const format = "lis"

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

// File is an open LIS file.
type File struct {
	path      string
	file      *stream.File
	cursor    stream.Cursor
	bounds    []int64
	tapeImage bool
	index     *Index

	opts Options
}

// Open opens path, unwrapping tape image framing when present.
func Open(path string, opts Options) (*File, error) {
	opts = opts.withDefaults()

	file, err := stream.OpenFile(stream.FileConfig{Path: path})
	if err != nil {
		return nil, err
	}
	f := &File{path: path, file: file, cursor: file, opts: opts}

	if file.Size() < stream.TapeImageHeaderSize {
		file.Close()
		return nil, errors.Wrapf(fault.ErrUnreadableHeader,
			"cannot read %d first bytes of file %s", stream.TapeImageHeaderSize, path)
	}
	tif, err := stream.ProbeTapeImage(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	if tif {
		layer, err := stream.NewTapeImage(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		f.cursor, f.bounds, f.tapeImage = layer, layer.Boundaries(), true
	}
	return f, nil
}

// Path returns the path the file was opened with.
func (f *File) Path() string { return f.path }

// TapeImage reports whether the file is wrapped in tape image framing.
func (f *File) TapeImage() bool { return f.tapeImage }

// Index returns the logical record index of the whole file, indexing it
// on the first call.
func (f *File) Index() (*Index, error) {
	if f.index != nil {
		return f.index, nil
	}
	idx, err := FindOffsets(f.cursor, f.bounds, f.opts.Handler)
	if err != nil {
		return nil, err
	}
	f.index = idx
	return idx, nil
}

// Extract assembles the logical record at offset.
func (f *File) Extract(offset int64) (*Record, error) {
	rec, err := Extract(f.cursor, f.bounds, offset)
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
// sharing its open handle, and the reel and tape records around them.
type Files struct {
	Logical []*LogicalFile
	Tape    []*Record

	file *File
}

// Close closes the shared file handle. Materialized records stay usable.
func (fs *Files) Close() error {
	if fs == nil || fs.file == nil {
		return nil
	}
	return fs.file.Close()
}

// Len returns the number of logical files.
func (fs *Files) Len() int { return len(fs.Logical) }

// Load opens path and assembles every logical file in it. With a handler
// that logs, the logical files indexed before a critical problem are
// returned. A file without logical files is an error regardless of the
// handler.
func Load(path string, opts Options) (*Files, error) {
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

func (f *File) load() (*Files, error) {
	idx, err := f.Index()
	if err != nil {
		return nil, err
	}

	parts, tape := Partition(idx)
	files := &Files{file: f}
	for _, e := range tape {
		rec, err := f.extract(e)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			files.Tape = append(files.Tape, rec)
		}
	}

	for _, part := range parts {
		lf, err := f.newLogicalFile(part)
		if err != nil {
			return nil, err
		}
		files.Logical = append(files.Logical, lf)
		f.opts.Recorder.RecordLogicalFile(format)
		f.opts.Logger.Debug("loaded logical file",
			zap.String("path", f.path),
			zap.Int("explicits", len(lf.Explicits)),
			zap.Int("implicits", len(part.Implicits())),
		)
	}

	if len(files.Logical) == 0 {
		return nil, errors.Wrapf(fault.ErrNotFound, "no logical files in %s", f.path)
	}
	return files, nil
}

// extract assembles the record of e, routing failures through the
// handler. It returns nil, nil when the handler logs.
func (f *File) extract(e Entry) (*Record, error) {
	rec, err := f.Extract(e.Offset)
	if err == nil {
		return rec, nil
	}
	return nil, f.opts.Handler.Handle(fault.Report{
		Severity: fault.Critical,
		Context:  "lis.Load",
		Problem:  "unable to extract logical record",
		Action:   "record is skipped",
		Debug:    fmt.Sprintf("%s record at %d", e.Type, e.Offset),
		Err:      err,
	})
}
