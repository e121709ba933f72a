package dlis

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Set types of implicit record owners
const (
	typeFrame    = "FRAME"
	typeNoFormat = "NO-FORMAT"
)

// LogicalFile is one logical file: its index, its explicit records, the
// objects they define and an index of implicit records by owner.
type LogicalFile struct {
	Index     *Index
	Explicits []*Record

	pool     *Pool
	implicit map[Fingerprint][]int64
	file     *File
}

func (f *File) newLogicalFile(idx *Index) (*LogicalFile, error) {
	h := f.opts.Handler
	lf := &LogicalFile{
		Index:    idx,
		pool:     NewPool(),
		implicit: make(map[Fingerprint][]int64),
		file:     f,
	}

	explicits := idx.Explicits()
	implicits := idx.Implicits()
	f.opts.Recorder.RecordIndexed(format, "explicit", len(explicits))
	f.opts.Recorder.RecordIndexed(format, "implicit", len(implicits))

	for _, e := range explicits {
		rec, err := f.extract(e)
		if err != nil {
			if err := h.Handle(fault.Report{
				Severity: fault.Critical,
				Context:  "dlis.Load",
				Problem:  "unable to extract logical record",
				Action:   "record is skipped",
				Debug:    fmt.Sprintf("record at %d", e.Offset),
				Err:      err,
			}); err != nil {
				return nil, err
			}
			continue
		}
		lf.Explicits = append(lf.Explicits, rec)

		if !rec.Consistent {
			if err := h.Handle(fault.Report{
				Severity: fault.Warning,
				Context:  "dlis.Load",
				Problem:  "logical record segments disagree on attributes or type",
				Spec:     "RP66 V1 2.2.2.1: all segments of a record have the same type and structure",
				Action:   "attributes of the first segment are used",
				Debug:    fmt.Sprintf("record at %d, segments %v", rec.Offset, rec.Segments),
			}); err != nil {
				return nil, err
			}
		}
		if rec.Encrypted {
			continue
		}

		set, err := ParseSet(rec.Data, h)
		if err != nil {
			if err := h.Handle(fault.Report{
				Severity: fault.Critical,
				Context:  "dlis.ParseSet",
				Problem:  "unable to parse explicit record",
				Action:   "record is skipped",
				Debug:    fmt.Sprintf("%s record at %d", rec.Tag(), rec.Offset),
				Err:      err,
			}); err != nil {
				return nil, err
			}
			continue
		}
		lf.pool.Add(set)
	}

	for _, e := range implicits {
		if err := lf.indexImplicit(e); err != nil {
			return nil, err
		}
	}
	return lf, nil
}

// indexImplicit keys an FDATA or NOFORM record by the object name at the
// start of its payload.
func (lf *LogicalFile) indexImplicit(e Entry) error {
	var typ string
	switch e.Type {
	case 0:
		typ = typeFrame
	case 1:
		typ = typeNoFormat
	default:
		return nil
	}

	h := lf.file.opts.Handler
	rec, err := ExtractN(lf.file.cursor, e.Offset, fdataPrefixSize, h)
	if err == nil && rec.Encrypted {
		return nil
	}
	var name ObjectName
	if err == nil {
		name, err = newReader(rec.Data).obname()
	}
	if err != nil {
		return h.Handle(fault.Report{
			Severity: fault.Critical,
			Context:  "dlis.Load",
			Problem:  "unable to read the object name of an implicit record",
			Action:   "record is skipped",
			Debug:    fmt.Sprintf("record at %d", e.Offset),
			Err:      err,
		})
	}

	key := Fingerprint{Type: typ, Name: name}
	lf.implicit[key] = append(lf.implicit[key], e.Offset)
	return nil
}

// Objects returns the object pool.
func (lf *LogicalFile) Objects() *Pool { return lf.pool }

// FileHeader returns the FILE-HEADER object, if any.
func (lf *LogicalFile) FileHeader() (*Object, bool) {
	if objs := lf.pool.Objects("FILE-HEADER"); len(objs) > 0 {
		return objs[0], true
	}
	return nil, false
}

// Origins returns the ORIGIN objects.
func (lf *LogicalFile) Origins() []*Object { return lf.pool.Objects("ORIGIN") }

// Channels returns the CHANNEL objects.
func (lf *LogicalFile) Channels() []*Object { return lf.pool.Objects("CHANNEL") }

// Frames returns the FRAME objects.
func (lf *LogicalFile) Frames() []*Object { return lf.pool.Objects(typeFrame) }

// Frame returns the first FRAME with the given id.
func (lf *LogicalFile) Frame(id string) (*Object, bool) {
	for _, obj := range lf.Frames() {
		if obj.Name.ID == id {
			return obj, true
		}
	}
	return nil, false
}

// FrameDataOffsets returns the offsets of the FDATA records of a frame.
func (lf *LogicalFile) FrameDataOffsets(frame *Object) []int64 {
	return lf.implicit[Fingerprint{Type: typeFrame, Name: frame.Name}]
}

// Curves holds the decoded rows of one frame.
type Curves struct {
	Frame        Fingerprint
	Layout       *Layout
	FrameNumbers []uint32
	Columns      []Column
}

// Rows returns the number of rows.
func (c *Curves) Rows() int { return len(c.FrameNumbers) }

// Column returns the column of the named channel.
func (c *Curves) Column(name string) (*Column, bool) {
	for i := range c.Columns {
		if c.Columns[i].Field.Name == name {
			return &c.Columns[i], true
		}
	}
	return nil, false
}

// Curves reads and decodes every FDATA record of frame.
func (lf *LogicalFile) Curves(frame *Object) (*Curves, error) {
	layout, err := NewLayout(lf.pool, frame)
	if err != nil {
		return nil, err
	}
	stride, fixed := layout.Stride()

	out := &Curves{Frame: frame.Fingerprint(), Layout: layout}
	var buf []byte
	for _, off := range lf.FrameDataOffsets(frame) {
		rec, err := lf.file.extract(Entry{Offset: off})
		if err != nil {
			return nil, errors.Wrapf(err, "frame %s", frame.Name)
		}

		r := newReader(rec.Data)
		name, err := r.obname()
		if err != nil {
			return nil, errors.Wrapf(err, "fdata at %d", off)
		}
		if name != frame.Name {
			return nil, errors.Wrapf(fault.ErrCorruptFormat,
				"fdata at %d belongs to %s, not %s", off, name, frame.Name)
		}
		number, err := r.uvari()
		if err != nil {
			return nil, errors.Wrapf(err, "frame number of fdata at %d", off)
		}

		row := rec.Data[r.pos:]
		if fixed && len(row) != stride {
			return nil, errors.Wrapf(fault.ErrFrameWidthMismatch,
				"frame %d of %s has %d bytes, layout %s needs %d",
				number, frame.Name, len(row), layout.Format(), stride)
		}
		out.FrameNumbers = append(out.FrameNumbers, number)
		buf = append(buf, row...)
	}

	cols, rows, err := layout.Extract(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %s", frame.Name)
	}
	if rows != len(out.FrameNumbers) {
		return nil, errors.Wrapf(fault.ErrFrameWidthMismatch,
			"frame %s: %d records decode to %d rows", frame.Name, len(out.FrameNumbers), rows)
	}
	out.Columns = cols
	return out, nil
}

// NoFormat returns the data of every NOFORM record owned by obj, in
// file order, without the object name prefix.
func (lf *LogicalFile) NoFormat(obj *Object) ([][]byte, error) {
	var out [][]byte
	for _, off := range lf.implicit[Fingerprint{Type: typeNoFormat, Name: obj.Name}] {
		rec, err := lf.file.extract(Entry{Offset: off})
		if err != nil {
			return nil, err
		}
		r := newReader(rec.Data)
		if _, err := r.obname(); err != nil {
			return nil, errors.Wrapf(err, "noform at %d", off)
		}
		out = append(out, rec.Data[r.pos:])
	}
	return out, nil
}
