package lis

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// LogicalFile is one LIS logical file: its index and its explicit
// records.
type LogicalFile struct {
	Index     *Index
	Explicits []*Record

	file *File
}

func (f *File) newLogicalFile(idx *Index) (*LogicalFile, error) {
	lf := &LogicalFile{Index: idx, file: f}

	explicits := idx.Explicits()
	f.opts.Recorder.RecordIndexed(format, "explicit", len(explicits))
	f.opts.Recorder.RecordIndexed(format, "implicit", len(idx.Implicits()))

	for _, e := range explicits {
		rec, err := f.extract(e)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if !rec.Consistent {
			if err := f.opts.Handler.Handle(fault.Report{
				Severity: fault.Warning,
				Context:  "lis.Load",
				Problem:  "physical records of a logical record are not chained consistently",
				Spec:     "LIS79 2.3.1.2: only the first physical record lacks the predecessor bit",
				Action:   "record is used as assembled",
				Debug:    fmt.Sprintf("record at %d, physical records %v", rec.Offset, rec.Records),
			}); err != nil {
				return nil, err
			}
		}
		lf.Explicits = append(lf.Explicits, rec)
	}
	return lf, nil
}

// Records returns the explicit records of type t.
func (lf *LogicalFile) Records(t RecordType) []*Record {
	var out []*Record
	for _, rec := range lf.Explicits {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

// Header decodes the file header record.
func (lf *LogicalFile) Header() (*FileHeaderRecord, error) {
	recs := lf.Records(FileHeader)
	if len(recs) == 0 {
		return nil, errors.Wrap(fault.ErrNotFound, "logical file has no file header")
	}
	return ParseFileHeader(recs[0].Data)
}

// Trailer decodes the file trailer record.
func (lf *LogicalFile) Trailer() (*FileHeaderRecord, error) {
	recs := lf.Records(FileTrailer)
	if len(recs) == 0 {
		return nil, errors.Wrap(fault.ErrNotFound, "logical file has no file trailer")
	}
	return ParseFileHeader(recs[0].Data)
}

// Wellsite decodes the component blocks of every wellsite data record.
func (lf *LogicalFile) Wellsite() ([]Component, error) {
	var out []Component
	for _, rec := range lf.Records(WellsiteData) {
		cs, err := ParseComponents(rec.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "wellsite data at %d", rec.Offset)
		}
		out = append(out, cs...)
	}
	return out, nil
}

// FormatSpec is a data format specification and the record it came from.
type FormatSpec struct {
	*DFSR
	Offset int64
}

// FormatSpecs decodes every data format specification record.
func (lf *LogicalFile) FormatSpecs() ([]FormatSpec, error) {
	var out []FormatSpec
	for _, rec := range lf.Records(DataFormatSpec) {
		d, err := ParseDFSR(rec.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "data format specification at %d", rec.Offset)
		}
		out = append(out, FormatSpec{DFSR: d, Offset: rec.Offset})
	}
	return out, nil
}

// dataRecords returns the implicit records described by spec: those of
// its data record type between it and the next specification.
func (lf *LogicalFile) dataRecords(spec FormatSpec) []Entry {
	end := int64(-1)
	for _, e := range lf.Index.Entries {
		if e.Type == DataFormatSpec && e.Offset > spec.Offset {
			end = e.Offset
			break
		}
	}

	var out []Entry
	for _, e := range lf.Index.Implicits() {
		if e.Offset < spec.Offset || (end >= 0 && e.Offset > end) {
			continue
		}
		if e.Type == spec.RecordType {
			out = append(out, e)
		}
	}
	return out
}

// Curves holds the decoded frames of one data format specification.
type Curves struct {
	Layout  *Layout
	Depths  []float64 // per frame, depth recording mode 1 only
	Columns []Column
	rows    int
}

// Rows returns the number of frames.
func (c *Curves) Rows() int { return c.rows }

// Column returns the column of the named channel.
func (c *Curves) Column(name string) (*Column, bool) {
	for i := range c.Columns {
		if c.Columns[i].Field.Name == name {
			return &c.Columns[i], true
		}
	}
	return nil, false
}

// Curves reads every data record described by spec and decodes its
// frames. In depth recording mode 1 each record starts with the depth of
// its first frame, and the following frames step by the frame spacing in
// the logging direction.
func (lf *LogicalFile) Curves(spec FormatSpec) (*Curves, error) {
	layout, err := NewLayout(spec.DFSR)
	if err != nil {
		return nil, err
	}
	out := &Curves{Layout: layout}

	var buf []byte
	for _, e := range lf.dataRecords(spec) {
		rec, err := lf.file.Extract(e.Offset)
		if err != nil {
			return nil, errors.Wrapf(err, "data record at %d", e.Offset)
		}
		data := rec.Data

		if spec.DepthMode == 1 {
			w := spec.DepthCode.Width()
			if w == 0 {
				return nil, errors.Wrapf(fault.ErrUnsupportedReprCode,
					"depth representation code %s", spec.DepthCode)
			}
			v, err := Decode(data, spec.DepthCode, w)
			if err != nil {
				return nil, errors.Wrapf(err, "depth of data record at %d", e.Offset)
			}
			depth, _ := asFloat(v)
			data = data[w:]

			if layout.Stride() > 0 {
				if len(data)%layout.Stride() != 0 {
					return nil, errors.Wrapf(fault.ErrFrameWidthMismatch,
						"data record at %d has %d bytes of frames, frame size is %d",
						e.Offset, len(data), layout.Stride())
				}
				step := spec.step()
				for i := 0; i < len(data)/layout.Stride(); i++ {
					out.Depths = append(out.Depths, depth+float64(i)*step)
				}
			}
		}
		buf = append(buf, data...)
	}

	cols, rows, err := layout.Extract(buf)
	if err != nil {
		return nil, err
	}
	out.Columns, out.rows = cols, rows
	return out, nil
}

// step returns the depth change between frames. Direction 1 logs up,
// 255 logs down.
func (d *DFSR) step() float64 {
	if !d.HasSpacing {
		return 0
	}
	if d.Direction == 1 {
		return -d.Spacing
	}
	return d.Spacing
}
