package lis

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/stream"
)

// PhysicalEntry is one physical record seen while indexing.
type PhysicalEntry struct {
	Offset     int64
	Length     int
	Attributes uint16
}

// Successor reports whether another physical record of the same logical
// record follows.
func (e PhysicalEntry) Successor() bool { return e.Attributes&PRSuccessor != 0 }

// First reports whether the physical record starts a logical record.
func (e PhysicalEntry) First() bool { return e.Attributes&PRPredecessor == 0 }

// Checksum reports whether the trailer carries a checksum.
func (e PhysicalEntry) Checksum() bool { return e.Attributes&PRChecksum != 0 }

// Entry is one logical record in an index.
type Entry struct {
	Offset     int64      `json:"offset"`
	Type       RecordType `json:"type"`
	Code       uint8      `json:"code"` // raw type byte
	Attributes uint8      `json:"attributes"`
	Records    int        `json:"records"` // physical records
}

// Implicit reports whether the record holds frame data.
func (e Entry) Implicit() bool { return e.Type.Implicit() }

// Index holds logical record boundaries.
type Index struct {
	Entries  []Entry
	Physical []PhysicalEntry
	Broken   []int64
}

// Explicits returns the records that do not hold frame data.
func (x *Index) Explicits() []Entry { return x.filter(false) }

// Implicits returns the normal and alternate data records.
func (x *Index) Implicits() []Entry { return x.filter(true) }

func (x *Index) filter(implicit bool) []Entry {
	var out []Entry
	for _, e := range x.Entries {
		if e.Implicit() == implicit {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the number of complete logical records.
func (x *Index) Size() int { return len(x.Entries) }

// FindOffsets indexes every logical record of the stream. bounds are the
// ends of the tape image records, nil when the file has no tape image
// framing. Critical problems are reported to h and end the index; the
// returned error is non-nil only when h raises.
func FindOffsets(c stream.Cursor, bounds []int64, h *fault.Handler) (*Index, error) {
	s := &scanner{c: c, bounds: bounds}
	idx := &Index{}

	var pending *Entry
	var pos int64

	broken := func(at int64, problem string, err error) error {
		if pending != nil {
			at = pending.Offset
		}
		idx.Broken = append(idx.Broken, at)
		return h.Handle(fault.Report{
			Severity: fault.Critical,
			Context:  "lis.FindOffsets",
			Problem:  problem,
			Action:   "indexing stopped",
			Debug:    fmt.Sprintf("physical record at %d (physical %d)", pos, c.Physical(pos)),
			Err:      err,
		})
	}

	for {
		at, hdr, err := s.header(pos)
		if errors.Is(err, errEnd) {
			if pending != nil {
				return idx, broken(at, "reached EOF, but last physical record expects successor",
					errors.Wrap(fault.ErrTruncatedRecord, "missing successor"))
			}
			return idx, nil
		}
		pos = at
		if err != nil {
			return idx, broken(at, "unable to read physical record header", err)
		}

		end := at + int64(hdr.Length)
		if end > c.Size() {
			return idx, broken(at, "file truncated in physical record",
				errors.Wrapf(fault.ErrTruncatedRecord, "physical record at %d declares %d bytes, %d left",
					at, hdr.Length, c.Size()-at))
		}

		if hdr.Predecessor() != (pending != nil) {
			if err := h.Handle(fault.Report{
				Severity: fault.Warning,
				Context:  "lis.FindOffsets",
				Problem:  "predecessor bit does not match the previous record's successor bit",
				Spec:     "LIS79 2.3.1.2: physical records of one logical record are chained",
				Action:   "record is indexed as part of the current logical record",
				Debug:    fmt.Sprintf("physical record at %d", at),
			}); err != nil {
				idx.Broken = append(idx.Broken, at)
				return idx, err
			}
		}

		if pending == nil {
			if hdr.Length-PRHeaderSize-hdr.TrailerSize() < LRHeaderSize {
				return idx, broken(at, "physical record too short to hold a logical record header",
					errors.Wrapf(fault.ErrCorruptFormat, "length %d", hdr.Length))
			}
			if err := c.Seek(at + PRHeaderSize); err != nil {
				return idx, broken(at, "unable to seek to logical record header", err)
			}
			lrh, err := c.Read(LRHeaderSize)
			if err != nil {
				return idx, broken(at, "unable to read logical record header", err)
			}
			pending = &Entry{Offset: at, Type: Classify(lrh[0]), Code: lrh[0], Attributes: lrh[1]}
		}

		idx.Physical = append(idx.Physical, PhysicalEntry{Offset: at, Length: hdr.Length, Attributes: hdr.Attributes})
		pending.Records++
		pos = end

		if !hdr.Successor() {
			idx.Entries = append(idx.Entries, *pending)
			pending = nil
		}
	}
}

// Partition splits an index into logical files. A logical file starts
// at a file header, or at any record outside a logical file, and ends
// after a file trailer, before the next file header or at the end of the
// index. Reel and tape records are returned separately.
func Partition(idx *Index) (files []*Index, tape []Entry) {
	var current *Index
	closeFile := func() {
		if current != nil {
			files = append(files, current)
			current = nil
		}
	}

	for _, e := range idx.Entries {
		switch {
		case e.Type.tapeLevel():
			closeFile()
			tape = append(tape, e)
			continue
		case e.Type == FileHeader:
			closeFile()
		}

		if current == nil {
			current = &Index{}
		}
		current.Entries = append(current.Entries, e)
		if e.Type == FileTrailer {
			closeFile()
		}
	}

	if current != nil && len(idx.Broken) > 0 {
		current.Broken = idx.Broken
	}
	closeFile()
	return files, tape
}
