package dlis

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/stream"
)

// SegmentEntry is one logical record segment seen while indexing.
type SegmentEntry struct {
	Offset     int64
	Length     int
	Attributes byte
	Type       int
}

// Successor reports whether another segment of the same record follows.
func (e SegmentEntry) Successor() bool { return e.Attributes&SegSuccessor != 0 }

// First reports whether the segment starts a logical record.
func (e SegmentEntry) First() bool { return e.Attributes&SegPredecessor == 0 }

// Checksum reports whether the segment trailer carries a checksum.
func (e SegmentEntry) Checksum() bool { return e.Attributes&SegChecksum != 0 }

// Entry is one logical record in an index.
type Entry struct {
	Offset   int64 `json:"offset"`
	Explicit bool  `json:"explicit"`
	Type     int   `json:"type"`
	Segments int   `json:"segments"`
	Length   int   `json:"length"` // sum of segment lengths, headers included
}

// Tag classifies the entry.
func (e Entry) Tag() Tag { return Classify(e.Explicit, e.Type) }

// Index holds the record boundaries of one logical file.
type Index struct {
	Entries  []Entry
	Segments []SegmentEntry
	Broken   []int64 // offset of the record where indexing stopped
}

// Explicits returns the explicitly formatted records.
func (x *Index) Explicits() []Entry { return x.filter(true) }

// Implicits returns the indirectly formatted records.
func (x *Index) Implicits() []Entry { return x.filter(false) }

func (x *Index) filter(explicit bool) []Entry {
	var out []Entry
	for _, e := range x.Entries {
		if e.Explicit == explicit {
			out = append(out, e)
		}
	}
	return out
}

// Size returns the number of complete logical records.
func (x *Index) Size() int { return len(x.Entries) }

// FindOffsets indexes the logical records of one logical file, starting
// at the cursor position. It stops before an explicit FILE-HEADER that
// is not the first record, leaving the cursor on it, or at end of
// stream. Critical problems are reported to h and end the index; the
// offset of the record being read is then added to Broken. The returned
// error is non-nil only when h raises.
func FindOffsets(c stream.Cursor, h *fault.Handler) (*Index, error) {
	idx := &Index{}

	lrOffset := c.Tell()
	lrsOffset := lrOffset
	hasSuccessor := false
	explicits := 0
	var pending *Entry

	broken := func(problem, action string, err error) error {
		idx.Broken = append(idx.Broken, lrOffset)
		return h.Handle(fault.Report{
			Severity: fault.Critical,
			Context:  "dlis.FindOffsets",
			Problem:  problem,
			Action:   action,
			Debug: fmt.Sprintf("logical record at %d, segment at %d (physical %d)",
				lrOffset, lrsOffset, c.Physical(lrsOffset)),
			Err: err,
		})
	}

	for {
		if c.Remaining() == 0 {
			if err := c.Err(); err != nil {
				return idx, broken("file truncated", "indexing stopped", err)
			}
			if hasSuccessor {
				return idx, broken("reached EOF, but last logical record segment expects successor",
					"incomplete record is dropped", errors.Wrap(fault.ErrTruncatedRecord, "missing successor"))
			}
			return idx, nil
		}

		if err := c.Seek(lrsOffset); err != nil {
			return idx, broken("unable to seek to logical record segment", "indexing stopped", err)
		}
		buf, err := c.Read(SegmentHeaderSize)
		if err != nil {
			return idx, broken("file truncated in logical record segment header", "indexing stopped",
				errors.Mark(err, fault.ErrTruncatedRecord))
		}
		hdr := ParseSegmentHeader(buf)

		if hdr.Length < SegmentHeaderSize {
			return idx, broken(
				fmt.Sprintf("too short logical record segment, length %d is less than header size", hdr.Length),
				"indexing stopped",
				errors.Wrapf(fault.ErrCorruptFormat, "segment length %d", hdr.Length))
		}

		if !hdr.Predecessor() && hdr.Explicit() && hdr.Type == 0 && explicits > 0 {
			if hasSuccessor {
				return idx, broken("end of logical file, but last logical record segment expects successor",
					"incomplete record is dropped", errors.Wrap(fault.ErrCorruptFormat, "missing successor"))
			}
			return idx, c.Seek(lrsOffset)
		}

		if hdr.Predecessor() != (pending != nil) {
			if err := h.Handle(fault.Report{
				Severity: fault.Warning,
				Context:  "dlis.FindOffsets",
				Problem:  "predecessor bit does not match the previous segment's successor bit",
				Spec:     "RP66 V1 2.2.2.1: segments of one record are chained by predecessor and successor bits",
				Action:   "segment is indexed as part of the current record",
				Debug:    fmt.Sprintf("segment at %d", lrsOffset),
			}); err != nil {
				idx.Broken = append(idx.Broken, lrOffset)
				return idx, err
			}
		}

		idx.Segments = append(idx.Segments, SegmentEntry{
			Offset:     lrsOffset,
			Length:     hdr.Length,
			Attributes: hdr.Attributes,
			Type:       hdr.Type,
		})
		if pending == nil {
			pending = &Entry{Offset: lrOffset, Explicit: hdr.Explicit(), Type: hdr.Type}
		}
		pending.Segments++
		pending.Length += hdr.Length

		// read the last byte of the segment to detect truncation
		end := lrsOffset + int64(hdr.Length)
		if err := c.Seek(end - 1); err != nil {
			return idx, broken("unable to seek past logical record segment", "indexing stopped", err)
		}
		if _, err := c.Read(1); err != nil {
			return idx, broken("file truncated in logical record segment", "incomplete record is dropped",
				errors.Mark(err, fault.ErrTruncatedRecord))
		}

		lrsOffset = end
		hasSuccessor = hdr.Successor()
		if hasSuccessor {
			continue
		}

		idx.Entries = append(idx.Entries, *pending)
		if pending.Explicit {
			explicits++
		}
		pending = nil
		lrOffset = lrsOffset
	}
}
