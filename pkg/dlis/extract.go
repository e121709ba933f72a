package dlis

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/stream"
)

// Record is an assembled logical record. Data is owned by the record.
type Record struct {
	Offset     int64   `json:"offset"`
	Type       int     `json:"type"`
	Explicit   bool    `json:"explicit"`
	Encrypted  bool    `json:"encrypted"`
	Consistent bool    `json:"consistent"`
	Segments   []int64 `json:"segments"`
	Data       []byte  `json:"-"`
}

// Tag classifies the record.
func (r *Record) Tag() Tag { return Classify(r.Explicit, r.Type) }

// Extract assembles the logical record starting at offset.
func Extract(c stream.Cursor, offset int64, h *fault.Handler) (*Record, error) {
	return ExtractN(c, offset, math.MaxInt, h)
}

// ExtractN assembles at most n payload bytes of the logical record at
// offset. Segments without a trailer are read only as far as needed.
func ExtractN(c stream.Cursor, offset int64, n int, h *fault.Handler) (*Record, error) {
	if err := c.Seek(offset); err != nil {
		return nil, err
	}

	rec := &Record{Offset: offset, Consistent: true}
	var data []byte
	var first SegmentHeader
	pos := offset

	for i := 0; ; i++ {
		buf, err := c.Read(SegmentHeaderSize)
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, fault.ErrTruncatedRecord),
				"unable to read logical record segment header at %d, file truncated", pos)
		}
		hdr := ParseSegmentHeader(buf)
		if hdr.Length < SegmentHeaderSize {
			return nil, errors.Wrapf(fault.ErrCorruptFormat,
				"logical record segment at %d: length %d is shorter than its header", pos, hdr.Length)
		}
		rec.Segments = append(rec.Segments, pos)

		if i == 0 {
			first = hdr
			if hdr.Predecessor() {
				rec.Consistent = false
			}
		} else if !hdr.Predecessor() || hdr.Explicit() != first.Explicit() ||
			hdr.Encrypted() != first.Encrypted() || hdr.Type != first.Type {
			rec.Consistent = false
		}

		body := hdr.Body()
		want := body
		if !hdr.hasTrailer() && n-len(data) < body {
			want = n - len(data)
		}
		payload, err := c.Read(want)
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, fault.ErrTruncatedRecord),
				"unable to read logical record segment at %d, file truncated", pos)
		}

		if want == body {
			trim := trimSize(hdr.Attributes, payload)
			if trim > len(payload) {
				if err := h.Handle(fault.Report{
					Severity: fault.Info,
					Context:  "dlis.Extract",
					Problem:  "bad segment trim: padbytes >= segment.length",
					Spec:     "RP66 V1 2.2.2.1: the pad count includes itself and fits the segment body",
					Action:   "segment is skipped",
					Debug:    fmt.Sprintf("segment at %d, body %d bytes, trim %d", pos, len(payload), trim),
				}); err != nil {
					return nil, err
				}
				payload = nil
			} else {
				payload = payload[:len(payload)-trim]
			}
		}
		data = append(data, payload...)

		pos += int64(hdr.Length)
		if !hdr.Successor() || len(data) >= n {
			break
		}
		if want != body {
			if err := c.Seek(pos); err != nil {
				return nil, err
			}
		}
	}

	if len(data) > n {
		data = data[:n]
	}
	rec.Type = first.Type
	rec.Explicit = first.Explicit()
	rec.Encrypted = first.Encrypted()
	rec.Data = data
	return rec, nil
}
