package lis

import (
	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/stream"
)

// Record is an assembled logical record. Data excludes the logical
// record header and is owned by the record.
type Record struct {
	Offset     int64      `json:"offset"`
	Type       RecordType `json:"type"`
	Code       uint8      `json:"code"`
	Attributes uint8      `json:"attributes"`
	Consistent bool       `json:"consistent"`
	Records    []int64    `json:"records"`
	Data       []byte     `json:"-"`
}

// Extract assembles the logical record whose first physical record is at
// offset.
func Extract(c stream.Cursor, bounds []int64, offset int64) (*Record, error) {
	s := &scanner{c: c, bounds: bounds}
	rec := &Record{Offset: offset, Consistent: true}
	var data []byte
	pos := offset

	for i := 0; ; i++ {
		at, hdr, err := s.header(pos)
		if errors.Is(err, errEnd) {
			return nil, errors.Wrapf(fault.ErrTruncatedRecord,
				"logical record at %d: stream ends before physical record %d", offset, i+1)
		}
		if err != nil {
			return nil, err
		}
		if i == 0 && at != offset {
			return nil, errors.Wrapf(fault.ErrCorruptFormat,
				"no physical record at %d, next one is at %d", offset, at)
		}
		if hdr.Predecessor() != (i > 0) {
			rec.Consistent = false
		}
		rec.Records = append(rec.Records, at)

		if err := c.Seek(at + PRHeaderSize); err != nil {
			return nil, err
		}
		body, err := c.Read(hdr.Length - PRHeaderSize)
		if err != nil {
			return nil, errors.Wrapf(errors.Mark(err, fault.ErrTruncatedRecord),
				"physical record at %d, file truncated", at)
		}
		data = append(data, body[:len(body)-hdr.TrailerSize()]...)

		pos = at + int64(hdr.Length)
		if !hdr.Successor() {
			break
		}
	}

	if len(data) < LRHeaderSize {
		return nil, errors.Wrapf(fault.ErrCorruptFormat,
			"logical record at %d has %d bytes, too short for its header", offset, len(data))
	}
	rec.Code = data[0]
	rec.Type = Classify(data[0])
	rec.Attributes = data[1]
	rec.Data = data[LRHeaderSize:]
	return rec, nil
}
