package lis

import (
	"encoding/binary"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/ssargent/welllog/pkg/stream"
)

// Physical record header: LENGTH(2)|ATTRIBUTES(2), big-endian. LENGTH
// counts the header and the trailer.
const (
	// PRHeaderSize is the size of a physical record header
	PRHeaderSize = 4

	// LRHeaderSize is the size of the logical record header that starts
	// the first physical record of a logical record
	LRHeaderSize = 2

	// Physical record attribute bits
	PRSuccessor    uint16 = 1 << 0
	PRPredecessor  uint16 = 1 << 1
	PRRecordNumber uint16 = 1 << 9
	PRFileNumber   uint16 = 1 << 10
	PRChecksum     uint16 = 1 << 12
)

// PRHeader is a decoded physical record header.
type PRHeader struct {
	Length     int
	Attributes uint16
}

// ParsePRHeader decodes the first PRHeaderSize bytes of buf.
func ParsePRHeader(buf []byte) PRHeader {
	return PRHeader{
		Length:     int(binary.BigEndian.Uint16(buf[0:2])),
		Attributes: binary.BigEndian.Uint16(buf[2:4]),
	}
}

// Successor reports whether the next physical record continues this one.
func (h PRHeader) Successor() bool { return h.Attributes&PRSuccessor != 0 }

// Predecessor reports whether this physical record continues a previous one.
func (h PRHeader) Predecessor() bool { return h.Attributes&PRPredecessor != 0 }

// TrailerSize returns the size of the trailer flagged in the attributes.
func (h PRHeader) TrailerSize() int {
	n := 0
	if h.Attributes&PRRecordNumber != 0 {
		n += 2
	}
	if h.Attributes&PRFileNumber != 0 {
		n += 2
	}
	if h.Attributes&PRChecksum != 0 {
		n += 2
	}
	return n
}

// errEnd marks a clean end of the physical records.
var errEnd = errors.New("end of physical records")

// scanner reads physical record headers, stepping over pad bytes that
// fill the rest of a tape image record.
type scanner struct {
	c      stream.Cursor
	bounds []int64 // sorted ends of tape image records
}

func isPad(b byte) bool { return b == 0x00 || b == 0x20 }

func allPad(buf []byte) bool {
	for _, b := range buf {
		if !isPad(b) {
			return false
		}
	}
	return true
}

// boundary returns the end of the tape image record holding pos, or the
// end of the stream.
func (s *scanner) boundary(pos int64) int64 {
	i := sort.Search(len(s.bounds), func(i int) bool { return s.bounds[i] > pos })
	if i < len(s.bounds) {
		return s.bounds[i]
	}
	return s.c.Size()
}

// padded reports whether every byte in [pos, end) is a pad byte.
func (s *scanner) padded(pos, end int64) bool {
	if end <= pos {
		return false
	}
	if err := s.c.Seek(pos); err != nil {
		return false
	}
	buf, err := s.c.Read(int(end - pos))
	return err == nil && allPad(buf)
}

// header returns the position and value of the next physical record
// header at or after pos. It returns errEnd when only pad bytes remain.
func (s *scanner) header(pos int64) (int64, PRHeader, error) {
	for {
		if pos >= s.c.Size() {
			if err := s.c.Err(); err != nil {
				return pos, PRHeader{}, err
			}
			return pos, PRHeader{}, errEnd
		}

		if err := s.c.Seek(pos); err != nil {
			return pos, PRHeader{}, err
		}
		buf, err := s.c.Read(PRHeaderSize)
		if err != nil {
			end := s.boundary(pos)
			if s.c.Err() == nil && s.padded(pos, end) {
				pos = end
				continue
			}
			return pos, PRHeader{}, errors.Wrapf(errors.Mark(err, fault.ErrTruncatedRecord),
				"physical record header at %d", pos)
		}

		hdr := ParsePRHeader(buf)
		if hdr.Length < PRHeaderSize || allPad(buf) {
			if end := s.boundary(pos); s.padded(pos, end) {
				pos = end
				continue
			}
		}
		if hdr.Length < PRHeaderSize+hdr.TrailerSize() {
			return pos, hdr, errors.Wrapf(fault.ErrCorruptFormat,
				"physical record at %d: length %d is shorter than its header and trailer", pos, hdr.Length)
		}
		return pos, hdr, nil
	}
}
