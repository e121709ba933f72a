package dlis

import (
	"encoding/binary"
)

// Logical record segment header: LENGTH(2)|ATTRIBUTES(1)|TYPE(1).
// LENGTH counts the header and the trailer.
const (
	// SegmentHeaderSize is the size of the segment header
	SegmentHeaderSize = 4

	// Logical record segment attribute bits
	SegExplicit         byte = 1 << 7
	SegPredecessor      byte = 1 << 6
	SegSuccessor        byte = 1 << 5
	SegEncrypted        byte = 1 << 4
	SegEncryptionPacket byte = 1 << 3
	SegChecksum         byte = 1 << 2
	SegTrailingLength   byte = 1 << 1
	SegPadding          byte = 1 << 0

	// Trailer fields, in file order after the pad bytes
	checksumSize       = 2
	trailingLengthSize = 2
)

// SegmentHeader is a decoded logical record segment header.
type SegmentHeader struct {
	Length     int
	Attributes byte
	Type       int
}

// ParseSegmentHeader decodes the first SegmentHeaderSize bytes of buf.
func ParseSegmentHeader(buf []byte) SegmentHeader {
	return SegmentHeader{
		Length:     int(binary.BigEndian.Uint16(buf[0:2])),
		Attributes: buf[2],
		Type:       int(buf[3]),
	}
}

// Body returns the number of bytes between header and end of segment.
func (h SegmentHeader) Body() int {
	return h.Length - SegmentHeaderSize
}

func (h SegmentHeader) has(bit byte) bool { return h.Attributes&bit != 0 }

// Explicit reports whether the segment belongs to an explicitly formatted record.
func (h SegmentHeader) Explicit() bool { return h.has(SegExplicit) }

// Predecessor reports whether the segment continues an earlier one.
func (h SegmentHeader) Predecessor() bool { return h.has(SegPredecessor) }

// Successor reports whether the segment is continued by the next one.
func (h SegmentHeader) Successor() bool { return h.has(SegSuccessor) }

// Encrypted reports whether the segment body is encrypted.
func (h SegmentHeader) Encrypted() bool { return h.has(SegEncrypted) }

// Checksum reports whether the trailer carries a checksum.
func (h SegmentHeader) Checksum() bool { return h.has(SegChecksum) }

// hasTrailer reports whether any trailer field is present.
func (h SegmentHeader) hasTrailer() bool {
	return h.Attributes&(SegPadding|SegChecksum|SegTrailingLength) != 0
}

// trimSize returns how many bytes at the end of body belong to the
// trailer: pad bytes, checksum and trailing length. The result may exceed
// len(body) when the pad count is inconsistent with the segment length.
func trimSize(attrs byte, body []byte) int {
	trim := 0
	if attrs&SegChecksum != 0 {
		trim += checksumSize
	}
	if attrs&SegTrailingLength != 0 {
		trim += trailingLengthSize
	}
	if attrs&SegPadding != 0 {
		i := len(body) - trim - 1
		if i < 0 {
			return trim + 1
		}
		trim += int(body[i])
	}
	return trim
}
