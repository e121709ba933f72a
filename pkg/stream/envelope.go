package stream

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Visible record header: LENGTH(2)|0xFF|VERSION(1). LENGTH counts the header.
const (
	// VisibleHeaderSize is the size of a visible record header
	VisibleHeaderSize = 4

	// Pad byte that follows the visible record length
	VisiblePad byte = 0xFF

	// Format version byte, RP66 V1
	VisibleVersion byte = 0x01
)

// Envelope is a Cursor over the logical record segments held in a
// sequence of visible records.
type Envelope struct {
	layer
	records []int64
}

// NewEnvelope scans the visible record headers of parent, starting at
// parent offset start.
func NewEnvelope(parent Cursor, start int64) (*Envelope, error) {
	e := &Envelope{layer: layer{parent: parent}}

	total := parent.Size()
	header := start

	for {
		if header == total {
			e.tail = parent.Err()
			break
		}
		if total-header < VisibleHeaderSize {
			e.tail = parent.Err()
			if e.tail == nil {
				e.tail = errors.Wrapf(fault.ErrTruncatedInput,
					"visible record header at %d truncated, %d bytes left", header, total-header)
			}
			break
		}

		if err := parent.Seek(header); err != nil {
			return nil, err
		}
		buf, err := parent.Read(VisibleHeaderSize)
		if err != nil {
			return nil, err
		}

		length := int64(binary.BigEndian.Uint16(buf[0:2]))
		if buf[2] != VisiblePad || buf[3] != VisibleVersion {
			e.tail = errors.Wrapf(fault.ErrCorruptFormat,
				"visible record at %d (physical %d): expected [0xFF 0x01], found [0x%02X 0x%02X]",
				header, parent.Physical(header), buf[2], buf[3])
			break
		}
		if length < VisibleHeaderSize {
			e.tail = errors.Wrapf(fault.ErrCorruptFormat,
				"visible record at %d: length %d is shorter than its header", header, length)
			break
		}

		e.records = append(e.records, header)
		data := header + VisibleHeaderSize
		if header+length > total {
			e.add(data, total-data)
			e.tail = parent.Err()
			if e.tail == nil {
				e.tail = errors.Wrapf(fault.ErrTruncatedInput,
					"visible record at %d declares %d bytes, stream ends after %d",
					header, length, total-header)
			}
			break
		}
		e.add(data, length-VisibleHeaderSize)
		header += length
	}

	return e, nil
}

// Records returns the parent offsets of every visible record header.
func (e *Envelope) Records() []int64 {
	return e.records
}
