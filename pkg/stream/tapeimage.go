package stream

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// TIF header: TYPE|PREV|NEXT, each a little-endian uint32.
const (
	// TapeImageHeaderSize is the size of a tape image format header
	TapeImageHeaderSize = 12

	// Header type of a data record
	TapeImageRecord uint32 = 0

	// Header type of a tape mark
	TapeImageMark uint32 = 1
)

// TapeImage is a Cursor over the data of a tape image format stream.
type TapeImage struct {
	layer
	marks   []int64
	headers int
}

// ProbeTapeImage reports whether the parent starts with a plausible tape
// image header. The parent is left at offset 0.
func ProbeTapeImage(parent Cursor) (bool, error) {
	if err := parent.Seek(0); err != nil {
		return false, err
	}
	defer parent.Seek(0)

	buf, err := parent.Read(TapeImageHeaderSize)
	if err != nil {
		return false, errors.Wrapf(fault.ErrUnreadableHeader,
			"cannot read %d first bytes of file", TapeImageHeaderSize)
	}

	typ := binary.LittleEndian.Uint32(buf[0:4])
	prev := binary.LittleEndian.Uint32(buf[4:8])
	next := binary.LittleEndian.Uint32(buf[8:12])

	switch typ {
	case TapeImageRecord:
		return prev == 0 && next > TapeImageHeaderSize, nil
	case TapeImageMark:
		return prev == 0 && next >= TapeImageHeaderSize, nil
	default:
		return false, nil
	}
}

// NewTapeImage scans the tape image headers of parent, starting at its
// offset 0.
func NewTapeImage(parent Cursor) (*TapeImage, error) {
	t := &TapeImage{layer: layer{parent: parent}}

	total := parent.Size()
	var header, prev int64

	for {
		if header == total {
			t.tail = parent.Err()
			break
		}
		if total-header < TapeImageHeaderSize {
			t.tail = errors.Wrapf(fault.ErrTruncatedInput,
				"tape image header at %d truncated, %d bytes left", header, total-header)
			break
		}

		if err := parent.Seek(header); err != nil {
			return nil, err
		}
		buf, err := parent.Read(TapeImageHeaderSize)
		if err != nil {
			return nil, err
		}
		t.headers++

		typ := binary.LittleEndian.Uint32(buf[0:4])
		hprev := int64(binary.LittleEndian.Uint32(buf[4:8]))
		next := int64(binary.LittleEndian.Uint32(buf[8:12]))

		if typ != TapeImageRecord && typ != TapeImageMark {
			t.tail = errors.Wrapf(fault.ErrCorruptFormat,
				"tape image header at %d: type is %d, expected 0 or 1", header, typ)
			break
		}
		if hprev != prev {
			t.tail = errors.Wrapf(fault.ErrCorruptFormat,
				"tape image header at %d: prev is %d, expected %d", header, hprev, prev)
			break
		}
		if next < header+TapeImageHeaderSize {
			t.tail = errors.Wrapf(fault.ErrCorruptFormat,
				"tape image header at %d: next is %d, must be at least %d",
				header, next, header+TapeImageHeaderSize)
			break
		}

		data := header + TapeImageHeaderSize
		if typ == TapeImageMark {
			t.marks = append(t.marks, t.end)
			if next > total {
				t.tail = parent.Err()
				break
			}
		} else {
			if next > total {
				t.add(data, total-data)
				t.tail = errors.Wrapf(fault.ErrTruncatedInput,
					"tape image record at %d declares %d bytes, file ends after %d",
					header, next-data, total-data)
				break
			}
			t.add(data, next-data)
		}

		prev = header
		header = next
	}

	return t, nil
}

// Marks returns the logical offsets at which tape marks occur.
func (t *TapeImage) Marks() []int64 {
	return t.marks
}

// Headers returns the number of headers read while scanning.
func (t *TapeImage) Headers() int {
	return t.headers
}

// Boundaries returns the logical offset at which each data record ends.
func (t *TapeImage) Boundaries() []int64 {
	out := make([]int64, len(t.segs))
	for i, seg := range t.segs {
		out[i] = seg.loff + seg.size
	}
	return out
}
