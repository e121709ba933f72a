package stream

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// segment maps a run of logical bytes onto the parent cursor.
type segment struct {
	loff int64 // logical offset of the first byte
	poff int64 // offset of the first byte in the parent
	size int64
}

// layer is the shared mapping for framing layers: the data between
// headers, laid end to end.
type layer struct {
	parent Cursor
	segs   []segment
	end    int64 // logical length of the intact data
	tail   error // why the intact data ends, nil for a clean end
	pos    int64
}

func (l *layer) add(poff, size int64) {
	if size <= 0 {
		return
	}
	l.segs = append(l.segs, segment{loff: l.end, poff: poff, size: size})
	l.end += size
}

// find returns the index of the segment holding offset, or -1.
func (l *layer) find(offset int64) int {
	i := sort.Search(len(l.segs), func(i int) bool {
		return l.segs[i].loff+l.segs[i].size > offset
	})
	if i == len(l.segs) || l.segs[i].loff > offset {
		return -1
	}
	return i
}

func (l *layer) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Newf("negative read length %d", n)
	}

	out := make([]byte, 0, n)
	for len(out) < n && l.pos < l.end {
		i := l.find(l.pos)
		if i < 0 {
			break
		}
		seg := l.segs[i]
		delta := l.pos - seg.loff
		if err := l.parent.Seek(seg.poff + delta); err != nil {
			return out, err
		}

		chunk := int64(n - len(out))
		if avail := seg.size - delta; chunk > avail {
			chunk = avail
		}
		data, err := l.parent.Read(int(chunk))
		out = append(out, data...)
		l.pos += int64(len(data))
		if err != nil {
			return out, err
		}
	}

	if len(out) < n {
		if l.tail != nil {
			return out, l.tail
		}
		return out, errors.Wrapf(fault.ErrTruncatedInput,
			"read %d of %d bytes at logical offset %d", len(out), n, l.pos-int64(len(out)))
	}
	return out, nil
}

func (l *layer) Seek(offset int64) error {
	if offset < 0 {
		return errors.Newf("negative seek offset %d", offset)
	}
	l.pos = offset
	return nil
}

func (l *layer) Tell() int64 { return l.pos }

func (l *layer) PTell() int64 { return l.Physical(l.pos) }

func (l *layer) Physical(offset int64) int64 {
	if i := l.find(offset); i >= 0 {
		seg := l.segs[i]
		return l.parent.Physical(seg.poff + offset - seg.loff)
	}
	if n := len(l.segs); n > 0 && offset >= l.end {
		last := l.segs[n-1]
		return l.parent.Physical(last.poff + last.size + offset - l.end)
	}
	return l.parent.Physical(offset)
}

func (l *layer) Size() int64 { return l.end }

func (l *layer) Remaining() int64 {
	if l.pos >= l.end {
		return 0
	}
	return l.end - l.pos
}

func (l *layer) Err() error { return l.tail }

func (l *layer) Close() error { return l.parent.Close() }
