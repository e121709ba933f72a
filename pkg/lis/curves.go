package lis

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Field is one channel of a LIS frame.
type Field struct {
	Name  string   `json:"name"`
	Units string   `json:"units,omitempty"`
	Code  ReprCode `json:"reprc"`
	Size  int      `json:"size"`  // bytes per frame
	Count int      `json:"count"` // values per frame
}

// Layout describes the frames of a data format specification.
type Layout struct {
	fields []Field
	stride int
}

// NewLayout builds the frame layout of a data format specification.
func NewLayout(d *DFSR) (*Layout, error) {
	l := &Layout{}
	for _, s := range d.Specs {
		f := Field{Name: s.Mnemonic, Units: s.Units, Code: s.Code, Size: s.Size, Count: 1}
		if w := s.Code.Width(); w > 0 {
			if s.Size%w != 0 {
				return nil, errors.Wrapf(fault.ErrFrameWidthMismatch,
					"%s: size %d is not a multiple of %s width %d", s.Mnemonic, s.Size, s.Code, w)
			}
			f.Count = s.Size / w
		}
		l.fields = append(l.fields, f)
		l.stride += s.Size
	}

	if d.FrameSize > 0 && d.FrameSize != l.stride {
		return nil, errors.Wrapf(fault.ErrFrameWidthMismatch,
			"frame size is %d, spec blocks add up to %d", d.FrameSize, l.stride)
	}
	return l, nil
}

// Fields returns the channels in frame order.
func (l *Layout) Fields() []Field { return l.fields }

// Stride returns the bytes of one frame.
func (l *Layout) Stride() int { return l.stride }

// Format returns one character per value, in frame order.
func (l *Layout) Format() string {
	var b strings.Builder
	for _, f := range l.fields {
		c := formatChars[f.Code]
		if f.Code == String || f.Code == Mask {
			b.WriteByte(c)
			continue
		}
		for i := 0; i < f.Count; i++ {
			b.WriteByte(c)
		}
	}
	return b.String()
}

var formatChars = map[ReprCode]byte{
	F16:    'e',
	F32Low: 'l',
	I8:     's',
	String: 'a',
	Byte:   'b',
	F32:    'f',
	F32Fix: 'p',
	I32:    'i',
	Mask:   'm',
	I16:    'h',
}

// Column holds the samples of one field, Count per frame.
type Column struct {
	Field   Field `json:"field"`
	Samples []any `json:"samples"`
}

// MarshalJSON writes NaN and infinite samples as null.
func (c Column) MarshalJSON() ([]byte, error) {
	type column Column
	out := column{Field: c.Field, Samples: make([]any, len(c.Samples))}
	for i, v := range c.Samples {
		out.Samples[i] = v
		if f, ok := v.(float32); ok && (math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)) {
			out.Samples[i] = nil
		}
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			out.Samples[i] = nil
		}
	}
	return json.Marshal(out)
}

// Row returns the samples of frame i.
func (c *Column) Row(i int) []any {
	n := c.Field.Count
	return c.Samples[i*n : (i+1)*n]
}

// Float64s converts numeric values, false when a value is not numeric.
func (c *Column) Float64s() ([]float64, bool) {
	out := make([]float64, len(c.Samples))
	for i, v := range c.Samples {
		f, ok := asFloat(v)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Extract decodes whole frames from buf. A buffer that is not a multiple
// of the stride is ErrFrameWidthMismatch.
func (l *Layout) Extract(buf []byte) ([]Column, int, error) {
	cols := make([]Column, len(l.fields))
	for i, f := range l.fields {
		cols[i].Field = f
	}
	if l.stride == 0 {
		if len(buf) > 0 {
			return nil, 0, errors.Wrapf(fault.ErrFrameWidthMismatch,
				"%d bytes of frame data, but the layout is empty", len(buf))
		}
		return cols, 0, nil
	}
	if len(buf)%l.stride != 0 {
		return nil, 0, errors.Wrapf(fault.ErrFrameWidthMismatch,
			"%d bytes is not a multiple of the frame size %d", len(buf), l.stride)
	}

	rows := len(buf) / l.stride
	pos := 0
	for row := 0; row < rows; row++ {
		for i, f := range l.fields {
			if f.Count == 1 && f.Code.Width() == 0 {
				v, err := Decode(buf[pos:], f.Code, f.Size)
				if err != nil {
					return nil, 0, errors.Wrapf(err, "frame %d, %s", row, f.Name)
				}
				cols[i].Samples = append(cols[i].Samples, v)
				pos += f.Size
				continue
			}
			w := f.Code.Width()
			for j := 0; j < f.Count; j++ {
				v, err := Decode(buf[pos:], f.Code, w)
				if err != nil {
					return nil, 0, errors.Wrapf(err, "frame %d, %s", row, f.Name)
				}
				cols[i].Samples = append(cols[i].Samples, v)
				pos += w
			}
		}
	}
	return cols, rows, nil
}
