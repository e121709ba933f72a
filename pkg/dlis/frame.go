package dlis

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Channel and frame attribute labels used by the layout
const (
	labelChannels = "CHANNELS"
	labelReprc    = "REPRESENTATION-CODE"
	labelDim      = "DIMENSION"
	labelUnits    = "UNITS"
)

// maxSamples bounds the samples per row of one channel.
const maxSamples = 1 << 24

// Field is one channel in a frame layout.
type Field struct {
	Name    string     `json:"name"`
	Channel ObjectName `json:"channel"`
	Code    ReprCode   `json:"reprc"`
	Count   int        `json:"count"` // samples per row
	Units   string     `json:"units,omitempty"`
}

// Width returns the bytes one row of the field takes, 0 when variable.
func (f Field) Width() int {
	return f.Code.Width() * f.Count
}

// Layout describes the rows of a frame.
type Layout struct {
	fields []Field
	stride int // 0 when any field is variable width
}

// NewLayout builds the layout of a FRAME object from the CHANNEL objects
// in pool.
func NewLayout(pool *Pool, frame *Object) (*Layout, error) {
	l := &Layout{}
	fixed := true

	for _, ref := range frame.Values(labelChannels) {
		name, ok := ref.(ObjectName)
		if !ok {
			return nil, errors.Wrapf(fault.ErrMalformedComponent,
				"frame %s lists a channel of type %T", frame.Name, ref)
		}
		ch, ok := pool.Find("CHANNEL", name)
		if !ok {
			return nil, errors.Wrapf(fault.ErrNotFound,
				"frame %s references channel %s, which is not in the logical file", frame.Name, name)
		}

		f := Field{Name: name.ID, Channel: name, Code: FSINGL, Count: 1}
		if vs := ch.Values(labelReprc); len(vs) > 0 {
			c, ok := asInt(vs[0])
			if !ok || !ReprCode(c).Valid() {
				return nil, errors.Wrapf(fault.ErrUnsupportedReprCode,
					"channel %s has representation code %v", name, vs[0])
			}
			f.Code = ReprCode(c)
		}
		if vs := ch.Values(labelDim); len(vs) > 0 {
			f.Count = 1
			for _, v := range vs {
				d, ok := asInt(v)
				if !ok || d < 0 {
					return nil, errors.Wrapf(fault.ErrMalformedComponent,
						"channel %s has dimension %v", name, vs)
				}
				if d != 0 && int64(f.Count) > maxSamples/d {
					return nil, errors.Wrapf(fault.ErrMalformedComponent,
						"channel %s has dimension %v, more than %d samples per row", name, vs, maxSamples)
				}
				f.Count *= int(d)
			}
		}
		if vs := ch.Values(labelUnits); len(vs) > 0 {
			if s, ok := vs[0].(string); ok {
				f.Units = s
			}
		}

		if f.Code.Width() == 0 {
			fixed = false
		}
		l.stride += f.Width()
		l.fields = append(l.fields, f)
	}

	if !fixed {
		l.stride = 0
	}
	return l, nil
}

// Fields returns the fields in row order.
func (l *Layout) Fields() []Field { return l.fields }

// Format returns the format string: one character per sample.
func (l *Layout) Format() string {
	var b strings.Builder
	for _, f := range l.fields {
		b.WriteString(strings.Repeat(string(f.Code.Format()), f.Count))
	}
	return b.String()
}

// Stride returns the row width in bytes. The second result is false
// when the layout has variable width fields.
func (l *Layout) Stride() (int, bool) {
	return l.stride, l.stride > 0 || len(l.fields) == 0
}

// Column holds the samples of one field, Count values per row.
type Column struct {
	Field   Field `json:"field"`
	Samples []any `json:"samples"`
}

// MarshalJSON writes the samples the way object values are written.
func (c Column) MarshalJSON() ([]byte, error) {
	type column Column
	return json.Marshal(column{Field: c.Field, Samples: jsonValues(c.Samples)})
}

// Row returns the samples of row i.
func (c *Column) Row(i int) []any {
	return c.Samples[i*c.Field.Count : (i+1)*c.Field.Count]
}

// Float64s converts numeric samples to float64. It returns false on the
// first sample that is not a real number.
func (c *Column) Float64s() ([]float64, bool) {
	out := make([]float64, len(c.Samples))
	for i, s := range c.Samples {
		v, ok := asFloat(s)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Extract decodes whole rows from buf.
func (l *Layout) Extract(buf []byte) ([]Column, int, error) {
	cols := make([]Column, len(l.fields))
	for i, f := range l.fields {
		cols[i].Field = f
	}
	if len(l.fields) == 0 {
		if len(buf) > 0 {
			return nil, 0, errors.Wrapf(fault.ErrFrameWidthMismatch, "%d bytes for an empty layout", len(buf))
		}
		return cols, 0, nil
	}

	rows := 0
	if l.stride > 0 {
		if len(buf)%l.stride != 0 {
			return nil, 0, errors.Wrapf(fault.ErrFrameWidthMismatch,
				"%d bytes is not a multiple of the %d byte frame (%s)", len(buf), l.stride, l.Format())
		}
		rows = len(buf) / l.stride
		for i := range cols {
			cols[i].Samples = make([]any, 0, rows*cols[i].Field.Count)
		}
	}

	r := newReader(buf)
	for !r.done() {
		start := r.pos
		for i := range cols {
			f := cols[i].Field
			vs, err := r.values(f.Code, f.Count)
			if err != nil {
				if errors.Is(err, fault.ErrTruncatedInput) {
					return nil, 0, errors.Wrapf(fault.ErrFrameWidthMismatch,
						"row %d ends inside %s: %v", rows, f.Name, err)
				}
				return nil, 0, err
			}
			cols[i].Samples = append(cols[i].Samples, vs...)
		}
		if r.pos == start {
			return nil, 0, errors.Wrapf(fault.ErrFrameWidthMismatch,
				"%d bytes left for a zero width frame (%s)", r.remaining(), l.Format())
		}
		if l.stride == 0 {
			rows++
		}
	}
	return cols, rows, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case Validated1[float32]:
		return float64(n.V), true
	case Validated2[float32]:
		return float64(n.V), true
	case Validated1[float64]:
		return n.V, true
	case Validated2[float64]:
		return n.V, true
	default:
		i, ok := asInt(v)
		return float64(i), ok
	}
}
