package dlis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolOf(t *testing.T, sets ...[]byte) *Pool {
	t.Helper()
	pool := NewPool()
	for _, data := range sets {
		set, err := ParseSet(data, nil)
		require.NoError(t, err)
		pool.Add(set)
	}
	return pool
}

func TestNewLayout_FourSingles(t *testing.T) {
	pool := poolOf(t, channels("A", "B", "C", "D"), frame("MAIN", "A", "B", "C", "D"))
	main, ok := pool.Object("FRAME", "MAIN", 10, 0)
	require.True(t, ok)

	layout, err := NewLayout(pool, main)
	require.NoError(t, err)
	assert.Equal(t, "ffff", layout.Format())
	stride, fixed := layout.Stride()
	assert.True(t, fixed)
	assert.Equal(t, 16, stride)
	require.Len(t, layout.Fields(), 4)
	assert.Equal(t, "m", layout.Fields()[0].Units)

	cols, rows, err := layout.Extract(vF32(1, 2, 3, 4, 5, 6, 7, 8))
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, []any{float32(1), float32(5)}, cols[0].Samples)
	assert.Equal(t, []any{float32(4), float32(8)}, cols[3].Samples)

	fs, ok := cols[1].Float64s()
	require.True(t, ok)
	assert.Equal(t, []float64{2, 6}, fs)

	_, _, err = layout.Extract(vF32(1, 2, 3, 4, 5))
	assert.True(t, errors.Is(err, fault.ErrFrameWidthMismatch))
}

func TestNewLayout_DimensionAndDefaults(t *testing.T) {
	set := newSet("CHANNEL").
		templateCode("REPRESENTATION-CODE", USHORT).
		templateCode("DIMENSION", UVARI).
		object(10, 0, "IMAGE").value(vU8(uint8(FSINGL))).values(UVARI, 2, concat(vUvari(2), vUvari(3))).
		object(10, 0, "COUNT").value(vU8(uint8(SLONG))).
		object(10, 0, "PLAIN").
		bytes()
	pool := poolOf(t, set, frame("F", "IMAGE", "COUNT", "PLAIN"))
	f, _ := pool.Object("FRAME", "F", 10, 0)

	layout, err := NewLayout(pool, f)
	require.NoError(t, err)
	assert.Equal(t, "ffffffl"+"f", layout.Format())
	stride, fixed := layout.Stride()
	assert.True(t, fixed)
	assert.Equal(t, 6*4+4+4, stride)

	row := concat(vF32(1, 2, 3, 4, 5, 6), []byte{0xFF, 0xFF, 0xFF, 0xFE}, vF32(9))
	cols, rows, err := layout.Extract(row)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Len(t, cols[0].Row(0), 6)
	assert.Equal(t, []any{int32(-2)}, cols[1].Row(0))
}

func TestNewLayout_Variable(t *testing.T) {
	set := newSet("CHANNEL").
		templateCode("REPRESENTATION-CODE", USHORT).
		object(10, 0, "NAME").value(vU8(uint8(IDENT))).
		object(10, 0, "VALUE").value(vU8(uint8(USHORT))).
		bytes()
	pool := poolOf(t, set, frame("F", "NAME", "VALUE"))
	f, _ := pool.Object("FRAME", "F", 10, 0)

	layout, err := NewLayout(pool, f)
	require.NoError(t, err)
	assert.Equal(t, "su", layout.Format())
	_, fixed := layout.Stride()
	assert.False(t, fixed)

	cols, rows, err := layout.Extract(concat(vIdent("ab"), vU8(1), vIdent("c"), vU8(2)))
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, []any{"ab", "c"}, cols[0].Samples)
	_, ok := cols[0].Float64s()
	assert.False(t, ok)

	_, _, err = layout.Extract(concat(vIdent("ab"), vU8(1), vIdent("c")))
	assert.True(t, errors.Is(err, fault.ErrFrameWidthMismatch))
}

func TestNewLayout_MissingChannel(t *testing.T) {
	pool := poolOf(t, channels("A"), frame("F", "A", "B"))
	f, _ := pool.Object("FRAME", "F", 10, 0)

	_, err := NewLayout(pool, f)
	assert.True(t, errors.Is(err, fault.ErrNotFound))
}

func TestNewLayout_BadReprc(t *testing.T) {
	set := newSet("CHANNEL").templateCode("REPRESENTATION-CODE", USHORT).
		object(10, 0, "A").value(vU8(99)).
		bytes()
	pool := poolOf(t, set, frame("F", "A"))
	f, _ := pool.Object("FRAME", "F", 10, 0)

	_, err := NewLayout(pool, f)
	assert.True(t, errors.Is(err, fault.ErrUnsupportedReprCode))
}

func TestNewLayout_DimensionOverflow(t *testing.T) {
	huge := vUvari(1 << 21)
	set := newSet("CHANNEL").
		templateCode("REPRESENTATION-CODE", USHORT).
		templateCode("DIMENSION", UVARI).
		object(10, 0, "HUGE").value(vU8(uint8(FSINGL))).values(UVARI, 3, concat(huge, huge, huge)).
		bytes()
	pool := poolOf(t, set, frame("F", "HUGE"))
	f, _ := pool.Object("FRAME", "F", 10, 0)

	_, err := NewLayout(pool, f)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault.ErrMalformedComponent))
}

func TestReader_NegativeCount(t *testing.T) {
	_, err := newReader(vF32(1)).values(FSINGL, -1)
	assert.True(t, errors.Is(err, fault.ErrMalformedComponent))
}

func TestColumn_MarshalJSON(t *testing.T) {
	cols := []Column{{
		Field:   Field{Name: "GR", Code: FSINGL, Count: 1},
		Samples: []any{float32(1.5), float32(math.NaN()), math.Inf(-1), complex64(complex(1, 2))},
	}}

	data, err := json.Marshal(cols)
	require.NoError(t, err)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, []any{1.5, nil, nil, []any{1.0, 2.0}}, got[0]["samples"])
	assert.Equal(t, "GR", got[0]["field"].(map[string]any)["name"])
}
