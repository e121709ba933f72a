package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ssargent/welllog/pkg/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRecorder(reg)

	m.RecordIndexed("dlis", "explicit", 3)
	m.RecordIndexed("dlis", "implicit", 0)
	m.RecordIndexed("dlis", "explicit", 2)
	m.RecordBytes("lis", 120)
	m.RecordLogicalFile("dlis")
	m.RecordLogicalFile("dlis")
	m.RecordLoad("dlis", true, 10*time.Millisecond)
	m.RecordLoad("dlis", false, time.Millisecond)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.recordsIndexed.WithLabelValues("dlis", "explicit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.recordsIndexed.WithLabelValues("dlis", "implicit")))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.bytesAssembled.WithLabelValues("lis")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logicalFiles.WithLabelValues("dlis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("dlis", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadsTotal.WithLabelValues("dlis", "error")))
}

func TestRecorder_HandlerObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRecorder(reg)
	h := fault.Strict(zap.NewNop()).WithObserver(m)

	require.NoError(t, h.Handle(fault.Report{Severity: fault.Info, Problem: "minor"}))
	require.Error(t, h.Handle(fault.Report{Severity: fault.Critical, Problem: "major"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerEvents.WithLabelValues("info", "log")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerEvents.WithLabelValues("critical", "raise")))
}

func TestRecorder_Nil(t *testing.T) {
	var m *Recorder
	assert.NotPanics(t, func() {
		m.RecordIndexed("dlis", "explicit", 1)
		m.RecordBytes("dlis", 1)
		m.RecordLogicalFile("dlis")
		m.RecordLoad("dlis", true, time.Second)
		m.HandlerEvent("info", "log")
	})
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	// Two recorders on distinct registries must not collide.
	assert.NotPanics(t, func() {
		NewRecorder(prometheus.NewRegistry())
		NewRecorder(prometheus.NewRegistry())
	})
}
