package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Recorder holds the Prometheus metrics of the decoders. A nil Recorder
// records nothing.
type Recorder struct {
	recordsIndexed *prometheus.CounterVec
	bytesAssembled *prometheus.CounterVec
	logicalFiles   *prometheus.CounterVec
	handlerEvents  *prometheus.CounterVec

	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		recordsIndexed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welllog_records_indexed_total",
				Help: "Total number of logical records indexed",
			},
			[]string{"format", "kind"},
		),

		bytesAssembled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welllog_bytes_assembled_total",
				Help: "Total payload bytes of assembled logical records",
			},
			[]string{"format"},
		),

		logicalFiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welllog_logical_files_total",
				Help: "Total number of logical files loaded",
			},
			[]string{"format"},
		),

		handlerEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welllog_handler_events_total",
				Help: "Total number of problems routed through the error handler",
			},
			[]string{"severity", "action"},
		),

		loadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "welllog_loads_total",
				Help: "Total number of files loaded",
			},
			[]string{"format", "status"},
		),

		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "welllog_load_duration_seconds",
				Help:    "File load duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format"},
		),
	}
}

// RecordIndexed counts indexed records of a kind ("explicit", "implicit").
func (m *Recorder) RecordIndexed(format, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.recordsIndexed.WithLabelValues(format, kind).Add(float64(n))
}

// RecordBytes counts assembled payload bytes.
func (m *Recorder) RecordBytes(format string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.bytesAssembled.WithLabelValues(format).Add(float64(n))
}

// RecordLogicalFile counts one loaded logical file.
func (m *Recorder) RecordLogicalFile(format string) {
	if m == nil {
		return
	}
	m.logicalFiles.WithLabelValues(format).Inc()
}

// RecordLoad records a file load
func (m *Recorder) RecordLoad(format string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.loadsTotal.WithLabelValues(format, status).Inc()
	m.loadDuration.WithLabelValues(format).Observe(duration.Seconds())
}

// HandlerEvent counts a report processed by a fault.Handler.
func (m *Recorder) HandlerEvent(severity, action string) {
	if m == nil {
		return
	}
	m.handlerEvents.WithLabelValues(severity, action).Inc()
}
