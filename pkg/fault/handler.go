package fault

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Severity grades a decoding problem.
type Severity int

const (
	// Info marks deviations that lose no data.
	Info Severity = iota
	// Warning marks deviations where data may be misinterpreted.
	Warning
	// Critical marks problems that stop indexing or drop a record.
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Action is what a Handler does with a report of a given severity.
type Action int

const (
	// Log writes the report and lets decoding continue.
	Log Action = iota
	// Raise returns the report as an error.
	Raise
)

func (a Action) String() string {
	if a == Raise {
		return "raise"
	}
	return "log"
}

// ParseAction maps a configuration string to an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raise":
		return Raise, nil
	case "log", "":
		return Log, nil
	default:
		return Log, errors.Newf("unknown error action %q (want raise or log)", s)
	}
}

// Report describes one problem found while decoding.
type Report struct {
	Severity Severity
	Context  string // where: "dlis.FindOffsets", "lis.Extract"...
	Problem  string // what went wrong
	Spec     string // the format rule that was violated, if known
	Action   string // what the decoder does if it continues
	Debug    string // offsets and other diagnostics
	Err      error  // underlying cause, may be nil
}

// Error is a Report that a Handler decided to raise.
type Error struct {
	Report
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Context, e.Problem)
	if e.Debug != "" {
		msg += " (" + e.Debug + ")"
	}
	return msg
}

// Unwrap exposes the cause so errors.Is sees through to the sentinel.
func (e *Error) Unwrap() error {
	return e.Err
}

// Observer is notified of every report a Handler processes.
type Observer interface {
	HandlerEvent(severity, action string)
}

// Handler routes reports by severity.
type Handler struct {
	Info     Action
	Warning  Action
	Critical Action

	logger   *zap.Logger
	observer Observer
}

// NewHandler returns a permissive handler that logs every severity.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// Strict returns a handler that raises warnings and critical problems.
func Strict(logger *zap.Logger) *Handler {
	return &Handler{Warning: Raise, Critical: Raise, logger: logger}
}

// WithLogger sets the zap logger used for Log actions.
func (h *Handler) WithLogger(logger *zap.Logger) *Handler {
	h.logger = logger
	return h
}

// WithObserver attaches an observer, typically a metrics recorder.
func (h *Handler) WithObserver(o Observer) *Handler {
	h.observer = o
	return h
}

func (h *Handler) action(s Severity) Action {
	if h == nil {
		return Log
	}
	switch s {
	case Info:
		return h.Info
	case Warning:
		return h.Warning
	default:
		return h.Critical
	}
}

// Handle processes a report. It returns a non-nil *Error only when the
// configured action for the report's severity is Raise.
func (h *Handler) Handle(r Report) error {
	act := h.action(r.Severity)
	if h != nil && h.observer != nil {
		h.observer.HandlerEvent(r.Severity.String(), act.String())
	}
	if act == Raise {
		return &Error{Report: r}
	}

	logger := zap.NewNop()
	if h != nil && h.logger != nil {
		logger = h.logger
	}
	fields := []zap.Field{
		zap.String("context", r.Context),
		zap.String("severity", r.Severity.String()),
	}
	if r.Spec != "" {
		fields = append(fields, zap.String("spec", r.Spec))
	}
	if r.Action != "" {
		fields = append(fields, zap.String("action", r.Action))
	}
	if r.Debug != "" {
		fields = append(fields, zap.String("debug", r.Debug))
	}
	if r.Err != nil {
		fields = append(fields, zap.Error(r.Err))
	}

	switch r.Severity {
	case Info:
		logger.Info(r.Problem, fields...)
	case Warning:
		logger.Warn(r.Problem, fields...)
	default:
		logger.Error(r.Problem, fields...)
	}
	return nil
}
