// Package fault defines the error taxonomy shared by the DLIS and LIS
// decoders and the Handler that decides, per severity, whether a decoding
// problem aborts the load or is logged and skipped.
//
// Errors are built on github.com/cockroachdb/errors. Every returned error
// wraps exactly one of the package sentinels, so callers classify with
// errors.Is:
//
//	files, err := dlis.Load(path, dlis.Options{})
//	if errors.Is(err, fault.ErrTruncatedRecord) {
//	    // the stream ended inside a record
//	}
//
// # Severities
//
// Low-level parse problems are reported to a Handler as a Report tagged
// with a Severity. The Handler maps Info, Warning and Critical to an
// Action: Raise turns the report into an *Error returned to the caller,
// Log writes it through zap and lets decoding continue.
//
// The zero Handler, and a nil *Handler, log everything. Strict raises
// warnings and critical problems.
package fault
