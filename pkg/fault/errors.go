package fault

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors. Decoders wrap these with context; test with errors.Is.
var (
	// ErrUnreadableHeader is returned from Open when the file is too short
	// to hold the format's leading header, or the header cannot be found.
	ErrUnreadableHeader = errors.New("unreadable header")

	// ErrTruncatedInput is returned by a cursor when fewer bytes remain than
	// were asked for.
	ErrTruncatedInput = errors.New("truncated input")

	// ErrTruncatedRecord is returned when a record header declares more
	// bytes than the stream holds.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrCorruptFormat is returned for a bad sentinel, magic or envelope
	// field.
	ErrCorruptFormat = errors.New("corrupt format")

	// ErrMalformedComponent is returned when a set component descriptor is
	// invalid in its position.
	ErrMalformedComponent = errors.New("malformed component")

	// ErrUnsupportedReprCode is returned for reserved or unknown
	// representation codes.
	ErrUnsupportedReprCode = errors.New("unsupported representation code")

	// ErrFrameWidthMismatch is returned when a frame buffer does not divide
	// into whole rows.
	ErrFrameWidthMismatch = errors.New("frame width mismatch")

	// ErrNotFound is returned by lookups that find nothing.
	ErrNotFound = errors.New("not found")
)

// Kind returns the sentinel wrapped by err, or nil if err wraps none.
func Kind(err error) error {
	for _, sentinel := range []error{
		ErrUnreadableHeader,
		ErrTruncatedInput,
		ErrTruncatedRecord,
		ErrCorruptFormat,
		ErrMalformedComponent,
		ErrUnsupportedReprCode,
		ErrFrameWidthMismatch,
		ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}
