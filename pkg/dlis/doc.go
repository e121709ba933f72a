// Package dlis reads RP66 V1 (DLIS) files.
//
// # File Structure
//
// A DLIS file starts with an 80-byte storage unit label, followed by a
// sequence of visible records. Visible records carry logical record
// segments; the package reads them through a stream.Envelope, optionally
// stacked on a stream.TapeImage:
//
//	[SUL(80)][VR hdr(4)][LRSH(4)][body][trailer][LRSH(4)][body]...[VR hdr(4)]...
//
// A logical record segment header holds:
//   - LENGTH: 16-bit big-endian length including the header and trailer
//   - ATTRIBUTES: explicit, predecessor, successor, encrypted, encryption
//     packet, checksum, trailing length and padding bits
//   - TYPE: record type code
//
// The trailer is [pad bytes][checksum(2)][trailing length(2)], each part
// present only when its attribute bit is set. The last pad byte holds the
// number of pad bytes, itself included.
//
// # Logical Files
//
// A logical file starts with a FILE-HEADER record and runs until the next
// FILE-HEADER or the end of the file. For each logical file Load builds an
// Index of record offsets, assembles and decodes the explicitly formatted
// records into a Pool of objects, and keys the FDATA and NOFORM records by
// the object name that starts their payload. Frame data is decoded on
// request with LogicalFile.Curves.
//
// # Error Handling
//
// Problems that do not stop decoding are reported to a fault.Handler with
// a severity. The handler decides whether they are logged or returned as
// errors. Structural problems, such as a missing storage label, are always
// returned.
//
// # Thread Safety
//
// A File and the logical files loaded from it share one cursor and are not
// safe for concurrent use. Open separate files per goroutine.
package dlis
