// Package lis reads LIS79 files.
//
// # File Structure
//
// A LIS file is a sequence of physical records, optionally wrapped in tape
// image framing. A physical record starts with a 4-byte header:
//
//	[LENGTH(2)][ATTRIBUTES(2)][body][trailer]
//
// LENGTH includes the header and trailer. The trailer holds a record
// number, a file number and a checksum, each present only when its
// attribute bit is set. Runs of 0x00 or 0x20 pad bytes that fill the rest
// of a tape image record are skipped.
//
// Physical records chain into logical records through the successor and
// predecessor bits. The first two bytes of a logical record are its header:
// the record type and an attribute byte.
//
// # Logical Files
//
// A logical file starts at a file header and ends after a file trailer or
// before the next file header. Reel and tape headers and trailers sit
// outside logical files and are returned with Files.Tape.
//
// Normal and alternate data records hold frames described by the data
// format specification record that precedes them. LogicalFile.Curves
// decodes them.
//
// # Thread Safety
//
// A File and its logical files share one cursor and are not safe for
// concurrent use.
package lis
