// Package stream provides the seekable byte cursors the record indexers
// read from.
//
// A Cursor addresses a logical byte stream. The bottom layer is a File.
// Framing layers stack on top of it and hide their own markers, so the
// layer above sees a clean stream:
//
//	file       [hdr|data][hdr|data][mark][hdr|data]   TapeImage (12-byte TIF headers)
//	tapeimage  [vr|segments....][vr|segments......]   Envelope (4-byte visible record headers)
//	envelope   [lrsh|body][lrsh|body|trailer]...      what the DLIS indexer reads
//
// Layers scan their headers once when they are opened. A header that does
// not validate, or that declares more bytes than the parent holds, ends the
// intact part of the layer. Data before that point stays readable; a read
// that reaches it fails with the recorded error (fault.ErrCorruptFormat or
// fault.ErrTruncatedInput), also available from Err.
//
// Cursors are not safe for concurrent use.
package stream
