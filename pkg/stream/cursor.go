package stream

import (
	"bufio"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
)

// Cursor is a seekable logical byte stream.
type Cursor interface {
	// Read returns exactly n bytes and advances the cursor. When fewer
	// than n bytes remain it returns what it could read together with an
	// error wrapping fault.ErrTruncatedInput, or the layer's terminal error.
	Read(n int) ([]byte, error)
	// Seek moves to a logical offset.
	Seek(offset int64) error
	// Tell returns the logical offset.
	Tell() int64
	// PTell returns the physical file offset of the current position.
	PTell() int64
	// Physical maps a logical offset to a physical file offset.
	Physical(offset int64) int64
	// Size returns the logical length of the intact stream.
	Size() int64
	// Remaining returns Size() - Tell(), never negative.
	Remaining() int64
	// Err returns the error that ends the intact stream, nil for a clean end.
	Err() error
	// Close releases the underlying file.
	Close() error
}

// FileConfig holds configuration for a file cursor
type FileConfig struct {
	Path   string // Path to the file
	Offset int64  // Physical offset that becomes logical offset 0
}

// File is a Cursor over a regular file.
type File struct {
	file   *os.File
	reader *bufio.Reader
	config FileConfig
	pos    int64 // physical position
	size   int64 // physical file size
}

// OpenFile opens the file at config.Path.
func OpenFile(config FileConfig) (*File, error) {
	file, err := os.Open(config.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open file for path %s", config.Path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "unable to stat %s", config.Path)
	}

	if config.Offset < 0 || config.Offset > stat.Size() {
		file.Close()
		return nil, errors.Newf("offset %d outside file of %d bytes", config.Offset, stat.Size())
	}

	if config.Offset > 0 {
		if _, err := file.Seek(config.Offset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
	}

	return &File{
		file:   file,
		reader: bufio.NewReader(file),
		config: config,
		pos:    config.Offset,
		size:   stat.Size(),
	}, nil
}

// Read reads exactly n bytes.
func (f *File) Read(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Newf("negative read length %d", n)
	}

	buf := make([]byte, n)
	got, err := io.ReadFull(f.reader, buf)
	f.pos += int64(got)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return buf[:got], errors.Wrapf(fault.ErrTruncatedInput,
				"read %d of %d bytes at physical offset %d", got, n, f.pos-int64(got))
		}
		return buf[:got], err
	}
	return buf, nil
}

// Seek sets the logical read offset
func (f *File) Seek(offset int64) error {
	if offset < 0 {
		return errors.Newf("negative seek offset %d", offset)
	}

	target := f.config.Offset + offset
	if target == f.pos {
		return nil
	}
	if _, err := f.file.Seek(target, io.SeekStart); err != nil {
		return err
	}

	f.reader.Reset(f.file) // clear buffered bytes from the old position
	f.pos = target
	return nil
}

// Tell returns the logical offset
func (f *File) Tell() int64 { return f.pos - f.config.Offset }

// PTell returns the physical offset
func (f *File) PTell() int64 { return f.pos }

// Physical maps a logical offset to a physical one.
func (f *File) Physical(offset int64) int64 { return f.config.Offset + offset }

// Size returns the number of bytes from the base offset to end of file.
func (f *File) Size() int64 { return f.size - f.config.Offset }

// Remaining returns the bytes left after the current position.
func (f *File) Remaining() int64 {
	if f.pos >= f.size {
		return 0
	}
	return f.size - f.pos
}

// Err is always nil for a regular file.
func (f *File) Err() error { return nil }

// Path returns the file path
func (f *File) Path() string { return f.config.Path }

// Close closes the file
func (f *File) Close() error {
	return f.file.Close()
}
