package firmware

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ImageStream is a bounded reader carrying one flashable image. It
// never yields more than Size bytes; a source that ends before Size
// ends the stream early. Streams are owned by the caller and consumed
// once.
type ImageStream struct {
	// Name is the logical image name shown in logs and progress
	Name string

	// Size is the exact payload length in bytes
	Size int64

	r     io.Reader
	close func() error
}

// NewImageStream bounds r to size under the given name.
func NewImageStream(name string, size int64, r io.Reader) *ImageStream {
	return &ImageStream{
		Name: name,
		Size: size,
		r:    io.LimitReader(r, size),
	}
}

func (s *ImageStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close releases the underlying source, if the stream owns one.
func (s *ImageStream) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// FromFile opens an image file as a stream. The caller closes it.
func FromFile(path string) (*ImageStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &FileError{Path: path, Err: err}
	}

	s := NewImageStream(filepath.Base(path), info.Size(), f)
	s.close = f.Close
	return s, nil
}

// StreamError indicates an image source that ended before delivering
// its declared size.
type StreamError struct {
	// Name is the logical image name
	Name string

	// Err is the underlying read failure
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("image stream %s ended early: %v", e.Name, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// FileError indicates a caller-side file precondition violation.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("image file %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
