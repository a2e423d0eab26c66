package firmware

import (
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4"
)

// TrimLZ4Suffix strips a trailing .lz4 from name, in any case.
func TrimLZ4Suffix(name string) string {
	if IsLZ4Name(name) {
		return name[:len(name)-len(".lz4")]
	}
	return name
}

// SpoolLZ4 decompresses an LZ4 stream into a temporary file under dir
// (or the OS default when dir is empty) and returns it as a bounded
// ImageStream. The DATA command needs the exact payload size up
// front, and the LZ4 frame does not reliably declare it, so the
// stream is spooled once to measure it.
//
// Closing the returned stream removes the temporary file.
func SpoolLZ4(name string, r io.Reader, dir string) (*ImageStream, error) {
	logical := TrimLZ4Suffix(name)

	tmp, err := os.CreateTemp(dir, "odinflash-*-"+sanitize(logical))
	if err != nil {
		return nil, &FileError{Path: logical, Err: err}
	}

	size, err := io.Copy(tmp, lz4.NewReader(r))
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, &StreamError{Name: name, Err: err}
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, &FileError{Path: tmp.Name(), Err: err}
	}

	s := NewImageStream(logical, size, tmp)
	s.close = func() error {
		err := tmp.Close()
		if rmErr := os.Remove(tmp.Name()); err == nil {
			err = rmErr
		}
		return err
	}
	return s, nil
}

// sanitize keeps temp-file name fragments free of path separators.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	return strings.ReplaceAll(name, string(os.PathSeparator), "_")
}
