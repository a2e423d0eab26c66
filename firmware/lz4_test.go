package firmware

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/pierrec/lz4"
	"github.com/stretchr/testify/assert"
)

func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := lz4.NewWriter(buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close compressor: %v", err)
	}
	return buf.Bytes()
}

func TestSpoolLZ4(t *testing.T) {
	payload := bytes.Repeat([]byte("odin-image-payload"), 4096)
	compressed := compressLZ4(t, payload)

	stream, err := SpoolLZ4("boot.img.lz4", bytes.NewReader(compressed), t.TempDir())
	assert.Nil(t, err, "spool failed: %s", err)
	assert.Equal(t, "boot.img", stream.Name, "suffix not trimmed")
	assert.Equal(t, int64(len(payload)), stream.Size, "decompressed size mismatch")

	got, err := io.ReadAll(stream)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(got, payload), "decompressed payload differs")

	assert.Nil(t, stream.Close())
}

func TestSpoolLZ4RemovesTempOnClose(t *testing.T) {
	dir := t.TempDir()
	compressed := compressLZ4(t, []byte("tiny"))

	stream, err := SpoolLZ4("x.img.lz4", bytes.NewReader(compressed), dir)
	assert.Nil(t, err)
	assert.Nil(t, stream.Close())

	entries, err := os.ReadDir(dir)
	assert.Nil(t, err)
	assert.Len(t, entries, 0, "temp file left behind")
}

func TestSpoolLZ4RejectsGarbage(t *testing.T) {
	_, err := SpoolLZ4("x.img.lz4", bytes.NewReader([]byte("not lz4 at all")), t.TempDir())
	assert.NotNil(t, err, "garbage accepted")
	var se *StreamError
	assert.ErrorAs(t, err, &se)
}

func TestTrimLZ4Suffix(t *testing.T) {
	assert.Equal(t, "boot.img", TrimLZ4Suffix("boot.img.lz4"))
	assert.Equal(t, "BOOT.IMG", TrimLZ4Suffix("BOOT.IMG.LZ4"))
	assert.Equal(t, "boot.img", TrimLZ4Suffix("boot.img"))
}

func TestImageStreamBounds(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0x44}, 100))
	s := NewImageStream("bounded.img", 40, src)

	got, err := io.ReadAll(s)
	assert.Nil(t, err)
	assert.Len(t, got, 40, "stream exceeded its logical size")
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/recovery.img"
	content := []byte{9, 8, 7, 6, 5}
	assert.Nil(t, os.WriteFile(path, content, 0o644))

	s, err := FromFile(path)
	assert.Nil(t, err)
	defer s.Close()

	assert.Equal(t, "recovery.img", s.Name)
	assert.Equal(t, int64(len(content)), s.Size)

	got, err := io.ReadAll(s)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(got, content))
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile("/does/not/exist.img")
	var fe *FileError
	assert.ErrorAs(t, err, &fe)
}
