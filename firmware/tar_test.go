package firmware

import (
	"archive/tar"
	"bytes"
	"io"
	"testing"
)

// buildArchive assembles an in-memory ustar archive.
func buildArchive(t *testing.T, members map[string][]byte, dirs ...string) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)

	for _, dir := range dirs {
		if err := tw.WriteHeader(&tar.Header{Name: dir, Typeflag: tar.TypeDir, Mode: 0o755}); err != nil {
			t.Fatalf("write dir header: %v", err)
		}
	}
	for name, content := range members {
		hdr := &tar.Header{Name: name, Size: int64(len(content)), Mode: 0o644}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write(content); err != nil {
			t.Fatalf("write content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf
}

func TestTarWalkSequential(t *testing.T) {
	boot := bytes.Repeat([]byte{0xB0}, 777)
	arc := buildArchive(t, map[string][]byte{"boot.img": boot})

	w := NewTarWalker(arc)
	entry, stream, err := w.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if entry.Name != "boot.img" || entry.Size != 777 || entry.IsDir {
		t.Fatalf("entry = %+v", entry)
	}
	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("drain entry: %v", err)
	}
	if !bytes.Equal(got, boot) {
		t.Error("entry content differs from source")
	}

	if _, _, err := w.Next(); err != io.EOF {
		t.Errorf("after last member: err = %v, want io.EOF", err)
	}
}

func TestTarDirectoryEntriesCarryNoStream(t *testing.T) {
	arc := buildArchive(t, map[string][]byte{"fw/boot.img": {1, 2, 3}}, "fw/")

	w := NewTarWalker(arc)
	entry, stream, err := w.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if !entry.IsDir || stream != nil {
		t.Fatalf("directory entry = %+v with stream %v", entry, stream)
	}

	entry, stream, err = w.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if entry.IsDir || stream == nil {
		t.Fatalf("file entry = %+v", entry)
	}
	if stream.Name != "boot.img" {
		t.Errorf("stream name = %q, want boot.img (base name)", stream.Name)
	}
}

// Property 7: an entry reader of declared size S yields exactly S
// bytes and then EOF, no matter how oddly the caller sizes its reads.
func TestTarSliceIsolation(t *testing.T) {
	first := bytes.Repeat([]byte{0xAA}, 1234)
	second := bytes.Repeat([]byte{0xBB}, 999)
	// Build in declared order to keep the walk deterministic.
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	for _, m := range []struct {
		name string
		data []byte
	}{{"first.img", first}, {"second.img", second}} {
		if err := tw.WriteHeader(&tar.Header{Name: m.name, Size: int64(len(m.data)), Mode: 0o644}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write(m.data); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()

	w := NewTarWalker(buf)
	entry, stream, err := w.Next()
	if err != nil {
		t.Fatal(err)
	}

	// Cycle through awkward buffer sizes while draining.
	sizes := []int{1, 3, 7, 500, 4096}
	var got []byte
	for i := 0; ; i++ {
		p := make([]byte, sizes[i%len(sizes)])
		n, err := stream.Read(p)
		got = append(got, p[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if int64(len(got)) != entry.Size {
		t.Fatalf("entry yielded %d bytes, want %d", len(got), entry.Size)
	}
	// Further reads keep returning EOF without touching the next
	// member.
	p := make([]byte, 16)
	if n, err := stream.Read(p); n != 0 || err != io.EOF {
		t.Errorf("read past size = (%d, %v), want (0, EOF)", n, err)
	}

	entry, stream, err = w.Next()
	if err != nil {
		t.Fatal(err)
	}
	next, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(next, second) {
		t.Error("second member corrupted by over-reading the first")
	}
}

func TestTarCorruptArchive(t *testing.T) {
	w := NewTarWalker(bytes.NewReader(bytes.Repeat([]byte{0x42}, 1024)))
	_, _, err := w.Next()
	if err == nil || err == io.EOF {
		t.Fatalf("err = %v, want a tar error", err)
	}
	if !IsTarCorrupt(err) {
		t.Errorf("IsTarCorrupt() = false for %v", err)
	}
}

func TestSuffixMatching(t *testing.T) {
	tests := []struct {
		name  string
		pit   bool
		image bool
		lz4   bool
	}{
		{"vbmeta.img", false, true, false},
		{"SBOOT.BIN", false, true, false},
		{"boot.IMG.LZ4", false, true, true},
		{"super.img.lz4", false, true, true},
		{"CSC_ODM.pit", true, false, false},
		{"GALAXY.PIT", true, false, false},
		{"readme.txt", false, false, false},
		{"archive.lz4", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPitName(tt.name); got != tt.pit {
				t.Errorf("IsPitName = %v, want %v", got, tt.pit)
			}
			if got := IsImageName(tt.name); got != tt.image {
				t.Errorf("IsImageName = %v, want %v", got, tt.image)
			}
			if got := IsLZ4Name(tt.name); got != tt.lz4 {
				t.Errorf("IsLZ4Name = %v, want %v", got, tt.lz4)
			}
		})
	}
}
