package firmware

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestValidatePit(t *testing.T) {
	tests := []struct {
		name    string
		blob    []byte
		wantErr bool
	}{
		{"nil", nil, true},
		{"below length floor", make([]byte, 19), true},
		{"all-zero prefix", make([]byte, 4096), true},
		{"minimum viable", append([]byte{0x01}, make([]byte, 19)...), false},
		{"nonzero late in window", func() []byte {
			b := make([]byte, 200)
			b[99] = 0x7F
			return b
		}(), false},
		{"nonzero only past the window", func() []byte {
			b := make([]byte, 200)
			b[150] = 0x7F
			return b
		}(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePit(tt.blob)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*InvalidPitError); !ok {
					t.Errorf("error type = %T, want *InvalidPitError", err)
				}
			}
		})
	}
}

func TestBackupPath(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	got := BackupPath("/data", ts)
	want := filepath.Join("/data", "backup", "samsung", "pit", "2024-03-09_14-05-07.pit")
	if got != want {
		t.Errorf("BackupPath() = %q, want %q", got, want)
	}
}

func TestBackupPitWritesFile(t *testing.T) {
	base := t.TempDir()
	blob := append([]byte{0xAB, 0xCD}, make([]byte, 100)...)

	path, err := BackupPit(base, blob, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("BackupPit() error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if len(got) != len(blob) || got[0] != 0xAB {
		t.Error("backup content differs from blob")
	}
	if filepath.Base(path) != "2024-01-02_03-04-05.pit" {
		t.Errorf("backup filename = %q", filepath.Base(path))
	}
}

func TestBackupPitRejectsInvalidBlob(t *testing.T) {
	if _, err := BackupPit(t.TempDir(), []byte{1, 2}, time.Now()); err == nil {
		t.Fatal("BackupPit() accepted an implausible blob")
	}
}
