package firmware

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PIT plausibility bounds. A structural parse is out of scope; the
// check only rejects blobs that cannot possibly be a partition table.
const (
	// pitMinLength is the length floor for a candidate blob
	pitMinLength = 20

	// pitProbeWindow is how many leading bytes must contain at least
	// one non-zero value.
	pitProbeWindow = 100
)

// backupTimeFormat is the timestamp layout of PIT backup filenames.
const backupTimeFormat = "2006-01-02_15-04-05"

// InvalidPitError rejects a candidate PIT blob.
type InvalidPitError struct {
	Reason string
}

func (e *InvalidPitError) Error() string {
	return fmt.Sprintf("invalid PIT: %s", e.Reason)
}

// ValidatePit sanity-checks a candidate partition table: it must be
// at least the length floor and must not open with an all-zero
// prefix.
func ValidatePit(blob []byte) error {
	if len(blob) < pitMinLength {
		return &InvalidPitError{Reason: fmt.Sprintf("only %d bytes, need at least %d", len(blob), pitMinLength)}
	}

	window := pitProbeWindow
	if len(blob) < window {
		window = len(blob)
	}
	for _, b := range blob[:window] {
		if b != 0 {
			return nil
		}
	}
	return &InvalidPitError{Reason: "leading bytes are all zero"}
}

// BackupPath builds the timestamped backup location under base:
// <base>/backup/samsung/pit/<YYYY-MM-DD_HH-mm-ss>.pit
func BackupPath(base string, now time.Time) string {
	return filepath.Join(base, "backup", "samsung", "pit", now.Format(backupTimeFormat)+".pit")
}

// BackupPit validates blob and writes it to the timestamped backup
// path, creating directories as needed. Returns the written path.
func BackupPit(base string, blob []byte, now time.Time) (string, error) {
	if err := ValidatePit(blob); err != nil {
		return "", err
	}

	path := BackupPath(base, now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &FileError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", &FileError{Path: path, Err: err}
	}
	return path, nil
}
