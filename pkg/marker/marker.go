package marker

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Marker names persisted on a volume
const (
	Magic       = "magic"
	ClusterFSID = "ceph_fsid"
	FSID        = "fsid"
	WhoAmI      = "whoami"
	Ready       = "ready"
	Active      = "active"
)

var (
	// ErrTruncated means the content does not end with a newline
	ErrTruncated = errors.New("line is truncated")

	// ErrTooManyLines means the content holds more than one line
	ErrTooManyLines = errors.New("too many lines")
)

// CorruptError reports a marker file that violates the single-line format
type CorruptError struct {
	Path string
	Err  error // ErrTruncated or ErrTooManyLines
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("file is corrupt: %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// ParseLine enforces the single-line contract: data must be exactly one
// newline-terminated line. The newline is stripped.
func ParseLine(data []byte) (string, error) {
	if len(data) == 0 || data[len(data)-1] != '\n' {
		return "", ErrTruncated
	}
	line := data[:len(data)-1]
	if bytes.IndexByte(line, '\n') >= 0 {
		return "", ErrTooManyLines
	}
	return string(line), nil
}

// Read returns the value of marker name in dir. ok is false when the marker
// does not exist.
func Read(dir, name string) (value string, ok bool, err error) {
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	value, err = ParseLine(data)
	if err != nil {
		return "", false, &CorruptError{Path: path, Err: err}
	}
	return value, true, nil
}

// Write atomically sets marker name in dir to text. The value is written to
// a process-unique temporary file, flushed, and renamed over the marker, so
// readers see either the old content or the new one.
func Write(dir, name, text string) error {
	if strings.Contains(text, "\n") {
		return fmt.Errorf("marker %s: value must be a single line", name)
	}

	path := filepath.Join(dir, name)
	tmp := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if _, err := f.WriteString(text + "\n"); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	// Data must be durable before the rename makes it visible
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, path, err)
	}

	return syncDir(dir)
}

// Exists reports whether marker name is present in dir
func Exists(dir, name string) (bool, error) {
	_, err := os.Lstat(filepath.Join(dir, name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat marker %s: %w", name, err)
}

// Touch creates an empty marker file (used for init-system tags)
func Touch(dir, name string) error {
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f.Close()
}

// Remove deletes marker name from dir. A missing marker is not an error.
func Remove(dir, name string) error {
	err := os.Remove(filepath.Join(dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove marker %s: %w", name, err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", dir, err)
	}
	return nil
}
