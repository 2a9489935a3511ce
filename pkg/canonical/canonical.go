package canonical

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	// DefaultRoot is where every OSD's data directory is reachable
	DefaultRoot = "/var/lib/ceph/osd"
)

// ConflictError means something other than a symlink occupies the canonical
// path of a directory-backed OSD
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("activation failed: %s exists and is not a symlink", e.Path)
}

// Path returns the canonical data directory for id under root
func Path(root string, id types.Identity) string {
	if root == "" {
		root = DefaultRoot
	}
	return filepath.Join(root, id.String())
}

// Link makes the canonical path for id resolve to actual. Nothing happens
// when actual already is the canonical path or a symlink to it already
// exists. A symlink pointing elsewhere is replaced. changed reports whether
// the filesystem was modified.
func Link(root, actual string, id types.Identity) (changed bool, err error) {
	canonical := Path(root, id)
	if filepath.Clean(actual) == canonical {
		return false, nil
	}

	info, err := os.Lstat(canonical)
	switch {
	case err == nil && info.Mode()&os.ModeSymlink == 0:
		return false, &ConflictError{Path: canonical}
	case err == nil:
		current, err := os.Readlink(canonical)
		if err != nil {
			return false, fmt.Errorf("failed to read link %s: %w", canonical, err)
		}
		if current == actual {
			return false, nil
		}
		if err := os.Remove(canonical); err != nil {
			return false, fmt.Errorf("failed to remove stale link %s: %w", canonical, err)
		}
	case !os.IsNotExist(err):
		return false, fmt.Errorf("failed to stat %s: %w", canonical, err)
	}

	if err := os.MkdirAll(filepath.Dir(canonical), 0755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", filepath.Dir(canonical), err)
	}
	if err := os.Symlink(actual, canonical); err != nil {
		return false, fmt.Errorf("failed to link %s to %s: %w", canonical, actual, err)
	}

	return true, nil
}
