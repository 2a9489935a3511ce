package activate

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	// LockFile is the advisory lock held on a volume while it is activated
	// and while its mount is relocated. It stays on the volume afterwards.
	LockFile = "activate.lock"
)

// LockVolume takes an exclusive advisory lock on the volume mounted at dir,
// blocking until any concurrent holder releases it. The lock follows the
// filesystem, so two mounts of the same device share it.
func LockVolume(dir string) (*flock.Flock, error) {
	fl := flock.New(filepath.Join(dir, LockFile))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	return fl, nil
}
