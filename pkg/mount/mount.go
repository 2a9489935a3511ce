package mount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cuemby/osd-activate/pkg/command"
)

const (
	// DefaultTmpRoot is the scratch directory for temporary mounts
	DefaultTmpRoot = "/var/lib/ceph/tmp"
)

// DefaultOptions holds the built-in mount options per filesystem type
var DefaultOptions = map[string]string{
	"btrfs": "noatime,user_subvol_rm_allowed",
	"ext4":  "noatime,user_xattr",
	"xfs":   "noatime",
}

// ResolveOptions picks mount options for fstype: explicit wins, then the
// built-in table, then no options at all
func ResolveOptions(fstype, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return DefaultOptions[fstype]
}

// TypeError reports a failed or ambiguous filesystem type probe
type TypeError struct {
	Device string
	Err    error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot discover filesystem type: %s: %v", e.Device, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

// MountError reports a failed mount or mount move
type MountError struct {
	Source string
	Target string
	Err    error
}

func (e *MountError) Error() string {
	return fmt.Sprintf("mounting filesystem failed: %s on %s: %v", e.Source, e.Target, e.Err)
}

func (e *MountError) Unwrap() error { return e.Err }

// UnmountError reports a failed unmount
type UnmountError struct {
	Path string
	Err  error
}

func (e *UnmountError) Error() string {
	return fmt.Sprintf("unmounting filesystem failed: %s: %v", e.Path, e.Err)
}

func (e *UnmountError) Unwrap() error { return e.Err }

// Manager probes, mounts, moves and unmounts OSD block devices
type Manager struct {
	tmpRoot string
	runner  command.Runner
	logger  zerolog.Logger

	// OS primitives, replaced in tests
	mountFn   func(device, fstype string, options []string, target string) error
	unmountFn func(target string) error
	moveFn    func(source, target string) error
	devFn     func(path string) (uint64, error)
	mountedFn func(path string) (bool, error)
}

// NewManager creates a mount manager that places temporary mounts under tmpRoot
func NewManager(tmpRoot string, runner command.Runner, logger zerolog.Logger) *Manager {
	if tmpRoot == "" {
		tmpRoot = DefaultTmpRoot
	}

	return &Manager{
		tmpRoot:   tmpRoot,
		runner:    runner,
		logger:    logger,
		mountFn:   mountDevice,
		unmountFn: unmountPath,
		moveFn:    moveMount,
		devFn:     deviceNumber,
		mountedFn: isMountPoint,
	}
}

// DetectType returns the on-disk filesystem type of device. The probe reads
// the device directly, bypassing the blkid cache.
func (m *Manager) DetectType(ctx context.Context, device string) (string, error) {
	out, err := m.runner.Run(ctx, "blkid", "-p", "-c", "/dev/null", "-s", "TYPE", "-o", "value", "--", device)
	if err != nil {
		return "", &TypeError{Device: device, Err: err}
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", &TypeError{Device: device, Err: errors.New("probe returned no output")}
	}
	if strings.Contains(text, "\n") {
		return "", &TypeError{Device: device, Err: fmt.Errorf("probe returned multiple lines: %q", text)}
	}

	m.logger.Debug().Str("device", device).Str("fstype", text).Msg("detected filesystem type")
	return text, nil
}

// Mount mounts device on a fresh directory under the scratch root and returns
// that directory. On failure the directory is removed again.
func (m *Manager) Mount(ctx context.Context, device, fstype, options string) (string, error) {
	if err := os.MkdirAll(m.tmpRoot, 0755); err != nil {
		return "", &MountError{Source: device, Target: m.tmpRoot, Err: err}
	}

	// Scratch directories are process-qualified so concurrent runs never collide
	path, err := os.MkdirTemp(m.tmpRoot, fmt.Sprintf("mnt.%d.", os.Getpid()))
	if err != nil {
		return "", &MountError{Source: device, Target: m.tmpRoot, Err: err}
	}

	m.logger.Debug().
		Str("device", device).
		Str("fstype", fstype).
		Str("options", options).
		Str("path", path).
		Msg("mounting")

	if err := m.mountFn(device, fstype, splitOptions(options), path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			m.logger.Warn().Err(rmErr).Str("path", path).Msg("failed to remove scratch directory")
		}
		return "", &MountError{Source: device, Target: path, Err: err}
	}

	return path, nil
}

// Move relocates the mount at source to target without unmounting it. A stale
// symlink at target is replaced by a directory first.
func (m *Manager) Move(ctx context.Context, source, target string) error {
	if err := ensureDir(target); err != nil {
		return &MountError{Source: source, Target: target, Err: err}
	}

	m.logger.Debug().Str("source", source).Str("target", target).Msg("moving mount")

	if err := m.moveFn(source, target); err != nil {
		return &MountError{Source: source, Target: target, Err: err}
	}

	// The scratch directory is now an empty, unmounted directory
	if err := os.Remove(source); err != nil {
		m.logger.Warn().Err(err).Str("path", source).Msg("failed to remove scratch directory")
	}

	return nil
}

// Unmount unmounts path and removes the (now empty) directory
func (m *Manager) Unmount(ctx context.Context, path string) error {
	m.logger.Debug().Str("path", path).Msg("unmounting")

	if err := m.unmountFn(path); err != nil {
		return &UnmountError{Path: path, Err: err}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn().Err(err).Str("path", path).Msg("failed to remove scratch directory")
	}

	return nil
}

// SameDevice reports whether target is a mount point of the same device that
// is mounted at source. A missing or unmounted target never matches.
func (m *Manager) SameDevice(source, target string) (bool, error) {
	targetDev, err := m.devFn(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", target, err)
	}

	mounted, err := m.mountedFn(target)
	if err != nil {
		return false, fmt.Errorf("failed to check mount point %s: %w", target, err)
	}
	if !mounted {
		return false, nil
	}

	sourceDev, err := m.devFn(source)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", source, err)
	}

	return sourceDev == targetDev, nil
}

func ensureDir(path string) error {
	info, err := os.Lstat(path)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove stale symlink %s: %w", path, err)
		}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

func splitOptions(options string) []string {
	var out []string
	for _, opt := range strings.Split(options, ",") {
		if opt = strings.TrimSpace(opt); opt != "" {
			out = append(out, opt)
		}
	}
	return out
}
