//go:build !linux

package mount

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("mount operations are only supported on linux")

func mountDevice(device, fstype string, options []string, target string) error {
	return errUnsupported
}

func unmountPath(target string) error {
	return errUnsupported
}

func moveMount(source, target string) error {
	return errUnsupported
}

func deviceNumber(path string) (uint64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	return 0, errUnsupported
}

func isMountPoint(path string) (bool, error) {
	return false, errUnsupported
}
