//go:build linux

package mount

import (
	"os"

	ctdmount "github.com/containerd/containerd/mount"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"
)

func mountDevice(device, fstype string, options []string, target string) error {
	m := &ctdmount.Mount{
		Type:    fstype,
		Source:  device,
		Options: options,
	}
	return m.Mount(target)
}

func unmountPath(target string) error {
	return ctdmount.Unmount(target, 0)
}

func moveMount(source, target string) error {
	return unix.Mount(source, target, "", unix.MS_MOVE, "")
}

func deviceNumber(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return uint64(st.Dev), nil
}

func isMountPoint(path string) (bool, error) {
	return mountinfo.Mounted(path)
}
